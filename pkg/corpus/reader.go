package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

const maxLineBytes = 1 << 20

// Reader streams URL records from a corpus file.
type Reader interface {
	// Next returns the next record. Returns io.EOF when done.
	Next() (string, error)
	// Close releases resources.
	Close() error
}

// Open opens a text or Parquet corpus, detecting the format from the file.
func Open(path string) (Reader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}

	switch format {
	case FormatParquet:
		r, err := newParquetReader(f)
		if err != nil {
			f.Close()
			return nil, ioErr("open", path, err)
		}
		return r, nil
	default:
		r := &textReader{file: f, scanner: bufio.NewScanner(f)}
		r.scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		r.scanner.Split(r.split)
		return r, nil
	}
}

// Read calls fn for every record in the corpus at path, in file order.
// It stops at the first error returned by fn or when ctx is cancelled.
func Read(ctx context.Context, path string, fn func(url string) error) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for i := 0; ; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
		}
		url, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return ioErr("read", path, err)
		}
		if err := fn(url); err != nil {
			return err
		}
	}
}

type textReader struct {
	file         *os.File
	scanner      *bufio.Scanner
	unterminated bool
}

// split cuts records at '\n' only, so a '\r' before the newline stays in the
// record. Trailing bytes without a newline are still returned as a record
// and flagged as unterminated.
func (r *textReader) split(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		r.unterminated = true
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Unterminated reports whether the last record returned had no trailing
// newline. It is only meaningful once Next has returned io.EOF.
func (r *textReader) Unterminated() bool {
	return r.unterminated
}

func (r *textReader) Next() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *textReader) Close() error {
	return r.file.Close()
}

// parquetReader iterates row groups of a corpus Parquet file.
type parquetReader struct {
	file   *os.File
	urlCol int

	rowGroups    []parquet.RowGroup
	currentRGIdx int
	currentRows  parquet.Rows
	rowBuf       []parquet.Row
	bufIdx       int
	bufLen       int
}

func newParquetReader(f *os.File) (*parquetReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	urlCol := -1
	for i, field := range pf.Schema().Fields() {
		if field.Name() == "url" {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, errors.New("parquet schema missing 'url' column")
	}

	return &parquetReader{
		file:         f,
		urlCol:       urlCol,
		rowGroups:    pf.RowGroups(),
		currentRGIdx: -1,
		rowBuf:       make([]parquet.Row, 1024),
	}, nil
}

func (r *parquetReader) Next() (string, error) {
	for {
		if r.bufIdx < r.bufLen {
			row := r.rowBuf[r.bufIdx]
			r.bufIdx++
			for _, val := range row {
				if val.Column() == r.urlCol && !val.IsNull() {
					return val.String(), nil
				}
			}
			return "", nil
		}

		if r.currentRows != nil {
			n, err := r.currentRows.ReadRows(r.rowBuf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("read parquet rows: %w", err)
			}
			r.currentRows.Close()
			r.currentRows = nil
		}

		r.currentRGIdx++
		if r.currentRGIdx >= len(r.rowGroups) {
			return "", io.EOF
		}
		r.currentRows = r.rowGroups[r.currentRGIdx].Rows()
	}
}

func (r *parquetReader) Close() error {
	if r.currentRows != nil {
		r.currentRows.Close()
	}
	return r.file.Close()
}
