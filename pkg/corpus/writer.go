package corpus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// Record is the Parquet row layout of a corpus.
type Record struct {
	URL string `parquet:"url"`
}

const (
	parquetBatchRows    = 4096
	parquetRowGroupRows = 1 << 17
)

// recordWriter encodes URL records onto an underlying file.
// Close flushes buffered data but does not close the file.
type recordWriter interface {
	WriteRecord(rec []byte) error
	Close() error
}

// countingWriter counts bytes that reach the file.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func newRecordWriter(format Format, w io.Writer, bufSize int) (recordWriter, error) {
	switch format {
	case FormatText:
		return &textWriter{w: bufio.NewWriterSize(w, bufSize)}, nil
	case FormatParquet:
		return &parquetWriter{
			w: parquet.NewGenericWriter[Record](w,
				parquet.MaxRowsPerRowGroup(parquetRowGroupRows),
			),
			batch: make([]Record, 0, parquetBatchRows),
		}, nil
	default:
		return nil, fmt.Errorf("unknown corpus format %q: %w", format, ErrInvalidArgument)
	}
}

type textWriter struct {
	w *bufio.Writer
}

func (t *textWriter) WriteRecord(rec []byte) error {
	if _, err := t.w.Write(rec); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

func (t *textWriter) Close() error {
	return t.w.Flush()
}

type parquetWriter struct {
	w     *parquet.GenericWriter[Record]
	batch []Record
}

func (p *parquetWriter) WriteRecord(rec []byte) error {
	p.batch = append(p.batch, Record{URL: string(rec)})
	if len(p.batch) < cap(p.batch) {
		return nil
	}
	return p.flushBatch()
}

func (p *parquetWriter) flushBatch() error {
	if len(p.batch) == 0 {
		return nil
	}
	if _, err := p.w.Write(p.batch); err != nil {
		return err
	}
	p.batch = p.batch[:0]
	return nil
}

func (p *parquetWriter) Close() error {
	if err := p.flushBatch(); err != nil {
		return err
	}
	return p.w.Close()
}
