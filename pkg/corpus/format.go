package corpus

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is the on-disk encoding of a corpus.
type Format string

const (
	// FormatText is one URL per line, newline terminated.
	FormatText Format = "text"
	// FormatParquet is a Parquet file with a single required "url" column.
	FormatParquet Format = "parquet"
)

var parquetMagic = []byte("PAR1")

// ParseFormat parses a format name. The empty string means FormatText.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unknown corpus format %q: %w", s, ErrInvalidArgument)
	}
}

// DetectFormat guesses the format of an existing corpus file from its
// extension, falling back to the Parquet magic bytes.
func DetectFormat(path string) (Format, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", ioErr("open", path, err)
	}
	defer f.Close()

	head := make([]byte, len(parquetMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", ioErr("read", path, err)
	}
	if n == len(parquetMagic) && bytes.Equal(head, parquetMagic) {
		return FormatParquet, nil
	}
	return FormatText, nil
}
