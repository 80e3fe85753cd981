package corpus

import (
	"errors"
	"fmt"

	"github.com/eunmann/urlcorpus/pkg/urlgen"
)

var (
	// ErrInvalidArgument indicates an out-of-range count, length or format.
	ErrInvalidArgument = urlgen.ErrInvalidArgument
	// ErrIO indicates the corpus file could not be created, written or closed.
	ErrIO = errors.New("corpus i/o failure")
)

// IOError records a failed file operation on a corpus path.
// errors.Is(err, ErrIO) holds for every IOError.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
