// Package bout holds small io helpers used by the embedding API's
// disassembler (ErrWriter) and multi-reader loader (MultiReader).
package bout

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps an io.Writer and latches the first write error, so callers
// can chain a sequence of writes and check the error once at the end.
type ErrWriter struct {
	w   io.Writer
	Err error
}

// NewErrWriter returns a new ErrWriter wrapping w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// MultiReader chains io.Readers so that input keeps flowing from the next
// reader once the current one reaches EOF, without returning EOF early.
type MultiReader struct {
	readers []io.Reader
}

// Read implements io.Reader.
func (mr *MultiReader) Read(p []byte) (n int, err error) {
	for len(mr.readers) > 0 {
		n, err = mr.readers[0].Read(p)
		if n > 0 || err != io.EOF {
			if err == io.EOF {
				err = nil
			}
			return
		}
		if c, ok := mr.readers[0].(io.Closer); ok {
			c.Close()
		}
		mr.readers = mr.readers[1:]
	}
	return 0, io.EOF
}

// Push prepends r as the next source to read from.
func (mr *MultiReader) Push(r io.Reader) {
	mr.readers = append([]io.Reader{r}, mr.readers...)
}
