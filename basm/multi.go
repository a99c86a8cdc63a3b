package basm

import (
	"io"

	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/internal/bout"
)

// LoadReaders concatenates readers, in order, into a single BASM text
// module and loads it — the multi-file counterpart to LoadFile, for hosts
// that keep a module's functions, data builders and exports split across
// several source readers (a shared prelude plus a per-target body, for
// instance) and want them parsed as one module without manual string
// concatenation.
func LoadReaders(readers []io.Reader, opts ...Option) (*Module, error) {
	mr := &bout.MultiReader{}
	for i := len(readers) - 1; i >= 0; i-- {
		mr.Push(readers[i])
	}
	data, err := io.ReadAll(mr)
	if err != nil {
		return nil, errors.Wrap(err, "basm: reading concatenated sources")
	}
	return LoadBytes(data, opts...)
}
