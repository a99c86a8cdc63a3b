package vm

import "github.com/pkg/errors"

// ExecuteDataBuilder runs the named data builder, memoizing its base
// pointer in the instance's data cache (spec.md §4.4). A builder's region
// is built once per Instance lifetime (until Reset).
func (i *Instance) ExecuteDataBuilder(name string) (int64, error) {
	if ptr, ok := i.dataCache[name]; ok {
		return ptr, nil
	}
	directives, ok := i.Module.DataBuilders[name]
	if !ok {
		return 0, errors.Wrapf(ErrModuleLoad, "unknown data builder %q", name)
	}

	var total int64
	for _, d := range directives {
		switch d.Op {
		case WriteLen, WriteI64:
			total += 8
		case WriteBytes:
			total += int64(len(d.Bytes))
		}
	}

	// The trailing 8-byte tail is intentional padding (spec.md §4.4).
	base := i.HeapAlloc(total + 8)
	offset := base
	for _, d := range directives {
		switch d.Op {
		case WriteLen:
			i.WriteI64(offset, d.Int)
			offset += 8
		case WriteI64:
			i.WriteI64(offset, d.Int)
			offset += 8
		case WriteBytes:
			i.WriteBytes(offset, d.Bytes)
			offset += int64(len(d.Bytes))
		}
	}

	i.dataCache[name] = base
	return base, nil
}
