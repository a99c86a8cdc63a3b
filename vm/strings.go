package vm

import (
	"strconv"
	"strings"
)

// formatInt renders v as a decimal string, used by console.log.val and
// int.tostring alike.
func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// looksLikeVMString reports whether ptr plausibly addresses a VM-native
// string: within heap bounds, with a length prefix in a sane range.
func (i *Instance) looksLikeVMString(ptr int64) bool {
	if ptr < 0 || ptr >= int64(len(i.mem)) {
		return false
	}
	n := i.ReadI64(ptr)
	return n >= 0 && n < 100000
}

// resolveStrArg implements the str.concat polymorphic input convention
// (spec.md §4.3): operand values below 1000 are treated as a numeric
// literal rendered in decimal; otherwise the value is treated as a heap
// pointer to a VM-native string if one plausibly lives there, and the
// numeric rendering is the fallback when it doesn't. This heuristic is
// inherently ambiguous (spec.md §9) — callers should prefer int.tostring
// before str.concat when the value could be either.
func (i *Instance) resolveStrArg(v int64) []byte {
	if v < 1000 {
		return []byte(formatInt(v))
	}
	if i.looksLikeVMString(v) {
		return i.ReadVMString(v)
	}
	return []byte(formatInt(v))
}

func (i *Instance) strConcat(a, b int64) int64 {
	sa, sb := i.resolveStrArg(a), i.resolveStrArg(b)
	out := make([]byte, 0, len(sa)+len(sb))
	out = append(out, sa...)
	out = append(out, sb...)
	return i.AllocVMString(out)
}

// strSub implements 1-based inclusive substring extraction with negative
// indices counting from the end, clamped to [1, len] (spec.md §4.3).
// ops is the full operand list for str.sub: dst, ptr, start[, end].
func (i *Instance) strSub(ops []Operand) int64 {
	ptr := ops[1].Value(i)
	s := i.ReadVMString(ptr)
	n := int64(len(s))

	start := ops[2].Value(i)
	end := n
	if len(ops) > 3 {
		end = ops[3].Value(i)
	}

	start = clampIndex(start, n)
	end = clampIndex(end, n)
	if start > end {
		return i.AllocVMString(nil)
	}
	return i.AllocVMString(s[start-1 : end])
}

// clampIndex normalizes a 1-based, possibly-negative string index against a
// string of length n, clamping the result to [1, n].
func clampIndex(idx, n int64) int64 {
	if idx < 0 {
		idx = n + idx + 1
	}
	if idx < 1 {
		idx = 1
	}
	if idx > n {
		idx = n
	}
	return idx
}

func (i *Instance) strRep(ptr, count int64) int64 {
	s := i.ReadVMString(ptr)
	if count < 0 {
		count = 0
	}
	out := make([]byte, 0, int64(len(s))*count)
	for k := int64(0); k < count; k++ {
		out = append(out, s...)
	}
	return i.AllocVMString(out)
}

func (i *Instance) strReverse(ptr int64) int64 {
	s := i.ReadVMString(ptr)
	out := make([]byte, len(s))
	for k, b := range s {
		out[len(s)-1-k] = b
	}
	return i.AllocVMString(out)
}

func (i *Instance) strUpper(ptr int64) int64 {
	return i.AllocVMString([]byte(strings.ToUpper(string(i.ReadVMString(ptr)))))
}

func (i *Instance) strLower(ptr int64) int64 {
	return i.AllocVMString([]byte(strings.ToLower(string(i.ReadVMString(ptr)))))
}

func (i *Instance) strToNumber(ptr int64) int64 {
	s := strings.TrimSpace(string(i.ReadVMString(ptr)))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// tableConcat concatenates a table's element strings (spec.md §4.3): a
// table is laid out as [i64 length][i64 capacity][i64 metatable][i64
// element pointers...], with element pointers starting at ptr+24. ops is
// the full operand list: dst, tablePtr[, separatorPtr].
func (i *Instance) tableConcat(ops []Operand) int64 {
	tablePtr := ops[1].Value(i)
	length := i.ReadI64(tablePtr)

	var sep []byte
	if len(ops) > 2 {
		sep = i.ReadVMString(ops[2].Value(i))
	}

	out := make([]byte, 0, 64)
	for idx := int64(1); idx <= length; idx++ {
		elemPtr := i.ReadI64(tablePtr + 16 + idx*8)
		out = append(out, i.resolveStrArg(elemPtr)...)
		if len(sep) > 0 && idx < length {
			out = append(out, sep...)
		}
	}
	return i.AllocVMString(out)
}
