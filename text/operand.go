package text

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/vm"
)

// parseOperand parses a single trimmed operand token into its tagged-variant
// form (spec.md §4.1, §9): a register, an integer or float literal, null,
// a label, a $symbol, or a recursive [base+off] memory reference.
func parseOperand(tok string) (vm.Operand, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return vm.Operand{}, errors.New("empty operand")
	}

	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		return parseMemory(tok[1 : len(tok)-1])
	}

	if tok == "null" || tok == "nil" {
		return vm.Operand{Kind: vm.OperandNull}, nil
	}

	if reg, ok := parseRegister(tok); ok {
		return vm.Operand{Kind: vm.OperandRegister, Reg: reg}, nil
	}

	if strings.HasPrefix(tok, "$") {
		name := tok[1:]
		if name == "" {
			return vm.Operand{}, errors.Errorf("empty symbol %q", tok)
		}
		return vm.Operand{Kind: vm.OperandSymbol, Name: name}, nil
	}

	if strings.HasPrefix(tok, ".") {
		return vm.Operand{Kind: vm.OperandLabel, Name: tok}, nil
	}

	if n, err := parseIntLiteral(tok); err == nil {
		return vm.Operand{Kind: vm.OperandImmediate, Int: n}, nil
	}

	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return vm.Operand{Kind: vm.OperandFloat, Float: f}, nil
	}

	return vm.Operand{}, errors.Errorf("unrecognized operand %q", tok)
}

// parseMemory parses the contents between the brackets of a [base+off] /
// [base-off] / [base] memory operand, splitting on the top-level +/- (one
// not nested inside a further bracket) so base and off can themselves be
// arbitrary operands, per spec.md §4.1/§9 ("base and off are parsed
// recursively").
func parseMemory(inner string) (vm.Operand, error) {
	depth := 0
	splitIdx := -1
	sign := int64(1)
	for idx := 1; idx < len(inner); idx++ {
		switch inner[idx] {
		case '[':
			depth++
		case ']':
			depth--
		case '+':
			if depth == 0 {
				splitIdx, sign = idx, 1
			}
		case '-':
			if depth == 0 {
				splitIdx, sign = idx, -1
			}
		}
	}

	if splitIdx == -1 {
		base, err := parseOperand(strings.TrimSpace(inner))
		if err != nil {
			return vm.Operand{}, errors.Wrap(err, "memory base")
		}
		return vm.Operand{Kind: vm.OperandMemory, Base: &base}, nil
	}

	base, err := parseOperand(strings.TrimSpace(inner[:splitIdx]))
	if err != nil {
		return vm.Operand{}, errors.Wrap(err, "memory base")
	}
	off, err := parseOperand(strings.TrimSpace(inner[splitIdx+1:]))
	if err != nil {
		return vm.Operand{}, errors.Wrap(err, "memory offset")
	}
	return vm.Operand{Kind: vm.OperandMemory, Base: &base, Offset: &off, Sign: sign}, nil
}

// parseRegister recognizes the exact rN token shape; names that merely
// start with 'r' (a symbol or future mnemonic) are left to later checks.
func parseRegister(tok string) (int, bool) {
	if len(tok) < 2 || tok[0] != 'r' {
		return 0, false
	}
	for _, c := range tok[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseIntLiteral parses a signed decimal, 0x-hex or 0b-binary integer
// literal. Hex and binary forms accept '_' digit separators (spec.md §4.1).
func parseIntLiteral(tok string) (int64, error) {
	s := tok
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, errors.Errorf("invalid integer literal %q", tok)
	}

	var u uint64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		u, err = strconv.ParseUint(strings.ReplaceAll(s[2:], "_", ""), 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		u, err = strconv.ParseUint(strings.ReplaceAll(s[2:], "_", ""), 2, 64)
	default:
		var v int64
		v, err = strconv.ParseInt(s, 10, 64)
		u = uint64(v)
	}
	if err != nil {
		return 0, err
	}
	v := int64(u)
	if neg {
		v = -v
	}
	return v, nil
}

// splitOperands splits an instruction's operand tail on top-level commas,
// preserving commas nested inside [...] (spec.md §4.1).
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	depth := 0
	start := 0
	for idx := 0; idx < len(s); idx++ {
		switch s[idx] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:idx]))
				start = idx + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// unquoteEscaped strips surrounding double quotes and resolves the \n, \t
// and \\ escapes supported by write.bytes string literals (spec.md §4.4).
func unquoteEscaped(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errors.Errorf("expected quoted string, got %q", s)
	}
	body := s[1 : len(s)-1]
	var out strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case '\\':
				out.WriteByte('\\')
			default:
				out.WriteByte('\\')
				out.WriteByte(body[i])
			}
			continue
		}
		out.WriteByte(c)
	}
	return out.String(), nil
}
