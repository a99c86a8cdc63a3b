package text

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/vm"
)

// Load parses src as a complete BASM text module (spec.md §4.1, §6) and
// returns a finalized *vm.Module ready to bind to an Instance.
func Load(src string) (*vm.Module, error) {
	l := &loader{mod: vm.NewModule(), lines: strings.Split(src, "\n")}
	if err := l.run(); err != nil {
		return nil, err
	}
	l.mod.Finalize()
	return l.mod, nil
}

// loader walks the source line by line, matching the teacher asm parser's
// single-pass, stateful style (db47h-ngaro/asm/parser.go) adapted from a
// token scanner to a line-oriented grammar.
type loader struct {
	mod   *vm.Module
	lines []string
	pos   int // 1-based line number of the last line consumed
}

func (l *loader) run() error {
	for {
		line, ok := l.nextTopLevelLine()
		if !ok {
			return nil
		}
		switch {
		case line == "module" || strings.HasPrefix(line, "module "):
			// acknowledged, no effect (spec.md §4.1)
		case line == "memory" || strings.HasPrefix(line, "memory "):
			// acknowledged, no effect
		case strings.HasPrefix(line, "data"):
			if err := l.parseData(line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "func"):
			if err := l.parseFunc(line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "export"):
			if err := l.parseExport(line); err != nil {
				return err
			}
		default:
			return errors.Wrapf(vm.ErrModuleLoad, "line %d: unrecognized construct %q", l.pos, line)
		}
	}
}

// nextTopLevelLine and nextBodyLine both skip blank lines and ';'-prefixed
// comment lines (spec.md §4.1: "blank lines and ;-prefixed lines are
// ignored"); they are kept distinct only for readability at call sites.
func (l *loader) nextTopLevelLine() (string, bool) {
	return l.nextBodyLine()
}

func (l *loader) nextBodyLine() (string, bool) {
	for l.pos < len(l.lines) {
		line := strings.TrimSpace(l.lines[l.pos])
		l.pos++
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		return line, true
	}
	return "", false
}

func (l *loader) parseData(header string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(header, "data"))
	name, rest, err := parseDollarName(rest)
	if err != nil {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: data: %s", l.pos, err)
	}
	if rest != "{" {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: data $%s: expected '{'", l.pos, name)
	}

	var directives []vm.Directive
	for {
		line, ok := l.nextBodyLine()
		if !ok {
			return errors.Wrapf(vm.ErrModuleLoad, "data $%s: unterminated block", name)
		}
		if line == "}" {
			break
		}
		d, err := parseDirective(line)
		if err != nil {
			return errors.Wrapf(vm.ErrModuleLoad, "line %d: data $%s: %s", l.pos, name, err)
		}
		directives = append(directives, d)
	}
	l.mod.DataBuilders[name] = directives
	return nil
}

func parseDirective(line string) (vm.Directive, error) {
	op, rest := splitFirstToken(line)
	rest = strings.TrimSpace(rest)
	switch op {
	case "write.len":
		n, err := parseIntLiteral(rest)
		if err != nil {
			return vm.Directive{}, errors.Wrapf(err, "write.len")
		}
		return vm.Directive{Op: vm.WriteLen, Int: n}, nil
	case "write.i64":
		n, err := parseIntLiteral(rest)
		if err != nil {
			return vm.Directive{}, errors.Wrapf(err, "write.i64")
		}
		return vm.Directive{Op: vm.WriteI64, Int: n}, nil
	case "write.bytes":
		s, err := unquoteEscaped(rest)
		if err != nil {
			return vm.Directive{}, errors.Wrapf(err, "write.bytes")
		}
		return vm.Directive{Op: vm.WriteBytes, Bytes: []byte(s)}, nil
	default:
		return vm.Directive{}, errors.Errorf("unknown directive %q", op)
	}
}

func (l *loader) parseFunc(header string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(header, "func"))
	name, rest, err := parseDollarName(rest)
	if err != nil {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: func: %s", l.pos, err)
	}
	if !strings.HasPrefix(rest, "(") {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: func $%s: expected '('", l.pos, name)
	}
	closeIdx := strings.Index(rest, ")")
	if closeIdx < 0 {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: func $%s: unterminated params", l.pos, name)
	}
	paramsStr := rest[1:closeIdx]
	tail := strings.TrimSpace(rest[closeIdx+1:])
	if tail != "{" {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: func $%s: expected '{'", l.pos, name)
	}

	var params []string
	for _, p := range strings.Split(paramsStr, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}

	fn := &vm.Function{Name: name, Params: params, Labels: make(map[string]int)}
	for {
		line, ok := l.nextBodyLine()
		if !ok {
			return errors.Wrapf(vm.ErrModuleLoad, "func $%s: unterminated block", name)
		}
		if line == "}" {
			break
		}
		if err := parseFuncBody(fn, line); err != nil {
			return errors.Wrapf(vm.ErrModuleLoad, "line %d: func $%s: %s", l.pos, name, err)
		}
	}
	l.mod.Functions[name] = fn
	return nil
}

// parseFuncBody handles one body line of a function: a trailing-comment
// strip, a label definition, or an instruction with its operand list
// (spec.md §4.1).
func parseFuncBody(fn *vm.Function, line string) error {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if strings.HasPrefix(line, ".") && strings.HasSuffix(line, ":") {
		fn.Labels[line[:len(line)-1]] = len(fn.Instructions) + 1
		return nil
	}

	mnemonic, rest := splitFirstToken(line)
	operandStrs := splitOperands(rest)
	ops := make([]vm.Operand, len(operandStrs))
	for idx, s := range operandStrs {
		o, err := parseOperand(s)
		if err != nil {
			return errors.Wrapf(err, "operand %d (%q)", idx, s)
		}
		ops[idx] = o
	}
	fn.Instructions = append(fn.Instructions, vm.Instruction{Opcode: mnemonic, Operands: ops})
	return nil
}

func (l *loader) parseExport(header string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(header, "export"))
	name, rest, err := parseDollarName(rest)
	if err != nil {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: export: %s", l.pos, err)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "as") {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: export $%s: expected 'as'", l.pos, name)
	}
	alias, err := unquoteEscaped(strings.TrimSpace(rest[len("as"):]))
	if err != nil {
		return errors.Wrapf(vm.ErrModuleLoad, "line %d: export $%s: %s", l.pos, name, err)
	}
	l.mod.Exports[alias] = name
	return nil
}

// parseDollarName reads a "$identifier" prefix off s and returns the bare
// name and the remaining, trimmed tail.
func parseDollarName(s string) (name string, rest string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "$") {
		return "", "", errors.Errorf("expected '$name', got %q", s)
	}
	s = s[1:]
	idx := 0
	for idx < len(s) && isIdentChar(s[idx]) {
		idx++
	}
	if idx == 0 {
		return "", "", errors.New("expected identifier after '$'")
	}
	return s[:idx], strings.TrimSpace(s[idx:]), nil
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func splitFirstToken(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx+1:]
}
