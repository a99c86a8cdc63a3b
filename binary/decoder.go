package binary

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/text"
	"github.com/Juicywoowowow/basm-dev/vm"
)

const (
	sectionStrings   = 0x01
	sectionFunctions = 0x02
	sectionExports   = 0x03
	sectionCode      = 0x05
)

var magic = [4]byte{'B', 'A', 'S', 'M'}

// Sniff reports whether data opens with the BASMB magic bytes, the
// auto-detection rule the embedding API uses to pick a loader (spec.md
// §4.5).
func Sniff(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], magic[:])
}

type funcDecl struct {
	name       string
	paramCount int
}

type exportDecl struct {
	alias     string
	funcIndex int
}

// Decode parses a BASMB byte string and returns the equivalent *vm.Module,
// by reconstructing and loading an intermediate text module (spec.md
// §4.2: "the decoder emits a reconstructed text module ... this keeps the
// engine format-agnostic").
func Decode(data []byte) (*vm.Module, error) {
	src, err := Disassemble(data)
	if err != nil {
		return nil, err
	}
	mod, err := text.Load(src)
	if err != nil {
		return nil, errors.Wrap(err, "reloading decoded text module")
	}
	return mod, nil
}

// Disassemble decodes a BASMB byte string into the BASM text source it
// represents, without loading it into a *vm.Module.
func Disassemble(data []byte) (string, error) {
	if !Sniff(data) {
		return "", errors.Wrap(vm.ErrModuleLoad, "missing BASM magic")
	}
	br := bytes.NewReader(data[4:])
	version, err := readU32(br)
	if err != nil {
		return "", errors.Wrap(err, "reading version")
	}
	if major := version & 0xFF; major != 1 {
		return "", errors.Wrapf(vm.ErrModuleLoad, "unsupported major version %d", major)
	}

	sections, err := readSections(br)
	if err != nil {
		return "", err
	}

	var strs []string
	if payload, ok := sections[sectionStrings]; ok {
		if strs, err = decodeStrings(payload); err != nil {
			return "", errors.Wrap(err, "strings section")
		}
	}

	var funcs []funcDecl
	if payload, ok := sections[sectionFunctions]; ok {
		if funcs, err = decodeFunctions(payload); err != nil {
			return "", errors.Wrap(err, "functions section")
		}
	}

	var exports []exportDecl
	if payload, ok := sections[sectionExports]; ok {
		if exports, err = decodeExports(payload); err != nil {
			return "", errors.Wrap(err, "exports section")
		}
	}

	var bodies map[int]string
	if payload, ok := sections[sectionCode]; ok {
		if bodies, err = decodeCode(payload, strs, funcs); err != nil {
			return "", errors.Wrap(err, "code section")
		}
	}

	return render(strs, funcs, exports, bodies), nil
}

// readSections reads the {u8 id, u32 len, bytes} stream to the end of the
// input, keyed by section id. A second occurrence of the same id overwrites
// the first; the format does not define repeated sections.
func readSections(br *bytes.Reader) (map[byte][]byte, error) {
	sections := make(map[byte][]byte)
	for br.Len() > 0 {
		id, err := readU8(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading section id")
		}
		length, err := readU32(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading section length")
		}
		payload, err := readBytes(br, int(length))
		if err != nil {
			return nil, errors.Wrap(err, "reading section payload")
		}
		sections[id] = payload
	}
	return sections, nil
}

func decodeStrings(payload []byte) ([]string, error) {
	br := bytes.NewReader(payload)
	count, err := readU16(br)
	if err != nil {
		return nil, err
	}
	strs := make([]string, count)
	for i := range strs {
		s, err := readString(br)
		if err != nil {
			return nil, errors.Wrapf(err, "string %d", i)
		}
		strs[i] = s
	}
	return strs, nil
}

func decodeFunctions(payload []byte) ([]funcDecl, error) {
	br := bytes.NewReader(payload)
	count, err := readU16(br)
	if err != nil {
		return nil, err
	}
	funcs := make([]funcDecl, count)
	for i := range funcs {
		name, err := readString(br)
		if err != nil {
			return nil, errors.Wrapf(err, "function %d name", i)
		}
		paramCount, err := readU8(br)
		if err != nil {
			return nil, errors.Wrapf(err, "function %d param count", i)
		}
		// instrCount is deferred to the Code section (spec.md §4.2); the
		// Functions section only needs it to keep the stream self-describing.
		if _, err := readU16(br); err != nil {
			return nil, errors.Wrapf(err, "function %d instr count", i)
		}
		funcs[i] = funcDecl{name: name, paramCount: int(paramCount)}
	}
	return funcs, nil
}

func decodeExports(payload []byte) ([]exportDecl, error) {
	br := bytes.NewReader(payload)
	count, err := readU16(br)
	if err != nil {
		return nil, err
	}
	exports := make([]exportDecl, count)
	for i := range exports {
		alias, err := readString(br)
		if err != nil {
			return nil, errors.Wrapf(err, "export %d alias", i)
		}
		funcIndex, err := readU16(br)
		if err != nil {
			return nil, errors.Wrapf(err, "export %d func index", i)
		}
		exports[i] = exportDecl{alias: alias, funcIndex: int(funcIndex)}
	}
	return exports, nil
}

type labelRef struct {
	name string
	pos  int
}

func decodeCode(payload []byte, strs []string, funcs []funcDecl) (map[int]string, error) {
	br := bytes.NewReader(payload)
	blocks := make(map[int]string)
	for br.Len() > 0 {
		funcIndex, err := readU16(br)
		if err != nil {
			return nil, err
		}
		labelCount, err := readU16(br)
		if err != nil {
			return nil, err
		}
		labels := make([]labelRef, labelCount)
		for i := range labels {
			name, err := readString(br)
			if err != nil {
				return nil, errors.Wrapf(err, "func %d label %d name", funcIndex, i)
			}
			pos, err := readU16(br)
			if err != nil {
				return nil, errors.Wrapf(err, "func %d label %d pos", funcIndex, i)
			}
			labels[i] = labelRef{name: name, pos: int(pos)}
		}
		sort.Slice(labels, func(a, b int) bool { return labels[a].pos < labels[b].pos })

		instrCount, err := readU16(br)
		if err != nil {
			return nil, err
		}
		instrs := make([]string, instrCount)
		for i := range instrs {
			line, err := decodeInstruction(br, strs, funcs)
			if err != nil {
				return nil, errors.Wrapf(err, "func %d instruction %d", funcIndex, i)
			}
			instrs[i] = line
		}

		blocks[int(funcIndex)] = interleave(labels, instrs)
	}
	return blocks, nil
}

// interleave reproduces the text loader's label semantics: a label's
// recorded pos is the 1-based index of the instruction immediately
// following it, so it is emitted right before that instruction.
func interleave(labels []labelRef, instrs []string) string {
	var body strings.Builder
	li := 0
	for idx, instr := range instrs {
		for li < len(labels) && labels[li].pos == idx+1 {
			body.WriteString("  " + labels[li].name + ":\n")
			li++
		}
		body.WriteString("  " + instr + "\n")
	}
	for li < len(labels) {
		body.WriteString("  " + labels[li].name + ":\n")
		li++
	}
	return body.String()
}

func decodeInstruction(br *bytes.Reader, strs []string, funcs []funcDecl) (string, error) {
	opcodeByte, err := readU8(br)
	if err != nil {
		return "", err
	}
	operandCount, err := readU8(br)
	if err != nil {
		return "", err
	}
	mnemonic, ok := vm.BinaryOpcode[opcodeByte]
	if !ok {
		mnemonic = "nop"
	}

	operands := make([]string, operandCount)
	for i := range operands {
		tag, err := readU8(br)
		if err != nil {
			return "", errors.Wrapf(err, "operand %d tag", i)
		}
		text, err := decodeOperand(tag, br, strs, funcs)
		if err != nil {
			return "", errors.Wrapf(err, "operand %d", i)
		}
		operands[i] = text
	}
	if len(operands) == 0 {
		return mnemonic, nil
	}
	return mnemonic + " " + strings.Join(operands, ", "), nil
}

func decodeOperand(tag byte, br *bytes.Reader, strs []string, funcs []funcDecl) (string, error) {
	switch tag {
	case 0x01: // register
		idx, err := readU8(br)
		if err != nil {
			return "", err
		}
		return "r" + strconv.Itoa(int(idx)), nil
	case 0x02: // immediate i32
		v, err := readI32(br)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	case 0x03: // string index
		idx, err := readU16(br)
		if err != nil {
			return "", err
		}
		if int(idx) >= len(strs) {
			return "", errors.Wrapf(vm.ErrDecoder, "string index %d out of range", idx)
		}
		return fmt.Sprintf("$str_%d", idx+1), nil
	case 0x04: // function index
		idx, err := readU16(br)
		if err != nil {
			return "", err
		}
		if int(idx) >= len(funcs) {
			return "", errors.Wrapf(vm.ErrDecoder, "function index %d out of range", idx)
		}
		return "$" + funcs[idx].name, nil
	case 0x05: // symbol, length-prefixed
		name, err := readString(br)
		if err != nil {
			return "", err
		}
		return "$" + name, nil
	case 0x06: // label, length-prefixed
		return readString(br)
	case 0x07: // memory [rB+off] / [rB-off]
		base, err := readU8(br)
		if err != nil {
			return "", err
		}
		off, err := readI32(br)
		if err != nil {
			return "", err
		}
		if off < 0 {
			return fmt.Sprintf("[r%d-%d]", base, -int64(off)), nil
		}
		return fmt.Sprintf("[r%d+%d]", base, off), nil
	default: // raw: u16 len, bytes — no textual form is defined for this
		// tag (spec.md §4.2); it decodes as a null placeholder operand.
		n, err := readU16(br)
		if err != nil {
			return "", err
		}
		if _, err := readBytes(br, int(n)); err != nil {
			return "", err
		}
		return "null", nil
	}
}

func escapeForText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func render(strs []string, funcs []funcDecl, exports []exportDecl, bodies map[int]string) string {
	var sb strings.Builder
	sb.WriteString("module decoded\n")

	for idx, s := range strs {
		fmt.Fprintf(&sb, "data $str_%d {\n  write.len %d\n  write.bytes \"%s\"\n}\n", idx+1, len(s), escapeForText(s))
	}

	for idx, fn := range funcs {
		params := make([]string, fn.paramCount)
		for p := range params {
			params[p] = fmt.Sprintf("arg%d", p+1)
		}
		fmt.Fprintf(&sb, "func $%s(%s) {\n", fn.name, strings.Join(params, ", "))
		sb.WriteString(bodies[idx])
		sb.WriteString("}\n")
	}

	for _, ex := range exports {
		target := "unknown"
		if ex.funcIndex < len(funcs) {
			target = funcs[ex.funcIndex].name
		}
		fmt.Fprintf(&sb, "export $%s as \"%s\"\n", target, escapeForText(ex.alias))
	}

	return sb.String()
}
