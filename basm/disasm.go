package basm

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Juicywoowowow/basm-dev/internal/bout"
	"github.com/Juicywoowowow/basm-dev/vm"
)

// Disassemble writes every function's instructions to w, one per line, as
// "name:idx opcode operands" — grounded on the teacher's
// asm.Disassemble/DisassembleAll, generalized from a flat cell array to
// BASM's named-function, labeled-instruction model. Writes go through a
// bout.ErrWriter so a failing sink (a full pipe, a closed file) only needs
// checking once, at the end, instead of after every line.
func (m *Module) Disassemble(w io.Writer) error {
	ew := bout.NewErrWriter(w)

	names := make([]string, 0, len(m.inst.Module.Functions))
	for name := range m.inst.Module.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fn := m.inst.Module.Functions[name]
		labelsByPos := make(map[int][]string)
		for label, pos := range fn.Labels {
			labelsByPos[pos] = append(labelsByPos[pos], label)
		}

		for idx, instr := range fn.Instructions {
			for _, label := range labelsByPos[idx+1] {
				fmt.Fprintf(ew, "%s:%d %s:\n", name, idx+1, label)
			}
			operands := make([]string, len(instr.Operands))
			for oidx, op := range instr.Operands {
				operands[oidx] = renderOperand(op)
			}
			line := instr.Opcode
			if len(operands) > 0 {
				line += " " + strings.Join(operands, ", ")
			}
			fmt.Fprintf(ew, "%s:%d %s\n", name, idx+1, line)
		}
	}
	return ew.Err
}

func renderOperand(o vm.Operand) string {
	switch o.Kind {
	case vm.OperandRegister:
		return "r" + strconv.Itoa(o.Reg)
	case vm.OperandImmediate:
		return strconv.FormatInt(o.Int, 10)
	case vm.OperandFloat:
		return strconv.FormatFloat(o.Float, 'g', -1, 64)
	case vm.OperandLabel:
		return o.Name
	case vm.OperandSymbol:
		return "$" + o.Name
	case vm.OperandMemory:
		if o.Offset == nil {
			return "[" + renderOperand(*o.Base) + "]"
		}
		sign := "+"
		if o.Sign < 0 {
			sign = "-"
		}
		return "[" + renderOperand(*o.Base) + sign + renderOperand(*o.Offset) + "]"
	case vm.OperandNull:
		return "null"
	default:
		return "?"
	}
}
