package vm

import "math"

// OperandKind identifies the shape of a parsed instruction operand. Parsing
// operands once at load time (instead of re-parsing their textual form on
// every dispatch) is the tagged-variant approach spec'd for statically typed
// hosts.
type OperandKind int

// Operand kinds.
const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandFloat
	OperandLabel
	OperandSymbol
	OperandMemory
	OperandNull
)

// Operand is a single, pre-parsed instruction operand.
type Operand struct {
	Kind  OperandKind
	Reg   int     // OperandRegister, and the base register of OperandMemory when Base == nil
	Int   int64   // OperandImmediate
	Float float64 // OperandFloat
	Name  string  // OperandLabel / OperandSymbol

	// Memory operands: [base+off] / [base-off] / [base]. Base and Offset
	// are themselves full operands, resolved recursively, per spec.
	Base   *Operand
	Offset *Operand
	Sign   int64 // +1 or -1, applied to Offset's resolved value
}

// RegIndex returns the register index this operand designates, for operands
// used in destination position. ok is false for anything but a register.
func (o Operand) RegIndex() (int, bool) {
	if o.Kind != OperandRegister {
		return 0, false
	}
	return o.Reg, true
}

// Value resolves the operand to its signed 64-bit contribution: a register's
// current content or a literal's value; labels and symbols resolve to 0. Memory
// operands resolve to the computed address (opcodes that load/store dereference
// it themselves).
func (o Operand) Value(i *Instance) int64 {
	switch o.Kind {
	case OperandRegister:
		return i.Registers[o.Reg]
	case OperandImmediate:
		return o.Int
	case OperandFloat:
		return int64(math.Float64bits(o.Float))
	case OperandLabel, OperandSymbol:
		// Labels/symbols used as bare value operands resolve through the
		// data/function tables at the call site (data.load, func.addr,
		// call); as a raw operand they carry no numeric value of their own.
		return 0
	case OperandMemory:
		return o.Address(i)
	case OperandNull:
		return 0
	}
	return 0
}

// Address computes the effective address of a memory operand: base ± offset.
func (o Operand) Address(i *Instance) int64 {
	var base int64
	if o.Base != nil {
		base = o.Base.Value(i)
	} else {
		base = i.Registers[o.Reg]
	}
	if o.Offset != nil {
		sign := o.Sign
		if sign == 0 {
			sign = 1
		}
		base += sign * o.Offset.Value(i)
	}
	return base
}
