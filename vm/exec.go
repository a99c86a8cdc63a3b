package vm

import (
	"math"

	"github.com/pkg/errors"
)

// CallExport resolves name through the module's export table (falling back
// to a bare internal function name), seeds r0..r7 from args and runs it to
// completion. It is the sole entry point a host uses (spec.md §4.3, §4.5).
func (i *Instance) CallExport(name string, args []int64) (ret int64, err error) {
	defer func() {
		if e := recover(); e != nil {
			if asErr, ok := e.(error); ok {
				err = errors.Wrapf(asErr, "recovered while executing %q", name)
			} else {
				err = errors.Errorf("recovered while executing %q: %v", name, e)
			}
		}
	}()
	fn, ok := i.Module.Resolve(name)
	if !ok {
		return 0, errors.Wrapf(ErrFunctionNotFound, "export %q", name)
	}
	i.log.WithFields(map[string]interface{}{"instance": i.ID, "func": fn.Name}).Debug("call export")
	return i.executeFunction(fn, args)
}

// executeFunction runs fn with args seeded into r0..r7, per spec.md §4.3:
// it snapshots and restores the caller's full register file, and merges
// the callee's final r0..r6 back in to convey return values alongside the
// explicit ret value.
func (i *Instance) executeFunction(fn *Function, args []int64) (int64, error) {
	if len(i.callStack) >= i.maxCallDepth {
		return 0, errors.Wrapf(ErrCallStackOverflow, "calling %s", fn.Name)
	}

	snapshot := i.Registers // array value copy
	i.callStack = append(i.callStack, frame{funcName: fn.Name})

	n := len(args)
	if n > 8 {
		n = 8
	}
	for k := 0; k < n; k++ {
		i.Registers[k] = args[k]
	}

	ret, err := i.dispatch(fn)

	i.callStack = i.callStack[:len(i.callStack)-1]

	var saved [7]int64
	copy(saved[:], i.Registers[0:7])
	i.Registers = snapshot
	copy(i.Registers[0:7], saved[:])

	if err != nil {
		return 0, err
	}
	return ret, nil
}

func (i *Instance) setReg(op Operand, v int64) {
	if r, ok := op.RegIndex(); ok {
		i.Registers[r] = v
	}
}

func floatOf(v int64) float64 { return math.Float64frombits(uint64(v)) }
func bitsOf(f float64) int64  { return int64(math.Float64bits(f)) }

func floorDivInt64(a, b int64) int64 {
	q := a / b
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		q--
	}
	return q
}

func floorModInt64(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// dispatch runs fn's instruction stream to completion: a ret, a tailcall, or
// falling off the end of the instruction list (returns 0).
func (i *Instance) dispatch(fn *Function) (int64, error) {
	pc := 1
	for {
		if pc-1 >= len(fn.Instructions) {
			return 0, nil
		}
		instr := &fn.Instructions[pc-1]
		ops := instr.Operands
		jumped := false

		if i.trace {
			i.log.WithFields(map[string]interface{}{
				"instance": i.ID, "func": fn.Name, "pc": pc, "op": instr.Opcode,
			}).Debug("trace")
		}

		switch instr.id {
		case opNop, opUnknown:
			// no-op; unknown mnemonics silently behave as nop (spec.md §7)

		case opMov:
			i.setReg(ops[0], ops[1].Value(i))

		case opDataLoad:
			ptr, err := i.ExecuteDataBuilder(ops[1].Name)
			if err != nil {
				return 0, err
			}
			i.setReg(ops[0], ptr)

		case opLdI8:
			i.setReg(ops[0], i.ReadI8(ops[1].Address(i)))
		case opLdI32:
			i.setReg(ops[0], i.ReadI32(ops[1].Address(i)))
		case opLdI64:
			i.setReg(ops[0], i.ReadI64(ops[1].Address(i)))
		case opStI8:
			i.WriteI8(ops[0].Address(i), ops[1].Value(i))
		case opStI32:
			i.WriteI32(ops[0].Address(i), ops[1].Value(i))
		case opStI64:
			i.WriteI64(ops[0].Address(i), ops[1].Value(i))

		case opHeapAlloc:
			i.setReg(ops[0], i.HeapAlloc(ops[1].Value(i)))
		case opHeapRealloc:
			i.setReg(ops[0], i.HeapRealloc(ops[1].Value(i), ops[2].Value(i)))

		case opAdd:
			i.setReg(ops[0], ops[1].Value(i)+ops[2].Value(i))
		case opSub:
			i.setReg(ops[0], ops[1].Value(i)-ops[2].Value(i))
		case opMul:
			i.setReg(ops[0], ops[1].Value(i)*ops[2].Value(i))
		case opDiv:
			b := ops[2].Value(i)
			if b == 0 {
				return 0, errors.Wrapf(ErrDivisionByZero, "div in %s", fn.Name)
			}
			i.setReg(ops[0], floorDivInt64(ops[1].Value(i), b))
		case opRem:
			b := ops[2].Value(i)
			if b == 0 {
				return 0, errors.Wrapf(ErrDivisionByZero, "rem in %s", fn.Name)
			}
			i.setReg(ops[0], floorModInt64(ops[1].Value(i), b))
		case opInc:
			if r, ok := ops[0].RegIndex(); ok {
				i.Registers[r]++
			}
		case opDec:
			if r, ok := ops[0].RegIndex(); ok {
				i.Registers[r]--
			}
		case opNeg:
			i.setReg(ops[0], -ops[1].Value(i))

		case opFmov:
			// Raw copy: the source value is already a float-bit-encoded
			// register slot, so fmov behaves exactly like mov.
			i.setReg(ops[0], ops[1].Value(i))
		case opFadd:
			i.setReg(ops[0], bitsOf(floatOf(ops[1].Value(i))+floatOf(ops[2].Value(i))))
		case opFsub:
			i.setReg(ops[0], bitsOf(floatOf(ops[1].Value(i))-floatOf(ops[2].Value(i))))
		case opFmul:
			i.setReg(ops[0], bitsOf(floatOf(ops[1].Value(i))*floatOf(ops[2].Value(i))))
		case opFdiv:
			b := floatOf(ops[2].Value(i))
			if b == 0 {
				return 0, errors.Wrapf(ErrDivisionByZero, "fdiv in %s", fn.Name)
			}
			i.setReg(ops[0], bitsOf(floatOf(ops[1].Value(i))/b))
		case opFrem:
			b := floatOf(ops[2].Value(i))
			if b == 0 {
				return 0, errors.Wrapf(ErrDivisionByZero, "frem in %s", fn.Name)
			}
			i.setReg(ops[0], bitsOf(math.Mod(floatOf(ops[1].Value(i)), b)))
		case opFfloor:
			i.setReg(ops[0], bitsOf(math.Floor(floatOf(ops[1].Value(i)))))
		case opFceil:
			i.setReg(ops[0], bitsOf(math.Ceil(floatOf(ops[1].Value(i)))))
		case opFsqrt:
			i.setReg(ops[0], bitsOf(math.Sqrt(floatOf(ops[1].Value(i)))))
		case opFabs:
			i.setReg(ops[0], bitsOf(math.Abs(floatOf(ops[1].Value(i)))))
		case opFneg:
			i.setReg(ops[0], bitsOf(-floatOf(ops[1].Value(i))))

		case opI2f:
			// No-op: the source's dynamically-typed host has no int/float
			// distinction at the register level (spec.md §4.3).
			i.setReg(ops[0], ops[1].Value(i))
		case opF2i:
			i.setReg(ops[0], int64(math.Floor(floatOf(ops[1].Value(i)))))

		case opCmp:
			diff := ops[0].Value(i) - ops[1].Value(i)
			i.FlagZ = diff == 0
			i.FlagN = diff < 0
		case opSetz:
			i.setReg(ops[0], boolInt(i.FlagZ))
		case opSetnz:
			i.setReg(ops[0], boolInt(!i.FlagZ))
		case opSetl:
			i.setReg(ops[0], boolInt(i.FlagN))
		case opSetle:
			i.setReg(ops[0], boolInt(i.FlagN || i.FlagZ))
		case opSetg:
			i.setReg(ops[0], boolInt(!i.FlagN && !i.FlagZ))
		case opSetge:
			i.setReg(ops[0], boolInt(!i.FlagN))

		case opAnd:
			i.setReg(ops[0], ops[1].Value(i)&ops[2].Value(i))
		case opOr:
			i.setReg(ops[0], ops[1].Value(i)|ops[2].Value(i))
		case opXor:
			i.setReg(ops[0], ops[1].Value(i)^ops[2].Value(i))
		case opNot:
			i.setReg(ops[0], ^ops[1].Value(i))
		case opShl:
			i.setReg(ops[0], ops[1].Value(i)<<uint(ops[2].Value(i)))
		case opShr:
			i.setReg(ops[0], ops[1].Value(i)>>uint(ops[2].Value(i)))

		case opJmp:
			if target, ok := i.resolveLabel(fn, ops[0]); ok {
				pc, jumped = target, true
			}
		case opJz:
			if i.FlagZ {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}
		case opJnz:
			if !i.FlagZ {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}
		case opJl:
			if i.FlagN {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}
		case opJle:
			if i.FlagN || i.FlagZ {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}
		case opJg:
			if !i.FlagN && !i.FlagZ {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}
		case opJge:
			if !i.FlagN {
				if target, ok := i.resolveLabel(fn, ops[0]); ok {
					pc, jumped = target, true
				}
			}

		case opCall:
			callee, ok := i.Module.Functions[ops[0].Name]
			if !ok {
				return 0, errors.Wrapf(ErrFunctionNotFound, "call %s", ops[0].Name)
			}
			args := i.Registers[0:8]
			ret, err := i.executeFunction(callee, args[:])
			if err != nil {
				return 0, err
			}
			i.Registers[0] = ret

		case opTailcall:
			callee, ok := i.Module.Functions[ops[0].Name]
			if !ok {
				return 0, errors.Wrapf(ErrFunctionNotFound, "tailcall %s", ops[0].Name)
			}
			args := i.Registers[0:8]
			return i.executeFunction(callee, args[:])

		case opRet:
			return ops[0].Value(i), nil

		case opFuncAddr:
			i.setReg(ops[0], i.RegisterFuncPtr(ops[1].Name))

		case opCallIndirect:
			reg, _ := ops[0].RegIndex()
			id := i.Registers[reg]
			fnName, ok := i.ResolveFuncPtr(id)
			if !ok {
				return 0, errors.Wrapf(ErrInvalidFunctionPointer, "call.indirect %d", id)
			}
			callee, ok := i.Module.Functions[fnName]
			if !ok {
				return 0, errors.Wrapf(ErrFunctionNotFound, "call.indirect -> %s", fnName)
			}
			var args []int64
			if i.Registers[0] == 0 {
				args = append([]int64(nil), i.Registers[1:8]...)
			} else {
				args = append([]int64(nil), i.Registers[0:8]...)
			}
			ret, err := i.executeFunction(callee, args)
			if err != nil {
				return 0, err
			}
			i.Registers[0] = ret

		case opConsoleLogStr:
			i.outBuf = append(i.outBuf, i.ReadVMString(ops[0].Value(i))...)
		case opConsoleLogVal:
			i.outBuf = append(i.outBuf, []byte(formatInt(ops[0].Value(i)))...)
		case opConsoleLogSpace:
			i.outBuf = append(i.outBuf, ' ')
		case opConsoleLogNewline:
			i.flushConsole()

		case opStrConcat:
			i.setReg(ops[0], i.strConcat(ops[1].Value(i), ops[2].Value(i)))
		case opCharFrom:
			i.setReg(ops[0], i.AllocVMString([]byte{byte(ops[1].Value(i))}))
		case opStrSub:
			i.setReg(ops[0], i.strSub(ops))
		case opStrRep:
			i.setReg(ops[0], i.strRep(ops[1].Value(i), ops[2].Value(i)))
		case opStrReverse:
			i.setReg(ops[0], i.strReverse(ops[1].Value(i)))
		case opStrUpper:
			i.setReg(ops[0], i.strUpper(ops[1].Value(i)))
		case opStrLower:
			i.setReg(ops[0], i.strLower(ops[1].Value(i)))
		case opIntToString:
			i.setReg(ops[0], i.AllocVMString([]byte(formatInt(ops[1].Value(i)))))
		case opStrToNumber:
			i.setReg(ops[0], i.strToNumber(ops[1].Value(i)))
		case opTableConcat:
			i.setReg(ops[0], i.tableConcat(ops))

		case opTypeOf:
			// Placeholder, unreliable as a type test: 1 for any nonzero
			// value, 0 for zero.
			i.setReg(ops[0], boolInt(ops[1].Value(i) != 0))
		}

		if !jumped {
			pc++
		}
	}
}

// resolveLabel looks up a jump target, per spec.md §4.3 ("jump to
// func.labels[label] when present"): an unresolved label falls through as
// if the branch were a nop rather than faulting.
func (i *Instance) resolveLabel(fn *Function, op Operand) (int, bool) {
	target, ok := fn.Labels[op.Name]
	return target, ok
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (i *Instance) flushConsole() {
	if i.output != nil {
		if len(i.outBuf) > 0 {
			i.output.Write(i.outBuf)
		}
		i.output.Write([]byte{'\n'})
	}
	i.outBuf = i.outBuf[:0]
}
