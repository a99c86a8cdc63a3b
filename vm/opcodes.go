package vm

// opcodeID is the dispatch-time identity of an opcode, resolved once from
// its textual mnemonic by Module.Finalize so the execution loop switches on
// a small integer instead of comparing strings per instruction.
type opcodeID int

// Opcode identities. Conditional-jump mnemonics je/jz and jne/jnz are
// synonyms resolving to the same id (spec.md §4.3 lists both spellings).
const (
	opUnknown opcodeID = iota // decodes/executes as nop, per spec.md §7

	opMov
	opDataLoad

	opLdI8
	opLdI32
	opLdI64
	opStI8
	opStI32
	opStI64

	opHeapAlloc
	opHeapRealloc

	opAdd
	opSub
	opMul
	opDiv
	opRem
	opInc
	opDec
	opNeg

	opFmov
	opFadd
	opFsub
	opFmul
	opFdiv
	opFrem
	opFfloor
	opFceil
	opFsqrt
	opFabs
	opFneg

	opI2f
	opF2i

	opCmp
	opSetz
	opSetnz
	opSetl
	opSetle
	opSetg
	opSetge

	opAnd
	opOr
	opXor
	opNot
	opShl
	opShr

	opJmp
	opJz
	opJnz
	opJl
	opJle
	opJg
	opJge

	opCall
	opTailcall
	opRet

	opFuncAddr
	opCallIndirect

	opConsoleLogStr
	opConsoleLogVal
	opConsoleLogSpace
	opConsoleLogNewline

	opStrConcat
	opCharFrom
	opStrSub
	opStrRep
	opStrReverse
	opStrUpper
	opStrLower
	opIntToString
	opStrToNumber
	opTableConcat

	opTypeOf
	opNop
)

var mnemonicToID = map[string]opcodeID{
	"mov":       opMov,
	"data.load": opDataLoad,

	"ld.i8":  opLdI8,
	"ld.i32": opLdI32,
	"ld.i64": opLdI64,
	"st.i8":  opStI8,
	"st.i32": opStI32,
	"st.i64": opStI64,

	"heap.alloc":   opHeapAlloc,
	"heap.realloc": opHeapRealloc,

	"add": opAdd,
	"sub": opSub,
	"mul": opMul,
	"div": opDiv,
	"rem": opRem,
	"inc": opInc,
	"dec": opDec,
	"neg": opNeg,

	"fmov":   opFmov,
	"fadd":   opFadd,
	"fsub":   opFsub,
	"fmul":   opFmul,
	"fdiv":   opFdiv,
	"frem":   opFrem,
	"ffloor": opFfloor,
	"fceil":  opFceil,
	"fsqrt":  opFsqrt,
	"fabs":   opFabs,
	"fneg":   opFneg,

	"i2f": opI2f,
	"f2i": opF2i,

	"cmp":   opCmp,
	"setz":  opSetz,
	"setnz": opSetnz,
	"setl":  opSetl,
	"setle": opSetle,
	"setg":  opSetg,
	"setge": opSetge,

	"and": opAnd,
	"or":  opOr,
	"xor": opXor,
	"not": opNot,
	"shl": opShl,
	"shr": opShr,

	"jmp": opJmp,
	"je":  opJz,
	"jz":  opJz,
	"jne": opJnz,
	"jnz": opJnz,
	"jl":  opJl,
	"jle": opJle,
	"jg":  opJg,
	"jge": opJge,

	"call":     opCall,
	"tailcall": opTailcall,
	"ret":      opRet,

	"func.addr":     opFuncAddr,
	"call.indirect": opCallIndirect,

	"console.log.str":     opConsoleLogStr,
	"console.log.val":     opConsoleLogVal,
	"console.log.space":   opConsoleLogSpace,
	"console.log.newline": opConsoleLogNewline,

	"str.concat":    opStrConcat,
	"char.from":     opCharFrom,
	"str.sub":       opStrSub,
	"str.rep":       opStrRep,
	"str.reverse":   opStrReverse,
	"str.upper":     opStrUpper,
	"str.lower":     opStrLower,
	"int.tostring":  opIntToString,
	"str.tonumber":  opStrToNumber,
	"table.concat":  opTableConcat,

	"type.of": opTypeOf,
	"nop":     opNop,
}

func lookupOpcode(mnemonic string) opcodeID {
	if id, ok := mnemonicToID[mnemonic]; ok {
		return id
	}
	return opUnknown
}

// BinaryOpcode is the authoritative BASMB opcode byte -> mnemonic table
// (spec.md §6). Opcode bytes not present here decode to "nop" (spec.md
// §4.2: "Unknown opcodes decode to nop").
var BinaryOpcode = map[byte]string{
	0x01: "mov",
	0x02: "data.load",
	0x10: "ld.i64",
	0x11: "ld.i32",
	0x20: "st.i64",
	0x21: "st.i32",
	0x28: "heap.alloc",
	0x29: "heap.realloc",
	0x30: "add",
	0x31: "sub",
	0x32: "mul",
	0x33: "div",
	0x34: "rem",
	0x35: "neg",
	0x36: "inc",
	0x37: "dec",
	0x40: "and",
	0x41: "or",
	0x42: "xor",
	0x43: "not",
	0x44: "shl",
	0x45: "shr",
	0x50: "cmp",
	0x51: "setz",
	0x52: "setnz",
	0x53: "setl",
	0x54: "setle",
	0x55: "setg",
	0x56: "setge",
	0x60: "jmp",
	0x61: "jz",
	0x62: "jnz",
	0x63: "jl",
	0x64: "jle",
	0x65: "jg",
	0x66: "jge",
	0x70: "call",
	0x71: "ret",
	0x72: "func.addr",
	0x73: "call.indirect",
	0x80: "console.log.str",
	0x81: "console.log.val",
	0x82: "console.log.space",
	0x83: "console.log.newline",
	0x90: "str.concat",
	0xFF: "nop",
}
