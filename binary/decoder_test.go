package binary_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	basmbinary "github.com/Juicywoowowow/basm-dev/binary"
	"github.com/Juicywoowowow/basm-dev/vm"
)

// The following helpers build a minimal, hand-assembled BASMB module:
//
//	func $add(arg1, arg2) { add r0, r0, r1  ret r0 }
//	export $add as "add"
//
// mirroring the encoding the decoder expects (spec.md §4.2, §6).

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func lenPrefixedString(s string) []byte {
	var buf bytes.Buffer
	buf.Write(u16le(uint16(len(s))))
	buf.WriteString(s)
	return buf.Bytes()
}

func section(id byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(id)
	buf.Write(u32le(uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

func registerOperand(reg byte) []byte {
	return []byte{0x01, reg}
}

func buildAddModule() []byte {
	var functions bytes.Buffer
	functions.Write(u16le(1)) // function count
	functions.Write(lenPrefixedString("add"))
	functions.WriteByte(2)    // param count
	functions.Write(u16le(2)) // instr count (informational only)

	var exports bytes.Buffer
	exports.Write(u16le(1))
	exports.Write(lenPrefixedString("add"))
	exports.Write(u16le(0)) // func index

	var code bytes.Buffer
	code.Write(u16le(0)) // func index
	code.Write(u16le(0)) // label count
	code.Write(u16le(2)) // instr count

	// add r0, r0, r1
	code.WriteByte(0x30) // opcode: add
	code.WriteByte(3)    // operand count
	code.Write(registerOperand(0))
	code.Write(registerOperand(0))
	code.Write(registerOperand(1))

	// ret r0
	code.WriteByte(0x71) // opcode: ret
	code.WriteByte(1)
	code.Write(registerOperand(0))

	var out bytes.Buffer
	out.WriteString("BASM")
	out.Write(u32le(1)) // version, major 1
	out.Write(section(0x02, functions.Bytes()))
	out.Write(section(0x03, exports.Bytes()))
	out.Write(section(0x05, code.Bytes()))
	return out.Bytes()
}

func TestSniffRecognizesMagic(t *testing.T) {
	require.True(t, basmbinary.Sniff(buildAddModule()))
	require.False(t, basmbinary.Sniff([]byte("not basm")))
	require.False(t, basmbinary.Sniff([]byte("BAS")))
}

func TestDisassembleReconstructsText(t *testing.T) {
	src, err := basmbinary.Disassemble(buildAddModule())
	require.NoError(t, err)
	require.Contains(t, src, "func $add(arg1, arg2) {")
	require.Contains(t, src, "add r0, r0, r1")
	require.Contains(t, src, "ret r0")
	require.Contains(t, src, `export $add as "add"`)
}

func TestDecodeProducesRunnableModule(t *testing.T) {
	mod, err := basmbinary.Decode(buildAddModule())
	require.NoError(t, err)

	inst, err := vm.New(mod)
	require.NoError(t, err)

	ret, err := inst.CallExport("add", []int64{10, 20})
	require.NoError(t, err)
	require.EqualValues(t, 30, ret)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := basmbinary.Decode([]byte("NOPE1234"))
	require.Error(t, err)
	require.Equal(t, vm.ErrModuleLoad, vm.Kind(err))
}

func TestDecodeRejectsUnsupportedMajorVersion(t *testing.T) {
	var out bytes.Buffer
	out.WriteString("BASM")
	out.Write(u32le(2))
	_, err := basmbinary.Decode(out.Bytes())
	require.Error(t, err)
	require.Equal(t, vm.ErrModuleLoad, vm.Kind(err))
}

func TestUnknownOpcodeByteDecodesAsNop(t *testing.T) {
	var code bytes.Buffer
	code.Write(u16le(0))
	code.Write(u16le(0))
	code.Write(u16le(1))
	code.WriteByte(0xEE) // unrecognized opcode byte
	code.WriteByte(0)

	var functions bytes.Buffer
	functions.Write(u16le(1))
	functions.Write(lenPrefixedString("weird"))
	functions.WriteByte(0)
	functions.Write(u16le(1))

	var out bytes.Buffer
	out.WriteString("BASM")
	out.Write(u32le(1))
	out.Write(section(0x02, functions.Bytes()))
	out.Write(section(0x05, code.Bytes()))

	src, err := basmbinary.Disassemble(out.Bytes())
	require.NoError(t, err)
	require.Contains(t, src, "nop")
}
