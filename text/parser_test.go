package text_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Juicywoowowow/basm-dev/text"
	"github.com/Juicywoowowow/basm-dev/vm"
)

func TestLoadFunctionAndExport(t *testing.T) {
	mod, err := text.Load(`
module demo
func $main(x) {
  mov r0, r0
  ret r0
}
export $main as "entry"
`)
	require.NoError(t, err)

	fn, ok := mod.Resolve("entry")
	require.True(t, ok)
	require.Equal(t, "main", fn.Name)
	require.Len(t, fn.Instructions, 2)
}

func TestLoadLabelIndexing(t *testing.T) {
	mod, err := text.Load(`
func $loop() {
  mov r0, 0
  .top:
  inc r0
  cmp r0, 3
  jl .top
  ret r0
}
`)
	require.NoError(t, err)
	fn, ok := mod.Resolve("loop")
	require.True(t, ok)
	require.Equal(t, 2, fn.Labels[".top"], "label targets the instruction right after it, 1-based")
}

func TestLoadDataBuilderDirectives(t *testing.T) {
	mod, err := text.Load(`
data $greet {
  write.len 5
  write.bytes "he\tlo"
}
`)
	require.NoError(t, err)
	directives, ok := mod.DataBuilders["greet"]
	require.True(t, ok)
	require.Len(t, directives, 2)
	require.Equal(t, vm.WriteLen, directives[0].Op)
	require.EqualValues(t, 5, directives[0].Int)
	require.Equal(t, vm.WriteBytes, directives[1].Op)
	require.Equal(t, "he\tlo", string(directives[1].Bytes))
}

func TestOperandKinds(t *testing.T) {
	mod, err := text.Load(`
func $ops() {
  mov r0, 0x1_0
  mov r1, 0b10_10
  mov r2, null
  fmov r3, 3.5
  ld.i32 r4, [r5+8]
  ld.i32 r6, [r5-8]
  ret r0
}
`)
	require.NoError(t, err)
	fn, ok := mod.Resolve("ops")
	require.True(t, ok)

	require.Equal(t, vm.OperandImmediate, fn.Instructions[0].Operands[1].Kind)
	require.EqualValues(t, 16, fn.Instructions[0].Operands[1].Int)

	require.EqualValues(t, 10, fn.Instructions[1].Operands[1].Int)

	require.Equal(t, vm.OperandNull, fn.Instructions[2].Operands[1].Kind)

	require.Equal(t, vm.OperandFloat, fn.Instructions[3].Operands[1].Kind)
	require.InDelta(t, 3.5, fn.Instructions[3].Operands[1].Float, 0.0001)

	mem := fn.Instructions[4].Operands[1]
	require.Equal(t, vm.OperandMemory, mem.Kind)
	require.EqualValues(t, 1, mem.Sign)
	require.EqualValues(t, 8, mem.Offset.Int)

	memNeg := fn.Instructions[5].Operands[1]
	require.EqualValues(t, -1, memNeg.Sign)
}

func TestUnterminatedBlockIsAnError(t *testing.T) {
	_, err := text.Load(`
func $broken() {
  mov r0, 1
`)
	require.Error(t, err)
	require.Equal(t, vm.ErrModuleLoad, vm.Kind(err))
}
