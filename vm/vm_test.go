package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Juicywoowowow/basm-dev/text"
	"github.com/Juicywoowowow/basm-dev/vm"
)

func load(t *testing.T, src string) *vm.Instance {
	t.Helper()
	mod, err := text.Load(src)
	require.NoError(t, err)
	inst, err := vm.New(mod)
	require.NoError(t, err)
	return inst
}

func TestCallExportConstant(t *testing.T) {
	inst := load(t, `
module m
func $main() {
  mov r0, 42
  ret r0
}
export $main as "main"
`)
	ret, err := inst.CallExport("main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 42, ret)
}

func TestCallExportAdd(t *testing.T) {
	inst := load(t, `
func $add(a, b) {
  add r0, r0, r1
  ret r0
}
export $add as "add"
`)
	ret, err := inst.CallExport("add", []int64{10, 20})
	require.NoError(t, err)
	require.EqualValues(t, 30, ret)
}

func TestFactorialRecursion(t *testing.T) {
	inst := load(t, `
func $fact(n) {
  cmp r0, 1
  jle .base
  mov r10, r0
  dec r0
  call $fact
  mul r0, r0, r10
  ret r0
  .base:
  mov r0, 1
  ret r0
}
export $fact as "fact"
`)
	ret, err := inst.CallExport("fact", []int64{5})
	require.NoError(t, err)
	require.EqualValues(t, 120, ret)
}

func TestRegistersAboveSevenPreservedAcrossCall(t *testing.T) {
	inst := load(t, `
func $callee() {
  mov r0, 1
  ret r0
}
func $main() {
  mov r10, 999
  call $callee
  mov r1, r10
  ret r1
}
export $main as "main"
`)
	ret, err := inst.CallExport("main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 999, ret, "r10 must survive the call since only r0..r6 are merged back")
}

func TestDataBuilderStringLayout(t *testing.T) {
	inst := load(t, `
data $s {
  write.len 5
  write.bytes "hello"
}
func $get() {
  data.load r0, $s
  ret r0
}
export $get as "get"
`)
	ptr, err := inst.CallExport("get", nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, inst.ReadI64(ptr))
	require.Equal(t, "hello", string(inst.ReadBytes(ptr+8, 5)))
}

func TestStrConcat(t *testing.T) {
	inst := load(t, `
data $a {
  write.len 3
  write.bytes "foo"
}
data $b {
  write.len 3
  write.bytes "bar"
}
func $join() {
  ; str.concat reads values below 1000 as numbers, so place the strings above that
  heap.alloc r5, 1000
  data.load r0, $a
  data.load r1, $b
  str.concat r2, r0, r1
  ret r2
}
export $join as "join"
`)
	ptr, err := inst.CallExport("join", nil)
	require.NoError(t, err)
	require.EqualValues(t, 6, inst.ReadI64(ptr))
	require.Equal(t, "foobar", string(inst.ReadBytes(ptr+8, 6)))
}

func TestResetReclaimsHeap(t *testing.T) {
	inst := load(t, `
func $alloc() {
  heap.alloc r0, 8
  ret r0
}
export $alloc as "alloc"
`)
	first, err := inst.CallExport("alloc", nil)
	require.NoError(t, err)
	require.Zero(t, first)

	second, err := inst.CallExport("alloc", nil)
	require.NoError(t, err)
	require.Greater(t, second, first)

	inst.Reset()
	third, err := inst.CallExport("alloc", nil)
	require.NoError(t, err)
	require.Zero(t, third, "heap pointer restarts at 0 after reset")
}

func TestFuncAddrCallIndirect(t *testing.T) {
	inst := load(t, `
func $target() {
  mov r0, 7
  ret r0
}
func $main() {
  func.addr r0, $target
  st.i64 [r2], r0
  ld.i64 r3, [r2]
  mov r0, 0
  call.indirect r3
  ret r0
}
export $main as "main"
`)
	ret, err := inst.CallExport("main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 7, ret)
}

func TestDivisionByZero(t *testing.T) {
	inst := load(t, `
func $bad() {
  mov r0, 10
  mov r1, 0
  div r0, r0, r1
  ret r0
}
export $bad as "bad"
`)
	_, err := inst.CallExport("bad", nil)
	require.Error(t, err)
	require.Equal(t, vm.ErrDivisionByZero, vm.Kind(err))
}

func TestFloorDivAndRem(t *testing.T) {
	inst := load(t, `
func $divrem() {
  mov r0, -7
  mov r1, 2
  div r2, r0, r1
  rem r3, r0, r1
  add r0, r2, r3
  ret r0
}
export $divrem as "divrem"
`)
	ret, err := inst.CallExport("divrem", nil)
	require.NoError(t, err)
	require.EqualValues(t, -4+1, ret)
}

func TestCmpAndSetFamily(t *testing.T) {
	inst := load(t, `
func $cmp() {
  cmp r0, r1
  setz r2
  setl r3
  setg r4
  add r0, r2, r3
  add r0, r0, r4
  ret r0
}
export $cmp as "cmp"
`)
	ret, err := inst.CallExport("cmp", []int64{3, 5})
	require.NoError(t, err)
	require.EqualValues(t, 1, ret, "exactly one of setz/setl/setg is true for 3 < 5")
}

func TestUnknownOpcodeActsAsNop(t *testing.T) {
	inst := load(t, `
func $main() {
  bogus.opcode r0, r1
  mov r0, 5
  ret r0
}
export $main as "main"
`)
	ret, err := inst.CallExport("main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, ret)
}
