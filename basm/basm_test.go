package basm_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Juicywoowowow/basm-dev/basm"
)

const addSource = `
func $add(a, b) {
  add r0, r0, r1
  ret r0
}
export $add as "add"
`

func TestLoadSourceAndCall(t *testing.T) {
	mod, err := basm.LoadSource(addSource)
	require.NoError(t, err)

	ret, err := mod.Call("add", 10, 20)
	require.NoError(t, err)
	require.EqualValues(t, 30, ret)
}

func TestCallCoercesArgumentTypes(t *testing.T) {
	mod, err := basm.LoadSource(`
func $echo(a) {
  ret r0
}
export $echo as "echo"
`)
	require.NoError(t, err)

	ret, err := mod.Call("echo", true)
	require.NoError(t, err)
	require.EqualValues(t, 1, ret)

	ret, err = mod.Call("echo", float64(7))
	require.NoError(t, err)
	require.EqualValues(t, 7, ret)

	ptr, err := mod.Call("echo", "hi")
	require.NoError(t, err)
	require.Equal(t, "hi", mod.ReadVMString(ptr))
}

func TestCallRejectsUnsupportedArgumentType(t *testing.T) {
	mod, err := basm.LoadSource(addSource)
	require.NoError(t, err)

	_, err = mod.Call("add", struct{}{}, 1)
	require.Error(t, err)
}

func TestLoadFileAutoDetectsText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.basm")
	require.NoError(t, os.WriteFile(path, []byte(addSource), 0o644))

	mod, err := basm.LoadFile(path)
	require.NoError(t, err)
	ret, err := mod.Call("add", 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, ret)
}

func TestLoadConfigAppliesOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basm.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
heap_size = 4096
max_call_depth = 5
trace = true
`), 0o644))

	cfg, err := basm.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.HeapSize)
	require.Equal(t, 5, cfg.MaxCallDepth)
	require.True(t, cfg.Trace)

	mod, err := basm.LoadSource(addSource, cfg.Options()...)
	require.NoError(t, err)
	ret, err := mod.Call("add", 1, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, ret)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	mod, err := basm.LoadSource(`
func $alloc() {
  heap.alloc r0, 8
  ret r0
}
export $alloc as "alloc"
`)
	require.NoError(t, err)

	first, err := mod.Call("alloc")
	require.NoError(t, err)

	snap, err := mod.Snapshot()
	require.NoError(t, err)

	second, err := mod.Call("alloc")
	require.NoError(t, err)
	require.Greater(t, second, first)

	require.NoError(t, mod.RestoreSnapshot(snap))

	third, err := mod.Call("alloc")
	require.NoError(t, err)
	require.Equal(t, second, third, "restoring the pre-second-alloc snapshot replays the same heap pointer")
}

func TestLoadReadersConcatenatesSources(t *testing.T) {
	prelude := strings.NewReader(`
func $add(a, b) {
  add r0, r0, r1
  ret r0
}
`)
	body := strings.NewReader(`
export $add as "add"
`)

	mod, err := basm.LoadReaders([]io.Reader{prelude, body})
	require.NoError(t, err)

	ret, err := mod.Call("add", 4, 5)
	require.NoError(t, err)
	require.EqualValues(t, 9, ret)
}

func TestDisassembleListsInstructions(t *testing.T) {
	mod, err := basm.LoadSource(addSource)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, mod.Disassemble(&buf))

	out := buf.String()
	require.Contains(t, out, "add:1 add r0, r0, r1")
	require.Contains(t, out, "add:2 ret r0")
}
