package basm

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Juicywoowowow/basm-dev/binary"
	"github.com/Juicywoowowow/basm-dev/text"
	"github.com/Juicywoowowow/basm-dev/vm"
)

// Module is a loaded BASM module bound to a running vm.Instance: the
// embedding API's single host-facing handle (spec.md §4.5), generalized
// from the teacher's New/Option VM construction shape
// (db47h-ngaro/vm/vm.go, cmd/retro/main.go's newVM helper).
type Module struct {
	inst *vm.Instance
}

// buildConfig accumulates Option settings before the underlying
// vm.Instance is constructed.
type buildConfig struct {
	heapSize     int
	maxCallDepth int
	logger       *logrus.Logger
	trace        bool
}

// Option configures a Module at load time, the same functional-option
// shape the teacher uses for vm.Option.
type Option func(*buildConfig)

// WithHeapSize pre-grows the module's linear memory backing store to n
// bytes.
func WithHeapSize(n int) Option { return func(c *buildConfig) { c.heapSize = n } }

// WithMaxCallDepth overrides the call-stack depth cap (default 1000).
func WithMaxCallDepth(n int) Option { return func(c *buildConfig) { c.maxCallDepth = n } }

// WithLogger attaches a structured logger for module lifecycle and trace
// events. The default discards everything.
func WithLogger(l *logrus.Logger) Option { return func(c *buildConfig) { c.logger = l } }

// WithTrace enables per-opcode debug-level trace logging.
func WithTrace(enabled bool) Option { return func(c *buildConfig) { c.trace = enabled } }

// LoadSource loads src as BASM text.
func LoadSource(src string, opts ...Option) (*Module, error) {
	mod, err := text.Load(src)
	if err != nil {
		return nil, errors.Wrap(err, "basm: loading text module")
	}
	return newModule(mod, opts...)
}

// LoadBytes loads data, auto-detecting the BASMB binary magic (spec.md
// §4.5: "Auto-detects binary by 4-byte BASM magic"); anything else is
// treated as BASM text.
func LoadBytes(data []byte, opts ...Option) (*Module, error) {
	if binary.Sniff(data) {
		mod, err := binary.Decode(data)
		if err != nil {
			return nil, errors.Wrap(err, "basm: decoding binary module")
		}
		return newModule(mod, opts...)
	}
	return LoadSource(string(data), opts...)
}

// LoadFile reads path and loads it via LoadBytes.
func LoadFile(path string, opts ...Option) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "basm: reading %s", path)
	}
	return LoadBytes(data, opts...)
}

func newModule(mod *vm.Module, opts ...Option) (*Module, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var vmOpts []vm.Option
	if cfg.heapSize > 0 {
		vmOpts = append(vmOpts, vm.WithHeapSize(cfg.heapSize))
	}
	if cfg.maxCallDepth > 0 {
		vmOpts = append(vmOpts, vm.WithMaxCallDepth(cfg.maxCallDepth))
	}
	if cfg.logger != nil {
		vmOpts = append(vmOpts, vm.WithLogger(cfg.logger))
	}
	if cfg.trace {
		vmOpts = append(vmOpts, vm.WithTrace(true))
	}

	inst, err := vm.New(mod, vmOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "basm: constructing instance")
	}
	return &Module{inst: inst}, nil
}

// ID is the module's correlation id, assigned at load time and surfaced in
// every log line the module emits.
func (m *Module) ID() uuid.UUID { return m.inst.ID }

// SetOutput sets the io.Writer the module's console opcodes flush to.
func (m *Module) SetOutput(w io.Writer) {
	m.inst.SetOutput(w)
}

// Call invokes the exported function name with args, coercing each
// argument per spec.md §4.5: ints/floats truncate to a register value,
// booleans become 0/1, and strings are allocated into VM memory with the
// resulting pointer passed in their place.
func (m *Module) Call(name string, args ...interface{}) (int64, error) {
	converted := make([]int64, len(args))
	for idx, a := range args {
		v, err := coerceArg(m.inst, a)
		if err != nil {
			return 0, errors.Wrapf(err, "basm: argument %d to %q", idx, name)
		}
		converted[idx] = v
	}
	return m.inst.CallExport(name, converted)
}

func coerceArg(inst *vm.Instance, a interface{}) (int64, error) {
	switch v := a.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return inst.AllocVMString([]byte(v)), nil
	default:
		return 0, errors.Errorf("unsupported argument type %T", a)
	}
}

// Reset clears the module's register file, flags, memory, data cache, call
// stack, output buffer and function-pointer table (spec.md §4.5).
func (m *Module) Reset() { m.inst.Reset() }

// ReadByte reads a single byte from VM memory.
func (m *Module) ReadByte(addr int64) byte { return m.inst.ReadByte(addr) }

// ReadI32 reads a little-endian 32-bit signed value from VM memory.
func (m *Module) ReadI32(addr int64) int64 { return m.inst.ReadI32(addr) }

// ReadI64 reads a little-endian 64-bit signed value from VM memory.
func (m *Module) ReadI64(addr int64) int64 { return m.inst.ReadI64(addr) }

// ReadBytes reads n bytes from VM memory starting at addr.
func (m *Module) ReadBytes(addr, n int64) []byte { return m.inst.ReadBytes(addr, n) }

// ReadString reads a host-allocated string (i32-length-prefixed), the
// allocString convention (spec.md §4.5, §6) — distinct from the
// i64-prefixed layout VM-native strings use.
func (m *Module) ReadString(addr int64) string {
	return string(m.inst.ReadHostString(addr))
}

// ReadVMString reads a VM-native string (i64-length-prefixed), the layout
// str.* builtins and data builders produce.
func (m *Module) ReadVMString(addr int64) string {
	return string(m.inst.ReadVMString(addr))
}

// Write writes b into VM memory starting at addr.
func (m *Module) Write(addr int64, b []byte) { m.inst.WriteBytes(addr, b) }

// WriteI32 writes a little-endian 32-bit value into VM memory.
func (m *Module) WriteI32(addr int64, v int64) { m.inst.WriteI32(addr, v) }

// AllocString allocates s into VM memory using the host allocString
// convention (i32-length-prefixed) and returns its pointer.
func (m *Module) AllocString(s string) int64 {
	return m.inst.AllocHostString([]byte(s))
}
