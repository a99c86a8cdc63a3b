package vm

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	registerCount     = 256
	defaultHeapSize   = 256 * 1024
	defaultMaxCallDepth = 1000
	funcPtrBase       = 1000000
)

// frame is a call-stack entry. Register preservation is implemented by
// snapshotting the caller's full register file rather than by a
// stack-allocated frame; frame itself only tracks depth/name for error
// reporting, mirroring the teacher VM's minimal frame bookkeeping.
type frame struct {
	funcName string
}

// Instance holds all mutable execution state bound to a Module: the
// register file, flags, linear memory heap, call stack, function-pointer
// table and output buffer. A Module is not thread-safe; a host wanting
// concurrent execution must create one Instance per goroutine.
type Instance struct {
	ID uuid.UUID

	Module *Module

	Registers [registerCount]int64
	FlagZ     bool
	FlagN     bool

	mem     []byte
	heapPtr int64

	callStack   []frame
	maxCallDepth int

	funcPtrs    map[int64]string
	nextFuncPtr int64

	dataCache map[string]int64

	output      io.Writer
	outBuf      []byte
	log         *logrus.Logger
	trace       bool
}

// Option configures an Instance at construction time, following the
// teacher VM's functional-option pattern (vm.Option in db47h-ngaro).
type Option func(*Instance) error

// WithOutput sets the io.Writer the console opcodes flush to.
func WithOutput(w io.Writer) Option {
	return func(i *Instance) error { i.output = w; return nil }
}

// SetOutput sets the io.Writer the console opcodes flush to, for hosts
// that want to change the sink after construction.
func (i *Instance) SetOutput(w io.Writer) { i.output = w }

// WithMaxCallDepth overrides the call-stack depth cap (default 1000, per
// spec.md §3).
func WithMaxCallDepth(n int) Option {
	return func(i *Instance) error { i.maxCallDepth = n; return nil }
}

// WithHeapSize pre-grows the linear memory backing store to n bytes. This
// is purely a capacity hint: the heap still grows on demand past n.
func WithHeapSize(n int) Option {
	return func(i *Instance) error {
		if n > cap(i.mem) {
			grown := make([]byte, len(i.mem), n)
			copy(grown, i.mem)
			i.mem = grown
		}
		return nil
	}
}

// WithLogger attaches a structured logger for module lifecycle and opcode
// trace events. The default is a logger with output discarded, so logging
// is zero-cost unless a host opts in.
func WithLogger(l *logrus.Logger) Option {
	return func(i *Instance) error { i.log = l; return nil }
}

// WithTrace enables per-opcode debug-level trace logging.
func WithTrace(enabled bool) Option {
	return func(i *Instance) error { i.trace = enabled; return nil }
}

// New creates an Instance bound to module, applying opts.
func New(module *Module, opts ...Option) (*Instance, error) {
	i := &Instance{
		ID:           uuid.New(),
		Module:       module,
		mem:          make([]byte, 0, defaultHeapSize),
		callStack:    make([]frame, 0, 64),
		maxCallDepth: defaultMaxCallDepth,
		funcPtrs:     make(map[int64]string),
		nextFuncPtr:  funcPtrBase,
		dataCache:    make(map[string]int64),
		log:          discardLogger(),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Reset clears register file, flags, memory, data cache, call stack, output
// buffer and function-pointer table, per spec.md §4.5. The bound Module and
// configured options (output sink, logger, depth cap) survive a reset.
func (i *Instance) Reset() {
	i.Registers = [registerCount]int64{}
	i.FlagZ = false
	i.FlagN = false
	i.mem = i.mem[:0]
	i.heapPtr = 0
	i.callStack = i.callStack[:0]
	i.funcPtrs = make(map[int64]string)
	i.nextFuncPtr = funcPtrBase
	i.dataCache = make(map[string]int64)
	i.outBuf = i.outBuf[:0]
	i.log.WithField("instance", i.ID).Debug("instance reset")
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
