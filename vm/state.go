package vm

// State is the full mutable execution state of an Instance, exported so a
// host can persist and later resume a running module without re-executing
// its data builders (a supplemental feature grounded on the teacher VM's
// own image save/load mechanism, generalized to BASM's heterogeneous
// state — registers, heap bytes, and caches — rather than a single flat
// cell array).
type State struct {
	Registers   [registerCount]int64
	FlagZ       bool
	FlagN       bool
	Mem         []byte
	HeapPtr     int64
	NextFuncPtr int64
	FuncPtrs    map[int64]string
	DataCache   map[string]int64
}

// State captures a deep copy of the instance's current execution state.
func (i *Instance) State() State {
	mem := make([]byte, len(i.mem))
	copy(mem, i.mem)
	funcPtrs := make(map[int64]string, len(i.funcPtrs))
	for k, v := range i.funcPtrs {
		funcPtrs[k] = v
	}
	dataCache := make(map[string]int64, len(i.dataCache))
	for k, v := range i.dataCache {
		dataCache[k] = v
	}
	return State{
		Registers:   i.Registers,
		FlagZ:       i.FlagZ,
		FlagN:       i.FlagN,
		Mem:         mem,
		HeapPtr:     i.heapPtr,
		NextFuncPtr: i.nextFuncPtr,
		FuncPtrs:    funcPtrs,
		DataCache:   dataCache,
	}
}

// Restore replaces the instance's execution state with s. The call stack is
// always cleared: a snapshot is only meaningful between calls, never
// mid-call (spec.md §5 — reset must not run concurrently with a call, and
// the same discipline applies here).
func (i *Instance) Restore(s State) {
	i.Registers = s.Registers
	i.FlagZ = s.FlagZ
	i.FlagN = s.FlagN
	i.mem = append(i.mem[:0], s.Mem...)
	i.heapPtr = s.HeapPtr
	i.nextFuncPtr = s.NextFuncPtr
	i.funcPtrs = make(map[int64]string, len(s.FuncPtrs))
	for k, v := range s.FuncPtrs {
		i.funcPtrs[k] = v
	}
	i.dataCache = make(map[string]int64, len(s.DataCache))
	for k, v := range s.DataCache {
		i.dataCache[k] = v
	}
	i.callStack = i.callStack[:0]
}
