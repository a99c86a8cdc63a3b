package vm

// RegisterFuncPtr allocates a fresh opaque function-pointer ID for fn and
// returns it. IDs begin at 1,000,000 and increment per use so they cannot
// collide with plausible data pointers (spec.md §3, §9).
func (i *Instance) RegisterFuncPtr(fn string) int64 {
	id := i.nextFuncPtr
	i.nextFuncPtr++
	i.funcPtrs[id] = fn
	return id
}

// ResolveFuncPtr looks up the function name bound to a function-pointer ID.
func (i *Instance) ResolveFuncPtr(id int64) (string, bool) {
	fn, ok := i.funcPtrs[id]
	return fn, ok
}
