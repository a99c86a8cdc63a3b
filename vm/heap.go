package vm

import "encoding/binary"

// ensureCapacity grows the backing byte vector so that addresses up to
// addr+n-1 are addressable. Linear memory is sparse in principle (spec.md
// §3: "a read of an uninitialized cell returns 0"); we back it with a
// contiguous byte vector per the design notes' performance recommendation,
// rather than a map.
func (i *Instance) ensureCapacity(addr, n int64) {
	need := addr + n
	if need <= int64(len(i.mem)) {
		return
	}
	if need <= int64(cap(i.mem)) {
		i.mem = i.mem[:need]
		return
	}
	grown := make([]byte, need)
	copy(grown, i.mem)
	i.mem = grown
}

// ReadByte reads one byte at addr, returning 0 for any out-of-range address
// (spec.md §3: "out-of-range reads simply return 0").
func (i *Instance) ReadByte(addr int64) byte {
	if addr < 0 || addr >= int64(len(i.mem)) {
		return 0
	}
	return i.mem[addr]
}

// ReadBytes reads n bytes starting at addr, zero-filling any portion past
// the end of the backing store.
func (i *Instance) ReadBytes(addr, n int64) []byte {
	out := make([]byte, n)
	if addr < 0 || n <= 0 {
		return out
	}
	avail := int64(len(i.mem)) - addr
	if avail <= 0 {
		return out
	}
	if avail > n {
		avail = n
	}
	copy(out, i.mem[addr:addr+avail])
	return out
}

// WriteBytes writes b at addr, growing the backing store as needed. Writes
// may occur at any address; there is no bounds fault (spec.md §3).
func (i *Instance) WriteBytes(addr int64, b []byte) {
	if addr < 0 || len(b) == 0 {
		return
	}
	i.ensureCapacity(addr, int64(len(b)))
	copy(i.mem[addr:], b)
}

// ReadI8 reads a single signed byte, sign-extended to 64 bits.
func (i *Instance) ReadI8(addr int64) int64 {
	return int64(int8(i.ReadByte(addr)))
}

// WriteI8 writes the low byte of v at addr.
func (i *Instance) WriteI8(addr, v int64) {
	i.WriteBytes(addr, []byte{byte(v)})
}

// ReadI32 reads a little-endian 32-bit signed value, sign-extended.
func (i *Instance) ReadI32(addr int64) int64 {
	b := i.ReadBytes(addr, 4)
	return int64(int32(binary.LittleEndian.Uint32(b)))
}

// WriteI32 writes v as a little-endian 32-bit value at addr.
func (i *Instance) WriteI32(addr, v int64) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(v)))
	i.WriteBytes(addr, b[:])
}

// ReadI64 reads a true little-endian 64-bit value at addr.
//
// This is a deliberate divergence from the reference implementation, which
// delegates 64-bit reads to 32-bit operations plus a sign-extended high
// word (spec.md §9, open question): programs depending on that truncation
// are malformed, and this implementation adopts full 64-bit semantics.
func (i *Instance) ReadI64(addr int64) int64 {
	b := i.ReadBytes(addr, 8)
	return int64(binary.LittleEndian.Uint64(b))
}

// WriteI64 writes v as a true little-endian 64-bit value at addr.
func (i *Instance) WriteI64(addr, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	i.WriteBytes(addr, b[:])
}

// HeapAlloc rounds n up to a multiple of 8, returns the current bump
// pointer, and advances it by the rounded size. Allocations never move and
// are always 8-byte aligned (spec.md §3, §8 invariants).
func (i *Instance) HeapAlloc(n int64) int64 {
	if n < 0 {
		n = 0
	}
	rounded := (n + 7) &^ 7
	ptr := i.heapPtr
	i.heapPtr += rounded
	return ptr
}

// HeapRealloc allocates a fresh block and copies newSize bytes from oldPtr
// into it. The original block is not freed (spec.md §4.3 — the bump arena
// never reclaims except on Reset).
func (i *Instance) HeapRealloc(oldPtr, newSize int64) int64 {
	newPtr := i.HeapAlloc(newSize)
	i.WriteBytes(newPtr, i.ReadBytes(oldPtr, newSize))
	return newPtr
}

// AllocVMString allocates a fresh VM-native string: an 8-byte length word
// followed by the payload bytes (spec.md §3, §6). The returned pointer is
// the base of the length word.
func (i *Instance) AllocVMString(s []byte) int64 {
	ptr := i.HeapAlloc(int64(8 + len(s)))
	i.WriteI64(ptr, int64(len(s)))
	i.WriteBytes(ptr+8, s)
	return ptr
}

// ReadVMString reads a VM-native string (i64-length-prefixed) at ptr.
func (i *Instance) ReadVMString(ptr int64) []byte {
	n := i.ReadI64(ptr)
	if n < 0 {
		n = 0
	}
	return i.ReadBytes(ptr+8, n)
}

// AllocHostString allocates a host-style string: an i32 length word
// followed by the payload. This layout is distinct from AllocVMString's
// i64-prefixed layout and mirrors the embedding API's allocString
// convention (spec.md §4.5, §6).
func (i *Instance) AllocHostString(s []byte) int64 {
	ptr := i.HeapAlloc(int64(4 + len(s)))
	i.WriteI32(ptr, int32OrLen(len(s)))
	i.WriteBytes(ptr+4, s)
	return ptr
}

// ReadHostString reads a host-style string (i32-length-prefixed) at ptr.
func (i *Instance) ReadHostString(ptr int64) []byte {
	n := i.ReadI32(ptr)
	if n < 0 {
		n = 0
	}
	return i.ReadBytes(ptr+4, n)
}

func int32OrLen(n int) int64 {
	return int64(int32(n))
}
