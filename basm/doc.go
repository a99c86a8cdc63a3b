// Package basm is the embedding API surface: it loads a BASM module (text
// or binary, auto-detected), binds it to a running Instance, and exposes
// the host-facing operations a compiler runtime or test harness needs —
// calling exports, reading and writing VM memory, resetting, snapshotting
// and disassembling — without requiring the host to know about package vm,
// text or binary directly.
package basm
