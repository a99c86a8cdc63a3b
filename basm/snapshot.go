package basm

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/Juicywoowowow/basm-dev/vm"
)

// Snapshot encodes the module's full execution state — register file,
// flags, heap bytes, heap pointer, data cache and function-pointer table —
// into one portable CBOR blob, letting a host persist and resume a running
// module without re-executing its data builders. Not part of spec.md, but
// a natural complement to its heap/reset model, grounded on the teacher
// VM's own image save/load tradition.
func (m *Module) Snapshot() ([]byte, error) {
	data, err := cbor.Marshal(m.inst.State())
	if err != nil {
		return nil, errors.Wrap(err, "basm: encoding snapshot")
	}
	return data, nil
}

// RestoreSnapshot replaces the module's execution state with one produced
// by Snapshot. The call stack is always cleared on restore.
func (m *Module) RestoreSnapshot(data []byte) error {
	var s vm.State
	if err := cbor.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "basm: decoding snapshot")
	}
	m.inst.Restore(s)
	return nil
}
