package wire

import (
	"fmt"

	"github.com/chazu/tessera/vm"
)

// Snapshot is the data exported by a finished module. Exports that are
// functions or classes, or that contain them, are listed in Skipped.
type Snapshot struct {
	Module  string
	Exports map[string]vm.Value
	Skipped []string
}

type snapshotWire struct {
	Module  string                 `cbor:"module"`
	Exports map[string]interface{} `cbor:"exports"`
	Skipped []string               `cbor:"skipped,omitempty"`
}

// TakeSnapshot collects the exports of m, which must have run.
func TakeSnapshot(m *vm.Module) *Snapshot {
	s := &Snapshot{Module: m.Name, Exports: make(map[string]vm.Value)}
	for _, name := range m.ExportNames() {
		v, ok := m.Export(name)
		if !ok {
			continue
		}
		if _, err := toWire(v, make(map[vm.Value]bool)); err != nil {
			s.Skipped = append(s.Skipped, name)
			continue
		}
		s.Exports[name] = v
	}
	return s
}

// MarshalSnapshot serializes s to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	w := snapshotWire{
		Module:  s.Module,
		Exports: make(map[string]interface{}, len(s.Exports)),
		Skipped: s.Skipped,
	}
	for name, v := range s.Exports {
		x, err := toWire(v, make(map[vm.Value]bool))
		if err != nil {
			return nil, fmt.Errorf("wire: export %s: %w", name, err)
		}
		w.Exports[name] = x
	}
	return encMode.Marshal(w)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte, classes ClassLookup) (*Snapshot, error) {
	var w snapshotWire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wire: unmarshal snapshot: %w", err)
	}
	s := &Snapshot{Module: w.Module, Exports: make(map[string]vm.Value, len(w.Exports)), Skipped: w.Skipped}
	for name, x := range w.Exports {
		v, err := fromWire(x, classes)
		if err != nil {
			return nil, fmt.Errorf("wire: export %s: %w", name, err)
		}
		s.Exports[name] = v
	}
	return s, nil
}

// MarshalExports snapshots m and serializes the result.
func MarshalExports(m *vm.Module) ([]byte, error) {
	return MarshalSnapshot(TakeSnapshot(m))
}
