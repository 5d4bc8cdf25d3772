package vm

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// snapshotEncMode uses canonical CBOR so equal snapshots encode to equal bytes.
var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// FrameSnapshot is one call frame at the moment of a snapshot.
type FrameSnapshot struct {
	Function string `cbor:"1,keyasint"`
	Line     int    `cbor:"2,keyasint"`
	IP       int    `cbor:"3,keyasint"`
	Base     int    `cbor:"4,keyasint"`
}

// GlobalSnapshot is a global binding rendered as it would print.
type GlobalSnapshot struct {
	Name  string `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}

// Snapshot is a printable copy of the VM state, taken while paused in the
// debugger. Values are captured as their printed form.
type Snapshot struct {
	Session string           `cbor:"1,keyasint"`
	IP      int              `cbor:"2,keyasint"`
	Line    int              `cbor:"3,keyasint"`
	Frames  []FrameSnapshot  `cbor:"4,keyasint,omitempty"` // innermost first
	Stack   []string         `cbor:"5,keyasint,omitempty"` // bottom first
	Globals []GlobalSnapshot `cbor:"6,keyasint,omitempty"` // sorted by name
	GC      GCStats          `cbor:"7,keyasint"`
}

// Snapshot captures the current VM state.
func (d *Debugger) Snapshot(vm *VM) *Snapshot {
	s := &Snapshot{
		Session: vm.ID.String(),
		Line:    vm.currentLine(),
		Stack:   d.Stack(vm),
		GC:      vm.heap.Stats(),
	}
	if vm.frame != nil {
		s.IP = vm.frame.ip
	}

	for _, info := range d.CallStack(vm) {
		frame := &vm.frames[info.Index]
		s.Frames = append(s.Frames, FrameSnapshot{
			Function: info.FunctionName,
			Line:     info.Line,
			IP:       frame.ip,
			Base:     frame.base,
		})
	}

	for name, value := range d.Globals(vm) {
		s.Globals = append(s.Globals, GlobalSnapshot{Name: name, Value: value})
	}
	sort.Slice(s.Globals, func(i, j int) bool { return s.Globals[i].Name < s.Globals[j].Name })
	return s
}

// EncodeSnapshot serializes a Snapshot to canonical CBOR bytes.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// DecodeSnapshot deserializes a Snapshot from CBOR bytes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
