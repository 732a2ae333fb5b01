package abi

import "github.com/wippyai/view-bridge/dispatch"

// Trampoline is the consumer entry point the producer calls to fire a
// subscriber.
type Trampoline func(state uint64)

// Subscriber is a single-shot change notification token. State is a
// consumer registry handle; the producer passes it back to Invoke exactly
// once, when the watched value changes, and then forgets it.
type Subscriber struct {
	Invoke Trampoline
	State  uint64
}

// Exports is the producer's boundary surface. Every function reports its
// outcome through st; return values are only valid when st.Code is
// dispatch.Success.
type Exports interface {
	ContractVersion() uint32
	Checksum(fn string) uint16

	ProbeEmpty(view uint64, st *dispatch.Status) []byte
	ProbeText(view uint64, st *dispatch.Status) []byte
	ProbeButton(view uint64, st *dispatch.Status) []byte
	ProbeStack(view uint64, st *dispatch.Status) []byte
	ProbeTapGesture(view uint64, st *dispatch.Status) []byte
	ProbeFrame(view uint64, st *dispatch.Status) []byte
	ProbeMenu(view uint64, st *dispatch.Status) []byte
	ProbeTextField(view uint64, st *dispatch.Status) []byte
	ProbeToggle(view uint64, st *dispatch.Status) []byte
	ProbeDivider(view uint64, st *dispatch.Status) []byte

	// Materialize returns an owned handle to the concrete view a computed
	// view currently stands for.
	Materialize(view uint64, st *dispatch.Status) uint64
	// Subscribe registers sub against the view's dependencies.
	Subscribe(view uint64, sub Subscriber, st *dispatch.Status)

	CloneObject(h uint64, st *dispatch.Status) uint64
	FreeObject(h uint64, st *dispatch.Status)

	InvokeAction(action uint64, st *dispatch.Status)
	ComputeFont(font uint64, st *dispatch.Status) []byte
	ReadBinding(binding uint64, st *dispatch.Status) []byte
	WriteBinding(binding uint64, value []byte, st *dispatch.Status)
	ReadBoolBinding(binding uint64, st *dispatch.Status) bool
	WriteBoolBinding(binding uint64, value bool, st *dispatch.Status)
}
