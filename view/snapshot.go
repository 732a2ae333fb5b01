package view

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/view-bridge/errors"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("view: snapshot enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot is a handle-free copy of a resolved tree, for tooling and
// golden files. Handles are not exported; only what the boundary decoded
// alongside them is.
type Snapshot struct {
	Kind     string      `cbor:"kind"`
	ID       string      `cbor:"id"`
	State    string      `cbor:"state"`
	Content  string      `cbor:"content,omitempty"`
	Label    string      `cbor:"label,omitempty"`
	Prompt   string      `cbor:"prompt,omitempty"`
	Mode     string      `cbor:"mode,omitempty"`
	Style    string      `cbor:"style,omitempty"`
	Actions  []string    `cbor:"actions,omitempty"`
	Children []*Snapshot `cbor:"children,omitempty"`
}

// TakeSnapshot copies the tree under root.
func TakeSnapshot(root *Node) *Snapshot {
	if root == nil {
		return nil
	}
	snaps := make(map[*Node]*Snapshot)
	var top *Snapshot
	Walk(root, func(n *Node, _ int) bool {
		s := snapshotOf(n)
		snaps[n] = s
		if parent, ok := snaps[n.Parent]; ok && n != root {
			parent.Children = append(parent.Children, s)
		} else {
			top = s
		}
		return true
	})
	return top
}

func snapshotOf(n *Node) *Snapshot {
	s := &Snapshot{Kind: n.Kind().String(), ID: n.ID.String(), State: n.State.String()}
	switch p := n.Prim.(type) {
	case Text:
		s.Content = p.Content
	case Stack:
		s.Mode = p.Mode.String()
	case Menu:
		for _, a := range p.Actions {
			s.Actions = append(s.Actions, a.Label)
		}
	case TextField:
		s.Label = p.Label
		s.Prompt = p.Prompt
	case Toggle:
		s.Style = p.Style.String()
	}
	return s
}

// MarshalSnapshot encodes s as canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// UnmarshalSnapshot decodes a snapshot written by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedData, err, "snapshot")
	}
	return &s, nil
}
