package view

import (
	"github.com/google/uuid"
	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/handle"
)

// Kind identifies a resolved primitive.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindButton
	KindStack
	KindTapGesture
	KindFrame
	KindMenu
	KindTextField
	KindToggle
	KindDivider
	KindComputed
)

var kindNames = [...]string{
	KindEmpty:      "empty",
	KindText:       "text",
	KindButton:     "button",
	KindStack:      "stack",
	KindTapGesture: "tap_gesture",
	KindFrame:      "frame",
	KindMenu:       "menu",
	KindTextField:  "text_field",
	KindToggle:     "toggle",
	KindDivider:    "divider",
	KindComputed:   "computed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// State is the resolution state of a node.
type State uint8

const (
	Unresolved State = iota
	Resolved
	AwaitingChange
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case AwaitingChange:
		return "awaiting_change"
	}
	return "unknown"
}

// Primitive is the decoded shape of a node. The set is closed.
type Primitive interface {
	Kind() Kind
	owned() []*handle.Owned
}

// Empty renders nothing.
type Empty struct{}

// Text is styled text. Font is owned by the node.
type Text struct {
	Font       *handle.Owned
	Content    string
	Selectable bool
}

// Button's label is the node's only child.
type Button struct {
	Action *handle.Owned
}

// Stack's children are the node's children, in order.
type Stack struct {
	Mode abi.StackMode
}

// TapGesture's content is the node's only child.
type TapGesture struct {
	Action *handle.Owned
}

// Frame's content is the node's only child.
type Frame struct {
	Spec abi.FrameSpec
}

// MenuAction is one resolved menu entry.
type MenuAction struct {
	Action *handle.Owned
	Label  string
}

// Menu's label is the node's only child.
type Menu struct {
	Actions []MenuAction
}

// TextField edits the string behind Value.
type TextField struct {
	Value  *handle.Owned
	Label  string
	Prompt string
}

// Toggle flips the bool behind Value. Its label is the node's only child.
type Toggle struct {
	Value *handle.Owned
	Style abi.ToggleStyle
}

// Divider is a separator.
type Divider struct{}

// Computed is a view no probe matched. Its current body is the node's only
// child.
type Computed struct{}

func (Empty) Kind() Kind      { return KindEmpty }
func (Text) Kind() Kind       { return KindText }
func (Button) Kind() Kind     { return KindButton }
func (Stack) Kind() Kind      { return KindStack }
func (TapGesture) Kind() Kind { return KindTapGesture }
func (Frame) Kind() Kind      { return KindFrame }
func (Menu) Kind() Kind       { return KindMenu }
func (TextField) Kind() Kind  { return KindTextField }
func (Toggle) Kind() Kind     { return KindToggle }
func (Divider) Kind() Kind    { return KindDivider }
func (Computed) Kind() Kind   { return KindComputed }

func (Empty) owned() []*handle.Owned        { return nil }
func (t Text) owned() []*handle.Owned       { return nonNil(t.Font) }
func (b Button) owned() []*handle.Owned     { return nonNil(b.Action) }
func (Stack) owned() []*handle.Owned        { return nil }
func (g TapGesture) owned() []*handle.Owned { return nonNil(g.Action) }
func (Frame) owned() []*handle.Owned        { return nil }
func (t TextField) owned() []*handle.Owned  { return nonNil(t.Value) }
func (t Toggle) owned() []*handle.Owned     { return nonNil(t.Value) }
func (Divider) owned() []*handle.Owned      { return nil }
func (Computed) owned() []*handle.Owned     { return nil }

func (m Menu) owned() []*handle.Owned {
	out := make([]*handle.Owned, 0, len(m.Actions))
	for _, a := range m.Actions {
		out = append(out, nonNil(a.Action)...)
	}
	return out
}

func nonNil(hs ...*handle.Owned) []*handle.Owned {
	out := hs[:0]
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Node is one resolved view. Every node gets a fresh ID when created;
// re-rendering a parent creates new children with new IDs.
type Node struct {
	Prim     Primitive
	Parent   *Node
	view     *handle.Owned
	Children []*Node
	token    uint64
	gen      uint64
	ID       uuid.UUID
	State    State
}

func newNode(parent *Node, view *handle.Owned) *Node {
	return &Node{ID: uuid.New(), Parent: parent, view: view}
}

// Kind returns the node's primitive kind, or KindEmpty while unresolved.
func (n *Node) Kind() Kind {
	if n.Prim == nil {
		return KindEmpty
	}
	return n.Prim.Kind()
}

// Child returns the only child of single-content nodes, or nil.
func (n *Node) Child() *Node {
	if len(n.Children) != 1 {
		return nil
	}
	return n.Children[0]
}

// Walk visits n and its descendants depth first, parents before children.
// Returning false from fn skips the node's children.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	type item struct {
		n     *Node
		depth int
	}
	stack := []item{{n, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.n == nil || !fn(it.n, it.depth) {
			continue
		}
		for i := len(it.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.n.Children[i], it.depth + 1})
		}
	}
}
