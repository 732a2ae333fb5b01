package core

import "github.com/wippyai/view-bridge/abi"

// View is a node of a UI description.
type View interface {
	isView()
}

// Empty renders nothing.
type Empty struct{}

// Text is a run of styled text.
type Text struct {
	Content    string
	Font       abi.Font
	Selectable bool
}

// Button runs Action when pressed.
type Button struct {
	Label  View
	Action func()
}

// Stack lays out children along Mode.
type Stack struct {
	Children []View
	Mode     abi.StackMode
}

// TapGesture runs Action when Content is tapped.
type TapGesture struct {
	Content View
	Action  func()
}

// Frame sizes its content.
type Frame struct {
	Content View
	Spec    abi.FrameSpec
}

// MenuItem is one entry of a Menu.
type MenuItem struct {
	Action func()
	Label  string
}

// Menu is a labelled list of actions.
type Menu struct {
	Label   View
	Actions []MenuItem
}

// TextField edits a string binding.
type TextField struct {
	Value  *Binding[string]
	Label  string
	Prompt string
}

// Toggle flips a bool binding.
type Toggle struct {
	Label View
	Value *Binding[bool]
	Style abi.ToggleStyle
}

// Divider separates its neighbours.
type Divider struct{}

// Dynamic is a computed view. Body is re-evaluated on every Materialize;
// Deps are the values whose change invalidates it.
type Dynamic struct {
	Body func() View
	Deps []Watchable
}

func (Empty) isView()      {}
func (Text) isView()       {}
func (Button) isView()     {}
func (Stack) isView()      {}
func (TapGesture) isView() {}
func (Frame) isView()      {}
func (Menu) isView()       {}
func (TextField) isView()  {}
func (Toggle) isView()     {}
func (Divider) isView()    {}
func (Dynamic) isView()    {}

// Object type IDs in the arena.
const (
	typeView uint32 = iota + 1
	typeFont
	typeAction
	typeBinding
	typeBoolBinding
)
