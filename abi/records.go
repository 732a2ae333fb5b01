package abi

import (
	"github.com/wippyai/view-bridge/codec"
)

// Owner is implemented by records that carry transferred handles.
type Owner interface {
	Handles() []uint64
}

// live drops zero handles, which stand for "none".
func live(hs ...uint64) []uint64 {
	out := hs[:0]
	for _, h := range hs {
		if h != 0 {
			out = append(out, h)
		}
	}
	return out
}

func field(r *codec.Reader, name string, fn func() error) error {
	r.Enter(name)
	err := fn()
	r.Leave()
	return err
}

// Empty is the placeholder view.
type Empty struct{}

func (Empty) MarshalBoundary(*codec.Writer) {}

func (*Empty) UnmarshalBoundary(*codec.Reader) error { return nil }

func (Empty) Handles() []uint64 { return nil }

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

func (c Color) MarshalBoundary(w *codec.Writer) {
	w.F32(c.R)
	w.F32(c.G)
	w.F32(c.B)
	w.F32(c.A)
}

func (c *Color) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	for _, p := range []*float32{&c.R, &c.G, &c.B, &c.A} {
		if *p, err = r.F32(); err != nil {
			return err
		}
	}
	return nil
}

func marshalColor(w *codec.Writer, c *Color) {
	w.Present(c != nil)
	if c != nil {
		c.MarshalBoundary(w)
	}
}

func unmarshalColor(r *codec.Reader) (*Color, error) {
	ok, err := r.Present()
	if err != nil || !ok {
		return nil, err
	}
	c := new(Color)
	if err := c.UnmarshalBoundary(r); err != nil {
		return nil, err
	}
	return c, nil
}

// Font is the resolved style of a text run.
type Font struct {
	Underline     *Color
	Strikethrough *Color
	Size          float64
	Bold          bool
	Italic        bool
}

func (f Font) MarshalBoundary(w *codec.Writer) {
	w.F64(f.Size)
	w.Bool(f.Bold)
	w.Bool(f.Italic)
	marshalColor(w, f.Underline)
	marshalColor(w, f.Strikethrough)
}

func (f *Font) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "size", func() error { f.Size, err = r.F64(); return err }); err != nil {
		return err
	}
	if err = field(r, "bold", func() error { f.Bold, err = r.Bool(); return err }); err != nil {
		return err
	}
	if err = field(r, "italic", func() error { f.Italic, err = r.Bool(); return err }); err != nil {
		return err
	}
	if err = field(r, "underline", func() error { f.Underline, err = unmarshalColor(r); return err }); err != nil {
		return err
	}
	return field(r, "strikethrough", func() error { f.Strikethrough, err = unmarshalColor(r); return err })
}

// Text is a run of styled text. Font is a transferred font handle.
type Text struct {
	Content    string
	Font       uint64
	Selectable bool
}

func (t Text) MarshalBoundary(w *codec.Writer) {
	w.String(t.Content)
	w.Bool(t.Selectable)
	w.Handle(t.Font)
}

func (t *Text) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "content", func() error { t.Content, err = r.String(); return err }); err != nil {
		return err
	}
	if err = field(r, "selectable", func() error { t.Selectable, err = r.Bool(); return err }); err != nil {
		return err
	}
	return field(r, "font", func() error { t.Font, err = r.Handle(); return err })
}

func (t Text) Handles() []uint64 { return live(t.Font) }

// Button is a labelled action. Label is a view handle.
type Button struct {
	Label  uint64
	Action uint64
}

func (b Button) MarshalBoundary(w *codec.Writer) {
	w.Handle(b.Label)
	w.Handle(b.Action)
}

func (b *Button) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "label", func() error { b.Label, err = r.Handle(); return err }); err != nil {
		return err
	}
	return field(r, "action", func() error { b.Action, err = r.Handle(); return err })
}

func (b Button) Handles() []uint64 { return live(b.Label, b.Action) }

// StackMode is the stacking axis of a container.
type StackMode uint32

const (
	StackVertical StackMode = iota + 1
	StackHorizontal
	StackLayered
)

var stackModeNames = [...]string{
	StackVertical:   "vertical",
	StackHorizontal: "horizontal",
	StackLayered:    "layered",
}

func (m StackMode) String() string {
	if int(m) < len(stackModeNames) && m != 0 {
		return stackModeNames[m]
	}
	return "unknown"
}

// Stack is an ordered container of child views.
type Stack struct {
	Children []uint64
	Mode     StackMode
}

func (s Stack) MarshalBoundary(w *codec.Writer) {
	w.Case(uint32(s.Mode))
	w.Count(len(s.Children))
	for _, c := range s.Children {
		w.Handle(c)
	}
}

func (s *Stack) UnmarshalBoundary(r *codec.Reader) error {
	if err := field(r, "mode", func() error {
		m, err := r.Case(3)
		s.Mode = StackMode(m)
		return err
	}); err != nil {
		return err
	}
	return field(r, "children", func() error {
		n, err := r.Count()
		if err != nil {
			return err
		}
		s.Children = make([]uint64, 0, min(n, r.Remaining()/8))
		for i := 0; i < n; i++ {
			r.EnterIndex(i)
			h, err := r.Handle()
			r.Leave()
			if err != nil {
				return err
			}
			s.Children = append(s.Children, h)
		}
		return nil
	})
}

func (s Stack) Handles() []uint64 { return live(append([]uint64(nil), s.Children...)...) }

// TapGesture attaches an action to its content view.
type TapGesture struct {
	Content uint64
	Action  uint64
}

func (g TapGesture) MarshalBoundary(w *codec.Writer) {
	w.Handle(g.Content)
	w.Handle(g.Action)
}

func (g *TapGesture) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "content", func() error { g.Content, err = r.Handle(); return err }); err != nil {
		return err
	}
	return field(r, "action", func() error { g.Action, err = r.Handle(); return err })
}

func (g TapGesture) Handles() []uint64 { return live(g.Content, g.Action) }

// SizeKind selects how a Size is interpreted.
type SizeKind uint32

const (
	SizeDefault SizeKind = iota + 1
	SizePx
	SizePercent
)

// Size is a frame dimension.
type Size struct {
	Px      uint64
	Percent float64
	Kind    SizeKind
}

func (s Size) MarshalBoundary(w *codec.Writer) {
	kind := s.Kind
	if kind == 0 {
		kind = SizeDefault
	}
	w.Case(uint32(kind))
	switch kind {
	case SizePx:
		w.U64(s.Px)
	case SizePercent:
		w.F64(s.Percent)
	}
}

func (s *Size) UnmarshalBoundary(r *codec.Reader) error {
	disc, err := r.Case(3)
	if err != nil {
		return err
	}
	s.Kind = SizeKind(disc)
	switch s.Kind {
	case SizePx:
		s.Px, err = r.U64()
	case SizePercent:
		s.Percent, err = r.F64()
	}
	return err
}

// Edge is a per-side inset.
type Edge struct {
	Top, Right, Bottom, Left float64
}

func (e Edge) MarshalBoundary(w *codec.Writer) {
	w.F64(e.Top)
	w.F64(e.Right)
	w.F64(e.Bottom)
	w.F64(e.Left)
}

func (e *Edge) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	for _, p := range []*float64{&e.Top, &e.Right, &e.Bottom, &e.Left} {
		if *p, err = r.F64(); err != nil {
			return err
		}
	}
	return nil
}

// Alignment positions content inside a frame.
type Alignment uint32

const (
	AlignDefault Alignment = iota + 1
	AlignLeading
	AlignCenter
	AlignTrailing
)

// FrameSpec sizes and positions the content of a Frame.
type FrameSpec struct {
	Width, MinWidth, MaxWidth    Size
	Height, MinHeight, MaxHeight Size
	Margin                       Edge
	Alignment                    Alignment
}

var frameSizeNames = [...]string{"width", "min_width", "max_width", "height", "min_height", "max_height"}

func (f *FrameSpec) sizes() []*Size {
	return []*Size{&f.Width, &f.MinWidth, &f.MaxWidth, &f.Height, &f.MinHeight, &f.MaxHeight}
}

func (f FrameSpec) MarshalBoundary(w *codec.Writer) {
	for _, s := range f.sizes() {
		s.MarshalBoundary(w)
	}
	f.Margin.MarshalBoundary(w)
	align := f.Alignment
	if align == 0 {
		align = AlignDefault
	}
	w.Case(uint32(align))
}

func (f *FrameSpec) UnmarshalBoundary(r *codec.Reader) error {
	for i, s := range f.sizes() {
		if err := field(r, frameSizeNames[i], func() error { return s.UnmarshalBoundary(r) }); err != nil {
			return err
		}
	}
	if err := field(r, "margin", func() error { return f.Margin.UnmarshalBoundary(r) }); err != nil {
		return err
	}
	return field(r, "alignment", func() error {
		a, err := r.Case(4)
		f.Alignment = Alignment(a)
		return err
	})
}

// Frame is a sizing modifier around one content view.
type Frame struct {
	Spec    FrameSpec
	Content uint64
}

func (f Frame) MarshalBoundary(w *codec.Writer) {
	f.Spec.MarshalBoundary(w)
	w.Handle(f.Content)
}

func (f *Frame) UnmarshalBoundary(r *codec.Reader) error {
	if err := field(r, "spec", func() error { return f.Spec.UnmarshalBoundary(r) }); err != nil {
		return err
	}
	var err error
	return field(r, "content", func() error { f.Content, err = r.Handle(); return err })
}

func (f Frame) Handles() []uint64 { return live(f.Content) }

// MenuAction is one labelled menu entry.
type MenuAction struct {
	Label  string
	Action uint64
}

// Menu is a labelled list of actions. Label is a view handle.
type Menu struct {
	Actions []MenuAction
	Label   uint64
}

func (m Menu) MarshalBoundary(w *codec.Writer) {
	w.Handle(m.Label)
	w.Count(len(m.Actions))
	for _, a := range m.Actions {
		w.String(a.Label)
		w.Handle(a.Action)
	}
}

func (m *Menu) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "label", func() error { m.Label, err = r.Handle(); return err }); err != nil {
		return err
	}
	return field(r, "actions", func() error {
		n, err := r.Count()
		if err != nil {
			return err
		}
		m.Actions = make([]MenuAction, 0, min(n, r.Remaining()/12))
		for i := 0; i < n; i++ {
			var a MenuAction
			r.EnterIndex(i)
			if a.Label, err = r.String(); err == nil {
				a.Action, err = r.Handle()
			}
			r.Leave()
			if err != nil {
				return err
			}
			m.Actions = append(m.Actions, a)
		}
		return nil
	})
}

func (m Menu) Handles() []uint64 {
	hs := []uint64{m.Label}
	for _, a := range m.Actions {
		hs = append(hs, a.Action)
	}
	return live(hs...)
}

// TextField is an editable string. Value is a transferred binding handle.
type TextField struct {
	Label  string
	Prompt string
	Value  uint64
}

func (t TextField) MarshalBoundary(w *codec.Writer) {
	w.String(t.Label)
	w.Handle(t.Value)
	w.String(t.Prompt)
}

func (t *TextField) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "label", func() error { t.Label, err = r.String(); return err }); err != nil {
		return err
	}
	if err = field(r, "value", func() error { t.Value, err = r.Handle(); return err }); err != nil {
		return err
	}
	return field(r, "prompt", func() error { t.Prompt, err = r.String(); return err })
}

func (t TextField) Handles() []uint64 { return live(t.Value) }

// ToggleStyle is the presentation hint of a Toggle.
type ToggleStyle uint32

const (
	ToggleDefault ToggleStyle = iota + 1
	ToggleCheckbox
	ToggleSwitch
)

var toggleStyleNames = [...]string{
	ToggleDefault:  "default",
	ToggleCheckbox: "checkbox",
	ToggleSwitch:   "switch",
}

func (s ToggleStyle) String() string {
	if int(s) < len(toggleStyleNames) && s != 0 {
		return toggleStyleNames[s]
	}
	return "unknown"
}

// Toggle is a labelled switch. Label is a view handle; Value is a
// transferred bool binding handle.
type Toggle struct {
	Label uint64
	Value uint64
	Style ToggleStyle
}

func (t Toggle) MarshalBoundary(w *codec.Writer) {
	w.Handle(t.Label)
	w.Handle(t.Value)
	style := t.Style
	if style == 0 {
		style = ToggleDefault
	}
	w.Case(uint32(style))
}

func (t *Toggle) UnmarshalBoundary(r *codec.Reader) error {
	var err error
	if err = field(r, "label", func() error { t.Label, err = r.Handle(); return err }); err != nil {
		return err
	}
	if err = field(r, "value", func() error { t.Value, err = r.Handle(); return err }); err != nil {
		return err
	}
	return field(r, "style", func() error {
		s, err := r.Case(3)
		t.Style = ToggleStyle(s)
		return err
	})
}

func (t Toggle) Handles() []uint64 { return live(t.Label, t.Value) }

// Divider is a separator line.
type Divider struct{}

func (Divider) MarshalBoundary(*codec.Writer) {}

func (*Divider) UnmarshalBoundary(*codec.Reader) error { return nil }

func (Divider) Handles() []uint64 { return nil }

// EncodeProbe encodes a probe result. A nil m encodes "not this shape".
func EncodeProbe(m codec.Marshaler) []byte {
	w := codec.GetWriter()
	defer codec.PutWriter(w)
	w.Present(m != nil)
	if m != nil {
		m.MarshalBoundary(w)
	}
	return w.Bytes()
}

// DecodeProbe decodes a probe result; nil means the probe did not match.
// When the record itself fails to decode, the partial record is returned
// with the error so handles read before the failure can be released.
func DecodeProbe[T any, P interface {
	*T
	codec.Unmarshaler
}](b []byte) (*T, error) {
	r := codec.NewReader(b)
	ok, err := r.Present()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, r.Finish()
	}
	v := new(T)
	if err := P(v).UnmarshalBoundary(r); err != nil {
		return v, err
	}
	if err := r.Finish(); err != nil {
		return v, err
	}
	return v, nil
}

// EncodeString encodes a bare string value.
func EncodeString(s string) []byte {
	w := codec.GetWriter()
	defer codec.PutWriter(w)
	w.String(s)
	return w.Bytes()
}

// DecodeString decodes a bare string value.
func DecodeString(b []byte) (string, error) {
	r := codec.NewReader(b)
	s, err := r.String()
	if err != nil {
		return "", err
	}
	return s, r.Finish()
}

// DecodeFont decodes a compute_font result.
func DecodeFont(b []byte) (Font, error) {
	var f Font
	err := codec.Unmarshal(b, &f)
	return f, err
}
