package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/handle"
	"github.com/wippyai/view-bridge/view"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const dividerWidth = 20

// focusable is an element the user can activate: an action, a text field
// or a toggle.
type focusable struct {
	action *handle.Owned
	field  *view.TextField
	toggle *handle.Owned
}

// renderer draws a resolved tree. Fonts and binding values are fetched
// through the session and cached until reset.
type renderer struct {
	ctx     context.Context
	session *view.Session
	fonts   map[*handle.Owned]abi.Font
	values  map[*handle.Owned]string
	flags   map[*handle.Owned]bool
	err     error
	items   []focusable
	focus   int
	width   int
}

func newRenderer(ctx context.Context, s *view.Session) *renderer {
	r := &renderer{ctx: ctx, session: s}
	r.reset()
	return r
}

// reset drops cached boundary reads. Call it after the tree changed.
func (r *renderer) reset() {
	r.fonts = make(map[*handle.Owned]abi.Font)
	r.values = make(map[*handle.Owned]string)
	r.flags = make(map[*handle.Owned]bool)
}

// render draws n with the focus-th focusable highlighted; -1 highlights
// nothing. The focusables are collected in r.items in drawing order.
func (r *renderer) render(n *view.Node, focus int) string {
	r.items = r.items[:0]
	r.focus = focus
	r.err = nil
	return r.node(n)
}

func (r *renderer) node(n *view.Node) string {
	if n == nil {
		return ""
	}
	switch p := n.Prim.(type) {
	case view.Text:
		return r.text(p)
	case view.Button:
		return r.mark(focusable{action: p.Action}, actionStyle.Render("[ "+r.node(n.Child())+" ]"))
	case view.Stack:
		return r.stack(p.Mode, n.Children)
	case view.TapGesture:
		return r.mark(focusable{action: p.Action}, r.node(n.Child()))
	case view.Frame:
		return r.frame(p.Spec, r.node(n.Child()))
	case view.Menu:
		lines := []string{r.node(n.Child())}
		for _, a := range p.Actions {
			lines = append(lines, r.mark(focusable{action: a.Action}, actionStyle.Render("  • "+a.Label)))
		}
		return strings.Join(lines, "\n")
	case view.TextField:
		return r.field(p)
	case view.Toggle:
		box := "[ ]"
		if r.flag(p.Value) {
			box = "[x]"
		}
		return r.mark(focusable{toggle: p.Value}, fieldStyle.Render(box)+" "+r.node(n.Child()))
	case view.Divider:
		return helpStyle.Render(strings.Repeat("─", dividerWidth))
	case view.Computed:
		return r.node(n.Child())
	}
	return ""
}

func (r *renderer) mark(f focusable, s string) string {
	idx := len(r.items)
	r.items = append(r.items, f)
	if idx == r.focus {
		return selectedStyle.Render(s)
	}
	return s
}

func (r *renderer) text(t view.Text) string {
	f := r.font(t.Font)
	style := lipgloss.NewStyle().
		Bold(f.Bold).
		Italic(f.Italic).
		Underline(f.Underline != nil).
		Strikethrough(f.Strikethrough != nil)
	return style.Render(t.Content)
}

func (r *renderer) field(t view.TextField) string {
	value := r.value(t.Value)
	shown := fieldStyle.Render(value)
	if value == "" {
		shown = helpStyle.Render(t.Prompt)
	}
	return r.mark(focusable{field: &t}, t.Label+": "+shown)
}

// stack joins children along mode. Terminal cells cannot overlap, so
// layered children are drawn one below the other.
func (r *renderer) stack(mode abi.StackMode, children []*view.Node) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		if s := r.node(c); s != "" {
			parts = append(parts, s)
		}
	}
	if mode != abi.StackHorizontal {
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	spaced := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			spaced = append(spaced, " ")
		}
		spaced = append(spaced, p)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, spaced...)
}

func (r *renderer) frame(spec abi.FrameSpec, content string) string {
	m := spec.Margin
	style := lipgloss.NewStyle().Margin(int(m.Top), int(m.Right), int(m.Bottom), int(m.Left))

	switch spec.Alignment {
	case abi.AlignCenter:
		style = style.Align(lipgloss.Center)
	case abi.AlignTrailing:
		style = style.Align(lipgloss.Right)
	}

	width, height := lipgloss.Width(content), lipgloss.Height(content)
	if w, ok := r.size(spec.Width); ok {
		width = w
	}
	if w, ok := r.size(spec.MinWidth); ok && width < w {
		width = w
	}
	if w, ok := r.size(spec.MaxWidth); ok && width > w {
		width = w
	}
	if h, ok := r.size(spec.Height); ok {
		height = h
	}
	if h, ok := r.size(spec.MinHeight); ok && height < h {
		height = h
	}
	if h, ok := r.size(spec.MaxHeight); ok && height > h {
		height = h
		style = style.MaxHeight(h)
	}
	return style.Width(width).Height(height).Render(content)
}

// size converts a frame dimension to cells. Percentages need a known
// terminal width.
func (r *renderer) size(s abi.Size) (int, bool) {
	switch s.Kind {
	case abi.SizePx:
		return int(s.Px), true
	case abi.SizePercent:
		if r.width > 0 {
			return int(float64(r.width) * s.Percent / 100), true
		}
	}
	return 0, false
}

func (r *renderer) font(o *handle.Owned) abi.Font {
	if o == nil {
		return abi.Font{}
	}
	if f, ok := r.fonts[o]; ok {
		return f
	}
	f, err := r.session.Font(r.ctx, o)
	if err != nil {
		r.fail(err)
	}
	r.fonts[o] = f
	return f
}

func (r *renderer) value(o *handle.Owned) string {
	if v, ok := r.values[o]; ok {
		return v
	}
	v, err := r.session.ReadBinding(r.ctx, o)
	if err != nil {
		r.fail(err)
	}
	r.values[o] = v
	return v
}

func (r *renderer) flag(o *handle.Owned) bool {
	if v, ok := r.flags[o]; ok {
		return v
	}
	v, err := r.session.ReadBoolBinding(r.ctx, o)
	if err != nil {
		r.fail(err)
	}
	r.flags[o] = v
	return v
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
