package view

import (
	"context"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/handle"
)

// match is a successful probe: the node's primitive and the view handles
// of its children, in order. All handles are already owned.
type match struct {
	prim     Primitive
	children []*handle.Owned
}

// Probe tests a view handle for one primitive shape. A nil match with a nil
// error means the shape did not match.
type Probe struct {
	try  func(ctx context.Context, c *Client, view uint64) (*match, error)
	Name string
	Kind Kind
}

func newProbe[T any, P interface {
	*T
	codec.Unmarshaler
}](kind Kind, fn string, call func(abi.Exports) func(uint64, *dispatch.Status) []byte, build func(c *Client, rec *T) *match) Probe {
	return Probe{
		Kind: kind,
		Name: fn,
		try: func(ctx context.Context, c *Client, view uint64) (*match, error) {
			buf, err := c.probe(ctx, fn, call(c.x), view)
			if err != nil {
				return nil, err
			}
			rec, err := abi.DecodeProbe[T, P](buf)
			if err != nil {
				if e := asError(err); e != nil && e.Function == "" {
					e.Function = fn
				}
				if o, ok := any(rec).(abi.Owner); ok && rec != nil {
					c.release(o.Handles())
				}
				return nil, err
			}
			if rec == nil {
				return nil, nil
			}
			return build(c, rec), nil
		},
	}
}

var probes = []Probe{
	newProbe(KindEmpty, abi.FnProbeEmpty,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeEmpty },
		func(_ *Client, _ *abi.Empty) *match {
			return &match{prim: Empty{}}
		}),
	newProbe(KindText, abi.FnProbeText,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeText },
		func(c *Client, t *abi.Text) *match {
			return &match{prim: Text{Content: t.Content, Selectable: t.Selectable, Font: c.Own(t.Font)}}
		}),
	newProbe(KindButton, abi.FnProbeButton,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeButton },
		func(c *Client, b *abi.Button) *match {
			return &match{prim: Button{Action: c.Own(b.Action)}, children: ownAll(c, b.Label)}
		}),
	newProbe(KindStack, abi.FnProbeStack,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeStack },
		func(c *Client, s *abi.Stack) *match {
			return &match{prim: Stack{Mode: s.Mode}, children: ownAll(c, s.Children...)}
		}),
	newProbe(KindTapGesture, abi.FnProbeTapGesture,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeTapGesture },
		func(c *Client, g *abi.TapGesture) *match {
			return &match{prim: TapGesture{Action: c.Own(g.Action)}, children: ownAll(c, g.Content)}
		}),
	newProbe(KindFrame, abi.FnProbeFrame,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeFrame },
		func(c *Client, f *abi.Frame) *match {
			return &match{prim: Frame{Spec: f.Spec}, children: ownAll(c, f.Content)}
		}),
	newProbe(KindMenu, abi.FnProbeMenu,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeMenu },
		func(c *Client, m *abi.Menu) *match {
			menu := Menu{Actions: make([]MenuAction, len(m.Actions))}
			for i, a := range m.Actions {
				menu.Actions[i] = MenuAction{Label: a.Label, Action: c.Own(a.Action)}
			}
			return &match{prim: menu, children: ownAll(c, m.Label)}
		}),
	newProbe(KindTextField, abi.FnProbeTextField,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeTextField },
		func(c *Client, t *abi.TextField) *match {
			return &match{prim: TextField{Label: t.Label, Prompt: t.Prompt, Value: c.Own(t.Value)}}
		}),
	newProbe(KindToggle, abi.FnProbeToggle,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeToggle },
		func(c *Client, t *abi.Toggle) *match {
			return &match{prim: Toggle{Value: c.Own(t.Value), Style: t.Style}, children: ownAll(c, t.Label)}
		}),
	newProbe(KindDivider, abi.FnProbeDivider,
		func(x abi.Exports) func(uint64, *dispatch.Status) []byte { return x.ProbeDivider },
		func(_ *Client, _ *abi.Divider) *match {
			return &match{prim: Divider{}}
		}),
}

// Probes returns the probe list in the order resolution tries it.
func Probes() []Probe {
	return append([]Probe(nil), probes...)
}

// ownAll wraps child view handles. Zero handles are skipped.
func ownAll(c *Client, hs ...uint64) []*handle.Owned {
	out := make([]*handle.Owned, 0, len(hs))
	for _, h := range hs {
		if o := c.Own(h); o != nil {
			out = append(out, o)
		}
	}
	return out
}
