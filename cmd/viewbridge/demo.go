package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/core"
)

// demo builds the built-in counter app and returns its root handle.
func demo(c *core.Core) uint64 {
	count := core.NewBinding(0)
	name := core.NewBinding("world")
	details := core.NewBinding(false)
	loud := core.NewBinding(false)

	inc := func(d int) func() {
		return func() { count.Update(func(n int) int { return n + d }) }
	}

	greeting := core.Dynamic{
		Deps: []core.Watchable{name, loud},
		Body: func() core.View {
			msg := "Hello!"
			if who := strings.TrimSpace(name.Get()); who != "" {
				msg = "Hello, " + who + "!"
			}
			if loud.Get() {
				msg = strings.ToUpper(msg)
			}
			return core.Text{Content: msg, Font: abi.Font{Bold: true}}
		},
	}

	counter := core.Stack{Mode: abi.StackHorizontal, Children: []core.View{
		core.Button{Label: core.Text{Content: "-"}, Action: inc(-1)},
		core.Dynamic{
			Deps: []core.Watchable{count},
			Body: func() core.View {
				n := count.Get()
				font := abi.Font{}
				if n < 0 {
					font.Strikethrough = &abi.Color{R: 1, A: 1}
				}
				return core.Text{Content: fmt.Sprintf("count: %d", n), Font: font}
			},
		},
		core.Button{Label: core.Text{Content: "+"}, Action: inc(1)},
	}}

	detail := core.Dynamic{
		Deps: []core.Watchable{details, count},
		Body: func() core.View {
			if !details.Get() {
				return core.Empty{}
			}
			return core.Frame{
				Spec: abi.FrameSpec{Margin: abi.Edge{Left: 2}},
				Content: core.Text{
					Content:    fmt.Sprintf("%d is %s", count.Get(), parity(count.Get())),
					Font:       abi.Font{Italic: true},
					Selectable: true,
				},
			}
		},
	}

	return c.Root(core.Frame{
		Spec: abi.FrameSpec{
			Width:  abi.Size{Kind: abi.SizePx, Px: 40},
			Margin: abi.Edge{Top: 1, Left: 2},
		},
		Content: core.Stack{Mode: abi.StackVertical, Children: []core.View{
			greeting,
			counter,
			core.TextField{Label: "Name", Prompt: "who to greet", Value: name},
			core.TapGesture{
				Content: core.Text{Content: "toggle details", Font: abi.Font{Underline: &abi.Color{B: 1, A: 1}}},
				Action:  func() { details.Update(func(v bool) bool { return !v }) },
			},
			detail,
			core.Menu{
				Label: core.Text{Content: "More"},
				Actions: []core.MenuItem{
					{Label: "Reset", Action: func() { count.Set(0) }},
					{Label: "Double", Action: func() { count.Update(func(n int) int { return n * 2 }) }},
				},
			},
			core.Divider{},
			core.Toggle{Label: core.Text{Content: "shout"}, Value: loud, Style: abi.ToggleCheckbox},
		}},
	})
}

func parity(n int) string {
	if n%2 == 0 {
		return "even"
	}
	return "odd"
}
