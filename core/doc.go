// Package core is an in-process producer of UI descriptions.
//
// A Core owns every object it hands out in a handle.Arena and implements
// abi.Exports over it, so a consumer can resolve views without sharing any
// of the producer's memory:
//
//	c := core.New()
//	count := core.NewBinding(0)
//	root := c.Root(core.Stack{Children: []core.View{
//		core.Text{Content: "Counter"},
//		core.Dynamic{
//			Deps: []core.Watchable{count},
//			Body: func() core.View { return core.Text{Content: strconv.Itoa(count.Get())} },
//		},
//	}})
//
// Dynamic views are the opaque kind: no probe matches them, and their
// current body is only reachable through Materialize. Subscribe registers a
// single-shot token against a Dynamic's dependencies.
package core
