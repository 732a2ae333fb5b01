package abi

import (
	"sync"

	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/dispatch"
	"go.bytecodealliance.org/wit"
)

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func record(name string, fields ...wit.Field) *wit.TypeDef {
	return named(name, &wit.Record{Fields: fields})
}

func enum(name string, cases ...string) *wit.TypeDef {
	ec := make([]wit.EnumCase, len(cases))
	for i, c := range cases {
		ec[i] = wit.EnumCase{Name: c}
	}
	return named(name, &wit.Enum{Cases: ec})
}

func option(t wit.Type) *wit.TypeDef { return &wit.TypeDef{Kind: &wit.Option{Type: t}} }
func list(t wit.Type) *wit.TypeDef   { return &wit.TypeDef{Kind: &wit.List{Type: t}} }

// Object handles are own<object>; probe arguments borrow<object>.
var (
	object = named("object", &wit.Resource{})
	owned  = &wit.TypeDef{Kind: &wit.Own{Type: object}}
	borrow = &wit.TypeDef{Kind: &wit.Borrow{Type: object}}
)

// WIT definitions of the boundary records, in wire field order.
var (
	WitEmpty = record("empty")
	WitColor = record("color",
		wit.Field{Name: "r", Type: wit.F32{}},
		wit.Field{Name: "g", Type: wit.F32{}},
		wit.Field{Name: "b", Type: wit.F32{}},
		wit.Field{Name: "a", Type: wit.F32{}},
	)
	WitFont = record("font",
		wit.Field{Name: "size", Type: wit.F64{}},
		wit.Field{Name: "bold", Type: wit.Bool{}},
		wit.Field{Name: "italic", Type: wit.Bool{}},
		wit.Field{Name: "underline", Type: option(WitColor)},
		wit.Field{Name: "strikethrough", Type: option(WitColor)},
	)
	WitText = record("text",
		wit.Field{Name: "content", Type: wit.String{}},
		wit.Field{Name: "selectable", Type: wit.Bool{}},
		wit.Field{Name: "font", Type: owned},
	)
	WitButton = record("button",
		wit.Field{Name: "label", Type: owned},
		wit.Field{Name: "action", Type: owned},
	)
	WitStackMode = enum("stack-mode", "vertical", "horizontal", "layered")
	WitStack     = record("stack",
		wit.Field{Name: "mode", Type: WitStackMode},
		wit.Field{Name: "children", Type: list(owned)},
	)
	WitTapGesture = record("tap-gesture",
		wit.Field{Name: "content", Type: owned},
		wit.Field{Name: "action", Type: owned},
	)
	WitSize = named("size", &wit.Variant{Cases: []wit.Case{
		{Name: "default"},
		{Name: "px", Type: wit.U64{}},
		{Name: "percent", Type: wit.F64{}},
	}})
	WitEdge = record("edge",
		wit.Field{Name: "top", Type: wit.F64{}},
		wit.Field{Name: "right", Type: wit.F64{}},
		wit.Field{Name: "bottom", Type: wit.F64{}},
		wit.Field{Name: "left", Type: wit.F64{}},
	)
	WitAlignment = enum("alignment", "default", "leading", "center", "trailing")
	WitFrameSpec = record("frame-spec",
		wit.Field{Name: "width", Type: WitSize},
		wit.Field{Name: "min-width", Type: WitSize},
		wit.Field{Name: "max-width", Type: WitSize},
		wit.Field{Name: "height", Type: WitSize},
		wit.Field{Name: "min-height", Type: WitSize},
		wit.Field{Name: "max-height", Type: WitSize},
		wit.Field{Name: "margin", Type: WitEdge},
		wit.Field{Name: "alignment", Type: WitAlignment},
	)
	WitFrame = record("frame",
		wit.Field{Name: "spec", Type: WitFrameSpec},
		wit.Field{Name: "content", Type: owned},
	)
	WitMenuAction = record("menu-action",
		wit.Field{Name: "label", Type: wit.String{}},
		wit.Field{Name: "action", Type: owned},
	)
	WitMenu = record("menu",
		wit.Field{Name: "label", Type: owned},
		wit.Field{Name: "actions", Type: list(WitMenuAction)},
	)
	WitTextField = record("text-field",
		wit.Field{Name: "label", Type: wit.String{}},
		wit.Field{Name: "value", Type: owned},
		wit.Field{Name: "prompt", Type: wit.String{}},
	)
	WitToggleStyle = enum("toggle-style", "default", "checkbox", "switch")
	WitToggle      = record("toggle",
		wit.Field{Name: "label", Type: owned},
		wit.Field{Name: "value", Type: owned},
		wit.Field{Name: "style", Type: WitToggleStyle},
	)
	WitDivider   = record("divider")
	WitCoreError = named("core-error", &wit.Variant{Cases: []wit.Case{
		{Name: "unknown-object", Type: borrow},
		{Name: "wrong-kind", Type: wit.String{}},
		{Name: "rejected", Type: wit.String{}},
	}})
	WitSubscriber = record("subscriber",
		wit.Field{Name: "state", Type: wit.U64{}},
		wit.Field{Name: "invoke", Type: wit.U64{}},
	)
)

type signature struct {
	params []wit.Type
	result wit.Type
}

var signatures = map[string]signature{
	FnProbeEmpty:      {[]wit.Type{borrow}, option(WitEmpty)},
	FnProbeText:       {[]wit.Type{borrow}, option(WitText)},
	FnProbeButton:     {[]wit.Type{borrow}, option(WitButton)},
	FnProbeStack:      {[]wit.Type{borrow}, option(WitStack)},
	FnProbeTapGesture: {[]wit.Type{borrow}, option(WitTapGesture)},
	FnProbeFrame:      {[]wit.Type{borrow}, option(WitFrame)},
	FnProbeMenu:       {[]wit.Type{borrow}, option(WitMenu)},
	FnProbeTextField:  {[]wit.Type{borrow}, option(WitTextField)},
	FnProbeToggle:     {[]wit.Type{borrow}, option(WitToggle)},
	FnProbeDivider:    {[]wit.Type{borrow}, option(WitDivider)},
	FnMaterialize:     {[]wit.Type{borrow}, owned},
	FnSubscribe:       {[]wit.Type{borrow, WitSubscriber}, nil},
	FnCloneObject:     {[]wit.Type{borrow}, owned},
	FnFreeObject:      {[]wit.Type{owned}, nil},
	FnInvokeAction:    {[]wit.Type{borrow}, nil},
	FnComputeFont:     {[]wit.Type{borrow}, WitFont},
	FnReadBinding:     {[]wit.Type{borrow}, wit.String{}},
	FnWriteBinding:    {[]wit.Type{borrow, wit.String{}}, nil},

	FnReadBoolBinding:  {[]wit.Type{borrow}, wit.Bool{}},
	FnWriteBoolBinding: {[]wit.Type{borrow, wit.Bool{}}, nil},
}

var (
	compiler     = codec.NewCompiler()
	contractOnce sync.Once
	contract     dispatch.Contract
	sigText      map[string]string
)

// Schema compiles a WIT record definition into its codec schema.
func Schema(t wit.Type) *codec.Type {
	ct, err := compiler.Compile(t)
	if err != nil {
		panic("abi: " + err.Error())
	}
	return ct
}

func buildContract() {
	contract = dispatch.Contract{Version: ContractVersion, Checksums: make(map[string]uint16, len(signatures))}
	sigText = make(map[string]string, len(signatures))
	for _, fn := range Functions {
		sig := signatures[fn]
		params := make([]*codec.Type, len(sig.params))
		for i, p := range sig.params {
			params[i] = Schema(p)
		}
		var result *codec.Type
		if sig.result != nil {
			result = Schema(sig.result)
		}
		text := codec.Signature(fn, params, result)
		sigText[fn] = text
		contract.Checksums[fn] = codec.Checksum(text)
	}
}

// Signature returns the canonical signature text of fn.
func Signature(fn string) string {
	contractOnce.Do(buildContract)
	return sigText[fn]
}

// Checksum returns the compiled-in checksum of fn, or 0 for unknown names.
func Checksum(fn string) uint16 {
	contractOnce.Do(buildContract)
	return contract.Checksums[fn]
}

// ExpectedContract returns the contract a consumer of this build expects.
func ExpectedContract() dispatch.Contract {
	contractOnce.Do(buildContract)
	c := dispatch.Contract{Version: contract.Version, Checksums: make(map[string]uint16, len(contract.Checksums))}
	for k, v := range contract.Checksums {
		c.Checksums[k] = v
	}
	return c
}
