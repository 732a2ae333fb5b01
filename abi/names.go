package abi

// Boundary function names.
const (
	FnProbeEmpty      = "probe_empty"
	FnProbeText       = "probe_text"
	FnProbeButton     = "probe_button"
	FnProbeStack      = "probe_stack"
	FnProbeTapGesture = "probe_tap_gesture"
	FnProbeFrame      = "probe_frame"
	FnProbeMenu       = "probe_menu"
	FnProbeTextField  = "probe_text_field"
	FnProbeToggle     = "probe_toggle"
	FnProbeDivider    = "probe_divider"
	FnMaterialize     = "materialize"
	FnSubscribe       = "subscribe"
	FnCloneObject     = "clone_object"
	FnFreeObject      = "free_object"
	FnInvokeAction    = "invoke_action"
	FnComputeFont     = "compute_font"
	FnReadBinding     = "read_binding"
	FnWriteBinding    = "write_binding"

	FnReadBoolBinding  = "read_bool_binding"
	FnWriteBoolBinding = "write_bool_binding"
)

// ContractVersion is the boundary version this build speaks.
const ContractVersion uint32 = 1

// Functions lists every boundary function in declaration order.
var Functions = []string{
	FnProbeEmpty,
	FnProbeText,
	FnProbeButton,
	FnProbeStack,
	FnProbeTapGesture,
	FnProbeFrame,
	FnProbeMenu,
	FnProbeTextField,
	FnProbeToggle,
	FnProbeDivider,
	FnMaterialize,
	FnSubscribe,
	FnCloneObject,
	FnFreeObject,
	FnInvokeAction,
	FnComputeFont,
	FnReadBinding,
	FnWriteBinding,
	FnReadBoolBinding,
	FnWriteBoolBinding,
}

// WebAssembly linkage names. Every boundary function is exported under its
// own name; its contract checksum under ChecksumPrefix plus that name.
const (
	ExportMemory          = "memory"
	ExportRealloc         = "cabi_realloc"
	ExportContractVersion = "contract_version"
	ChecksumPrefix        = "checksum_"

	HostModule           = "viewbridge"
	HostInvokeSubscriber = "invoke_subscriber"
)

// Arity returns the number of i64 arguments fn takes before its status
// pointer.
func Arity(fn string) int {
	switch fn {
	case FnSubscribe, FnWriteBinding, FnWriteBoolBinding:
		return 2
	}
	return 1
}

// ReturnsBuffer reports whether fn returns an encoded buffer rather than a
// scalar.
func ReturnsBuffer(fn string) bool {
	switch fn {
	case FnProbeEmpty, FnProbeText, FnProbeButton, FnProbeStack, FnProbeTapGesture,
		FnProbeFrame, FnProbeMenu, FnProbeTextField, FnProbeToggle, FnProbeDivider,
		FnComputeFont, FnReadBinding:
		return true
	}
	return false
}
