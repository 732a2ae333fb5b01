package codec

// Kind is the shape of an encoded value.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindString
	KindBytes
	KindHandle
	KindOption
	KindList
	KindRecord
	KindVariant
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindU8:      "u8",
	KindS8:      "s8",
	KindU16:     "u16",
	KindS16:     "s16",
	KindU32:     "u32",
	KindS32:     "s32",
	KindU64:     "u64",
	KindS64:     "s64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindHandle:  "handle",
	KindOption:  "option",
	KindList:    "list",
	KindRecord:  "record",
	KindVariant: "variant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k has no nested schema.
func (k Kind) IsPrimitive() bool {
	return k <= KindHandle
}

// FixedSize returns the encoded size of fixed-width kinds, or 0.
func (k Kind) FixedSize() int {
	switch k {
	case KindBool, KindU8, KindS8:
		return 1
	case KindU16, KindS16:
		return 2
	case KindU32, KindS32, KindF32:
		return 4
	case KindU64, KindS64, KindF64, KindHandle:
		return 8
	default:
		return 0
	}
}
