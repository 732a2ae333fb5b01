package codec

import "strings"

// Type is a schema node. Elem is set for options and lists, Fields for
// records and Cases for variants.
type Type struct {
	Elem   *Type
	Name   string
	Fields []Field
	Cases  []Case
	Kind   Kind
}

// Field is a named record member.
type Field struct {
	Type *Type
	Name string
}

// Case is a variant alternative. Its discriminant is its index plus one.
type Case struct {
	Name    string
	Payload []*Type
}

var primitives = [...]*Type{
	KindBool:   {Kind: KindBool},
	KindU8:     {Kind: KindU8},
	KindS8:     {Kind: KindS8},
	KindU16:    {Kind: KindU16},
	KindS16:    {Kind: KindS16},
	KindU32:    {Kind: KindU32},
	KindS32:    {Kind: KindS32},
	KindU64:    {Kind: KindU64},
	KindS64:    {Kind: KindS64},
	KindF32:    {Kind: KindF32},
	KindF64:    {Kind: KindF64},
	KindString: {Kind: KindString},
	KindBytes:  {Kind: KindBytes},
	KindHandle: {Kind: KindHandle},
}

// Primitive returns the shared schema for a primitive kind.
func Primitive(k Kind) *Type {
	if !k.IsPrimitive() {
		panic("codec: " + k.String() + " is not a primitive kind")
	}
	return primitives[k]
}

// OptionOf returns option<elem>.
func OptionOf(elem *Type) *Type {
	return &Type{Kind: KindOption, Elem: elem}
}

// ListOf returns list<elem>.
func ListOf(elem *Type) *Type {
	return &Type{Kind: KindList, Elem: elem}
}

// RecordOf returns a record schema.
func RecordOf(name string, fields ...Field) *Type {
	return &Type{Kind: KindRecord, Name: name, Fields: fields}
}

// VariantOf returns a tagged union schema.
func VariantOf(name string, cases ...Case) *Type {
	return &Type{Kind: KindVariant, Name: name, Cases: cases}
}

// EnumOf returns a variant whose cases carry no payload.
func EnumOf(name string, cases ...string) *Type {
	cs := make([]Case, len(cases))
	for i, c := range cases {
		cs[i] = Case{Name: c}
	}
	return VariantOf(name, cs...)
}

// CaseIndex returns the 1-based discriminant of the named case, or 0.
func (t *Type) CaseIndex(name string) uint32 {
	for i, c := range t.Cases {
		if c.Name == name {
			return uint32(i + 1)
		}
	}
	return 0
}

// String returns the canonical schema text. Two schemas with the same
// text have the same encoding.
func (t *Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Type) write(b *strings.Builder) {
	switch t.Kind {
	case KindOption, KindList:
		b.WriteString(t.Kind.String())
		b.WriteByte('<')
		t.Elem.write(b)
		b.WriteByte('>')
	case KindRecord:
		b.WriteString("record ")
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			f.Type.write(b)
		}
		b.WriteByte('}')
	case KindVariant:
		b.WriteString("variant ")
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, c := range t.Cases {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			if len(c.Payload) > 0 {
				b.WriteByte('(')
				for j, p := range c.Payload {
					if j > 0 {
						b.WriteString(", ")
					}
					p.write(b)
				}
				b.WriteByte(')')
			}
		}
		b.WriteByte('}')
	default:
		b.WriteString(t.Kind.String())
	}
}
