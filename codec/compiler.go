package codec

import (
	"strconv"
	"sync"

	"github.com/wippyai/view-bridge/errors"
	"go.bytecodealliance.org/wit"
)

// Compiler turns WIT type definitions into codec schemas. Results for
// named type definitions are cached.
type Compiler struct {
	cache sync.Map // *wit.TypeDef -> *Type
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile returns the schema for witType. Enums become payload-less
// variants, tuples records, results ok/err variants, list<u8> a byte
// buffer, and own/borrow handles.
func (c *Compiler) Compile(witType wit.Type) (*Type, error) {
	return c.compile(witType, nil)
}

func (c *Compiler) compile(witType wit.Type, path []string) (*Type, error) {
	switch t := witType.(type) {
	case wit.Bool:
		return Primitive(KindBool), nil
	case wit.U8:
		return Primitive(KindU8), nil
	case wit.S8:
		return Primitive(KindS8), nil
	case wit.U16:
		return Primitive(KindU16), nil
	case wit.S16:
		return Primitive(KindS16), nil
	case wit.U32, wit.Char:
		return Primitive(KindU32), nil
	case wit.S32:
		return Primitive(KindS32), nil
	case wit.U64:
		return Primitive(KindU64), nil
	case wit.S64:
		return Primitive(KindS64), nil
	case wit.F32:
		return Primitive(KindF32), nil
	case wit.F64:
		return Primitive(KindF64), nil
	case wit.String:
		return Primitive(KindString), nil
	case *wit.TypeDef:
		if cached, ok := c.cache.Load(t); ok {
			return cached.(*Type), nil
		}
		ct, err := c.compileTypeDef(t, path)
		if err != nil {
			return nil, err
		}
		c.cache.Store(t, ct)
		return ct, nil
	default:
		return nil, errors.New(errors.PhaseSchema, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", witType).
			Build()
	}
}

func typeDefName(t *wit.TypeDef) string {
	if t.Name != nil {
		return *t.Name
	}
	return ""
}

func (c *Compiler) compileTypeDef(t *wit.TypeDef, path []string) (*Type, error) {
	name := typeDefName(t)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		fields := make([]Field, 0, len(kind.Fields))
		for _, f := range kind.Fields {
			ft, err := c.compile(f.Type, append(append([]string{}, path...), f.Name))
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: f.Name, Type: ft})
		}
		return RecordOf(name, fields...), nil
	case *wit.Tuple:
		fields := make([]Field, 0, len(kind.Types))
		for i, et := range kind.Types {
			idx := strconv.Itoa(i)
			ft, err := c.compile(et, append(append([]string{}, path...), "["+idx+"]"))
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: idx, Type: ft})
		}
		return RecordOf(name, fields...), nil
	case *wit.List:
		if _, ok := kind.Type.(wit.U8); ok {
			return Primitive(KindBytes), nil
		}
		et, err := c.compile(kind.Type, append(append([]string{}, path...), "[elem]"))
		if err != nil {
			return nil, err
		}
		return ListOf(et), nil
	case *wit.Option:
		et, err := c.compile(kind.Type, append(append([]string{}, path...), "some"))
		if err != nil {
			return nil, err
		}
		return OptionOf(et), nil
	case *wit.Enum:
		cases := make([]string, len(kind.Cases))
		for i, ec := range kind.Cases {
			cases[i] = ec.Name
		}
		return EnumOf(name, cases...), nil
	case *wit.Variant:
		cases := make([]Case, 0, len(kind.Cases))
		for _, vc := range kind.Cases {
			cc := Case{Name: vc.Name}
			if vc.Type != nil {
				pt, err := c.compile(vc.Type, append(append([]string{}, path...), vc.Name))
				if err != nil {
					return nil, err
				}
				cc.Payload = []*Type{pt}
			}
			cases = append(cases, cc)
		}
		return VariantOf(name, cases...), nil
	case *wit.Result:
		ok := Case{Name: "ok"}
		if kind.OK != nil {
			pt, err := c.compile(kind.OK, append(append([]string{}, path...), "ok"))
			if err != nil {
				return nil, err
			}
			ok.Payload = []*Type{pt}
		}
		fail := Case{Name: "err"}
		if kind.Err != nil {
			pt, err := c.compile(kind.Err, append(append([]string{}, path...), "err"))
			if err != nil {
				return nil, err
			}
			fail.Payload = []*Type{pt}
		}
		return VariantOf(name, ok, fail), nil
	case *wit.Own, *wit.Borrow:
		return Primitive(KindHandle), nil
	case wit.Type:
		return c.compile(kind, path)
	default:
		return nil, errors.New(errors.PhaseSchema, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported TypeDef kind: %T", kind).
			Build()
	}
}
