package kir

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the structural shapes a Type can take.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindVoid
	KindInt
	KindFloat
	KindPointer
	KindStruct
	KindFunc
	KindLabel
)

func (k TypeKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindFunc:
		return "func"
	case KindLabel:
		return "label"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// AddrSpace tags a pointer with a device memory space.
type AddrSpace uint32

// Type is a recursive structural type descriptor.
//
// Pointers use Elem and AddrSpace, structs use Tag and Fields (an empty Tag
// means a literal struct), functions use Elem as the result and Fields as the
// parameter list.
type Type struct {
	Kind      TypeKind
	Width     uint32
	Elem      *Type
	AddrSpace AddrSpace
	Tag       string
	Fields    []*Type
	Opaque    bool
	Variadic  bool
}

var (
	Void  = &Type{Kind: KindVoid}
	Label = &Type{Kind: KindLabel}
	I1    = Int(1)
	I8    = Int(8)
	I32   = Int(32)
	I64   = Int(64)
	F32   = Float(32)
	F64   = Float(64)
)

// Int describes an integer of the given bit width.
func Int(width uint32) *Type {
	return &Type{Kind: KindInt, Width: width}
}

// Float describes a 32 or 64 bit floating point type.
func Float(width uint32) *Type {
	return &Type{Kind: KindFloat, Width: width}
}

// PointerTo describes a pointer to elem in the given address space.
func PointerTo(elem *Type, space AddrSpace) *Type {
	return &Type{Kind: KindPointer, Elem: elem, AddrSpace: space}
}

// Struct describes a named aggregate. An empty tag makes a literal struct.
func Struct(tag string, fields ...*Type) *Type {
	return &Type{Kind: KindStruct, Tag: tag, Fields: fields}
}

// OpaqueStruct describes a named aggregate with no known body.
func OpaqueStruct(tag string) *Type {
	return &Type{Kind: KindStruct, Tag: tag, Opaque: true}
}

// FuncOf describes a function signature.
func FuncOf(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: KindFunc, Elem: ret, Fields: params, Variadic: variadic}
}

func (t *Type) IsVoid() bool    { return t == nil || t.Kind == KindVoid }
func (t *Type) IsPointer() bool { return t != nil && t.Kind == KindPointer }

// Equal reports structural equality. Named structs compare by tag so that
// self-referential aggregates terminate.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return t.IsVoid() && o.IsVoid()
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindVoid, KindLabel:
		return true
	case KindInt, KindFloat:
		return t.Width == o.Width
	case KindPointer:
		return t.AddrSpace == o.AddrSpace && t.Elem.Equal(o.Elem)
	case KindStruct:
		if t.Tag != "" || o.Tag != "" {
			return t.Tag == o.Tag
		}
		return typesEqual(t.Fields, o.Fields)
	case KindFunc:
		return t.Variadic == o.Variadic && t.Elem.Equal(o.Elem) && typesEqual(t.Fields, o.Fields)
	}
	return false
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String renders the type in LLVM typed-pointer syntax.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindLabel:
		return "label"
	case KindInt:
		return fmt.Sprintf("i%d", t.Width)
	case KindFloat:
		if t.Width == 32 {
			return "float"
		}
		return "double"
	case KindPointer:
		if t.AddrSpace != 0 {
			return fmt.Sprintf("%s addrspace(%d)*", t.Elem, t.AddrSpace)
		}
		return t.Elem.String() + "*"
	case KindStruct:
		if t.Tag != "" {
			return "%" + t.Tag
		}
		return t.Body()
	case KindFunc:
		params := make([]string, 0, len(t.Fields)+1)
		for _, p := range t.Fields {
			params = append(params, p.String())
		}
		if t.Variadic {
			params = append(params, "...")
		}
		return fmt.Sprintf("%s (%s)", t.Elem, strings.Join(params, ", "))
	}
	return "invalid"
}

// Body renders the field list of a struct type.
func (t *Type) Body() string {
	if t == nil || t.Kind != KindStruct {
		return ""
	}
	if t.Opaque {
		return "opaque"
	}
	fields := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		fields = append(fields, f.String())
	}
	if len(fields) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(fields, ", ") + " }"
}
