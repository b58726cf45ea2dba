package edm

// edm holds the slice of the entity data model the URI renderers and
// the literal codec need: type references, primitive kinds and the value
// types that have no direct Go counterpart.

import (
	"fmt"
	"strings"
)

// TypeKind classifies a type reference
type TypeKind string

// PrimitiveKind names an Edm primitive type
type PrimitiveKind string

const (
	PrimitiveKindType  TypeKind = "primitive"
	EnumKindType       TypeKind = "enum"
	ComplexKindType    TypeKind = "complex"
	EntityKindType     TypeKind = "entity"
	CollectionKindType TypeKind = "collection"
	UntypedKindType    TypeKind = "untyped"
)

const (
	Boolean        PrimitiveKind = "Edm.Boolean"
	Byte           PrimitiveKind = "Edm.Byte"
	SByte          PrimitiveKind = "Edm.SByte"
	Int16          PrimitiveKind = "Edm.Int16"
	Int32          PrimitiveKind = "Edm.Int32"
	Int64          PrimitiveKind = "Edm.Int64"
	Single         PrimitiveKind = "Edm.Single"
	Double         PrimitiveKind = "Edm.Double"
	Decimal        PrimitiveKind = "Edm.Decimal"
	String         PrimitiveKind = "Edm.String"
	Guid           PrimitiveKind = "Edm.Guid"
	Binary         PrimitiveKind = "Edm.Binary"
	Date           PrimitiveKind = "Edm.Date"
	DateTimeOffset PrimitiveKind = "Edm.DateTimeOffset"
	TimeOfDay      PrimitiveKind = "Edm.TimeOfDay"
	Duration       PrimitiveKind = "Edm.Duration"
	Geography      PrimitiveKind = "Edm.Geography"
	Geometry       PrimitiveKind = "Edm.Geometry"
)

var primitiveKinds = map[string]PrimitiveKind{}

func init() {
	for _, k := range []PrimitiveKind{
		Boolean, Byte, SByte, Int16, Int32, Int64, Single, Double, Decimal,
		String, Guid, Binary, Date, DateTimeOffset, TimeOfDay, Duration,
		Geography, Geometry,
	} {
		primitiveKinds[string(k)] = k
	}
}

// LookupPrimitive resolves a qualified primitive type name such as "Edm.Int32"
func LookupPrimitive(name string) (PrimitiveKind, bool) {
	k, ok := primitiveKinds[name]
	return k, ok
}

// TypeReference is a possibly nullable reference to a model type
type TypeReference struct {
	Kind      TypeKind
	Primitive PrimitiveKind
	Name      string
	Nullable  bool
	Element   *TypeReference
}

// PrimitiveType returns a reference to a primitive type
func PrimitiveType(kind PrimitiveKind, nullable bool) *TypeReference {
	return &TypeReference{
		Kind:      PrimitiveKindType,
		Primitive: kind,
		Name:      string(kind),
		Nullable:  nullable,
	}
}

// EnumTypeRef returns a reference to the enum type with the given qualified name
func EnumTypeRef(name string, nullable bool) *TypeReference {
	return &TypeReference{Kind: EnumKindType, Name: name, Nullable: nullable}
}

// ComplexTypeRef returns a reference to a complex type
func ComplexTypeRef(name string, nullable bool) *TypeReference {
	return &TypeReference{Kind: ComplexKindType, Name: name, Nullable: nullable}
}

// EntityTypeRef returns a reference to an entity type
func EntityTypeRef(name string, nullable bool) *TypeReference {
	return &TypeReference{Kind: EntityKindType, Name: name, Nullable: nullable}
}

// CollectionOf returns a collection reference over element
func CollectionOf(element *TypeReference) *TypeReference {
	return &TypeReference{Kind: CollectionKindType, Element: element, Nullable: true}
}

// FullName returns the qualified name, e.g. "Edm.Int32" or "Collection(NS.Color)"
func (t *TypeReference) FullName() string {
	if t == nil {
		return ""
	}
	if t.Kind == CollectionKindType && t.Element != nil {
		return "Collection(" + t.Element.FullName() + ")"
	}
	return t.Name
}

func (t *TypeReference) String() string {
	return t.FullName()
}

// IsPrimitive reports whether t references a primitive type
func (t *TypeReference) IsPrimitive() bool {
	return t != nil && t.Kind == PrimitiveKindType
}

// IsStructured reports whether t references a complex or entity type
func (t *TypeReference) IsStructured() bool {
	return t != nil && (t.Kind == ComplexKindType || t.Kind == EntityKindType)
}

// ParseTypeName resolves a qualified type name. Primitive names and
// Collection(...) wrappers are resolved directly, other names are looked
// up in the model. Unknown names are an error.
func ParseTypeName(name string, nullable bool, model Model) (*TypeReference, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty type name")
	}

	if strings.HasPrefix(name, "Collection(") && strings.HasSuffix(name, ")") {
		inner, err := ParseTypeName(name[len("Collection("):len(name)-1], true, model)
		if err != nil {
			return nil, err
		}
		return CollectionOf(inner), nil
	}

	if k, ok := LookupPrimitive(name); ok {
		return PrimitiveType(k, nullable), nil
	}

	if name == "Edm.Untyped" {
		return &TypeReference{Kind: UntypedKindType, Name: name, Nullable: true}, nil
	}

	if model != nil {
		if _, ok := model.FindEnumType(name); ok {
			return EnumTypeRef(name, nullable), nil
		}
		if st, ok := model.FindStructuredType(name); ok {
			if st.Entity {
				return EntityTypeRef(name, nullable), nil
			}
			return ComplexTypeRef(name, nullable), nil
		}
	}

	return nil, fmt.Errorf("unknown type '%s'", name)
}
