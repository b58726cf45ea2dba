package path

// path models resolved resource path segments and renders them for the
// different places a path appears: request URIs, context URLs, and
// $select/$expand items.

import (
	"fmt"
	"strings"

	"github.com/odatakit/odatauri/edm"
)

// SegmentType identifies the kind of a path segment
type SegmentType string

const (
	EntitySetSegmentType              SegmentType = "entitySet"
	SingletonSegmentType              SegmentType = "singleton"
	KeySegmentType                    SegmentType = "key"
	NavigationPropertySegmentType     SegmentType = "navigationProperty"
	PropertySegmentType               SegmentType = "property"
	TypeCastSegmentType               SegmentType = "typeCast"
	OperationSegmentType              SegmentType = "operation"
	OperationImportSegmentType        SegmentType = "operationImport"
	CountSegmentType                  SegmentType = "count"
	ValueSegmentType                  SegmentType = "value"
	BatchSegmentType                  SegmentType = "batch"
	BatchReferenceSegmentType         SegmentType = "batchReference"
	MetadataSegmentType               SegmentType = "metadata"
	DynamicPathSegmentType            SegmentType = "dynamicPath"
	NavigationPropertyLinkSegmentType SegmentType = "navigationPropertyLink"
	AnnotationSegmentType             SegmentType = "annotation"
)

// Segment is one resolved path segment. The set of implementations is
// closed to this package.
type Segment interface {
	Type() SegmentType
	segment()
}

// EntitySet addresses an entity set
type EntitySet struct {
	Name     string
	TypeName string
}

// Singleton addresses a singleton
type Singleton struct {
	Name     string
	TypeName string
}

// KeyValue is one key property and its value
type KeyValue struct {
	Name  string
	Value any
	// Type is the declared key property type, nil to format by value
	Type *edm.TypeReference
}

// Key selects one entity by its key properties, in declaration order
type Key struct {
	Keys []KeyValue
}

// NavigationProperty follows a navigation property
type NavigationProperty struct {
	Name string
}

// Property addresses a structural property
type Property struct {
	Name string
}

// TypeCast narrows to a derived type
type TypeCast struct {
	TypeName string
}

// Parameter is a bound operation parameter. Value may be a
// literal.ParameterAlias.
type Parameter struct {
	Name  string
	Value any
	Type  *edm.TypeReference
}

// Operation invokes a bound function or action. Name is the namespace
// qualified name of the operation group; overload resolution has already
// happened.
type Operation struct {
	Name       string
	Parameters []Parameter
}

// OperationImport invokes a function or action import
type OperationImport struct {
	Name       string
	Parameters []Parameter
}

// Count is the $count segment
type Count struct{}

// Value is the $value segment
type Value struct{}

// Batch is the $batch segment
type Batch struct{}

// BatchReference refers to an earlier request in a batch by content ID
type BatchReference struct {
	ContentID string
}

// Metadata is the $metadata segment
type Metadata struct{}

// DynamicPath addresses an undeclared property of an open type
type DynamicPath struct {
	Name string
}

// NavigationPropertyLink addresses the references of a navigation
// property (Nav/$ref)
type NavigationPropertyLink struct {
	Name string
}

// Annotation addresses an instance annotation by its qualified term name
type Annotation struct {
	Term string
}

func (*EntitySet) Type() SegmentType              { return EntitySetSegmentType }
func (*Singleton) Type() SegmentType              { return SingletonSegmentType }
func (*Key) Type() SegmentType                    { return KeySegmentType }
func (*NavigationProperty) Type() SegmentType     { return NavigationPropertySegmentType }
func (*Property) Type() SegmentType               { return PropertySegmentType }
func (*TypeCast) Type() SegmentType               { return TypeCastSegmentType }
func (*Operation) Type() SegmentType              { return OperationSegmentType }
func (*OperationImport) Type() SegmentType        { return OperationImportSegmentType }
func (*Count) Type() SegmentType                  { return CountSegmentType }
func (*Value) Type() SegmentType                  { return ValueSegmentType }
func (*Batch) Type() SegmentType                  { return BatchSegmentType }
func (*BatchReference) Type() SegmentType         { return BatchReferenceSegmentType }
func (*Metadata) Type() SegmentType               { return MetadataSegmentType }
func (*DynamicPath) Type() SegmentType            { return DynamicPathSegmentType }
func (*NavigationPropertyLink) Type() SegmentType { return NavigationPropertyLinkSegmentType }
func (*Annotation) Type() SegmentType             { return AnnotationSegmentType }

func (*EntitySet) segment()              {}
func (*Singleton) segment()              {}
func (*Key) segment()                    {}
func (*NavigationProperty) segment()     {}
func (*Property) segment()               {}
func (*TypeCast) segment()               {}
func (*Operation) segment()              {}
func (*OperationImport) segment()        {}
func (*Count) segment()                  {}
func (*Value) segment()                  {}
func (*Batch) segment()                  {}
func (*BatchReference) segment()         {}
func (*Metadata) segment()               {}
func (*DynamicPath) segment()            {}
func (*NavigationPropertyLink) segment() {}
func (*Annotation) segment()             {}

// KeyDelimiter selects how key segments are written
type KeyDelimiter int

const (
	// Parentheses writes keys as Set(1) or Set(A=1,B=2)
	Parentheses KeyDelimiter = iota
	// Slash writes a single key as a further segment, Set/1
	Slash
)

func (d KeyDelimiter) String() string {
	if d == Slash {
		return "slash"
	}
	return "parentheses"
}

// ParseKeyDelimiter parses "parentheses" or "slash"; empty means parentheses
func ParseKeyDelimiter(s string) (KeyDelimiter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "parentheses":
		return Parentheses, nil
	case "slash":
		return Slash, nil
	}
	return Parentheses, fmt.Errorf("invalid key delimiter '%s', expected 'parentheses' or 'slash'", s)
}

// Path is an ordered sequence of segments
type Path []Segment

// ToResourcePathString renders the path for a request URI. Every segment
// but a parenthesized key starts with "/".
func (p Path) ToResourcePathString(delim KeyDelimiter) (string, error) {
	return p.render(ResourcePathTranslator{Delimiter: delim})
}

// ToContextURLPathString renders the path for an @odata.context URL
func (p Path) ToContextURLPathString(delim KeyDelimiter) (string, error) {
	return p.render(ContextURLPathTranslator{Delimiter: delim})
}

// ToBareString renders the path as used inside $select and $expand
func (p Path) ToBareString() (string, error) {
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		s, err := BareStringTranslator{}.Translate(seg)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/"), nil
}

func (p Path) render(tr Translator) (string, error) {
	var sb strings.Builder
	for _, seg := range p {
		s, err := tr.Translate(seg)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// Last returns the final segment, or nil for an empty path
func (p Path) Last() Segment {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}
