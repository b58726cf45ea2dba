package ast

// ast is the bound query tree consumed by the URI renderers.

import (
	"github.com/odatakit/odatauri/edm"
)

// NodeType represents the type of a node in the query tree
type NodeType string

// BinaryOperatorKind is the keyword of a binary operator
type BinaryOperatorKind string

// UnaryOperatorKind is the keyword of a unary operator
type UnaryOperatorKind string

// LambdaKind distinguishes any() from all()
type LambdaKind string

const (
	BinaryOperatorNode NodeType = "binaryOperator"
	UnaryOperatorNode  NodeType = "unaryOperator"
	ConstantNode       NodeType = "constant"
	CollectionNode     NodeType = "collectionConstant"
	FunctionCallNode   NodeType = "functionCall"
	PropertyAccessNode NodeType = "propertyAccess"
	LambdaNode         NodeType = "lambda"
	RangeVariableNode  NodeType = "rangeVariable"
	ParameterAliasNode NodeType = "parameterAlias"
	CastNode           NodeType = "cast"
	ResourceCastNode   NodeType = "resourceCast"
	CountNode          NodeType = "count"
	InNode             NodeType = "in"
	ConvertNode        NodeType = "convert"
	SearchTermNode     NodeType = "searchTerm"
)

// ImplicitRangeVariable is the name of the range variable bound to the
// resource a query applies to
const ImplicitRangeVariable = "$it"

const (
	Equal              BinaryOperatorKind = "eq"
	NotEqual           BinaryOperatorKind = "ne"
	GreaterThan        BinaryOperatorKind = "gt"
	GreaterThanOrEqual BinaryOperatorKind = "ge"
	LessThan           BinaryOperatorKind = "lt"
	LessThanOrEqual    BinaryOperatorKind = "le"
	And                BinaryOperatorKind = "and"
	Or                 BinaryOperatorKind = "or"
	Add                BinaryOperatorKind = "add"
	Subtract           BinaryOperatorKind = "sub"
	Multiply           BinaryOperatorKind = "mul"
	Divide             BinaryOperatorKind = "div"
	Modulo             BinaryOperatorKind = "mod"
	Has                BinaryOperatorKind = "has"

	Not    UnaryOperatorKind = "not"
	Negate UnaryOperatorKind = "-"

	Any LambdaKind = "any"
	All LambdaKind = "all"
)

// QueryNode is a node of a bound expression. The set of implementations
// is closed to this package.
type QueryNode interface {
	Type() NodeType
	queryNode()
}

// BinaryOperator represents left op right
type BinaryOperator struct {
	Operator BinaryOperatorKind
	Left     QueryNode
	Right    QueryNode
	TypeRef  *edm.TypeReference
}

// UnaryOperator represents op operand
type UnaryOperator struct {
	Operator UnaryOperatorKind
	Operand  QueryNode
	TypeRef  *edm.TypeReference
}

// Constant is a literal value. LiteralText, when set, is the text the
// value was parsed from and is rendered verbatim.
type Constant struct {
	Value       any
	LiteralText string
	TypeRef     *edm.TypeReference
}

// CollectionConstant is a parenthesized list of constants, used by "in"
type CollectionConstant struct {
	Items   []*Constant
	TypeRef *edm.TypeReference
}

// FunctionCall is a call of a built-in or bound function
type FunctionCall struct {
	Name      string
	Arguments []QueryNode
	TypeRef   *edm.TypeReference
}

// PropertyAccess reads a structural, navigation or dynamic property of
// Source. A nil Source or the implicit range variable means the current
// resource.
type PropertyAccess struct {
	Source  QueryNode
	Name    string
	TypeRef *edm.TypeReference
}

// Lambda is an any() or all() expression over a collection
type Lambda struct {
	Kind          LambdaKind
	Source        QueryNode
	RangeVariable string
	Body          QueryNode
}

// RangeVariable refers to "$it" or a lambda variable
type RangeVariable struct {
	Name    string
	TypeRef *edm.TypeReference
}

// ParameterAlias refers to a parameter alias "@name"
type ParameterAlias struct {
	Name string
}

// Cast is the cast() function
type Cast struct {
	Source   QueryNode
	TypeName string
}

// ResourceCast narrows a resource to a derived type (Source/NS.Type)
type ResourceCast struct {
	Source   QueryNode
	TypeName string
}

// Count is Source/$count with optional nested filter and search
type Count struct {
	Source QueryNode
	Filter QueryNode
	Search QueryNode
}

// In is left in right
type In struct {
	Left  QueryNode
	Right QueryNode
}

// Convert is an implicit conversion inserted by the binder
type Convert struct {
	Source  QueryNode
	TypeRef *edm.TypeReference
}

// SearchTerm is one term of a $search expression
type SearchTerm struct {
	Text string
}

func (n *BinaryOperator) Type() NodeType     { return BinaryOperatorNode }
func (n *UnaryOperator) Type() NodeType      { return UnaryOperatorNode }
func (n *Constant) Type() NodeType           { return ConstantNode }
func (n *CollectionConstant) Type() NodeType { return CollectionNode }
func (n *FunctionCall) Type() NodeType       { return FunctionCallNode }
func (n *PropertyAccess) Type() NodeType     { return PropertyAccessNode }
func (n *Lambda) Type() NodeType             { return LambdaNode }
func (n *RangeVariable) Type() NodeType      { return RangeVariableNode }
func (n *ParameterAlias) Type() NodeType     { return ParameterAliasNode }
func (n *Cast) Type() NodeType               { return CastNode }
func (n *ResourceCast) Type() NodeType       { return ResourceCastNode }
func (n *Count) Type() NodeType              { return CountNode }
func (n *In) Type() NodeType                 { return InNode }
func (n *Convert) Type() NodeType            { return ConvertNode }
func (n *SearchTerm) Type() NodeType         { return SearchTermNode }

func (*BinaryOperator) queryNode()     {}
func (*UnaryOperator) queryNode()      {}
func (*Constant) queryNode()           {}
func (*CollectionConstant) queryNode() {}
func (*FunctionCall) queryNode()       {}
func (*PropertyAccess) queryNode()     {}
func (*Lambda) queryNode()             {}
func (*RangeVariable) queryNode()      {}
func (*ParameterAlias) queryNode()     {}
func (*Cast) queryNode()               {}
func (*ResourceCast) queryNode()       {}
func (*Count) queryNode()              {}
func (*In) queryNode()                 {}
func (*Convert) queryNode()            {}
func (*SearchTerm) queryNode()         {}

// Precedence returns the binding strength of a binary operator, higher
// binds tighter
func (k BinaryOperatorKind) Precedence() int {
	switch k {
	case Or:
		return 1
	case And:
		return 2
	case Equal, NotEqual, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, Has:
		return 3
	case Add, Subtract:
		return 4
	case Multiply, Divide, Modulo:
		return 5
	}
	return 0
}

// IsImplicitRangeVariable reports whether n is nil or "$it"
func IsImplicitRangeVariable(n QueryNode) bool {
	if n == nil {
		return true
	}
	rv, ok := n.(*RangeVariable)
	return ok && rv.Name == ImplicitRangeVariable
}

// Property is a shorthand for a property of the current resource
func Property(name string) *PropertyAccess {
	return &PropertyAccess{Name: name}
}

// Literal is a shorthand for a constant without literal text
func Literal(value any) *Constant {
	return &Constant{Value: value}
}
