package parser

// parser decodes tagged JSON or YAML descriptions of a request URI into
// the bound query tree. Nodes, segments, select items and
// transformations carry an "@type" field naming their kind; constants
// are given as literal text plus an optional type name and are converted
// with a literal.Codec.

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/odatakit/odatauri/uri"
	"gopkg.in/yaml.v3"
)

// rawDocument represents the raw JSON structure of a document
type rawDocument struct {
	ServiceRoot  string              `json:"serviceRoot,omitempty"`
	Path         []rawSegment        `json:"path,omitempty"`
	Filter       *rawNode            `json:"filter,omitempty"`
	SelectExpand *rawSelectExpand    `json:"selectExpand,omitempty"`
	Apply        []rawTransformation `json:"apply,omitempty"`
	Compute      []rawCompute        `json:"compute,omitempty"`
	OrderBy      []rawOrderBy        `json:"orderby,omitempty"`
	Search       *rawNode            `json:"search,omitempty"`
	Top          *int64              `json:"top,omitempty"`
	Skip         *int64              `json:"skip,omitempty"`
	Count        *bool               `json:"count,omitempty"`
	SkipToken    *string             `json:"skiptoken,omitempty"`
	DeltaToken   *string             `json:"deltatoken,omitempty"`
	Aliases      []rawAlias          `json:"aliases,omitempty"`
}

// rawNode represents the raw JSON structure of a query node
type rawNode struct {
	Type      string       `json:"@type"`
	Operator  string       `json:"operator,omitempty"`
	Left      *rawNode     `json:"left,omitempty"`
	Right     *rawNode     `json:"right,omitempty"`
	Operand   *rawNode     `json:"operand,omitempty"`
	Source    *rawNode     `json:"source,omitempty"`
	Body      *rawNode     `json:"body,omitempty"`
	Filter    *rawNode     `json:"filter,omitempty"`
	Search    *rawNode     `json:"search,omitempty"`
	Arguments []rawNode    `json:"arguments,omitempty"`
	Items     []rawNode    `json:"items,omitempty"`
	Name      string       `json:"name,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	Variable  string       `json:"variable,omitempty"`
	TypeName  string       `json:"typeName,omitempty"`
	Value     *literalText `json:"value,omitempty"`
	Text      string       `json:"text,omitempty"`
}

type rawSegment struct {
	Type       string        `json:"@type"`
	Name       string        `json:"name,omitempty"`
	TypeName   string        `json:"typeName,omitempty"`
	Keys       []rawKeyValue `json:"keys,omitempty"`
	Parameters []rawKeyValue `json:"parameters,omitempty"`
	ContentID  string        `json:"contentId,omitempty"`
	Term       string        `json:"term,omitempty"`
}

// rawKeyValue is a key property or operation parameter. Alias names a
// parameter alias used instead of a literal value.
type rawKeyValue struct {
	Name     string      `json:"name"`
	Value    literalText `json:"value,omitempty"`
	TypeName string      `json:"typeName,omitempty"`
	Alias    string      `json:"alias,omitempty"`
}

type rawSelectExpand struct {
	Items       []rawSelectItem `json:"items,omitempty"`
	AllSelected bool            `json:"allSelected,omitempty"`
}

type rawSelectItem struct {
	Type         string           `json:"@type"`
	Path         []rawSegment     `json:"path,omitempty"`
	Namespace    string           `json:"namespace,omitempty"`
	SelectExpand *rawSelectExpand `json:"selectExpand,omitempty"`
	Options      *rawOptions      `json:"options,omitempty"`
	Levels       json.RawMessage  `json:"levels,omitempty"`
	Filter       *rawNode         `json:"filter,omitempty"`
	Search       *rawNode         `json:"search,omitempty"`
}

type rawOptions struct {
	Filter  *rawNode     `json:"filter,omitempty"`
	OrderBy []rawOrderBy `json:"orderby,omitempty"`
	Top     *int64       `json:"top,omitempty"`
	Skip    *int64       `json:"skip,omitempty"`
	Count   *bool        `json:"count,omitempty"`
	Search  *rawNode     `json:"search,omitempty"`
	Compute []rawCompute `json:"compute,omitempty"`
}

type rawOrderBy struct {
	Expression rawNode `json:"expression"`
	Direction  string  `json:"direction,omitempty"`
}

type rawCompute struct {
	Expression rawNode `json:"expression"`
	Alias      string  `json:"alias"`
}

type rawAlias struct {
	Name  string   `json:"name"`
	Value *rawNode `json:"value,omitempty"`
}

type rawTransformation struct {
	Type        string             `json:"@type"`
	Properties  []rawGroupByProp   `json:"properties,omitempty"`
	Child       *rawTransformation `json:"child,omitempty"`
	Expressions []rawAggregateItem `json:"expressions,omitempty"`
	Expression  *rawNode           `json:"expression,omitempty"`
	Compute     []rawCompute       `json:"compute,omitempty"`
}

type rawGroupByProp struct {
	Name       string           `json:"name"`
	Expression *rawNode         `json:"expression,omitempty"`
	Children   []rawGroupByProp `json:"children,omitempty"`
}

type rawAggregateItem struct {
	Type        string             `json:"@type"`
	Expression  *rawNode           `json:"expression,omitempty"`
	Method      string             `json:"method,omitempty"`
	CustomLabel string             `json:"customLabel,omitempty"`
	Alias       string             `json:"alias,omitempty"`
	Children    []rawAggregateItem `json:"children,omitempty"`
}

// literalText is literal text given either as a JSON string or as a
// bare number or boolean
type literalText string

func (l *literalText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = literalText(s)
		return nil
	}
	*l = literalText(data)
	return nil
}

const (
	aggregateExpressionType = "aggregateExpression"
	entitySetAggregateType  = "entitySetAggregate"
)

// decoder converts raw documents, resolving constants with codec
type decoder struct {
	codec *literal.Codec
}

// ParseDocument decodes a JSON document into an ODataUri. Unknown fields
// are rejected.
func ParseDocument(data []byte, codec *literal.Codec) (*uri.ODataUri, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return (&decoder{codec: codec}).document(raw)
}

// ParseDocumentYAML decodes a YAML document of the same shape as
// ParseDocument
func ParseDocumentYAML(data []byte, codec *literal.Codec) (*uri.ODataUri, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML document: %w", err)
	}
	return ParseDocument(data, codec)
}

func (d *decoder) document(raw rawDocument) (*uri.ODataUri, error) {
	u := &uri.ODataUri{
		Top:        raw.Top,
		Skip:       raw.Skip,
		QueryCount: raw.Count,
		SkipToken:  raw.SkipToken,
		DeltaToken: raw.DeltaToken,
	}

	if raw.ServiceRoot != "" {
		if err := u.SetServiceRoot(raw.ServiceRoot); err != nil {
			return nil, err
		}
	}

	var err error
	if u.Path, err = d.path(raw.Path); err != nil {
		return nil, fmt.Errorf("error parsing path: %w", err)
	}

	if raw.Filter != nil {
		expr, err := d.node(*raw.Filter)
		if err != nil {
			return nil, fmt.Errorf("error parsing filter: %w", err)
		}
		u.Filter = &ast.FilterClause{Expression: expr}
	}

	if raw.SelectExpand != nil {
		if u.SelectAndExpand, err = d.selectExpand(*raw.SelectExpand); err != nil {
			return nil, fmt.Errorf("error parsing select/expand: %w", err)
		}
	}

	if len(raw.Apply) > 0 {
		apply := &ast.ApplyClause{}
		for i, t := range raw.Apply {
			tr, err := d.transformation(t)
			if err != nil {
				return nil, fmt.Errorf("error parsing apply stage %d: %w", i+1, err)
			}
			apply.Transformations = append(apply.Transformations, tr)
		}
		u.Apply = apply
	}

	if u.Compute, err = d.compute(raw.Compute); err != nil {
		return nil, fmt.Errorf("error parsing compute: %w", err)
	}
	if u.OrderBy, err = d.orderBy(raw.OrderBy); err != nil {
		return nil, fmt.Errorf("error parsing orderby: %w", err)
	}
	if u.Search, err = d.search(raw.Search); err != nil {
		return nil, fmt.Errorf("error parsing search: %w", err)
	}

	if len(raw.Aliases) > 0 {
		u.ParameterAliases = ast.NewParameterAliasValues()
		for _, a := range raw.Aliases {
			if a.Name == "" {
				return nil, fmt.Errorf("parameter alias must have a 'name' field")
			}
			var value ast.QueryNode
			if a.Value != nil {
				if value, err = d.node(*a.Value); err != nil {
					return nil, fmt.Errorf("error parsing alias '%s': %w", a.Name, err)
				}
			}
			u.ParameterAliases.Set(a.Name, value)
		}
	}

	return u, nil
}

// typeRef resolves an optional type name against the codec's model
func (d *decoder) typeRef(name string) (*edm.TypeReference, error) {
	if name == "" {
		return nil, nil
	}
	ref, err := edm.ParseTypeName(name, true, d.codec.Model)
	if err != nil {
		return nil, odataerr.InvalidLiteralf(name, "%v", err)
	}
	return ref, nil
}

// node converts a raw node into a query node
func (d *decoder) node(raw rawNode) (ast.QueryNode, error) {
	switch ast.NodeType(raw.Type) {
	case ast.BinaryOperatorNode:
		if raw.Left == nil || raw.Right == nil {
			return nil, fmt.Errorf("binary operator must have 'left' and 'right' fields")
		}
		left, err := d.node(*raw.Left)
		if err != nil {
			return nil, fmt.Errorf("error parsing left operand: %w", err)
		}
		right, err := d.node(*raw.Right)
		if err != nil {
			return nil, fmt.Errorf("error parsing right operand: %w", err)
		}
		return &ast.BinaryOperator{Operator: ast.BinaryOperatorKind(raw.Operator), Left: left, Right: right}, nil

	case ast.UnaryOperatorNode:
		if raw.Operand == nil {
			return nil, fmt.Errorf("unary operator must have an 'operand' field")
		}
		operand, err := d.node(*raw.Operand)
		if err != nil {
			return nil, fmt.Errorf("error parsing operand: %w", err)
		}
		return &ast.UnaryOperator{Operator: ast.UnaryOperatorKind(raw.Operator), Operand: operand}, nil

	case ast.ConstantNode:
		return d.constant(raw)

	case ast.CollectionNode:
		c := &ast.CollectionConstant{}
		for i, item := range raw.Items {
			constant, err := d.constant(item)
			if err != nil {
				return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
			}
			c.Items = append(c.Items, constant)
		}
		return c, nil

	case ast.FunctionCallNode:
		if raw.Name == "" {
			return nil, fmt.Errorf("function call must have a 'name' field")
		}
		args, err := d.nodes(raw.Arguments)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Name: raw.Name, Arguments: args}, nil

	case ast.PropertyAccessNode:
		if raw.Name == "" {
			return nil, fmt.Errorf("property access must have a 'name' field")
		}
		source, err := d.optionalNode(raw.Source)
		if err != nil {
			return nil, err
		}
		return &ast.PropertyAccess{Source: source, Name: raw.Name}, nil

	case ast.LambdaNode:
		source, err := d.optionalNode(raw.Source)
		if err != nil {
			return nil, err
		}
		body, err := d.optionalNode(raw.Body)
		if err != nil {
			return nil, err
		}
		if body != nil && raw.Variable == "" {
			return nil, fmt.Errorf("lambda with a body must have a 'variable' field")
		}
		return &ast.Lambda{Kind: ast.LambdaKind(raw.Kind), Source: source, RangeVariable: raw.Variable, Body: body}, nil

	case ast.RangeVariableNode:
		name := raw.Name
		if name == "" {
			name = ast.ImplicitRangeVariable
		}
		return &ast.RangeVariable{Name: name}, nil

	case ast.ParameterAliasNode:
		if raw.Name == "" {
			return nil, fmt.Errorf("parameter alias must have a 'name' field")
		}
		return &ast.ParameterAlias{Name: raw.Name}, nil

	case ast.CastNode, ast.ResourceCastNode:
		if raw.TypeName == "" {
			return nil, fmt.Errorf("%s must have a 'typeName' field", raw.Type)
		}
		source, err := d.optionalNode(raw.Source)
		if err != nil {
			return nil, err
		}
		if ast.NodeType(raw.Type) == ast.CastNode {
			return &ast.Cast{Source: source, TypeName: raw.TypeName}, nil
		}
		return &ast.ResourceCast{Source: source, TypeName: raw.TypeName}, nil

	case ast.CountNode:
		source, err := d.optionalNode(raw.Source)
		if err != nil {
			return nil, err
		}
		filter, err := d.optionalNode(raw.Filter)
		if err != nil {
			return nil, err
		}
		search, err := d.optionalNode(raw.Search)
		if err != nil {
			return nil, err
		}
		return &ast.Count{Source: source, Filter: filter, Search: search}, nil

	case ast.InNode:
		if raw.Left == nil || raw.Right == nil {
			return nil, fmt.Errorf("in must have 'left' and 'right' fields")
		}
		left, err := d.node(*raw.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.node(*raw.Right)
		if err != nil {
			return nil, err
		}
		return &ast.In{Left: left, Right: right}, nil

	case ast.ConvertNode:
		if raw.Source == nil {
			return nil, fmt.Errorf("convert must have a 'source' field")
		}
		source, err := d.node(*raw.Source)
		if err != nil {
			return nil, err
		}
		ref, err := d.typeRef(raw.TypeName)
		if err != nil {
			return nil, err
		}
		return &ast.Convert{Source: source, TypeRef: ref}, nil

	case ast.SearchTermNode:
		if raw.Text == "" {
			return nil, fmt.Errorf("search term must have a 'text' field")
		}
		return &ast.SearchTerm{Text: raw.Text}, nil

	case "":
		return nil, fmt.Errorf("missing required field '@type'")
	}
	return nil, odataerr.Unsupportedf("unknown node type '%s'", raw.Type)
}

func (d *decoder) optionalNode(raw *rawNode) (ast.QueryNode, error) {
	if raw == nil {
		return nil, nil
	}
	return d.node(*raw)
}

func (d *decoder) nodes(raws []rawNode) ([]ast.QueryNode, error) {
	out := make([]ast.QueryNode, 0, len(raws))
	for i, r := range raws {
		n, err := d.node(r)
		if err != nil {
			return nil, fmt.Errorf("error parsing argument %d: %w", i+1, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// constant converts literal text into a typed value
func (d *decoder) constant(raw rawNode) (*ast.Constant, error) {
	if ast.NodeType(raw.Type) != ast.ConstantNode {
		return nil, fmt.Errorf("expected a constant, got '%s'", raw.Type)
	}
	if raw.Value == nil {
		return nil, fmt.Errorf("constant must have a 'value' field")
	}

	ref, err := d.typeRef(raw.TypeName)
	if err != nil {
		return nil, err
	}
	value, err := d.codec.LiteralToValue(string(*raw.Value), ref)
	if err != nil {
		return nil, err
	}
	return &ast.Constant{Value: value, TypeRef: ref}, nil
}

func (d *decoder) search(raw *rawNode) (*ast.SearchClause, error) {
	if raw == nil {
		return nil, nil
	}
	expr, err := d.node(*raw)
	if err != nil {
		return nil, err
	}
	return &ast.SearchClause{Expression: expr}, nil
}

func (d *decoder) orderBy(raws []rawOrderBy) (*ast.OrderByClause, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	c := &ast.OrderByClause{}
	for i, r := range raws {
		expr, err := d.node(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
		}
		dir := ast.Ascending
		switch r.Direction {
		case "", "asc":
		case "desc":
			dir = ast.Descending
		default:
			return nil, fmt.Errorf("invalid direction '%s', must be one of: 'asc', 'desc'", r.Direction)
		}
		c.Items = append(c.Items, ast.OrderByItem{Expression: expr, Direction: dir})
	}
	return c, nil
}

func (d *decoder) computeExpressions(raws []rawCompute) ([]ast.ComputeExpression, error) {
	out := make([]ast.ComputeExpression, 0, len(raws))
	for i, r := range raws {
		if r.Alias == "" {
			return nil, fmt.Errorf("compute expression %d must have an 'alias' field", i+1)
		}
		expr, err := d.node(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("error parsing compute expression %d: %w", i+1, err)
		}
		out = append(out, ast.ComputeExpression{Expression: expr, Alias: r.Alias})
	}
	return out, nil
}

func (d *decoder) compute(raws []rawCompute) (*ast.ComputeClause, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	exprs, err := d.computeExpressions(raws)
	if err != nil {
		return nil, err
	}
	return &ast.ComputeClause{Expressions: exprs}, nil
}
