package translate

// translate renders bound query trees as URI query option text. Output
// is ready to embed in a query string: free-form text (names, literals,
// aliases) is percent-escaped, structural punctuation is written as is
// and spaces between tokens are written as %20.
//
// Translators keep per-call state and are not safe for concurrent use;
// create one per rendering.

import (
	"net/url"
	"strings"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/odataerr"
)

const space = "%20"

var binaryKeywords = map[ast.BinaryOperatorKind]string{
	ast.Equal:              "eq",
	ast.NotEqual:           "ne",
	ast.GreaterThan:        "gt",
	ast.GreaterThanOrEqual: "ge",
	ast.LessThan:           "lt",
	ast.LessThanOrEqual:    "le",
	ast.And:                "and",
	ast.Or:                 "or",
	ast.Add:                "add",
	ast.Subtract:           "sub",
	ast.Multiply:           "mul",
	ast.Divide:             "div",
	ast.Modulo:             "mod",
	ast.Has:                "has",
}

var searchKeywords = map[ast.BinaryOperatorKind]string{
	ast.And: "AND",
	ast.Or:  "OR",
}

// EscapeDataString percent-encodes everything except unreserved
// characters, spaces included (as %20)
func EscapeDataString(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// NodeTranslator renders expression nodes
type NodeTranslator struct {
	search bool
}

// NewNodeTranslator creates a translator for $filter, $orderby and
// similar expressions
func NewNodeTranslator() *NodeTranslator {
	return &NodeTranslator{}
}

// NewSearchTranslator creates a translator for $search expressions,
// which use AND, OR and NOT
func NewSearchTranslator() *NodeTranslator {
	return &NodeTranslator{search: true}
}

// Translate renders node
func (t *NodeTranslator) Translate(node ast.QueryNode) (string, error) {
	switch n := node.(type) {
	case *ast.BinaryOperator:
		return t.translateBinary(n)
	case *ast.UnaryOperator:
		return t.translateUnary(n)
	case *ast.Constant:
		return t.translateConstant(n)
	case *ast.CollectionConstant:
		items := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			s, err := t.translateConstant(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return "(" + strings.Join(items, ",") + ")", nil
	case *ast.FunctionCall:
		args, err := t.translateAll(n.Arguments)
		if err != nil {
			return "", err
		}
		return EscapeDataString(n.Name) + "(" + strings.Join(args, ",") + ")", nil
	case *ast.PropertyAccess:
		return t.withSource(n.Source, EscapeDataString(n.Name))
	case *ast.Lambda:
		return t.translateLambda(n)
	case *ast.RangeVariable:
		return n.Name, nil
	case *ast.ParameterAlias:
		return "@" + EscapeDataString(n.Name), nil
	case *ast.Cast:
		typeName := EscapeDataString(n.TypeName)
		if ast.IsImplicitRangeVariable(n.Source) {
			return "cast(" + typeName + ")", nil
		}
		src, err := t.Translate(n.Source)
		if err != nil {
			return "", err
		}
		return "cast(" + src + "," + typeName + ")", nil
	case *ast.ResourceCast:
		return t.withSource(n.Source, EscapeDataString(n.TypeName))
	case *ast.Count:
		return t.translateCount(n)
	case *ast.In:
		left, err := t.Translate(n.Left)
		if err != nil {
			return "", err
		}
		right, err := t.Translate(n.Right)
		if err != nil {
			return "", err
		}
		return left + space + "in" + space + right, nil
	case *ast.Convert:
		return t.Translate(n.Source)
	case *ast.SearchTerm:
		if strings.ContainsAny(n.Text, " \t") {
			return EscapeDataString(`"` + n.Text + `"`), nil
		}
		return EscapeDataString(n.Text), nil
	case nil:
		return "", odataerr.Unsupportedf("missing query node")
	}
	return "", odataerr.Unsupportedf("unsupported query node '%s'", node.Type())
}

func (t *NodeTranslator) translateAll(nodes []ast.QueryNode) ([]string, error) {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := t.Translate(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// withSource prefixes text with its source path unless the source is
// the current resource
func (t *NodeTranslator) withSource(source ast.QueryNode, text string) (string, error) {
	if ast.IsImplicitRangeVariable(source) {
		return text, nil
	}
	src, err := t.Translate(source)
	if err != nil {
		return "", err
	}
	return src + "/" + text, nil
}

func (t *NodeTranslator) translateBinary(n *ast.BinaryOperator) (string, error) {
	keywords := binaryKeywords
	if t.search {
		keywords = searchKeywords
	}
	kw, ok := keywords[n.Operator]
	if !ok {
		return "", odataerr.Unsupportedf("unsupported binary operator '%s'", n.Operator)
	}

	left, err := t.operand(n.Left, n.Operator.Precedence(), false)
	if err != nil {
		return "", err
	}
	right, err := t.operand(n.Right, n.Operator.Precedence(), true)
	if err != nil {
		return "", err
	}
	return left + space + kw + space + right, nil
}

// operand renders a child of a binary operator, parenthesizing binary
// children that bind less tightly than their parent. Right children of
// equal strength are parenthesized too, since all operators associate
// to the left.
func (t *NodeTranslator) operand(n ast.QueryNode, parent int, right bool) (string, error) {
	s, err := t.Translate(n)
	if err != nil {
		return "", err
	}
	if b, ok := n.(*ast.BinaryOperator); ok {
		p := b.Operator.Precedence()
		if p < parent || right && p == parent {
			return "(" + s + ")", nil
		}
	}
	return s, nil
}

func (t *NodeTranslator) translateUnary(n *ast.UnaryOperator) (string, error) {
	operand, err := t.Translate(n.Operand)
	if err != nil {
		return "", err
	}
	if _, ok := n.Operand.(*ast.BinaryOperator); ok {
		operand = "(" + operand + ")"
	}

	switch n.Operator {
	case ast.Not:
		if t.search {
			return "NOT" + space + operand, nil
		}
		return "not" + space + operand, nil
	case ast.Negate:
		if !t.search {
			return "-" + operand, nil
		}
	}
	return "", odataerr.Unsupportedf("unsupported unary operator '%s'", n.Operator)
}

func (t *NodeTranslator) translateConstant(n *ast.Constant) (string, error) {
	if n == nil {
		return "", odataerr.Unsupportedf("missing constant")
	}
	if n.LiteralText != "" {
		return EscapeDataString(n.LiteralText), nil
	}
	lit, err := literal.ValueToLiteral(n.Value, n.TypeRef)
	if err != nil {
		return "", err
	}
	return EscapeDataString(lit), nil
}

func (t *NodeTranslator) translateLambda(n *ast.Lambda) (string, error) {
	if n.Kind != ast.Any && n.Kind != ast.All {
		return "", odataerr.Unsupportedf("unsupported lambda '%s'", n.Kind)
	}

	call := string(n.Kind) + "()"
	if n.Body != nil {
		body, err := t.Translate(n.Body)
		if err != nil {
			return "", err
		}
		call = string(n.Kind) + "(" + n.RangeVariable + ":" + body + ")"
	}
	return t.withSource(n.Source, call)
}

func (t *NodeTranslator) translateCount(n *ast.Count) (string, error) {
	var opts []string
	if n.Filter != nil {
		f, err := NewNodeTranslator().Translate(n.Filter)
		if err != nil {
			return "", err
		}
		opts = append(opts, "$filter="+f)
	}
	if n.Search != nil {
		s, err := NewSearchTranslator().Translate(n.Search)
		if err != nil {
			return "", err
		}
		opts = append(opts, "$search="+s)
	}

	text := "$count"
	if len(opts) > 0 {
		text += "(" + strings.Join(opts, ";") + ")"
	}
	return t.withSource(n.Source, text)
}

// TranslateFilterClause renders the value of $filter
func TranslateFilterClause(c *ast.FilterClause) (string, error) {
	return NewNodeTranslator().Translate(c.Expression)
}

// TranslateSearchClause renders the value of $search
func TranslateSearchClause(c *ast.SearchClause) (string, error) {
	return NewSearchTranslator().Translate(c.Expression)
}

// TranslateOrderByClause renders the value of $orderby
func TranslateOrderByClause(c *ast.OrderByClause) (string, error) {
	tr := NewNodeTranslator()
	items := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		s, err := tr.Translate(item.Expression)
		if err != nil {
			return "", err
		}
		if item.Direction == ast.Descending {
			s += space + "desc"
		}
		items = append(items, s)
	}
	return strings.Join(items, ","), nil
}

// TranslateComputeClause renders the value of $compute
func TranslateComputeClause(c *ast.ComputeClause) (string, error) {
	return translateComputeExpressions(NewNodeTranslator(), c.Expressions)
}

func translateComputeExpressions(tr *NodeTranslator, exprs []ast.ComputeExpression) (string, error) {
	items := make([]string, 0, len(exprs))
	for _, e := range exprs {
		s, err := tr.Translate(e.Expression)
		if err != nil {
			return "", err
		}
		items = append(items, s+space+"as"+space+EscapeDataString(e.Alias))
	}
	return strings.Join(items, ","), nil
}

// TranslateParameterAliases renders "@name=value" pairs in declaration
// order. Aliases bound to nil render as null.
func TranslateParameterAliases(aliases *ast.ParameterAliasValues) ([]string, error) {
	out := make([]string, 0, aliases.Len())
	err := aliases.Each(func(name string, node ast.QueryNode) error {
		value := "null"
		if node != nil {
			var err error
			if value, err = NewNodeTranslator().Translate(node); err != nil {
				return err
			}
		}
		out = append(out, "@"+EscapeDataString(name)+"="+value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
