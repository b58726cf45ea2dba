package translate

import (
	"strings"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/odataerr"
)

var aggregationKeywords = map[ast.AggregationMethod]string{
	ast.Sum:           "sum",
	ast.Min:           "min",
	ast.Max:           "max",
	ast.Average:       "average",
	ast.CountDistinct: "countdistinct",
}

// ApplyTranslator renders $apply pipelines
type ApplyTranslator struct {
	nodes *NodeTranslator
}

// NewApplyTranslator creates a translator for one rendering
func NewApplyTranslator() *ApplyTranslator {
	return &ApplyTranslator{nodes: NewNodeTranslator()}
}

// TranslateApplyClause renders the complete "$apply=..." fragment, or an
// empty string for a clause without stages
func (t *ApplyTranslator) TranslateApplyClause(clause *ast.ApplyClause) (string, error) {
	if clause == nil || len(clause.Transformations) == 0 {
		return "", nil
	}

	stages := make([]string, 0, len(clause.Transformations))
	for _, tr := range clause.Transformations {
		s, err := t.TranslateTransformation(tr)
		if err != nil {
			return "", err
		}
		stages = append(stages, s)
	}
	return "$apply=" + strings.Join(stages, "/"), nil
}

// TranslateTransformation renders a single stage as keyword(body)
func (t *ApplyTranslator) TranslateTransformation(node ast.TransformationNode) (string, error) {
	switch n := node.(type) {
	case *ast.GroupByTransformation:
		return t.translateGroupBy(n)

	case *ast.AggregateTransformation:
		items, err := t.translateAggregateItems(n.Expressions)
		if err != nil {
			return "", err
		}
		return "aggregate(" + items + ")", nil

	case *ast.FilterTransformation:
		expr, err := t.nodes.Translate(n.Expression)
		if err != nil {
			return "", err
		}
		return "filter(" + expr + ")", nil

	case *ast.ComputeTransformation:
		items, err := translateComputeExpressions(t.nodes, n.Expressions)
		if err != nil {
			return "", err
		}
		return "compute(" + items + ")", nil

	case nil:
		return "", odataerr.Unsupportedf("missing transformation node")
	}
	return "", odataerr.Unsupportedf("unsupported transformation node '%s'", node.Type())
}

func (t *ApplyTranslator) translateGroupBy(n *ast.GroupByTransformation) (string, error) {
	var props []string
	for _, p := range n.Properties {
		rendered, err := t.groupByProperty(p)
		if err != nil {
			return "", err
		}
		props = append(props, rendered...)
	}

	s := "groupby((" + strings.Join(props, ",") + ")"
	if n.Child != nil {
		child, err := t.TranslateTransformation(n.Child)
		if err != nil {
			return "", err
		}
		s += "," + child
	}
	return s + ")", nil
}

// groupByProperty expands a grouping property into one path per leaf
func (t *ApplyTranslator) groupByProperty(p ast.GroupByProperty) ([]string, error) {
	name := EscapeDataString(p.Name)
	if p.Expression != nil {
		var err error
		if name, err = t.nodes.Translate(p.Expression); err != nil {
			return nil, err
		}
	}

	if len(p.Children) == 0 {
		return []string{name}, nil
	}

	var out []string
	for _, c := range p.Children {
		children, err := t.groupByProperty(c)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			out = append(out, name+"/"+child)
		}
	}
	return out, nil
}

func (t *ApplyTranslator) translateAggregateItems(items []ast.AggregateItem) (string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := t.translateAggregateItem(item)
		if err != nil {
			return "", err
		}
		out = append(out, s)
	}
	return strings.Join(out, ","), nil
}

func (t *ApplyTranslator) translateAggregateItem(item ast.AggregateItem) (string, error) {
	switch it := item.(type) {
	case *ast.AggregateExpression:
		alias := space + "as" + space + EscapeDataString(it.Alias)
		if it.Method == ast.VirtualCount {
			return "$count" + alias, nil
		}

		method, ok := aggregationKeywords[it.Method]
		if it.Method == ast.Custom {
			method, ok = EscapeDataString(it.CustomLabel), it.CustomLabel != ""
		}
		if !ok {
			return "", odataerr.Unsupportedf("unsupported aggregation method '%s'", it.Method)
		}

		expr, err := t.nodes.Translate(it.Expression)
		if err != nil {
			return "", err
		}
		return expr + space + "with" + space + method + alias, nil

	case *ast.EntitySetAggregateExpression:
		expr, err := t.nodes.Translate(it.Expression)
		if err != nil {
			return "", err
		}
		children, err := t.translateAggregateItems(it.Children)
		if err != nil {
			return "", err
		}
		return expr + "(" + children + ")", nil
	}
	return "", odataerr.Unsupportedf("unsupported aggregate expression %T", item)
}
