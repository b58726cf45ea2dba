package parser

import (
	"encoding/json"
	"fmt"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/odatakit/odatauri/path"
)

func (d *decoder) path(raws []rawSegment) (path.Path, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	p := make(path.Path, 0, len(raws))
	for i, r := range raws {
		seg, err := d.segment(r)
		if err != nil {
			return nil, fmt.Errorf("error parsing segment %d: %w", i+1, err)
		}
		p = append(p, seg)
	}
	return p, nil
}

func (d *decoder) segment(raw rawSegment) (path.Segment, error) {
	named := func() error {
		if raw.Name == "" {
			return fmt.Errorf("%s segment must have a 'name' field", raw.Type)
		}
		return nil
	}

	switch path.SegmentType(raw.Type) {
	case path.EntitySetSegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.EntitySet{Name: raw.Name, TypeName: raw.TypeName}, nil

	case path.SingletonSegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.Singleton{Name: raw.Name, TypeName: raw.TypeName}, nil

	case path.KeySegmentType:
		if len(raw.Keys) == 0 {
			return nil, fmt.Errorf("key segment must have at least one key")
		}
		key := &path.Key{}
		for _, kv := range raw.Keys {
			value, ref, err := d.keyValue(kv)
			if err != nil {
				return nil, err
			}
			key.Keys = append(key.Keys, path.KeyValue{Name: kv.Name, Value: value, Type: ref})
		}
		return key, nil

	case path.NavigationPropertySegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.NavigationProperty{Name: raw.Name}, nil

	case path.PropertySegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.Property{Name: raw.Name}, nil

	case path.TypeCastSegmentType:
		if raw.TypeName == "" {
			return nil, fmt.Errorf("typeCast segment must have a 'typeName' field")
		}
		return &path.TypeCast{TypeName: raw.TypeName}, nil

	case path.OperationSegmentType, path.OperationImportSegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		params, err := d.parameters(raw.Parameters)
		if err != nil {
			return nil, err
		}
		if path.SegmentType(raw.Type) == path.OperationSegmentType {
			return &path.Operation{Name: raw.Name, Parameters: params}, nil
		}
		return &path.OperationImport{Name: raw.Name, Parameters: params}, nil

	case path.CountSegmentType:
		return &path.Count{}, nil
	case path.ValueSegmentType:
		return &path.Value{}, nil
	case path.BatchSegmentType:
		return &path.Batch{}, nil
	case path.MetadataSegmentType:
		return &path.Metadata{}, nil

	case path.BatchReferenceSegmentType:
		if raw.ContentID == "" {
			return nil, fmt.Errorf("batchReference segment must have a 'contentId' field")
		}
		return &path.BatchReference{ContentID: raw.ContentID}, nil

	case path.DynamicPathSegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.DynamicPath{Name: raw.Name}, nil

	case path.NavigationPropertyLinkSegmentType:
		if err := named(); err != nil {
			return nil, err
		}
		return &path.NavigationPropertyLink{Name: raw.Name}, nil

	case path.AnnotationSegmentType:
		if raw.Term == "" {
			return nil, fmt.Errorf("annotation segment must have a 'term' field")
		}
		return &path.Annotation{Term: raw.Term}, nil

	case "":
		return nil, fmt.Errorf("missing required field '@type'")
	}
	return nil, odataerr.Unsupportedf("unknown segment type '%s'", raw.Type)
}

// keyValue converts a key or parameter value. Aliases stay unresolved.
func (d *decoder) keyValue(kv rawKeyValue) (any, *edm.TypeReference, error) {
	if kv.Name == "" {
		return nil, nil, fmt.Errorf("key value must have a 'name' field")
	}
	if kv.Alias != "" {
		return literal.ParameterAlias{Name: kv.Alias}, nil, nil
	}

	ref, err := d.typeRef(kv.TypeName)
	if err != nil {
		return nil, nil, err
	}
	value, err := d.codec.LiteralToValue(string(kv.Value), ref)
	if err != nil {
		return nil, nil, fmt.Errorf("key '%s': %w", kv.Name, err)
	}
	return value, ref, nil
}

func (d *decoder) parameters(raws []rawKeyValue) ([]path.Parameter, error) {
	var params []path.Parameter
	for _, kv := range raws {
		value, ref, err := d.keyValue(kv)
		if err != nil {
			return nil, err
		}
		params = append(params, path.Parameter{Name: kv.Name, Value: value, Type: ref})
	}
	return params, nil
}

func (d *decoder) selectExpand(raw rawSelectExpand) (*ast.SelectExpandClause, error) {
	clause := &ast.SelectExpandClause{AllSelected: raw.AllSelected}
	for i, r := range raw.Items {
		item, err := d.selectItem(r)
		if err != nil {
			return nil, fmt.Errorf("error parsing item %d: %w", i+1, err)
		}
		clause.Items = append(clause.Items, item)
	}
	return clause, nil
}

func (d *decoder) optionalSelectExpand(raw *rawSelectExpand) (*ast.SelectExpandClause, error) {
	if raw == nil {
		return nil, nil
	}
	return d.selectExpand(*raw)
}

func (d *decoder) selectItem(raw rawSelectItem) (ast.SelectItem, error) {
	itemType := ast.SelectItemType(raw.Type)

	switch itemType {
	case ast.WildcardSelectType:
		return &ast.WildcardSelectItem{}, nil

	case ast.NamespaceWildcardSelectType:
		if raw.Namespace == "" {
			return nil, fmt.Errorf("namespace wildcard must have a 'namespace' field")
		}
		return &ast.NamespaceWildcardSelectItem{Namespace: raw.Namespace}, nil

	case "":
		return nil, fmt.Errorf("missing required field '@type'")

	case ast.PathSelectType, ast.ExpandedNavigationSelectType,
		ast.ExpandedReferenceSelectType, ast.ExpandedCountSelectType:
	default:
		return nil, odataerr.Unsupportedf("unknown select item type '%s'", raw.Type)
	}

	if len(raw.Path) == 0 {
		return nil, fmt.Errorf("%s item must have a 'path' field", raw.Type)
	}
	p, err := d.path(raw.Path)
	if err != nil {
		return nil, err
	}

	if itemType == ast.ExpandedCountSelectType {
		filter, err := d.optionalNode(raw.Filter)
		if err != nil {
			return nil, err
		}
		search, err := d.search(raw.Search)
		if err != nil {
			return nil, err
		}
		item := &ast.ExpandedCountSelectItem{Path: p, Search: search}
		if filter != nil {
			item.Filter = &ast.FilterClause{Expression: filter}
		}
		return item, nil
	}

	opts, err := d.options(raw.Options)
	if err != nil {
		return nil, err
	}

	if itemType == ast.ExpandedReferenceSelectType {
		return &ast.ExpandedReferenceSelectItem{Path: p, Options: opts}, nil
	}

	child, err := d.optionalSelectExpand(raw.SelectExpand)
	if err != nil {
		return nil, err
	}

	if itemType == ast.PathSelectType {
		return &ast.PathSelectItem{Path: p, SelectAndExpand: child, Options: opts}, nil
	}

	levels, err := parseLevels(raw.Levels)
	if err != nil {
		return nil, err
	}
	return &ast.ExpandedNavigationSelectItem{Path: p, SelectAndExpand: child, Options: opts, Levels: levels}, nil
}

func (d *decoder) options(raw *rawOptions) (ast.QueryOptions, error) {
	var opts ast.QueryOptions
	if raw == nil {
		return opts, nil
	}

	opts.Top, opts.Skip, opts.Count = raw.Top, raw.Skip, raw.Count

	if raw.Filter != nil {
		expr, err := d.node(*raw.Filter)
		if err != nil {
			return opts, fmt.Errorf("error parsing filter: %w", err)
		}
		opts.Filter = &ast.FilterClause{Expression: expr}
	}

	var err error
	if opts.OrderBy, err = d.orderBy(raw.OrderBy); err != nil {
		return opts, err
	}
	if opts.Search, err = d.search(raw.Search); err != nil {
		return opts, err
	}
	if opts.Compute, err = d.compute(raw.Compute); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseLevels accepts a positive number or "max"
func parseLevels(raw json.RawMessage) (*ast.LevelsClause, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "max" {
			return nil, fmt.Errorf("invalid levels '%s', must be a number or 'max'", s)
		}
		return &ast.LevelsClause{IsMaxLevel: true}, nil
	}

	var level int64
	if err := json.Unmarshal(raw, &level); err != nil || level < 1 {
		return nil, fmt.Errorf("invalid levels '%s', must be a number or 'max'", string(raw))
	}
	return &ast.LevelsClause{Level: level}, nil
}

func (d *decoder) transformation(raw rawTransformation) (ast.TransformationNode, error) {
	switch ast.TransformationType(raw.Type) {
	case ast.GroupByTransformationType:
		if len(raw.Properties) == 0 {
			return nil, fmt.Errorf("groupby must have at least one property")
		}
		props, err := d.groupByProperties(raw.Properties)
		if err != nil {
			return nil, err
		}
		g := &ast.GroupByTransformation{Properties: props}
		if raw.Child != nil {
			if g.Child, err = d.transformation(*raw.Child); err != nil {
				return nil, fmt.Errorf("error parsing groupby child: %w", err)
			}
		}
		return g, nil

	case ast.AggregateTransformationType:
		if len(raw.Expressions) == 0 {
			return nil, fmt.Errorf("aggregate must have at least one expression")
		}
		items, err := d.aggregateItems(raw.Expressions)
		if err != nil {
			return nil, err
		}
		return &ast.AggregateTransformation{Expressions: items}, nil

	case ast.FilterTransformationType:
		if raw.Expression == nil {
			return nil, fmt.Errorf("filter must have an 'expression' field")
		}
		expr, err := d.node(*raw.Expression)
		if err != nil {
			return nil, err
		}
		return &ast.FilterTransformation{Expression: expr}, nil

	case ast.ComputeTransformationType:
		if len(raw.Compute) == 0 {
			return nil, fmt.Errorf("compute must have at least one expression")
		}
		exprs, err := d.computeExpressions(raw.Compute)
		if err != nil {
			return nil, err
		}
		return &ast.ComputeTransformation{Expressions: exprs}, nil

	case "":
		return nil, fmt.Errorf("missing required field '@type'")
	}
	return nil, odataerr.Unsupportedf("unknown transformation type '%s'", raw.Type)
}

func (d *decoder) groupByProperties(raws []rawGroupByProp) ([]ast.GroupByProperty, error) {
	props := make([]ast.GroupByProperty, 0, len(raws))
	for _, r := range raws {
		if r.Name == "" && r.Expression == nil {
			return nil, fmt.Errorf("groupby property must have a 'name' or 'expression' field")
		}
		expr, err := d.optionalNode(r.Expression)
		if err != nil {
			return nil, err
		}
		children, err := d.groupByProperties(r.Children)
		if err != nil {
			return nil, err
		}
		props = append(props, ast.GroupByProperty{Name: r.Name, Expression: expr, Children: children})
	}
	return props, nil
}

func (d *decoder) aggregateItems(raws []rawAggregateItem) ([]ast.AggregateItem, error) {
	items := make([]ast.AggregateItem, 0, len(raws))
	for i, r := range raws {
		item, err := d.aggregateItem(r)
		if err != nil {
			return nil, fmt.Errorf("error parsing aggregate expression %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *decoder) aggregateItem(raw rawAggregateItem) (ast.AggregateItem, error) {
	switch raw.Type {
	case aggregateExpressionType, "":
		method := ast.AggregationMethod(raw.Method)
		if method == "" {
			return nil, fmt.Errorf("aggregate expression must have a 'method' field")
		}
		if raw.Alias == "" {
			return nil, fmt.Errorf("aggregate expression must have an 'alias' field")
		}
		expr, err := d.optionalNode(raw.Expression)
		if err != nil {
			return nil, err
		}
		if expr == nil && method != ast.VirtualCount {
			return nil, fmt.Errorf("aggregate expression with method '%s' must have an 'expression' field", method)
		}
		return &ast.AggregateExpression{Expression: expr, Method: method, CustomLabel: raw.CustomLabel, Alias: raw.Alias}, nil

	case entitySetAggregateType:
		if raw.Expression == nil {
			return nil, fmt.Errorf("entity set aggregate must have an 'expression' field")
		}
		expr, err := d.node(*raw.Expression)
		if err != nil {
			return nil, err
		}
		children, err := d.aggregateItems(raw.Children)
		if err != nil {
			return nil, err
		}
		return &ast.EntitySetAggregateExpression{Expression: expr, Children: children}, nil
	}
	return nil, odataerr.Unsupportedf("unknown aggregate expression type '%s'", raw.Type)
}
