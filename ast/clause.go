package ast

import (
	"github.com/elliotchance/orderedmap/v3"
	"github.com/odatakit/odatauri/path"
)

// OrderDirection is the sort direction of an $orderby item
type OrderDirection string

const (
	Ascending  OrderDirection = "asc"
	Descending OrderDirection = "desc"
)

// FilterClause is a bound $filter expression
type FilterClause struct {
	Expression QueryNode
}

// OrderByItem is one sort key
type OrderByItem struct {
	Expression QueryNode
	Direction  OrderDirection
}

// OrderByClause is a bound $orderby, in priority order
type OrderByClause struct {
	Items []OrderByItem
}

// SearchClause is a bound $search expression built from SearchTerm,
// and/or binary operators and not
type SearchClause struct {
	Expression QueryNode
}

// ComputeExpression is "expression as alias"
type ComputeExpression struct {
	Expression QueryNode
	Alias      string
}

// ComputeClause is a bound $compute
type ComputeClause struct {
	Expressions []ComputeExpression
}

// LevelsClause is the $levels expand option
type LevelsClause struct {
	IsMaxLevel bool
	Level      int64
}

// ParameterAliasValues binds parameter alias names (without "@") to
// nodes, in the order they were declared. A nil node stands for null.
type ParameterAliasValues struct {
	values *orderedmap.OrderedMap[string, QueryNode]
}

// NewParameterAliasValues creates an empty alias binding set
func NewParameterAliasValues() *ParameterAliasValues {
	return &ParameterAliasValues{values: orderedmap.NewOrderedMap[string, QueryNode]()}
}

// Set binds name to node
func (p *ParameterAliasValues) Set(name string, node QueryNode) *ParameterAliasValues {
	p.values.Set(name, node)
	return p
}

// Get returns the node bound to name
func (p *ParameterAliasValues) Get(name string) (QueryNode, bool) {
	if p == nil {
		return nil, false
	}
	return p.values.Get(name)
}

// Len returns the number of bindings
func (p *ParameterAliasValues) Len() int {
	if p == nil {
		return 0
	}
	return p.values.Len()
}

// Each calls fn for every binding in declaration order
func (p *ParameterAliasValues) Each(fn func(name string, node QueryNode) error) error {
	if p == nil {
		return nil
	}
	for el := p.values.Front(); el != nil; el = el.Next() {
		if err := fn(el.Key, el.Value); err != nil {
			return err
		}
	}
	return nil
}

// SelectItemType identifies the kind of a select item
type SelectItemType string

const (
	WildcardSelectType           SelectItemType = "wildcard"
	PathSelectType               SelectItemType = "path"
	NamespaceWildcardSelectType  SelectItemType = "namespaceWildcard"
	ExpandedNavigationSelectType SelectItemType = "expandedNavigation"
	ExpandedReferenceSelectType  SelectItemType = "expandedReference"
	ExpandedCountSelectType      SelectItemType = "expandedCount"
)

// SelectItem is one entry of a SelectExpandClause. The set of
// implementations is closed to this package.
type SelectItem interface {
	Type() SelectItemType
	selectItem()
}

// SelectExpandClause is a bound $select/$expand level
type SelectExpandClause struct {
	Items       []SelectItem
	AllSelected bool
}

// QueryOptions are the options nested inside a select or expand item
type QueryOptions struct {
	Filter  *FilterClause
	OrderBy *OrderByClause
	Top     *int64
	Skip    *int64
	Count   *bool
	Search  *SearchClause
	Compute *ComputeClause
}

// WildcardSelectItem is "*"
type WildcardSelectItem struct{}

// PathSelectItem selects a property path, optionally with nested options
// for collection-valued properties
type PathSelectItem struct {
	Path            path.Path
	SelectAndExpand *SelectExpandClause
	Options         QueryOptions
}

// NamespaceWildcardSelectItem is "Namespace.*", all operations of a namespace
type NamespaceWildcardSelectItem struct {
	Namespace string
}

// ExpandedNavigationSelectItem expands a navigation property
type ExpandedNavigationSelectItem struct {
	Path            path.Path
	SelectAndExpand *SelectExpandClause
	Options         QueryOptions
	Levels          *LevelsClause
}

// ExpandedReferenceSelectItem expands the references of a navigation
// property (Nav/$ref)
type ExpandedReferenceSelectItem struct {
	Path    path.Path
	Options QueryOptions
}

// ExpandedCountSelectItem expands the count of a navigation property
// (Nav/$count)
type ExpandedCountSelectItem struct {
	Path   path.Path
	Filter *FilterClause
	Search *SearchClause
}

func (*WildcardSelectItem) Type() SelectItemType           { return WildcardSelectType }
func (*PathSelectItem) Type() SelectItemType               { return PathSelectType }
func (*NamespaceWildcardSelectItem) Type() SelectItemType  { return NamespaceWildcardSelectType }
func (*ExpandedNavigationSelectItem) Type() SelectItemType { return ExpandedNavigationSelectType }
func (*ExpandedReferenceSelectItem) Type() SelectItemType  { return ExpandedReferenceSelectType }
func (*ExpandedCountSelectItem) Type() SelectItemType      { return ExpandedCountSelectType }

func (*WildcardSelectItem) selectItem()           {}
func (*PathSelectItem) selectItem()               {}
func (*NamespaceWildcardSelectItem) selectItem()  {}
func (*ExpandedNavigationSelectItem) selectItem() {}
func (*ExpandedReferenceSelectItem) selectItem()  {}
func (*ExpandedCountSelectItem) selectItem()      {}

// TransformationType identifies an $apply stage
type TransformationType string

const (
	GroupByTransformationType   TransformationType = "groupby"
	AggregateTransformationType TransformationType = "aggregate"
	FilterTransformationType    TransformationType = "filter"
	ComputeTransformationType   TransformationType = "compute"
)

// TransformationNode is one $apply stage. The set of implementations is
// closed to this package.
type TransformationNode interface {
	Type() TransformationType
	transformation()
}

// ApplyClause is a bound $apply pipeline, in stage order
type ApplyClause struct {
	Transformations []TransformationNode
}

// GroupByProperty is a grouping property. Children hold nested property
// paths below it.
type GroupByProperty struct {
	Name       string
	Expression QueryNode
	Children   []GroupByProperty
}

// GroupByTransformation is groupby((properties)[,child])
type GroupByTransformation struct {
	Properties []GroupByProperty
	Child      TransformationNode
}

// AggregationMethod names an aggregation method
type AggregationMethod string

const (
	Sum           AggregationMethod = "sum"
	Min           AggregationMethod = "min"
	Max           AggregationMethod = "max"
	Average       AggregationMethod = "average"
	CountDistinct AggregationMethod = "countdistinct"
	// VirtualCount is $count, aggregated without a source expression
	VirtualCount AggregationMethod = "$count"
	// Custom aggregations render their label
	Custom AggregationMethod = "custom"
)

// AggregateItem is an entry of aggregate(). The set of implementations
// is closed to this package.
type AggregateItem interface {
	aggregateItem()
}

// AggregateExpression is "expression with method as alias"
type AggregateExpression struct {
	Expression  QueryNode
	Method      AggregationMethod
	CustomLabel string
	Alias       string
}

// EntitySetAggregateExpression aggregates along a navigation path,
// Expression(children)
type EntitySetAggregateExpression struct {
	Expression QueryNode
	Children   []AggregateItem
}

func (*AggregateExpression) aggregateItem()          {}
func (*EntitySetAggregateExpression) aggregateItem() {}

// AggregateTransformation is aggregate(items)
type AggregateTransformation struct {
	Expressions []AggregateItem
}

// FilterTransformation is filter(expression)
type FilterTransformation struct {
	Expression QueryNode
}

// ComputeTransformation is compute(expression as alias, ...)
type ComputeTransformation struct {
	Expressions []ComputeExpression
}

func (*GroupByTransformation) Type() TransformationType   { return GroupByTransformationType }
func (*AggregateTransformation) Type() TransformationType { return AggregateTransformationType }
func (*FilterTransformation) Type() TransformationType    { return FilterTransformationType }
func (*ComputeTransformation) Type() TransformationType   { return ComputeTransformationType }

func (*GroupByTransformation) transformation()   {}
func (*AggregateTransformation) transformation() {}
func (*FilterTransformation) transformation()    {}
func (*ComputeTransformation) transformation()   {}
