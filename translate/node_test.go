package translate

import (
	"testing"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bin(op ast.BinaryOperatorKind, left, right ast.QueryNode) *ast.BinaryOperator {
	return &ast.BinaryOperator{Operator: op, Left: left, Right: right}
}

func prop(name string) *ast.PropertyAccess {
	return ast.Property(name)
}

func lit(v any) *ast.Constant {
	return ast.Literal(v)
}

func TestNodeTranslator(t *testing.T) {
	tests := []struct {
		name     string
		node     ast.QueryNode
		expected string
	}{
		{
			name:     "Comparison with quoted string",
			node:     bin(ast.Equal, prop("Name"), lit("O'Neil")),
			expected: "Name%20eq%20%27O%27%27Neil%27",
		},
		{
			name:     "Lower precedence child is parenthesized",
			node:     bin(ast.And, bin(ast.Or, bin(ast.Equal, prop("A"), lit(int32(1))), bin(ast.Equal, prop("B"), lit(int32(2)))), prop("C")),
			expected: "(A%20eq%201%20or%20B%20eq%202)%20and%20C",
		},
		{
			name:     "Left nested arithmetic stays flat",
			node:     bin(ast.Subtract, bin(ast.Subtract, prop("a"), prop("b")), prop("c")),
			expected: "a%20sub%20b%20sub%20c",
		},
		{
			name:     "Right nested arithmetic is parenthesized",
			node:     bin(ast.Subtract, prop("a"), bin(ast.Subtract, prop("b"), prop("c"))),
			expected: "a%20sub%20(b%20sub%20c)",
		},
		{
			name:     "Higher precedence child stays flat",
			node:     bin(ast.Add, prop("a"), bin(ast.Multiply, prop("b"), prop("c"))),
			expected: "a%20add%20b%20mul%20c",
		},
		{
			name:     "Not with function call",
			node:     &ast.UnaryOperator{Operator: ast.Not, Operand: &ast.FunctionCall{Name: "contains", Arguments: []ast.QueryNode{prop("Name"), lit("a")}}},
			expected: "not%20contains(Name,%27a%27)",
		},
		{
			name:     "Not with comparison",
			node:     &ast.UnaryOperator{Operator: ast.Not, Operand: bin(ast.Equal, prop("A"), lit(int32(1)))},
			expected: "not%20(A%20eq%201)",
		},
		{
			name:     "Negate",
			node:     &ast.UnaryOperator{Operator: ast.Negate, Operand: prop("Price")},
			expected: "-Price",
		},
		{
			name:     "Function call without arguments",
			node:     &ast.FunctionCall{Name: "now"},
			expected: "now()",
		},
		{
			name:     "Property path",
			node:     &ast.PropertyAccess{Source: prop("Address"), Name: "City"},
			expected: "Address/City",
		},
		{
			name:     "Property of implicit range variable",
			node:     &ast.PropertyAccess{Source: &ast.RangeVariable{Name: "$it"}, Name: "City"},
			expected: "City",
		},
		{
			name: "Lambda any",
			node: &ast.Lambda{
				Kind:          ast.Any,
				Source:        prop("Orders"),
				RangeVariable: "o",
				Body:          bin(ast.GreaterThan, &ast.PropertyAccess{Source: &ast.RangeVariable{Name: "o"}, Name: "Amount"}, lit(int32(100))),
			},
			expected: "Orders/any(o:o/Amount%20gt%20100)",
		},
		{
			name: "Nested lambda keeps shadowing variable names",
			node: &ast.Lambda{
				Kind:          ast.Any,
				Source:        prop("Orders"),
				RangeVariable: "x",
				Body: &ast.Lambda{
					Kind:          ast.All,
					Source:        &ast.PropertyAccess{Source: &ast.RangeVariable{Name: "x"}, Name: "Items"},
					RangeVariable: "x",
					Body:          bin(ast.GreaterThan, &ast.PropertyAccess{Source: &ast.RangeVariable{Name: "x"}, Name: "Qty"}, lit(int32(0))),
				},
			},
			expected: "Orders/any(x:x/Items/all(x:x/Qty%20gt%200))",
		},
		{
			name:     "Lambda without body",
			node:     &ast.Lambda{Kind: ast.Any, Source: prop("Orders")},
			expected: "Orders/any()",
		},
		{
			name:     "Cast with source",
			node:     &ast.Cast{Source: prop("Age"), TypeName: "Edm.String"},
			expected: "cast(Age,Edm.String)",
		},
		{
			name:     "Cast of current resource",
			node:     &ast.Cast{TypeName: "NS.Special"},
			expected: "cast(NS.Special)",
		},
		{
			name:     "Resource cast",
			node:     &ast.ResourceCast{Source: prop("Items"), TypeName: "NS.Special"},
			expected: "Items/NS.Special",
		},
		{
			name:     "Count compared",
			node:     bin(ast.GreaterThan, &ast.Count{Source: prop("Orders")}, lit(int32(2))),
			expected: "Orders/$count%20gt%202",
		},
		{
			name:     "Count with filter and search",
			node:     &ast.Count{Source: prop("Orders"), Filter: bin(ast.GreaterThan, prop("Amount"), lit(int32(5))), Search: &ast.SearchTerm{Text: "big"}},
			expected: "Orders/$count($filter=Amount%20gt%205;$search=big)",
		},
		{
			name:     "In with collection",
			node:     &ast.In{Left: prop("Id"), Right: &ast.CollectionConstant{Items: []*ast.Constant{lit(int32(1)), lit(int32(2))}}},
			expected: "Id%20in%20(1,2)",
		},
		{
			name:     "Convert is transparent",
			node:     bin(ast.Equal, &ast.Convert{Source: prop("Age"), TypeRef: edm.PrimitiveType(edm.Int64, true)}, lit(int64(3))),
			expected: "Age%20eq%203L",
		},
		{
			name:     "Parameter alias",
			node:     bin(ast.LessThan, prop("Price"), &ast.ParameterAlias{Name: "max"}),
			expected: "Price%20lt%20@max",
		},
		{
			name:     "Literal text is kept",
			node:     bin(ast.GreaterThan, prop("Created"), &ast.Constant{LiteralText: "2024-01-01T00:00:00+01:00"}),
			expected: "Created%20gt%202024-01-01T00%3A00%3A00%2B01%3A00",
		},
		{
			name:     "Enum with has",
			node:     bin(ast.Has, prop("Color"), lit(edm.EnumValue{TypeName: "NS.Color", Value: "Red"})),
			expected: "Color%20has%20NS.Color%27Red%27",
		},
		{
			name:     "Null",
			node:     bin(ast.NotEqual, prop("Manager"), lit(nil)),
			expected: "Manager%20ne%20null",
		},
		{
			name:     "Typed constant",
			node:     bin(ast.Equal, prop("Id"), &ast.Constant{Value: int32(7), TypeRef: edm.PrimitiveType(edm.Int64, false)}),
			expected: "Id%20eq%207L",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNodeTranslator().Translate(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNodeTranslatorErrors(t *testing.T) {
	tests := []struct {
		name string
		node ast.QueryNode
		kind odataerr.Kind
	}{
		{"Missing node", nil, odataerr.UnsupportedConstruct},
		{"Missing operand", bin(ast.Equal, prop("A"), nil), odataerr.UnsupportedConstruct},
		{"Unknown binary operator", bin(ast.BinaryOperatorKind("xor"), prop("A"), prop("B")), odataerr.UnsupportedConstruct},
		{"Unknown unary operator", &ast.UnaryOperator{Operator: "~", Operand: prop("A")}, odataerr.UnsupportedConstruct},
		{"Unknown lambda", &ast.Lambda{Kind: "some", Source: prop("A")}, odataerr.UnsupportedConstruct},
		{"Overflowing constant", bin(ast.Equal, prop("A"), &ast.Constant{Value: int32(300), TypeRef: edm.PrimitiveType(edm.Byte, false)}), odataerr.LiteralOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNodeTranslator().Translate(tt.node)
			require.Error(t, err)
			assert.Equal(t, tt.kind, odataerr.KindOf(err))
		})
	}
}

func TestSearchTranslator(t *testing.T) {
	got, err := TranslateSearchClause(&ast.SearchClause{Expression: bin(ast.And,
		&ast.SearchTerm{Text: "blue"},
		&ast.UnaryOperator{Operator: ast.Not, Operand: &ast.SearchTerm{Text: "green sky"}})})
	require.NoError(t, err)
	assert.Equal(t, "blue%20AND%20NOT%20%22green%20sky%22", got)

	got, err = TranslateSearchClause(&ast.SearchClause{Expression: bin(ast.And,
		bin(ast.Or, &ast.SearchTerm{Text: "a"}, &ast.SearchTerm{Text: "b"}),
		&ast.SearchTerm{Text: "c"})})
	require.NoError(t, err)
	assert.Equal(t, "(a%20OR%20b)%20AND%20c", got)

	_, err = TranslateSearchClause(&ast.SearchClause{Expression: bin(ast.Equal, &ast.SearchTerm{Text: "a"}, &ast.SearchTerm{Text: "b"})})
	assert.ErrorIs(t, err, odataerr.ErrUnsupportedConstruct)
}

func TestClauseTranslators(t *testing.T) {
	got, err := TranslateFilterClause(&ast.FilterClause{Expression: bin(ast.Equal, prop("A"), lit(true))})
	require.NoError(t, err)
	assert.Equal(t, "A%20eq%20true", got)

	got, err = TranslateOrderByClause(&ast.OrderByClause{Items: []ast.OrderByItem{
		{Expression: prop("Name"), Direction: ast.Ascending},
		{Expression: &ast.PropertyAccess{Source: prop("Address"), Name: "City"}, Direction: ast.Descending},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Name,Address/City%20desc", got)

	got, err = TranslateComputeClause(&ast.ComputeClause{Expressions: []ast.ComputeExpression{
		{Expression: bin(ast.Multiply, prop("Price"), prop("Qty")), Alias: "Total"},
		{Expression: &ast.FunctionCall{Name: "year", Arguments: []ast.QueryNode{prop("Date")}}, Alias: "Year"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Price%20mul%20Qty%20as%20Total,year(Date)%20as%20Year", got)

	aliases, err := TranslateParameterAliases(ast.NewParameterAliasValues().
		Set("p1", lit(int32(5))).
		Set("p2", nil).
		Set("p3", lit("a b")))
	require.NoError(t, err)
	assert.Equal(t, []string{"@p1=5", "@p2=null", "@p3=%27a%20b%27"}, aliases)
}

func TestEscapeDataString(t *testing.T) {
	assert.Equal(t, "a%20b", EscapeDataString("a b"))
	assert.Equal(t, "a%2Bb", EscapeDataString("a+b"))
	assert.Equal(t, "%27x%27%2C%2F%3F%26%3D", EscapeDataString("'x',/?&="))
	assert.Equal(t, "A-Z_0.9~", EscapeDataString("A-Z_0.9~"))
}
