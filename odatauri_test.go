package odatauri

import (
	"testing"
	"time"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/odatakit/odatauri/path"
	"github.com/odatakit/odatauri/uri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUri(t *testing.T) {
	top := int64(5)
	u := &uri.ODataUri{
		Path: path.Path{
			&path.EntitySet{Name: "Products"},
			&path.Key{Keys: []path.KeyValue{{Name: "Id", Value: int32(42)}}},
		},
		Filter: &ast.FilterClause{Expression: &ast.BinaryOperator{
			Operator: ast.Equal,
			Left:     ast.Property("Name"),
			Right:    ast.Literal("a b"),
		}},
		Top: &top,
	}
	require.NoError(t, u.SetServiceRoot("https://host/svc"))

	got, err := BuildUri(u, path.Parentheses)
	require.NoError(t, err)
	assert.Equal(t, "https://host/svc/Products(42)?$filter=Name%20eq%20%27a%20b%27&$top=5", got.String())

	got, err = BuildUri(u, path.Slash)
	require.NoError(t, err)
	assert.Equal(t, "https://host/svc/Products/42?$filter=Name%20eq%20%27a%20b%27&$top=5", got.String())
}

func TestConvertToUriLiteral(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		target   *edm.TypeReference
		expected string
	}{
		{"Enum", edm.EnumValue{TypeName: "NS.Color", Value: "Red"}, nil, "NS.Color'Red'"},
		{"Int64", int64(5), nil, "5L"},
		{"Widened", int32(5), edm.PrimitiveType(edm.Int64, false), "5L"},
		{"String", "O'Neil", nil, "'O''Neil'"},
		{"Date", edm.NewDate(2020, time.February, 2), nil, "2020-02-02"},
		{"Null", nil, nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToUriLiteral(tt.value, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ConvertToUriLiteral(nil, edm.PrimitiveType(edm.Int32, false))
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)
}

func TestConvertFromUriLiteral(t *testing.T) {
	model := edm.NewModel()
	require.NoError(t, model.AddEnumType(&edm.EnumType{Name: "NS.Color", Members: []string{"Red", "Green"}}))

	v, err := ConvertFromUriLiteral("42", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	v, err = ConvertFromUriLiteral("42", edm.PrimitiveType(edm.Int64, false), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = ConvertFromUriLiteral("NS.Color'Red'", edm.EnumTypeRef("NS.Color", true), model)
	require.NoError(t, err)
	assert.Equal(t, edm.EnumValue{TypeName: "NS.Color", Value: "Red"}, v)

	_, err = ConvertFromUriLiteral("NS.Color'Blue'", nil, model)
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)

	_, err = ConvertFromUriLiteral("300", edm.PrimitiveType(edm.Byte, false), nil)
	assert.ErrorIs(t, err, odataerr.ErrLiteralOverflow)
}

func TestLiteralRoundTrip(t *testing.T) {
	values := []struct {
		value  any
		target *edm.TypeReference
	}{
		{true, edm.PrimitiveType(edm.Boolean, false)},
		{int16(-7), edm.PrimitiveType(edm.Int16, false)},
		{int64(1) << 40, edm.PrimitiveType(edm.Int64, false)},
		{2.5, edm.PrimitiveType(edm.Double, false)},
		{"it's", edm.PrimitiveType(edm.String, true)},
		{edm.NewDate(1999, time.December, 31), edm.PrimitiveType(edm.Date, false)},
		{90 * time.Minute, edm.PrimitiveType(edm.Duration, false)},
	}

	for _, tt := range values {
		text, err := ConvertToUriLiteral(tt.value, tt.target)
		require.NoError(t, err)

		back, err := ConvertFromUriLiteral(text, tt.target, nil)
		require.NoError(t, err, text)
		assert.Equal(t, tt.value, back, text)
	}
}

func TestTranslateFilter(t *testing.T) {
	got, err := TranslateFilter(&ast.BinaryOperator{
		Operator: ast.GreaterThan,
		Left:     ast.Property("Price"),
		Right:    ast.Literal(int32(10)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Price%20gt%2010", got)
}

func TestTranslateSelectExpandClause(t *testing.T) {
	clause := &ast.SelectExpandClause{Items: []ast.SelectItem{
		&ast.ExpandedNavigationSelectItem{
			Path: path.Path{&path.NavigationProperty{Name: "A"}},
			SelectAndExpand: &ast.SelectExpandClause{Items: []ast.SelectItem{
				&ast.PathSelectItem{Path: path.Path{&path.Property{Name: "X"}}},
				&ast.ExpandedNavigationSelectItem{
					Path: path.Path{&path.NavigationProperty{Name: "B"}},
					SelectAndExpand: &ast.SelectExpandClause{Items: []ast.SelectItem{
						&ast.PathSelectItem{Path: path.Path{&path.Property{Name: "Y"}}},
					}},
				},
			}},
		},
	}}

	got, err := TranslateSelectExpandClause(clause, true)
	require.NoError(t, err)
	assert.Equal(t, "$expand=A($select=X;$expand=B($select=Y))", got)
}

func TestTranslateApplyClause(t *testing.T) {
	clause := &ast.ApplyClause{Transformations: []ast.TransformationNode{
		&ast.GroupByTransformation{
			Properties: []ast.GroupByProperty{{Name: "A"}},
			Child: &ast.AggregateTransformation{Expressions: []ast.AggregateItem{
				&ast.AggregateExpression{Expression: ast.Property("B"), Method: ast.Sum, Alias: "C"},
			}},
		},
		&ast.FilterTransformation{Expression: ast.Property("D")},
	}}

	got, err := TranslateApplyClause(clause)
	require.NoError(t, err)
	assert.Equal(t, "$apply=groupby((A),aggregate(B%20with%20sum%20as%20C))/filter(D)", got)

	_, err = TranslateApplyClause(&ast.ApplyClause{Transformations: []ast.TransformationNode{nil}})
	assert.Error(t, err)
}
