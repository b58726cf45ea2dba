package path

import (
	"testing"

	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDelimiterConvention(t *testing.T) {
	key := &Key{Keys: []KeyValue{{Name: "ID", Value: int32(42)}}}

	s, err := ResourcePathTranslator{Delimiter: Parentheses}.Translate(key)
	require.NoError(t, err)
	assert.Equal(t, "(42)", s)

	s, err = ResourcePathTranslator{Delimiter: Slash}.Translate(key)
	require.NoError(t, err)
	assert.Equal(t, "/42", s)
}

func TestResourcePath(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		delim    KeyDelimiter
		expected string
	}{
		{
			name:     "Entity set with key and navigation",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "UserName", Value: "russell"}}}, &NavigationProperty{Name: "Friends"}},
			expected: "/People('russell')/Friends",
		},
		{
			name:     "String key as segment",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "UserName", Value: "o'neil smith"}}}},
			delim:    Slash,
			expected: "/People/o'neil%20smith",
		},
		{
			name: "Composite key falls back to parentheses",
			path: Path{&EntitySet{Name: "OrderLines"}, &Key{Keys: []KeyValue{
				{Name: "OrderID", Value: int32(1)},
				{Name: "Line", Value: int64(2), Type: edm.PrimitiveType(edm.Int64, false)},
			}}},
			delim:    Slash,
			expected: "/OrderLines(OrderID=1,Line=2L)",
		},
		{
			name:     "Dot key keeps parentheses",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "UserName", Value: "."}}}},
			delim:    Slash,
			expected: "/People('.')",
		},
		{
			name:     "Double dot key keeps parentheses",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "UserName", Value: ".."}}}, &NavigationProperty{Name: "Friends"}},
			delim:    Slash,
			expected: "/People('..')/Friends",
		},
		{
			name:     "Empty string key keeps parentheses",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "UserName", Value: ""}}}},
			delim:    Slash,
			expected: "/People('')",
		},
		{
			name:     "Dots inside a key are a segment",
			path:     Path{&EntitySet{Name: "Files"}, &Key{Keys: []KeyValue{{Name: "Name", Value: "a..b"}}}},
			delim:    Slash,
			expected: "/Files/a..b",
		},
		{
			name:     "Key typed by declaration",
			path:     Path{&EntitySet{Name: "Items"}, &Key{Keys: []KeyValue{{Name: "ID", Value: int32(7), Type: edm.PrimitiveType(edm.Int64, false)}}}},
			expected: "/Items(7L)",
		},
		{
			name:     "Key with escaped characters",
			path:     Path{&EntitySet{Name: "Files"}, &Key{Keys: []KeyValue{{Name: "Path", Value: "a/b c#"}}}},
			expected: "/Files('a%2Fb%20c%23')",
		},
		{
			name:     "Type cast, property and value",
			path:     Path{&Singleton{Name: "Me"}, &TypeCast{TypeName: "NS.Employee"}, &Property{Name: "Photo"}, &Value{}},
			expected: "/Me/NS.Employee/Photo/$value",
		},
		{
			name:     "Bound operation with parameters",
			path:     Path{&EntitySet{Name: "People"}, &Operation{Name: "NS.GetFavoriteAirline", Parameters: []Parameter{{Name: "year", Value: int32(2024)}, {Name: "code", Value: literal.ParameterAlias{Name: "c"}}}}},
			expected: "/People/NS.GetFavoriteAirline(year=2024,code=@c)",
		},
		{
			name:     "Operation import without parameters",
			path:     Path{&OperationImport{Name: "ResetDataSource"}},
			expected: "/ResetDataSource",
		},
		{
			name:     "Count",
			path:     Path{&EntitySet{Name: "People"}, &Count{}},
			expected: "/People/$count",
		},
		{
			name:     "Navigation link",
			path:     Path{&EntitySet{Name: "People"}, &Key{Keys: []KeyValue{{Name: "ID", Value: int32(1)}}}, &NavigationPropertyLink{Name: "Friends"}},
			expected: "/People(1)/Friends/$ref",
		},
		{
			name:     "Batch and batch reference",
			path:     Path{&Batch{}, &BatchReference{ContentID: "1"}},
			expected: "/$batch/$1",
		},
		{
			name:     "Metadata",
			path:     Path{&Metadata{}},
			expected: "/$metadata",
		},
		{
			name:     "Dynamic property and annotation",
			path:     Path{&Singleton{Name: "Me"}, &DynamicPath{Name: "Extra"}, &Annotation{Term: "NS.Note"}},
			expected: "/Me/Extra/@NS.Note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.path.ToResourcePathString(tt.delim)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContextURLPath(t *testing.T) {
	p := Path{
		&EntitySet{Name: "People"},
		&Key{Keys: []KeyValue{{Name: "ID", Value: int32(1)}}},
		&NavigationPropertyLink{Name: "Friends"},
		&Count{},
	}
	got, err := p.ToContextURLPathString(Parentheses)
	require.NoError(t, err)
	assert.Equal(t, "/People(1)", got)

	got, err = Path{&Singleton{Name: "Me"}, &Property{Name: "Photo"}, &Value{}}.ToContextURLPathString(Parentheses)
	require.NoError(t, err)
	assert.Equal(t, "/Me/Photo", got)

	got, err = Path{&Batch{}}.ToContextURLPathString(Parentheses)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestBareString(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		expected string
	}{
		{"Property", Path{&Property{Name: "Name"}}, "Name"},
		{"Complex property path", Path{&Property{Name: "Address"}, &Property{Name: "City"}}, "Address/City"},
		{"Type cast", Path{&TypeCast{TypeName: "NS.Manager"}, &NavigationProperty{Name: "Reports"}}, "NS.Manager/Reports"},
		{"Annotation", Path{&Annotation{Term: "Core.Description"}}, "Core.Description"},
		{"Annotated property", Path{&Property{Name: "Addr"}, &Annotation{Term: "NS.Note"}}, "Addr/NS.Note"},
		{"Bound operation", Path{&Operation{Name: "NS.Rank", Parameters: []Parameter{{Name: "x", Value: int32(1)}}}}, "NS.Rank"},
		{"Key skipped", Path{&NavigationProperty{Name: "Trips"}, &Key{Keys: []KeyValue{{Name: "ID", Value: int32(1)}}}, &Property{Name: "Name"}}, "Trips/Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.path.ToBareString()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTranslatorErrors(t *testing.T) {
	_, err := Path{nil}.ToResourcePathString(Parentheses)
	assert.ErrorIs(t, err, odataerr.ErrUnsupportedConstruct)

	_, err = Path{&Key{}}.ToResourcePathString(Parentheses)
	assert.ErrorIs(t, err, odataerr.ErrUnsupportedConstruct)

	_, err = Path{&Key{}}.ToResourcePathString(Slash)
	assert.ErrorIs(t, err, odataerr.ErrUnsupportedConstruct)

	_, err = Path{&Key{Keys: []KeyValue{{Name: "ID", Value: int32(300), Type: edm.PrimitiveType(edm.Byte, false)}}}}.ToResourcePathString(Parentheses)
	assert.ErrorIs(t, err, odataerr.ErrLiteralOverflow)
	assert.Contains(t, err.Error(), "key 'ID'")
}

func TestParseKeyDelimiter(t *testing.T) {
	d, err := ParseKeyDelimiter("Slash")
	require.NoError(t, err)
	assert.Equal(t, Slash, d)
	assert.Equal(t, "slash", d.String())

	d, err = ParseKeyDelimiter("")
	require.NoError(t, err)
	assert.Equal(t, Parentheses, d)

	_, err = ParseKeyDelimiter("brackets")
	assert.Error(t, err)
}

func TestEscapeSegment(t *testing.T) {
	assert.Equal(t, "abc", EscapeSegment("abc"))
	assert.Equal(t, "'O''Neil'", EscapeSegment("'O''Neil'"))
	assert.Equal(t, "a%20b%2Fc%3F%25", EscapeSegment("a b/c?%"))
	assert.Equal(t, "%C3%A4", EscapeSegment("ä"))
}
