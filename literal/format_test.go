package literal

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueToLiteral(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		target   *edm.TypeReference
		expected string
	}{
		{name: "Null", value: nil, expected: "null"},
		{name: "Boolean", value: true, expected: "true"},
		{name: "Byte", value: uint8(200), expected: "200"},
		{name: "SByte", value: int8(-5), expected: "-5"},
		{name: "Int16", value: int16(-300), expected: "-300"},
		{name: "Int32", value: int32(42), expected: "42"},
		{name: "Go int", value: 42, expected: "42"},
		{name: "Int64", value: int64(42), expected: "42L"},
		{name: "Single", value: float32(1.5), expected: "1.5f"},
		{name: "Double", value: 2.25, expected: "2.25D"},
		{name: "Double exponent", value: 1e21, expected: "1E+21D"},
		{name: "Positive infinity", value: math.Inf(1), expected: "INF"},
		{name: "Negative infinity", value: math.Inf(-1), expected: "-INF"},
		{name: "NaN", value: math.NaN(), expected: "NaN"},
		{name: "Decimal", value: apd.New(1050, -2), expected: "10.50M"},
		{name: "String", value: "O'Neil", expected: "'O''Neil'"},
		{name: "String with spaces", value: "a b", expected: "'a b'"},
		{name: "Guid", value: uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"), expected: "01234567-89ab-cdef-0123-456789abcdef"},
		{name: "Binary", value: []byte{0xfb, 0xff}, expected: "binary'-_8='"},
		{name: "Date", value: edm.NewDate(2024, time.January, 1), expected: "2024-01-01"},
		{name: "DateTimeOffset", value: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), expected: "2024-01-01T10:30:00Z"},
		{name: "TimeOfDay", value: edm.TimeOfDayValue{Hour: 8, Minute: 15, Second: 0, Nanosecond: 500000000}, expected: "08:15:00.5"},
		{name: "Duration", value: 26*time.Hour + 90*time.Second, expected: "duration'P1DT2H1M30S'"},
		{name: "Geography", value: edm.SpatialValue{Text: "SRID=4326;POINT(1 2)"}, expected: "geography'SRID=4326;POINT(1 2)'"},
		{name: "Geometry", value: edm.SpatialValue{Geometry: true, Text: "POINT(1 2)"}, expected: "geometry'POINT(1 2)'"},
		{name: "Enum", value: edm.EnumValue{TypeName: "NS.Color", Value: "Red"}, expected: "NS.Color'Red'"},
		{name: "Enum from string with enum target", value: "Red", target: edm.EnumTypeRef("NS.Color", false), expected: "NS.Color'Red'"},
		{name: "Parameter alias", value: ParameterAlias{Name: "p1"}, expected: "@p1"},
		{name: "Int32 widened to Int64", value: int32(7), target: edm.PrimitiveType(edm.Int64, false), expected: "7L"},
		{name: "Int32 narrowed to Byte", value: int32(200), target: edm.PrimitiveType(edm.Byte, false), expected: "200"},
		{name: "Date coerced to DateTimeOffset", value: edm.NewDate(2024, time.March, 5), target: edm.PrimitiveType(edm.DateTimeOffset, false), expected: "2024-03-05T00:00:00Z"},
		{name: "String coerced to Date", value: "2024-03-05", target: edm.PrimitiveType(edm.Date, false), expected: "2024-03-05"},
		{name: "Nullable target accepts null", value: nil, target: edm.PrimitiveType(edm.Int32, true), expected: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueToLiteral(tt.value, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValueToLiteralErrors(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		target *edm.TypeReference
		kind   odataerr.Kind
		msg    string
	}{
		{
			name:   "Null into non-nullable",
			value:  nil,
			target: edm.PrimitiveType(edm.Int32, false),
			kind:   odataerr.InvalidLiteral,
			msg:    "Edm.Int32",
		},
		{
			name:   "Primitive into complex target",
			value:  int32(1),
			target: edm.ComplexTypeRef("NS.Address", true),
			kind:   odataerr.InvalidLiteral,
			msg:    "NS.Address",
		},
		{
			name:   "Overflow into Byte",
			value:  int32(300),
			target: edm.PrimitiveType(edm.Byte, false),
			kind:   odataerr.LiteralOverflow,
			msg:    "overflows type 'Edm.Byte'",
		},
		{
			name:   "No narrowing from Int64",
			value:  int64(1),
			target: edm.PrimitiveType(edm.Int32, false),
			kind:   odataerr.InvalidLiteral,
			msg:    "Edm.Int32",
		},
		{
			name:   "Enum type mismatch",
			value:  edm.EnumValue{TypeName: "NS.Size", Value: "Big"},
			target: edm.EnumTypeRef("NS.Color", false),
			kind:   odataerr.InvalidLiteral,
			msg:    "NS.Size",
		},
		{
			name:  "Unsupported Go type",
			value: struct{}{},
			kind:  odataerr.InvalidLiteral,
			msg:   "struct {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValueToLiteral(tt.value, tt.target)
			require.Error(t, err)
			assert.Equal(t, tt.kind, odataerr.KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCoerceNumericType(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		target   edm.PrimitiveKind
		expected any
	}{
		{name: "SByte to Int16", value: int8(-3), target: edm.Int16, expected: int16(-3)},
		{name: "Byte to Int64", value: uint8(255), target: edm.Int64, expected: int64(255)},
		{name: "Int16 to Double", value: int16(12), target: edm.Double, expected: float64(12)},
		{name: "Int32 to Byte", value: int32(200), target: edm.Byte, expected: uint8(200)},
		{name: "Int32 to SByte", value: int32(-128), target: edm.SByte, expected: int8(-128)},
		{name: "Int32 to Int16", value: int32(32767), target: edm.Int16, expected: int16(32767)},
		{name: "Int64 to Single", value: int64(3), target: edm.Single, expected: float32(3)},
		{name: "Single to Double keeps short form", value: float32(0.1), target: edm.Double, expected: 0.1},
		{name: "Same kind", value: int32(5), target: edm.Int32, expected: int32(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := CoerceNumericType(tt.value, tt.target)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("Decimal targets", func(t *testing.T) {
		for _, v := range []any{int8(1), uint8(1), int16(1), int32(1), int64(1), float32(1), float64(1)} {
			got, ok, err := CoerceNumericType(v, edm.Decimal)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 0, got.(*apd.Decimal).Cmp(apd.New(1, 0)))
		}

		got, _, err := CoerceNumericType(0.1, edm.Decimal)
		require.NoError(t, err)
		assert.Equal(t, "0.1", got.(*apd.Decimal).Text('f'))
	})

	t.Run("Overflow", func(t *testing.T) {
		for _, target := range []edm.PrimitiveKind{edm.Byte, edm.SByte, edm.Int16} {
			_, ok, err := CoerceNumericType(int32(70000), target)
			assert.True(t, ok)
			assert.ErrorIs(t, err, odataerr.ErrLiteralOverflow)
			var oe *odataerr.Error
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, string(target), oe.TypeName)
		}
		_, _, err := CoerceNumericType(int32(-1), edm.Byte)
		assert.ErrorIs(t, err, odataerr.ErrLiteralOverflow)
	})

	t.Run("Not applicable", func(t *testing.T) {
		for _, c := range []struct {
			value  any
			target edm.PrimitiveKind
		}{
			{int64(1), edm.Int32},
			{int16(1), edm.Byte},
			{float64(1), edm.Single},
			{apd.New(1, 0), edm.Double},
			{"1", edm.Int32},
		} {
			got, ok, err := CoerceNumericType(c.value, c.target)
			assert.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, got)
		}
	})
}

func TestCoerceTemporalType(t *testing.T) {
	got, ok, err := CoerceTemporalType(edm.NewDate(2024, time.June, 30), edm.DateTimeOffset)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), got)

	got, ok, err = CoerceTemporalType("2024-06-30", edm.Date)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, edm.NewDate(2024, time.June, 30), got)

	_, ok, err = CoerceTemporalType("2024-06-30T00:00:00Z", edm.Date)
	assert.True(t, ok)
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)

	_, ok, err = CoerceTemporalType(time.Now(), edm.Date)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = CoerceTemporalType(edm.NewDate(2024, 1, 1), edm.TimeOfDay)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		text     string
		duration time.Duration
	}{
		{"PT0S", 0},
		{"P1D", 24 * time.Hour},
		{"PT1H", time.Hour},
		{"PT90M", 90 * time.Minute},
		{"P2DT3H4M5.25S", 51*time.Hour + 4*time.Minute + 5250*time.Millisecond},
		{"-PT1.000000001S", -(time.Second + time.Nanosecond)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, err := ParseDuration(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.duration, d)

			back, err := ParseDuration(FormatDuration(d))
			require.NoError(t, err)
			assert.Equal(t, d, back)
		})
	}

	assert.Equal(t, "PT1H30M", FormatDuration(90*time.Minute))
	assert.Equal(t, "-P1DT0.5S", FormatDuration(-(24*time.Hour + 500*time.Millisecond)))

	for _, bad := range []string{"", "P", "PT", "1D", "PT1S1M", "PT1.5H", "P1.5D", "PT1H1H"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteJSONValue(t *testing.T) {
	addr := edm.NewResourceValue("NS.Address").
		Annotate("NS.Note", "checked").
		Set("Street", "Main St.").
		Set("Zip", int32(12345)).
		Set("Open", 1.5)

	got, err := WriteJSONValue(addr)
	require.NoError(t, err)
	assert.Equal(t,
		`{"@odata.type":"#NS.Address","@NS.Note":"checked","Street":"Main St.","Zip":12345,"Open":1.5}`,
		got)

	coll := &edm.CollectionValue{TypeName: "Collection(NS.Address)", Items: []any{
		edm.NewResourceValue("").Set("Zip", int32(1)),
		nil,
		edm.EnumValue{TypeName: "NS.Color", Value: "Red"},
	}}
	got, err = WriteJSONValue(coll)
	require.NoError(t, err)
	assert.Equal(t, `[{"Zip":1},null,"Red"]`, got)

	got, err = ValueToLiteral(edm.EntityReferences{{ID: "People(1)"}, {ID: "People(2)"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, `[{"@odata.id":"People(1)"},{"@odata.id":"People(2)"}]`, got)

	_, err = WriteJSONValue(42)
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)
}

func TestMarshalValue(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{nil, `null`},
		{true, `true`},
		{int32(42), `42`},
		{uint8(7), `7`},
		{1.5, `1.5`},
		{math.Inf(1), `"INF"`},
		{"O'Neil", `"O'Neil"`},
		{edm.NewDate(2020, time.February, 2), `"2020-02-02"`},
		{edm.EnumValue{TypeName: "NS.Color", Value: "Red"}, `"Red"`},
		{edm.NewResourceValue("").Set("Zip", int32(1)), `{"Zip":1}`},
	}

	for _, tt := range tests {
		got, err := MarshalValue(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}

	_, err := MarshalValue(struct{}{})
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)
}

func TestReadJSONValue(t *testing.T) {
	model := edm.NewModel()
	require.NoError(t, model.AddStructuredType(&edm.StructuredType{
		Name: "NS.Address",
		Properties: map[string]*edm.TypeReference{
			"Zip":   edm.PrimitiveType(edm.Int16, false),
			"Since": edm.PrimitiveType(edm.Date, true),
		},
	}))
	require.NoError(t, model.AddEnumType(&edm.EnumType{Name: "NS.Color", Members: []string{"Red"}}))

	v, err := ReadJSONValue(`{"@NS.Note":"x","Zip":42,"Since":"2020-02-02","Extra":true}`,
		edm.ComplexTypeRef("NS.Address", true), model)
	require.NoError(t, err)
	res := v.(*edm.ResourceValue)
	assert.Equal(t, "NS.Address", res.TypeName)
	zip, _ := res.Get("Zip")
	assert.Equal(t, int16(42), zip)
	since, _ := res.Get("Since")
	assert.Equal(t, edm.NewDate(2020, 2, 2), since)
	extra, _ := res.Get("Extra")
	assert.Equal(t, true, extra)
	note, ok := res.Annotations.Get("NS.Note")
	assert.True(t, ok)
	assert.Equal(t, "x", note)

	_, err = ReadJSONValue(`{"Zip":70000}`, edm.ComplexTypeRef("NS.Address", true), model)
	assert.ErrorIs(t, err, odataerr.ErrLiteralOverflow)

	v, err = ReadJSONValue(`["Red"]`, edm.CollectionOf(edm.EnumTypeRef("NS.Color", false)), model)
	require.NoError(t, err)
	assert.Equal(t, []any{edm.EnumValue{TypeName: "NS.Color", Value: "Red"}}, v.(*edm.CollectionValue).Items)

	_, err = ReadJSONValue(`["Blue"]`, edm.CollectionOf(edm.EnumTypeRef("NS.Color", false)), model)
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)

	v, err = ReadJSONValue(`[{"@odata.id":"People(1)"}]`, edm.CollectionOf(edm.EntityTypeRef("NS.Person", false)), model)
	require.NoError(t, err)
	assert.Equal(t, edm.EntityReferences{{ID: "People(1)"}}, v)

	_, err = ReadJSONValue(`{"Zip":`, edm.ComplexTypeRef("NS.Address", true), model)
	assert.ErrorIs(t, err, odataerr.ErrInvalidLiteral)
}
