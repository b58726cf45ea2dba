package literal

import (
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
)

type conversion func(v any) (any, error)

// numericLattice maps a source kind to the kinds it may be converted to.
// Only Int32 has narrowing entries; they fail with LiteralOverflow when
// the value does not fit.
var numericLattice = map[edm.PrimitiveKind]map[edm.PrimitiveKind]conversion{
	edm.SByte: {
		edm.Int16:   func(v any) (any, error) { return int16(v.(int8)), nil },
		edm.Int32:   func(v any) (any, error) { return int32(v.(int8)), nil },
		edm.Int64:   func(v any) (any, error) { return int64(v.(int8)), nil },
		edm.Single:  func(v any) (any, error) { return float32(v.(int8)), nil },
		edm.Double:  func(v any) (any, error) { return float64(v.(int8)), nil },
		edm.Decimal: func(v any) (any, error) { return apd.New(int64(v.(int8)), 0), nil },
	},
	edm.Byte: {
		edm.Int16:   func(v any) (any, error) { return int16(v.(uint8)), nil },
		edm.Int32:   func(v any) (any, error) { return int32(v.(uint8)), nil },
		edm.Int64:   func(v any) (any, error) { return int64(v.(uint8)), nil },
		edm.Single:  func(v any) (any, error) { return float32(v.(uint8)), nil },
		edm.Double:  func(v any) (any, error) { return float64(v.(uint8)), nil },
		edm.Decimal: func(v any) (any, error) { return apd.New(int64(v.(uint8)), 0), nil },
	},
	edm.Int16: {
		edm.Int32:   func(v any) (any, error) { return int32(v.(int16)), nil },
		edm.Int64:   func(v any) (any, error) { return int64(v.(int16)), nil },
		edm.Single:  func(v any) (any, error) { return float32(v.(int16)), nil },
		edm.Double:  func(v any) (any, error) { return float64(v.(int16)), nil },
		edm.Decimal: func(v any) (any, error) { return apd.New(int64(v.(int16)), 0), nil },
	},
	edm.Int32: {
		edm.Byte:    narrowInt32(edm.Byte, 0, math.MaxUint8, func(n int32) any { return uint8(n) }),
		edm.SByte:   narrowInt32(edm.SByte, math.MinInt8, math.MaxInt8, func(n int32) any { return int8(n) }),
		edm.Int16:   narrowInt32(edm.Int16, math.MinInt16, math.MaxInt16, func(n int32) any { return int16(n) }),
		edm.Int64:   func(v any) (any, error) { return int64(v.(int32)), nil },
		edm.Single:  func(v any) (any, error) { return float32(v.(int32)), nil },
		edm.Double:  func(v any) (any, error) { return float64(v.(int32)), nil },
		edm.Decimal: func(v any) (any, error) { return apd.New(int64(v.(int32)), 0), nil },
	},
	edm.Int64: {
		edm.Single:  func(v any) (any, error) { return float32(v.(int64)), nil },
		edm.Double:  func(v any) (any, error) { return float64(v.(int64)), nil },
		edm.Decimal: func(v any) (any, error) { return apd.New(v.(int64), 0), nil },
	},
	edm.Single: {
		edm.Double:  singleToDouble,
		edm.Decimal: singleToDecimal,
	},
	edm.Double: {
		edm.Decimal: doubleToDecimal,
	},
}

func narrowInt32(target edm.PrimitiveKind, lo, hi int32, conv func(int32) any) conversion {
	return func(v any) (any, error) {
		n := v.(int32)
		if n < lo || n > hi {
			return nil, odataerr.Overflow(string(target), n, nil)
		}
		return conv(n), nil
	}
}

// Single widens through its shortest round-trip text so 0.1f becomes 0.1
// instead of 0.10000000149011612.
func singleToDouble(v any) (any, error) {
	f := v.(float32)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return float64(f), nil
	}
	d, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return nil, odataerr.Overflow(string(edm.Double), f, err)
	}
	return d, nil
}

func singleToDecimal(v any) (any, error) {
	f := v.(float32)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return nil, odataerr.Overflow(string(edm.Decimal), f, nil)
	}
	d, _, err := apd.NewFromString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	if err != nil {
		return nil, odataerr.Overflow(string(edm.Decimal), f, err)
	}
	return d, nil
}

func doubleToDecimal(v any) (any, error) {
	f := v.(float64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, odataerr.Overflow(string(edm.Decimal), f, nil)
	}
	if d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, 64)); err == nil {
		return d, nil
	}
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return nil, odataerr.Overflow(string(edm.Decimal), f, err)
	}
	return d, nil
}

// normalizeNumber maps Go-native numeric values onto the representation
// used for their Edm kind
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n)
		}
		return int64(n)
	case apd.Decimal:
		return &n
	}
	return v
}

// CoerceNumericType converts a numeric value to target following the
// widening lattice. The bool result is false when no conversion between
// the two kinds exists; that is not an error.
func CoerceNumericType(value any, target edm.PrimitiveKind) (any, bool, error) {
	value = normalizeNumber(value)
	source, ok := edm.PrimitiveKindOf(value)
	if !ok {
		return nil, false, nil
	}
	if source == target {
		return value, true, nil
	}
	conv, ok := numericLattice[source][target]
	if !ok {
		return nil, false, nil
	}
	out, err := conv(value)
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}

// CoerceTemporalType converts a date to a midnight UTC DateTimeOffset and a
// string to a Date. Other pairings are not applicable.
func CoerceTemporalType(value any, target edm.PrimitiveKind) (any, bool, error) {
	switch v := value.(type) {
	case edm.DateValue:
		if target == edm.DateTimeOffset {
			return v.In(time.UTC), true, nil
		}
	case string:
		if target == edm.Date {
			d, err := edm.ParseDate(v)
			if err != nil {
				return nil, true, &odataerr.Error{
					Kind:     odataerr.InvalidLiteral,
					TypeName: string(edm.Date),
					Message:  "cannot convert '" + v + "' to type '" + string(edm.Date) + "'",
					Err:      err,
				}
			}
			return d, true, nil
		}
	}
	return nil, false, nil
}
