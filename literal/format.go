package literal

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
)

// ValueToLiteral renders value as URI literal text. The result is not
// percent-encoded; callers escape it when embedding it into a URI.
//
// A nil target formats value by its own Go type. A primitive target
// first coerces value to that kind.
func ValueToLiteral(value any, target *edm.TypeReference) (string, error) {
	if value == nil {
		if target != nil && !target.Nullable {
			return "", odataerr.InvalidLiteralf(target.FullName(),
				"null is not allowed for non-nullable type '%s'", target.FullName())
		}
		return "null", nil
	}

	value = normalizeNumber(value)

	if target != nil {
		var err error
		if value, err = conformToTarget(value, target); err != nil {
			return "", err
		}
	}

	return formatValue(value, target)
}

func conformToTarget(value any, target *edm.TypeReference) (any, error) {
	if alias, ok := value.(ParameterAlias); ok {
		return alias, nil
	}

	kind, primitive := edm.PrimitiveKindOf(value)

	switch target.Kind {
	case edm.PrimitiveKindType:
		if !primitive {
			return nil, odataerr.InvalidLiteralf(target.FullName(),
				"value of type %T does not match type '%s'", value, target.FullName())
		}
		if kind == target.Primitive {
			return value, nil
		}
		if out, ok, err := CoerceNumericType(value, target.Primitive); ok {
			return out, err
		}
		if out, ok, err := CoerceTemporalType(value, target.Primitive); ok {
			return out, err
		}
		return nil, odataerr.InvalidLiteralf(target.FullName(),
			"value of type '%s' does not match type '%s'", kind, target.FullName())

	case edm.EnumKindType:
		switch v := value.(type) {
		case edm.EnumValue:
			if v.TypeName != "" && v.TypeName != target.Name {
				return nil, odataerr.InvalidLiteralf(target.Name,
					"enum value of type '%s' does not match type '%s'", v.TypeName, target.Name)
			}
			return edm.EnumValue{TypeName: target.Name, Value: v.Value}, nil
		case string:
			return edm.EnumValue{TypeName: target.Name, Value: v}, nil
		}
		return nil, odataerr.InvalidLiteralf(target.Name,
			"value of type %T does not match enum type '%s'", value, target.Name)

	case edm.UntypedKindType:
		return value, nil
	}

	if primitive {
		return nil, odataerr.InvalidLiteralf(target.FullName(),
			"primitive value of type '%s' cannot be written as type '%s'", kind, target.FullName())
	}
	return value, nil
}

func formatValue(value any, target *edm.TypeReference) (string, error) {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10) + "L", nil
	case float32:
		return formatFloat(float64(v), 32, "f"), nil
	case float64:
		return formatFloat(v, 64, "D"), nil
	case *apd.Decimal:
		return v.Text('f') + "M", nil
	case string:
		return QuoteString(v), nil
	case uuid.UUID:
		return v.String(), nil
	case []byte:
		return "binary'" + base64.URLEncoding.EncodeToString(v) + "'", nil
	case edm.DateValue:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case edm.TimeOfDayValue:
		return v.String(), nil
	case time.Duration:
		return "duration'" + FormatDuration(v) + "'", nil
	case edm.SpatialValue:
		return v.Prefix() + QuoteString(v.Text), nil
	case edm.EnumValue:
		typeName := v.TypeName
		if typeName == "" && target != nil {
			typeName = target.Name
		}
		if typeName == "" {
			return "", odataerr.InvalidLiteralf("", "enum value '%s' has no type name", v.Value)
		}
		return typeName + QuoteString(v.Value), nil
	case ParameterAlias:
		return "@" + v.Name, nil
	case *edm.ResourceValue, *edm.CollectionValue, edm.CollectionValue,
		edm.EntityReference, edm.EntityReferences:
		return WriteJSONValue(v)
	}

	typeName := ""
	if target != nil {
		typeName = target.FullName()
	}
	return "", odataerr.InvalidLiteralf(typeName, "unsupported literal value of type %T", value)
}

func formatFloat(f float64, bits int, suffix string) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strings.Replace(strconv.FormatFloat(f, 'g', -1, bits), "e", "E", 1) + suffix
}

// QuoteString wraps s in single quotes, doubling embedded quotes
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// UnquoteString reverses QuoteString
func UnquoteString(s string) (string, error) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", odataerr.InvalidLiteralf(string(edm.String), "literal %s is not quoted", s)
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
}
