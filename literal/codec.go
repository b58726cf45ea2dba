package literal

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/odataerr"
)

// Codec converts URI literal text into typed values. Lexer tokenizes the
// text; Model, if set, resolves enum and structured types.
type Codec struct {
	Lexer Lexer
	Model edm.Model
}

// NewCodec creates a codec
func NewCodec(lex Lexer, model edm.Model) *Codec {
	return &Codec{Lexer: lex, Model: model}
}

// ValueToLiteral renders value as literal text for target
func (c *Codec) ValueToLiteral(value any, target *edm.TypeReference) (string, error) {
	if ev, ok := value.(edm.EnumValue); ok && c.Model != nil {
		if _, err := enumValue(ev.TypeName, ev.Value, c.Model); err != nil {
			return "", err
		}
	}
	return ValueToLiteral(value, target)
}

// LiteralToValue parses text as a value of type target. A nil target
// yields the natural value of the literal.
func (c *Codec) LiteralToValue(text string, target *edm.TypeReference) (any, error) {
	if c.Lexer == nil {
		return nil, odataerr.Unsupportedf("codec has no lexer")
	}

	typeName := target.FullName()
	tok, err := c.Lexer.Lex(text)
	if err != nil {
		return nil, &odataerr.Error{
			Kind:     odataerr.InvalidLiteral,
			TypeName: typeName,
			Message:  "malformed literal " + text,
			Err:      err,
		}
	}

	if tok.Kind == NullToken {
		if target != nil && !target.Nullable {
			return nil, odataerr.InvalidLiteralf(typeName,
				"null is not allowed for non-nullable type '%s'", typeName)
		}
		return nil, nil
	}
	if tok.Kind == AliasToken {
		return ParameterAlias{Name: tok.Body}, nil
	}

	if target == nil || target.Kind == edm.UntypedKindType {
		return c.naturalValue(tok)
	}

	switch target.Kind {
	case edm.PrimitiveKindType:
		return c.primitiveValue(tok, target)

	case edm.EnumKindType:
		switch tok.Kind {
		case EnumToken:
			if tok.TypeName != target.Name {
				return nil, odataerr.InvalidLiteralf(target.Name,
					"enum literal of type '%s' does not match type '%s'", tok.TypeName, target.Name)
			}
		case StringToken, IntegerToken:
		default:
			return nil, odataerr.InvalidLiteralf(target.Name,
				"literal %s does not match enum type '%s'", text, target.Name)
		}
		return enumValue(target.Name, tok.Body, c.Model)

	case edm.ComplexKindType, edm.EntityKindType, edm.CollectionKindType:
		if tok.Kind != JSONToken {
			return nil, odataerr.InvalidLiteralf(typeName,
				"literal %s does not match type '%s'", text, typeName)
		}
		return ReadJSONValue(tok.Body, target, c.Model)
	}

	return nil, odataerr.InvalidLiteralf(typeName, "unsupported target type '%s'", typeName)
}

func (c *Codec) primitiveValue(tok Token, target *edm.TypeReference) (any, error) {
	kind := target.Primitive

	if tok.Kind == JSONToken || tok.Kind == EnumToken {
		return nil, odataerr.InvalidLiteralf(string(kind),
			"literal %s does not match type '%s'", tok.Text, kind)
	}

	// Unsuffixed numbers are read directly at the target precision
	if (tok.Kind == IntegerToken || tok.Kind == DoubleToken && tok.Body == tok.Text) &&
		(kind == edm.Single || kind == edm.Double || kind == edm.Decimal) {
		return readPrimitiveText(tok.Body, kind)
	}

	value, err := c.naturalValue(tok)
	if err != nil {
		return nil, err
	}

	if actual, ok := edm.PrimitiveKindOf(value); ok && actual == kind {
		return value, nil
	}
	if out, ok, err := CoerceNumericType(value, kind); ok {
		return out, err
	}
	if out, ok, err := CoerceTemporalType(value, kind); ok {
		return out, err
	}
	return nil, odataerr.InvalidLiteralf(string(kind),
		"literal %s does not match type '%s'", tok.Text, kind)
}

func readPrimitiveText(text string, kind edm.PrimitiveKind) (any, error) {
	switch kind {
	case edm.Decimal:
		d, _, err := apd.NewFromString(text)
		if err != nil {
			return nil, odataerr.InvalidLiteralf(string(kind), "invalid decimal literal %s", text)
		}
		return d, nil
	case edm.Single:
		f, err := parseFloat(text, 32)
		if err != nil {
			return nil, floatError(text, kind, err)
		}
		return float32(f), nil
	}
	f, err := parseFloat(text, 64)
	if err != nil {
		return nil, floatError(text, kind, err)
	}
	return f, nil
}

func floatError(text string, kind edm.PrimitiveKind, err error) error {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return odataerr.Overflow(string(kind), text, err)
	}
	return odataerr.InvalidLiteralf(string(kind), "invalid %s literal %s", kind, text)
}

// naturalValue converts a token to the value its literal form implies
func (c *Codec) naturalValue(tok Token) (any, error) {
	switch tok.Kind {
	case BooleanToken:
		return tok.Body == "true", nil

	case IntegerToken:
		n, err := strconv.ParseInt(tok.Body, 10, 64)
		if err != nil {
			// Too large for Int64, fall back to Decimal
			d, _, derr := apd.NewFromString(tok.Body)
			if derr != nil {
				return nil, integerError(tok.Body, edm.Int64, err)
			}
			return d, nil
		}
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
		return n, nil

	case Int64Token:
		return parseInteger(tok.Body, edm.Int64)

	case SingleToken:
		return readPrimitiveText(tok.Body, edm.Single)

	case DoubleToken:
		return readPrimitiveText(tok.Body, edm.Double)

	case DecimalToken:
		return readPrimitiveText(tok.Body, edm.Decimal)

	case StringToken:
		return tok.Body, nil

	case GuidToken:
		return parseStringForm(tok.Body, edm.Guid)

	case DateToken:
		return parseStringForm(tok.Body, edm.Date)

	case DateTimeOffsetToken:
		return parseStringForm(tok.Body, edm.DateTimeOffset)

	case TimeOfDayToken:
		return parseStringForm(tok.Body, edm.TimeOfDay)

	case DurationToken:
		return parseStringForm(tok.Body, edm.Duration)

	case BinaryToken:
		return parseStringForm(tok.Body, edm.Binary)

	case SpatialToken:
		if strings.EqualFold(tok.TypeName, "geometry") {
			return edm.SpatialValue{Geometry: true, Text: tok.Body}, nil
		}
		return edm.SpatialValue{Text: tok.Body}, nil

	case EnumToken:
		return enumValue(tok.TypeName, tok.Body, c.Model)

	case JSONToken:
		return ReadJSONValue(tok.Body, nil, c.Model)
	}

	return nil, odataerr.InvalidLiteralf("", "unsupported literal %s", tok.Text)
}

// enumValue builds an enum value, validating members when the model
// declares the type
func enumValue(typeName, value string, model edm.Model) (edm.EnumValue, error) {
	if model != nil {
		if et, ok := model.FindEnumType(typeName); ok {
			if err := et.ValidateValue(value); err != nil {
				return edm.EnumValue{}, &odataerr.Error{
					Kind:     odataerr.InvalidLiteral,
					TypeName: typeName,
					Message:  "invalid enum literal",
					Err:      err,
				}
			}
		}
	}
	return edm.EnumValue{TypeName: typeName, Value: value}, nil
}
