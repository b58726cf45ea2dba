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
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	odataTypeAnnotation = "@odata.type"
	odataIDAnnotation   = "@odata.id"
)

// WriteJSONValue serializes a structured value (resource, collection or
// entity reference) as a standalone JSON literal. Undeclared properties
// and all instance annotations are written.
func WriteJSONValue(value any) (string, error) {
	switch v := value.(type) {
	case *edm.ResourceValue:
		return writeResource(v)
	case *edm.CollectionValue:
		return writeCollection(v.Items)
	case edm.CollectionValue:
		return writeCollection(v.Items)
	case edm.EntityReference:
		return sjson.Set("{}", escapePathKey(odataIDAnnotation), v.ID)
	case edm.EntityReferences:
		doc := "[]"
		for _, ref := range v {
			raw, err := WriteJSONValue(ref)
			if err != nil {
				return "", err
			}
			if doc, err = sjson.SetRaw(doc, "-1", raw); err != nil {
				return "", err
			}
		}
		return doc, nil
	}
	return "", odataerr.InvalidLiteralf("", "value of type %T is not a structured value", value)
}

func writeResource(r *edm.ResourceValue) (string, error) {
	doc := "{}"
	var err error

	if r.TypeName != "" {
		if doc, err = sjson.Set(doc, escapePathKey(odataTypeAnnotation), "#"+r.TypeName); err != nil {
			return "", err
		}
	}
	for el := r.Annotations.Front(); el != nil; el = el.Next() {
		if doc, err = setJSON(doc, escapePathKey("@"+el.Key), el.Value); err != nil {
			return "", err
		}
	}
	for el := r.Properties.Front(); el != nil; el = el.Next() {
		if doc, err = setJSON(doc, escapePathKey(el.Key), el.Value); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func writeCollection(items []any) (string, error) {
	doc := "[]"
	var err error
	for _, item := range items {
		if doc, err = setJSON(doc, "-1", item); err != nil {
			return "", err
		}
	}
	return doc, nil
}

// MarshalValue writes a primitive or structured value as a JSON fragment,
// e.g. "42", "\"2020-01-01\"" or an object for resource values
func MarshalValue(value any) (string, error) {
	doc, err := setJSON("{}", "value", value)
	if err != nil {
		return "", err
	}
	return gjson.Get(doc, "value").Raw, nil
}

// setJSON writes one value at path, recursing for structured values
func setJSON(doc, path string, value any) (string, error) {
	switch v := normalizeNumber(value).(type) {
	case nil, bool, string, int8, int16, int32, int64:
		return sjson.Set(doc, path, v)
	case uint8:
		return sjson.Set(doc, path, int(v))
	case float32:
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			return sjson.Set(doc, path, formatFloat(float64(v), 32, ""))
		}
		return sjson.SetRaw(doc, path, strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return sjson.Set(doc, path, formatFloat(v, 64, ""))
		}
		return sjson.SetRaw(doc, path, strconv.FormatFloat(v, 'g', -1, 64))
	case *apd.Decimal:
		return sjson.SetRaw(doc, path, v.Text('f'))
	case uuid.UUID:
		return sjson.Set(doc, path, v.String())
	case []byte:
		return sjson.Set(doc, path, base64.URLEncoding.EncodeToString(v))
	case edm.DateValue:
		return sjson.Set(doc, path, v.String())
	case time.Time:
		return sjson.Set(doc, path, v.Format(time.RFC3339Nano))
	case edm.TimeOfDayValue:
		return sjson.Set(doc, path, v.String())
	case time.Duration:
		return sjson.Set(doc, path, FormatDuration(v))
	case edm.EnumValue:
		return sjson.Set(doc, path, v.Value)
	case edm.SpatialValue:
		return sjson.Set(doc, path, v.Text)
	case *edm.ResourceValue, *edm.CollectionValue, edm.CollectionValue,
		edm.EntityReference, edm.EntityReferences:
		raw, err := WriteJSONValue(v)
		if err != nil {
			return "", err
		}
		return sjson.SetRaw(doc, path, raw)
	}
	return "", odataerr.InvalidLiteralf("", "cannot write value of type %T as JSON", value)
}

// escapePathKey escapes a property name for use as a single
// gjson/sjson path component
func escapePathKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ReadJSONValue parses a JSON literal into a value of type target.
// Declared properties of known structured types are converted to their
// declared types, undeclared properties keep their plain JSON value.
func ReadJSONValue(text string, target *edm.TypeReference, model edm.Model) (any, error) {
	if !gjson.Valid(text) {
		return nil, odataerr.InvalidLiteralf(target.FullName(), "malformed JSON literal %s", text)
	}
	return readJSON(gjson.Parse(text), target, model)
}

func readJSON(r gjson.Result, target *edm.TypeReference, model edm.Model) (any, error) {
	if r.Type == gjson.Null {
		if target != nil && !target.Nullable {
			return nil, odataerr.InvalidLiteralf(target.FullName(),
				"null is not allowed for non-nullable type '%s'", target.FullName())
		}
		return nil, nil
	}
	if target == nil || target.Kind == edm.UntypedKindType {
		return r.Value(), nil
	}

	switch target.Kind {
	case edm.CollectionKindType:
		if !r.IsArray() {
			return nil, odataerr.InvalidLiteralf(target.FullName(), "expected a JSON array")
		}
		return readCollection(r, target, model)

	case edm.ComplexKindType, edm.EntityKindType:
		if !r.IsObject() {
			return nil, odataerr.InvalidLiteralf(target.FullName(), "expected a JSON object")
		}
		if target.Kind == edm.EntityKindType && isEntityReference(r) {
			return edm.EntityReference{ID: r.Get(escapePathKey(odataIDAnnotation)).String()}, nil
		}
		return readResource(r, target, model)

	case edm.EnumKindType:
		if r.Type != gjson.String {
			return nil, odataerr.InvalidLiteralf(target.Name, "expected a string for enum type '%s'", target.Name)
		}
		return enumValue(target.Name, r.Str, model)

	case edm.PrimitiveKindType:
		return readPrimitive(r, target.Primitive)
	}

	return nil, odataerr.InvalidLiteralf(target.FullName(), "cannot read JSON as type '%s'", target.FullName())
}

func isEntityReference(r gjson.Result) bool {
	n := 0
	hasID := false
	r.ForEach(func(key, _ gjson.Result) bool {
		n++
		if key.String() == odataIDAnnotation {
			hasID = true
		}
		return true
	})
	return hasID && n == 1
}

func readCollection(r gjson.Result, target *edm.TypeReference, model edm.Model) (any, error) {
	elem := target.Element
	items := r.Array()

	if elem != nil && elem.Kind == edm.EntityKindType && len(items) > 0 && allReferences(items) {
		refs := make(edm.EntityReferences, 0, len(items))
		for _, item := range items {
			refs = append(refs, edm.EntityReference{ID: item.Get(escapePathKey(odataIDAnnotation)).String()})
		}
		return refs, nil
	}

	coll := &edm.CollectionValue{TypeName: target.FullName(), Items: make([]any, 0, len(items))}
	for _, item := range items {
		v, err := readJSON(item, elem, model)
		if err != nil {
			return nil, err
		}
		coll.Items = append(coll.Items, v)
	}
	return coll, nil
}

func allReferences(items []gjson.Result) bool {
	for _, item := range items {
		if !item.IsObject() || !isEntityReference(item) {
			return false
		}
	}
	return true
}

func readResource(r gjson.Result, target *edm.TypeReference, model edm.Model) (any, error) {
	typeName := target.Name
	if t := r.Get(escapePathKey(odataTypeAnnotation)); t.Exists() {
		typeName = strings.TrimPrefix(t.String(), "#")
	}

	var declared *edm.StructuredType
	if model != nil {
		declared, _ = model.FindStructuredType(typeName)
	}

	res := edm.NewResourceValue(typeName)
	var err error
	r.ForEach(func(key, val gjson.Result) bool {
		name := key.String()
		if name == odataTypeAnnotation {
			return true
		}
		if strings.HasPrefix(name, "@") {
			res.Annotate(name, val.Value())
			return true
		}

		var propType *edm.TypeReference
		if declared != nil {
			propType, _ = declared.Property(name)
		}
		var v any
		if v, err = readJSON(val, propType, model); err != nil {
			return false
		}
		res.Set(name, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func readPrimitive(r gjson.Result, kind edm.PrimitiveKind) (any, error) {
	typeName := string(kind)
	mismatch := func() error {
		return odataerr.InvalidLiteralf(typeName, "JSON value %s does not match type '%s'", r.Raw, typeName)
	}

	switch kind {
	case edm.Boolean:
		if r.Type != gjson.True && r.Type != gjson.False {
			return nil, mismatch()
		}
		return r.Bool(), nil

	case edm.Byte, edm.SByte, edm.Int16, edm.Int32, edm.Int64:
		if r.Type != gjson.Number {
			return nil, mismatch()
		}
		return parseInteger(r.Raw, kind)

	case edm.Single, edm.Double:
		bits := 64
		if kind == edm.Single {
			bits = 32
		}
		text := r.Raw
		if r.Type == gjson.String {
			text = r.Str
		} else if r.Type != gjson.Number {
			return nil, mismatch()
		}
		f, err := parseFloat(text, bits)
		if err != nil {
			return nil, odataerr.InvalidLiteralf(typeName, "invalid %s value %s", typeName, r.Raw)
		}
		if bits == 32 {
			return float32(f), nil
		}
		return f, nil

	case edm.Decimal:
		text := r.Raw
		if r.Type == gjson.String {
			text = r.Str
		} else if r.Type != gjson.Number {
			return nil, mismatch()
		}
		d, _, err := apd.NewFromString(text)
		if err != nil {
			return nil, odataerr.InvalidLiteralf(typeName, "invalid decimal value %s", r.Raw)
		}
		return d, nil
	}

	if r.Type != gjson.String {
		return nil, mismatch()
	}
	return parseStringForm(r.Str, kind)
}

// parseStringForm converts the unquoted text of a string-shaped primitive
func parseStringForm(s string, kind edm.PrimitiveKind) (any, error) {
	typeName := string(kind)
	invalid := func(err error) error {
		return &odataerr.Error{
			Kind:     odataerr.InvalidLiteral,
			TypeName: typeName,
			Message:  "invalid " + typeName + " value '" + s + "'",
			Err:      err,
		}
	}

	switch kind {
	case edm.String:
		return s, nil
	case edm.Guid:
		g, err := uuid.Parse(s)
		if err != nil {
			return nil, invalid(err)
		}
		return g, nil
	case edm.Date:
		d, err := edm.ParseDate(s)
		if err != nil {
			return nil, invalid(err)
		}
		return d, nil
	case edm.DateTimeOffset:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, invalid(err)
		}
		return t, nil
	case edm.TimeOfDay:
		t, err := edm.ParseTimeOfDay(s)
		if err != nil {
			return nil, invalid(err)
		}
		return t, nil
	case edm.Duration:
		d, err := ParseDuration(s)
		if err != nil {
			return nil, invalid(err)
		}
		return d, nil
	case edm.Binary:
		b, err := decodeBase64URL(s)
		if err != nil {
			return nil, invalid(err)
		}
		return b, nil
	case edm.Geography:
		return edm.SpatialValue{Text: s}, nil
	case edm.Geometry:
		return edm.SpatialValue{Geometry: true, Text: s}, nil
	}
	return nil, odataerr.InvalidLiteralf(typeName, "unsupported primitive type '%s'", typeName)
}

func decodeBase64URL(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func parseInteger(text string, kind edm.PrimitiveKind) (any, error) {
	bits := map[edm.PrimitiveKind]int{
		edm.Byte: 8, edm.SByte: 8, edm.Int16: 16, edm.Int32: 32, edm.Int64: 64,
	}[kind]

	if kind == edm.Byte {
		n, err := strconv.ParseUint(text, 10, bits)
		if err != nil {
			return nil, integerError(text, kind, err)
		}
		return uint8(n), nil
	}

	n, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		return nil, integerError(text, kind, err)
	}
	switch kind {
	case edm.SByte:
		return int8(n), nil
	case edm.Int16:
		return int16(n), nil
	case edm.Int32:
		return int32(n), nil
	}
	return n, nil
}

func integerError(text string, kind edm.PrimitiveKind, err error) error {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return odataerr.Overflow(string(kind), text, err)
	}
	return odataerr.InvalidLiteralf(string(kind), "invalid %s value '%s'", kind, text)
}

func parseFloat(text string, bits int) (float64, error) {
	switch text {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(text, bits)
}
