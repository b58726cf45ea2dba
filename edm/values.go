package edm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/elliotchance/orderedmap/v3"
	"github.com/google/uuid"
)

// DateValue is a calendar date without time zone (Edm.Date)
type DateValue struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a DateValue
func NewDate(year int, month time.Month, day int) DateValue {
	return DateValue{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) DateValue {
	y, m, d := t.Date()
	return DateValue{Year: y, Month: m, Day: d}
}

// ParseDate parses a strict date-only value ("2006-01-02")
func ParseDate(s string) (DateValue, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return DateValue{}, fmt.Errorf("invalid date '%s': %w", s, err)
	}
	return DateOf(t), nil
}

func (d DateValue) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc
func (d DateValue) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// TimeOfDayValue is a clock time without date or zone (Edm.TimeOfDay)
type TimeOfDayValue struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// ParseTimeOfDay parses "15:04", "15:04:05" or "15:04:05.fffffff"
func ParseTimeOfDay(s string) (TimeOfDayValue, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s'", s)
	}

	var tod TimeOfDayValue
	var err error
	if tod.Hour, err = parseClockField(parts[0], 23); err != nil {
		return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s': %w", s, err)
	}
	if tod.Minute, err = parseClockField(parts[1], 59); err != nil {
		return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s': %w", s, err)
	}
	if len(parts) == 3 {
		sec, frac, _ := strings.Cut(parts[2], ".")
		if tod.Second, err = parseClockField(sec, 59); err != nil {
			return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s': %w", s, err)
		}
		if frac != "" {
			if len(frac) > 9 {
				return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s': fractional seconds too long", s)
			}
			n, err := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
			if err != nil {
				return TimeOfDayValue{}, fmt.Errorf("invalid time of day '%s': %w", s, err)
			}
			tod.Nanosecond = n
		}
	}
	return tod, nil
}

func parseClockField(s string, max int) (int, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("expected two digits, got '%s'", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > max {
		return 0, fmt.Errorf("field %d out of range", n)
	}
	return n, nil
}

func (t TimeOfDayValue) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond), "0")
		s += "." + frac
	}
	return s
}

// SpatialValue carries well-known text for Edm.Geography or Edm.Geometry
type SpatialValue struct {
	Geometry bool
	Text     string
}

// Prefix returns the literal prefix, "geography" or "geometry"
func (s SpatialValue) Prefix() string {
	if s.Geometry {
		return "geometry"
	}
	return "geography"
}

// Kind returns the primitive kind of the value
func (s SpatialValue) Kind() PrimitiveKind {
	if s.Geometry {
		return Geometry
	}
	return Geography
}

// EnumValue is a member (or comma separated flag members) of an enum type
type EnumValue struct {
	TypeName string
	Value    string
}

// ResourceValue is a complex or entity instance with ordered properties
// and instance annotations
type ResourceValue struct {
	TypeName    string
	Properties  *orderedmap.OrderedMap[string, any]
	Annotations *orderedmap.OrderedMap[string, any]
}

// NewResourceValue creates an empty resource value of the given type
func NewResourceValue(typeName string) *ResourceValue {
	return &ResourceValue{
		TypeName:    typeName,
		Properties:  orderedmap.NewOrderedMap[string, any](),
		Annotations: orderedmap.NewOrderedMap[string, any](),
	}
}

// Set adds or replaces a property, keeping first insertion order
func (r *ResourceValue) Set(name string, value any) *ResourceValue {
	r.Properties.Set(name, value)
	return r
}

// Annotate adds an instance annotation; the term is stored without "@"
func (r *ResourceValue) Annotate(term string, value any) *ResourceValue {
	r.Annotations.Set(strings.TrimPrefix(term, "@"), value)
	return r
}

// Get returns the named property
func (r *ResourceValue) Get(name string) (any, bool) {
	return r.Properties.Get(name)
}

// CollectionValue is an ordered collection of primitive, enum or resource values
type CollectionValue struct {
	TypeName string
	Items    []any
}

// EntityReference is an entity reference link (the @odata.id of an entity)
type EntityReference struct {
	ID string
}

// EntityReferences is a collection of entity reference links
type EntityReferences []EntityReference

// PrimitiveKindOf returns the primitive kind a Go value represents
func PrimitiveKindOf(v any) (PrimitiveKind, bool) {
	switch val := v.(type) {
	case bool:
		return Boolean, true
	case uint8:
		return Byte, true
	case int8:
		return SByte, true
	case int16:
		return Int16, true
	case int32:
		return Int32, true
	case int:
		return Int32, true
	case int64:
		return Int64, true
	case float32:
		return Single, true
	case float64:
		return Double, true
	case *apd.Decimal, apd.Decimal:
		return Decimal, true
	case string:
		return String, true
	case uuid.UUID:
		return Guid, true
	case []byte:
		return Binary, true
	case DateValue:
		return Date, true
	case time.Time:
		return DateTimeOffset, true
	case TimeOfDayValue:
		return TimeOfDay, true
	case time.Duration:
		return Duration, true
	case SpatialValue:
		return val.Kind(), true
	default:
		return "", false
	}
}
