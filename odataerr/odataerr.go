package odataerr

// odataerr is the error taxonomy shared by the literal codec and the
// URI renderers.

import (
	"errors"
	"fmt"
)

// Kind classifies a failure raised while converting or rendering
type Kind string

const (
	InvalidLiteral        Kind = "InvalidLiteral"
	LiteralOverflow       Kind = "LiteralOverflow"
	UnsupportedConstruct  Kind = "UnsupportedConstruct"
	MalformedUriComponent Kind = "MalformedUriComponent"
)

// Sentinels for errors.Is comparisons against a kind
var (
	ErrInvalidLiteral        = &Error{Kind: InvalidLiteral}
	ErrLiteralOverflow       = &Error{Kind: LiteralOverflow}
	ErrUnsupportedConstruct  = &Error{Kind: UnsupportedConstruct}
	ErrMalformedUriComponent = &Error{Kind: MalformedUriComponent}
)

// Error is a structured failure carrying the offending type name
type Error struct {
	Kind     Kind
	TypeName string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels above
// work with errors.Is regardless of message or type name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// InvalidLiteralf creates an InvalidLiteral error for the given type name
func InvalidLiteralf(typeName, format string, args ...any) error {
	return &Error{
		Kind:     InvalidLiteral,
		TypeName: typeName,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Overflow creates a LiteralOverflow error for a failed coercion to typeName
func Overflow(typeName string, value any, cause error) error {
	return &Error{
		Kind:     LiteralOverflow,
		TypeName: typeName,
		Message:  fmt.Sprintf("value '%v' overflows type '%s'", value, typeName),
		Err:      cause,
	}
}

// Unsupportedf creates an UnsupportedConstruct error
func Unsupportedf(format string, args ...any) error {
	return &Error{
		Kind:    UnsupportedConstruct,
		Message: fmt.Sprintf(format, args...),
	}
}

// Malformedf creates a MalformedUriComponent error
func Malformedf(format string, args ...any) error {
	return &Error{
		Kind:    MalformedUriComponent,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
