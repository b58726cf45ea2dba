package odataerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
		message  string
	}{
		{
			name:     "Invalid literal carries type name",
			err:      InvalidLiteralf("Edm.Int32", "null is not allowed for non-nullable type '%s'", "Edm.Int32"),
			sentinel: ErrInvalidLiteral,
			kind:     InvalidLiteral,
			message:  "InvalidLiteral: null is not allowed for non-nullable type 'Edm.Int32'",
		},
		{
			name:     "Overflow mentions value and target",
			err:      Overflow("Edm.Byte", int32(300), nil),
			sentinel: ErrLiteralOverflow,
			kind:     LiteralOverflow,
			message:  "LiteralOverflow: value '300' overflows type 'Edm.Byte'",
		},
		{
			name:     "Unsupported construct",
			err:      Unsupportedf("unknown transformation node %T", 42),
			sentinel: ErrUnsupportedConstruct,
			kind:     UnsupportedConstruct,
			message:  "UnsupportedConstruct: unknown transformation node int",
		},
		{
			name:     "Malformed URI component",
			err:      Malformedf("service root '%s' is not absolute", "svc/"),
			sentinel: ErrMalformedUriComponent,
			kind:     MalformedUriComponent,
			message:  "MalformedUriComponent: service root 'svc/' is not absolute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	cause := errors.New("strconv: out of range")
	err := fmt.Errorf("key 'ID': %w", Overflow("Edm.Int16", 70000, cause))

	assert.ErrorIs(t, err, ErrLiteralOverflow)
	assert.NotErrorIs(t, err, ErrInvalidLiteral)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, LiteralOverflow, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(cause))

	var oe *Error
	assert.True(t, errors.As(err, &oe))
	assert.Equal(t, "Edm.Int16", oe.TypeName)
}
