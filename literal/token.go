package literal

// TokenKind classifies a single URI literal
type TokenKind string

const (
	NullToken           TokenKind = "null"
	BooleanToken        TokenKind = "boolean"
	StringToken         TokenKind = "string"
	IntegerToken        TokenKind = "integer"
	Int64Token          TokenKind = "int64"
	SingleToken         TokenKind = "single"
	DoubleToken         TokenKind = "double"
	DecimalToken        TokenKind = "decimal"
	GuidToken           TokenKind = "guid"
	DateToken           TokenKind = "date"
	DateTimeOffsetToken TokenKind = "datetimeoffset"
	TimeOfDayToken      TokenKind = "timeofday"
	DurationToken       TokenKind = "duration"
	BinaryToken         TokenKind = "binary"
	SpatialToken        TokenKind = "spatial"
	EnumToken           TokenKind = "enum"
	AliasToken          TokenKind = "alias"
	JSONToken           TokenKind = "json"
)

// Token is one lexed literal.
//
// Text is the literal as written. Body is the payload without quotes,
// prefixes or numeric suffixes, with doubled quotes already collapsed.
// TypeName carries the qualifier of prefixed literals: the enum type
// name, or "geography"/"geometry" for spatial literals.
type Token struct {
	Kind     TokenKind
	Text     string
	Body     string
	TypeName string
}

// Lexer turns literal text into a single token
type Lexer interface {
	Lex(text string) (Token, error)
}

// ParameterAlias is a reference to a parameter alias ("@name") used in
// place of a literal value
type ParameterAlias struct {
	Name string
}
