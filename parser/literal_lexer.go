package parser

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/odatakit/odatauri/literal"
)

// LiteralLexer tokenizes single URI literals
type LiteralLexer struct {
	parser *participle.Parser[LiteralGrammar]
}

// LiteralGrammar accepts exactly one literal
type LiteralGrammar struct {
	String         *string `parser:"  @String"`
	Qualified      *string `parser:"| @Qualified"`
	DateTimeOffset *string `parser:"| @DateTimeOffset"`
	Guid           *string `parser:"| @Guid"`
	Date           *string `parser:"| @Date"`
	TimeOfDay      *string `parser:"| @TimeOfDay"`
	Special        *string `parser:"| @Special"`
	Number         *string `parser:"| @Number"`
	Alias          *string `parser:"| @Alias"`
	Ident          *string `parser:"| @Ident"`
	JSON           *string `parser:"| @JSON"`
}

// Rule order matters: the first matching rule wins
var literalRules = []lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Qualified", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*'(?:[^']|'')*'`},
	{Name: "DateTimeOffset", Pattern: `-?\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:\d{2})`},
	{Name: "Guid", Pattern: `[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`},
	{Name: "Date", Pattern: `-?\d{4}-\d{2}-\d{2}`},
	{Name: "TimeOfDay", Pattern: `\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?`},
	{Name: "Special", Pattern: `-?INF\b|NaN\b`},
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?[LlMmDdFf]?`},
	{Name: "Alias", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "JSON", Pattern: `[\[{][\s\S]*`},
	{Name: "Whitespace", Pattern: `\s+`},
}

// NewLiteralLexer builds the literal tokenizer
func NewLiteralLexer() (*LiteralLexer, error) {
	p, err := participle.Build[LiteralGrammar](
		participle.Lexer(lexer.MustSimple(literalRules)),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build literal lexer: %w", err)
	}
	return &LiteralLexer{parser: p}, nil
}

// Lex implements literal.Lexer
func (l *LiteralLexer) Lex(text string) (literal.Token, error) {
	g, err := l.parser.ParseString("", text)
	if err != nil {
		return literal.Token{}, fmt.Errorf("failed to lex literal: %w", err)
	}

	switch {
	case g.String != nil:
		body, err := literal.UnquoteString(*g.String)
		if err != nil {
			return literal.Token{}, err
		}
		return literal.Token{Kind: literal.StringToken, Text: *g.String, Body: body}, nil

	case g.Qualified != nil:
		return qualifiedToken(*g.Qualified)

	case g.DateTimeOffset != nil:
		return plainToken(literal.DateTimeOffsetToken, *g.DateTimeOffset), nil

	case g.Guid != nil:
		return plainToken(literal.GuidToken, *g.Guid), nil

	case g.Date != nil:
		return plainToken(literal.DateToken, *g.Date), nil

	case g.TimeOfDay != nil:
		return plainToken(literal.TimeOfDayToken, *g.TimeOfDay), nil

	case g.Special != nil:
		return plainToken(literal.DoubleToken, *g.Special), nil

	case g.Number != nil:
		return numberToken(*g.Number), nil

	case g.Alias != nil:
		return literal.Token{Kind: literal.AliasToken, Text: *g.Alias, Body: strings.TrimPrefix(*g.Alias, "@")}, nil

	case g.Ident != nil:
		switch *g.Ident {
		case "null":
			return plainToken(literal.NullToken, "null"), nil
		case "true", "false":
			return plainToken(literal.BooleanToken, *g.Ident), nil
		}
		return literal.Token{}, fmt.Errorf("unexpected identifier '%s'", *g.Ident)

	case g.JSON != nil:
		body := strings.TrimSpace(*g.JSON)
		return literal.Token{Kind: literal.JSONToken, Text: *g.JSON, Body: body}, nil
	}

	return literal.Token{}, fmt.Errorf("empty literal")
}

func plainToken(kind literal.TokenKind, text string) literal.Token {
	return literal.Token{Kind: kind, Text: text, Body: text}
}

// qualifiedToken splits prefix'body' literals into duration, binary,
// spatial and enum tokens
func qualifiedToken(text string) (literal.Token, error) {
	i := strings.IndexByte(text, '\'')
	prefix := text[:i]
	body, err := literal.UnquoteString(text[i:])
	if err != nil {
		return literal.Token{}, err
	}

	tok := literal.Token{Text: text, Body: body, TypeName: prefix}
	switch strings.ToLower(prefix) {
	case "duration":
		tok.Kind = literal.DurationToken
	case "binary", "x":
		tok.Kind = literal.BinaryToken
	case "geography", "geometry":
		tok.Kind = literal.SpatialToken
	default:
		tok.Kind = literal.EnumToken
	}
	return tok, nil
}

func numberToken(text string) literal.Token {
	kind := literal.IntegerToken
	body := text

	switch text[len(text)-1] {
	case 'L', 'l':
		kind = literal.Int64Token
	case 'F', 'f':
		kind = literal.SingleToken
	case 'D', 'd':
		kind = literal.DoubleToken
	case 'M', 'm':
		kind = literal.DecimalToken
	}

	if kind != literal.IntegerToken {
		body = text[:len(text)-1]
	} else if strings.ContainsAny(text, ".eE") {
		kind = literal.DoubleToken
	}
	return literal.Token{Kind: kind, Text: text, Body: strings.TrimPrefix(body, "+")}
}
