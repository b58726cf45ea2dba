// Package odatauri renders bound OData request trees into URIs and
// converts values to and from their URI literal form.
package odatauri

import (
	"net/url"
	"sync"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/parser"
	"github.com/odatakit/odatauri/path"
	"github.com/odatakit/odatauri/translate"
	"github.com/odatakit/odatauri/uri"
)

var defaultLexer = sync.OnceValues(func() (literal.Lexer, error) {
	return parser.NewLiteralLexer()
})

// BuildUri assembles u into a request URI using the given key delimiter
func BuildUri(u *uri.ODataUri, delim path.KeyDelimiter) (*url.URL, error) {
	return uri.BuildUri(u, delim)
}

// ConvertToUriLiteral renders value as URI literal text. A nil target
// formats the value by its own type.
func ConvertToUriLiteral(value any, target *edm.TypeReference) (string, error) {
	return literal.ValueToLiteral(value, target)
}

// ConvertFromUriLiteral parses URI literal text. A nil target yields the
// natural value of the literal; model may be nil.
func ConvertFromUriLiteral(text string, target *edm.TypeReference, model edm.Model) (any, error) {
	lex, err := defaultLexer()
	if err != nil {
		return nil, err
	}
	return literal.NewCodec(lex, model).LiteralToValue(text, target)
}

// TranslateFilter renders a filter expression tree
func TranslateFilter(node ast.QueryNode) (string, error) {
	return translate.NewNodeTranslator().Translate(node)
}

// TranslateSelectExpandClause renders the $select and $expand fragments
// of clause
func TranslateSelectExpandClause(clause *ast.SelectExpandClause, isTopLevel bool) (string, error) {
	return translate.NewSelectExpandTranslator().Translate(clause, isTopLevel)
}

// TranslateApplyClause renders the "$apply=..." fragment of clause
func TranslateApplyClause(clause *ast.ApplyClause) (string, error) {
	return translate.NewApplyTranslator().TranslateApplyClause(clause)
}
