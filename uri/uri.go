package uri

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/odatakit/odatauri/path"
	"github.com/odatakit/odatauri/translate"
)

// ODataUri is a bound request URI: a resource path plus query options.
// Unset options are nil and are left out of the built URI.
type ODataUri struct {
	serviceRoot *url.URL

	Path             path.Path
	Filter           *ast.FilterClause
	SelectAndExpand  *ast.SelectExpandClause
	Apply            *ast.ApplyClause
	Compute          *ast.ComputeClause
	OrderBy          *ast.OrderByClause
	Search           *ast.SearchClause
	Top              *int64
	Skip             *int64
	QueryCount       *bool
	SkipToken        *string
	DeltaToken       *string
	ParameterAliases *ast.ParameterAliasValues
}

// EscapeDataString percent-encodes a query option value
func EscapeDataString(s string) string {
	return translate.EscapeDataString(s)
}

// SetServiceRoot sets the absolute URI the resource path is resolved
// against. The stored root always ends with "/". An empty root clears it.
func (u *ODataUri) SetServiceRoot(root string) error {
	if root == "" {
		u.serviceRoot = nil
		return nil
	}

	parsed, err := url.Parse(root)
	if err != nil {
		return odataerr.Malformedf("invalid service root '%s': %v", root, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return odataerr.Malformedf("service root '%s' is not an absolute URI", root)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
		if parsed.RawPath != "" {
			parsed.RawPath += "/"
		}
	}
	u.serviceRoot = parsed
	return nil
}

// ServiceRoot returns a copy of the service root, or nil
func (u *ODataUri) ServiceRoot() *url.URL {
	if u.serviceRoot == nil {
		return nil
	}
	root := *u.serviceRoot
	return &root
}

// MetadataDocumentURI returns "<service root>$metadata", or nil without a
// service root
func (u *ODataUri) MetadataDocumentURI() *url.URL {
	if u.serviceRoot == nil {
		return nil
	}
	return u.serviceRoot.ResolveReference(&url.URL{Path: "$metadata"})
}

// queryBuilder writes "?" before the first option and "&" before the rest
type queryBuilder struct {
	sb strings.Builder
}

func (q *queryBuilder) add(fragment string) {
	if fragment == "" {
		return
	}
	if q.sb.Len() > 0 {
		q.sb.WriteByte('&')
	}
	q.sb.WriteString(fragment)
}

func (q *queryBuilder) option(name, value string) {
	q.add(name + "=" + value)
}

// BuildUri assembles u into a URI. Options are always written in this
// order: $filter, $select/$expand, $apply, $compute, $orderby, $top,
// $skip, $count, $search, $skiptoken, $deltatoken, parameter aliases.
//
// Without a service root the result is a relative reference.
func BuildUri(u *ODataUri, delim path.KeyDelimiter) (*url.URL, error) {
	resourcePath, err := u.Path.ToResourcePathString(delim)
	if err != nil {
		return nil, err
	}
	resourcePath = strings.TrimPrefix(resourcePath, "/")

	query, err := buildQuery(u)
	if err != nil {
		return nil, err
	}

	unescaped, err := url.PathUnescape(resourcePath)
	if err != nil {
		return nil, odataerr.Malformedf("invalid resource path '%s': %v", resourcePath, err)
	}
	rel := &url.URL{Path: unescaped, RawPath: resourcePath, RawQuery: query}

	if u.serviceRoot == nil {
		return rel, nil
	}
	return u.serviceRoot.ResolveReference(rel), nil
}

func buildQuery(u *ODataUri) (string, error) {
	var q queryBuilder

	if u.Filter != nil {
		s, err := translate.TranslateFilterClause(u.Filter)
		if err != nil {
			return "", err
		}
		q.option("$filter", s)
	}

	if u.SelectAndExpand != nil {
		s, err := translate.NewSelectExpandTranslator().Translate(u.SelectAndExpand, true)
		if err != nil {
			return "", err
		}
		q.add(s)
	}

	if u.Apply != nil {
		s, err := translate.NewApplyTranslator().TranslateApplyClause(u.Apply)
		if err != nil {
			return "", err
		}
		q.add(s)
	}

	if u.Compute != nil {
		s, err := translate.TranslateComputeClause(u.Compute)
		if err != nil {
			return "", err
		}
		q.option("$compute", s)
	}

	if u.OrderBy != nil {
		s, err := translate.TranslateOrderByClause(u.OrderBy)
		if err != nil {
			return "", err
		}
		q.option("$orderby", s)
	}

	if u.Top != nil {
		q.option("$top", EscapeDataString(strconv.FormatInt(*u.Top, 10)))
	}
	if u.Skip != nil {
		q.option("$skip", EscapeDataString(strconv.FormatInt(*u.Skip, 10)))
	}
	if u.QueryCount != nil {
		q.option("$count", strconv.FormatBool(*u.QueryCount))
	}

	if u.Search != nil {
		s, err := translate.TranslateSearchClause(u.Search)
		if err != nil {
			return "", err
		}
		q.option("$search", s)
	}

	if u.SkipToken != nil {
		q.option("$skiptoken", EscapeDataString(*u.SkipToken))
	}
	if u.DeltaToken != nil {
		q.option("$deltatoken", EscapeDataString(*u.DeltaToken))
	}

	aliases, err := translate.TranslateParameterAliases(u.ParameterAliases)
	if err != nil {
		return "", err
	}
	for _, a := range aliases {
		q.add(a)
	}

	return q.sb.String(), nil
}
