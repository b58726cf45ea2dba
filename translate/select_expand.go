package translate

import (
	"strconv"
	"strings"

	"github.com/odatakit/odatauri/ast"
	"github.com/odatakit/odatauri/odataerr"
	"github.com/odatakit/odatauri/path"
)

// SelectExpandTranslator renders a SelectExpandClause tree
type SelectExpandTranslator struct {
	// Only the first select list written in a rendering is escaped
	isFirstSelectItem bool
}

// NewSelectExpandTranslator creates a translator for one rendering
func NewSelectExpandTranslator() *SelectExpandTranslator {
	return &SelectExpandTranslator{isFirstSelectItem: true}
}

// Translate renders clause. At the top level the select and expand
// fragments are joined with "&", nested levels join them with ";".
func (t *SelectExpandTranslator) Translate(clause *ast.SelectExpandClause, isTopLevel bool) (string, error) {
	if clause == nil {
		return "", nil
	}

	var selects, expands []string
	escapeSelect := false

	for _, item := range clause.Items {
		switch it := item.(type) {
		case *ast.WildcardSelectItem, *ast.PathSelectItem, *ast.NamespaceWildcardSelectItem:
			if len(selects) == 0 {
				escapeSelect = t.isFirstSelectItem
				t.isFirstSelectItem = false
			}
			s, err := t.translateSelectItem(it, escapeSelect)
			if err != nil {
				return "", err
			}
			selects = append(selects, s)

		case *ast.ExpandedNavigationSelectItem, *ast.ExpandedReferenceSelectItem, *ast.ExpandedCountSelectItem:
			s, err := t.translateExpandItem(it)
			if err != nil {
				return "", err
			}
			expands = append(expands, s)

		case nil:
			return "", odataerr.Unsupportedf("missing select item")
		default:
			return "", odataerr.Unsupportedf("unsupported select item '%s'", item.Type())
		}
	}

	var parts []string
	if len(selects) > 0 {
		parts = append(parts, "$select="+strings.Join(selects, ","))
	}
	if len(expands) > 0 {
		parts = append(parts, "$expand="+strings.Join(expands, ","))
	}

	sep := ";"
	if isTopLevel {
		sep = "&"
	}
	return strings.Join(parts, sep), nil
}

func (t *SelectExpandTranslator) translateSelectItem(item ast.SelectItem, escape bool) (string, error) {
	esc := func(s string) string {
		if escape {
			return EscapeDataString(s)
		}
		return s
	}

	switch it := item.(type) {
	case *ast.WildcardSelectItem:
		return esc("*"), nil
	case *ast.NamespaceWildcardSelectItem:
		return esc(it.Namespace + ".*"), nil
	case *ast.PathSelectItem:
		p, err := it.Path.ToBareString()
		if err != nil {
			return "", err
		}
		opts, err := t.nestedOptions(it.SelectAndExpand, nil, it.Options)
		if err != nil {
			return "", err
		}
		return esc(p) + opts, nil
	}
	return "", odataerr.Unsupportedf("unsupported select item '%s'", item.Type())
}

func (t *SelectExpandTranslator) translateExpandItem(item ast.SelectItem) (string, error) {
	switch it := item.(type) {
	case *ast.ExpandedNavigationSelectItem:
		p, err := it.Path.ToBareString()
		if err != nil {
			return "", err
		}
		opts, err := t.nestedOptions(it.SelectAndExpand, it.Levels, it.Options)
		if err != nil {
			return "", err
		}
		return p + opts, nil

	case *ast.ExpandedReferenceSelectItem:
		p, err := refPath(it.Path, "$ref")
		if err != nil {
			return "", err
		}
		opts, err := t.nestedOptions(nil, nil, it.Options)
		if err != nil {
			return "", err
		}
		return p + opts, nil

	case *ast.ExpandedCountSelectItem:
		p, err := refPath(it.Path, "$count")
		if err != nil {
			return "", err
		}
		opts, err := t.nestedOptions(nil, nil, ast.QueryOptions{Filter: it.Filter, Search: it.Search})
		if err != nil {
			return "", err
		}
		return p + opts, nil
	}
	return "", odataerr.Unsupportedf("unsupported expand item '%s'", item.Type())
}

// refPath renders a navigation path followed by "/$ref" or "/$count"
func refPath(p path.Path, suffix string) (string, error) {
	s, err := p.ToBareString()
	if err != nil {
		return "", err
	}
	return s + "/" + suffix, nil
}

// nestedOptions renders the parenthesized option block of an item: the
// nested select/expand first, then $levels and the query options, all
// joined by ";" inside a single pair of parentheses
func (t *SelectExpandTranslator) nestedOptions(child *ast.SelectExpandClause, levels *ast.LevelsClause, opts ast.QueryOptions) (string, error) {
	var parts []string

	nested, err := t.Translate(child, false)
	if err != nil {
		return "", err
	}
	if nested != "" {
		parts = append(parts, nested)
	}

	if levels != nil {
		if levels.IsMaxLevel {
			parts = append(parts, "$levels=max")
		} else {
			parts = append(parts, "$levels="+strconv.FormatInt(levels.Level, 10))
		}
	}

	if opts.Filter != nil {
		f, err := TranslateFilterClause(opts.Filter)
		if err != nil {
			return "", err
		}
		parts = append(parts, "$filter="+f)
	}
	if opts.OrderBy != nil {
		o, err := TranslateOrderByClause(opts.OrderBy)
		if err != nil {
			return "", err
		}
		parts = append(parts, "$orderby="+o)
	}
	if opts.Top != nil {
		parts = append(parts, "$top="+strconv.FormatInt(*opts.Top, 10))
	}
	if opts.Skip != nil {
		parts = append(parts, "$skip="+strconv.FormatInt(*opts.Skip, 10))
	}
	if opts.Count != nil {
		parts = append(parts, "$count="+strconv.FormatBool(*opts.Count))
	}
	if opts.Search != nil {
		s, err := TranslateSearchClause(opts.Search)
		if err != nil {
			return "", err
		}
		parts = append(parts, "$search="+s)
	}
	if opts.Compute != nil {
		c, err := TranslateComputeClause(opts.Compute)
		if err != nil {
			return "", err
		}
		parts = append(parts, "$compute="+c)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, ";") + ")", nil
}
