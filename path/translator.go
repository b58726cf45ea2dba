package path

import (
	"fmt"
	"strings"

	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/odataerr"
)

// Translator renders single segments for one purpose. Segments that do
// not apply to that purpose render as an empty string.
type Translator interface {
	Translate(seg Segment) (string, error)
}

// ResourcePathTranslator renders segments of a request URI path
type ResourcePathTranslator struct {
	Delimiter KeyDelimiter
}

func (t ResourcePathTranslator) Translate(seg Segment) (string, error) {
	switch s := seg.(type) {
	case *EntitySet:
		return "/" + EscapeSegment(s.Name), nil
	case *Singleton:
		return "/" + EscapeSegment(s.Name), nil
	case *Key:
		return translateKey(s, t.Delimiter)
	case *NavigationProperty:
		return "/" + EscapeSegment(s.Name), nil
	case *Property:
		return "/" + EscapeSegment(s.Name), nil
	case *TypeCast:
		return "/" + EscapeSegment(s.TypeName), nil
	case *Operation:
		return translateOperation(s.Name, s.Parameters)
	case *OperationImport:
		return translateOperation(s.Name, s.Parameters)
	case *Count:
		return "/$count", nil
	case *Value:
		return "/$value", nil
	case *Batch:
		return "/$batch", nil
	case *BatchReference:
		return "/$" + EscapeSegment(s.ContentID), nil
	case *Metadata:
		return "/$metadata", nil
	case *DynamicPath:
		return "/" + EscapeSegment(s.Name), nil
	case *NavigationPropertyLink:
		return "/" + EscapeSegment(s.Name) + "/$ref", nil
	case *Annotation:
		return "/@" + EscapeSegment(s.Term), nil
	}
	return "", unsupportedSegment(seg)
}

// ContextURLPathTranslator renders segments of an @odata.context URL.
// $count, $value, $batch and navigation link segments do not take part.
type ContextURLPathTranslator struct {
	Delimiter KeyDelimiter
}

func (t ContextURLPathTranslator) Translate(seg Segment) (string, error) {
	switch seg.(type) {
	case *Count, *Value, *Batch, *NavigationPropertyLink:
		return "", nil
	}
	return ResourcePathTranslator(t).Translate(seg)
}

// BareStringTranslator renders segments of $select and $expand paths.
// The caller joins the results with "/".
type BareStringTranslator struct{}

func (BareStringTranslator) Translate(seg Segment) (string, error) {
	switch s := seg.(type) {
	case *EntitySet:
		return s.Name, nil
	case *Singleton:
		return s.Name, nil
	case *Key:
		return "", nil
	case *NavigationProperty:
		return s.Name, nil
	case *Property:
		return s.Name, nil
	case *TypeCast:
		return s.TypeName, nil
	case *Operation:
		return s.Name, nil
	case *OperationImport:
		return s.Name, nil
	case *Count:
		return "$count", nil
	case *Value:
		return "$value", nil
	case *Batch:
		return "$batch", nil
	case *BatchReference:
		return "$" + s.ContentID, nil
	case *Metadata:
		return "$metadata", nil
	case *DynamicPath:
		return s.Name, nil
	case *NavigationPropertyLink:
		return s.Name + "/$ref", nil
	case *Annotation:
		return s.Term, nil
	}
	return "", unsupportedSegment(seg)
}

func unsupportedSegment(seg Segment) error {
	if seg == nil {
		return odataerr.Unsupportedf("nil path segment")
	}
	return odataerr.Unsupportedf("unsupported path segment '%s'", seg.Type())
}

func translateKey(k *Key, delim KeyDelimiter) (string, error) {
	if len(k.Keys) == 0 {
		return "", odataerr.Unsupportedf("key segment without key values")
	}

	if delim == Slash && len(k.Keys) == 1 && !isDotSegment(k.Keys[0].Value) {
		kv := k.Keys[0]
		if s, ok := kv.Value.(string); ok {
			return "/" + EscapeSegment(s), nil
		}
		lit, err := keyLiteral(kv)
		if err != nil {
			return "", err
		}
		return "/" + lit, nil
	}

	if len(k.Keys) == 1 {
		lit, err := keyLiteral(k.Keys[0])
		if err != nil {
			return "", err
		}
		return "(" + lit + ")", nil
	}

	parts := make([]string, 0, len(k.Keys))
	for _, kv := range k.Keys {
		lit, err := keyLiteral(kv)
		if err != nil {
			return "", err
		}
		parts = append(parts, EscapeSegment(kv.Name)+"="+lit)
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

// isDotSegment reports whether a string key written as a segment would
// be removed or merged by dot-segment resolution
func isDotSegment(v any) bool {
	s, ok := v.(string)
	return ok && (s == "" || s == "." || s == "..")
}

func keyLiteral(kv KeyValue) (string, error) {
	lit, err := literal.ValueToLiteral(kv.Value, kv.Type)
	if err != nil {
		return "", fmt.Errorf("key '%s': %w", kv.Name, err)
	}
	return EscapeSegment(lit), nil
}

func translateOperation(name string, params []Parameter) (string, error) {
	s := "/" + EscapeSegment(name)
	if len(params) == 0 {
		return s, nil
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		lit, err := literal.ValueToLiteral(p.Value, p.Type)
		if err != nil {
			return "", fmt.Errorf("parameter '%s': %w", p.Name, err)
		}
		parts = append(parts, EscapeSegment(p.Name)+"="+EscapeSegment(lit))
	}
	return s + "(" + strings.Join(parts, ",") + ")", nil
}

const upperhex = "0123456789ABCDEF"

// EscapeSegment percent-encodes every byte that is not allowed
// unencoded in a path segment (RFC 3986 pchar). Quotes, parentheses,
// commas and equal signs stay as they are.
func EscapeSegment(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isPathChar(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isPathChar(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func isPathChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@", c) >= 0
}
