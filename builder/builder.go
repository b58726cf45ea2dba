package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odatakit/odatauri/config"
	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/literal"
	"github.com/odatakit/odatauri/parser"
	"github.com/odatakit/odatauri/path"
	"github.com/odatakit/odatauri/uri"
	"github.com/rs/zerolog/log"
)

// Format represents the encoding of a URI description document
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat converts a string format to Format type
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("invalid format: %s", format)
	}
}

// service holds a configured service and everything derived from it
type service struct {
	config config.Service
	model  *edm.InMemoryModel
	delim  path.KeyDelimiter
	codec  *literal.Codec
}

// Builder renders URIs and converts literals for configured services
type Builder struct {
	services map[string]*service
}

// NewBuilder creates a new Builder instance from a list of services
func NewBuilder(services []config.Service) (*Builder, error) {
	lex, err := parser.NewLiteralLexer()
	if err != nil {
		return nil, err
	}

	b := &Builder{
		services: make(map[string]*service),
	}

	for _, s := range services {
		if _, exists := b.services[s.ID]; exists {
			return nil, fmt.Errorf("duplicate service ID found: %s", s.ID)
		}

		model, err := s.Model()
		if err != nil {
			return nil, fmt.Errorf("failed to build model for service %s: %w", s.ID, err)
		}

		delim, err := s.Delimiter()
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", s.ID, err)
		}

		b.services[s.ID] = &service{
			config: s,
			model:  model,
			delim:  delim,
			codec:  literal.NewCodec(lex, model),
		}
	}

	return b, nil
}

// Service returns the configuration of a service
func (b *Builder) Service(id string) (config.Service, bool) {
	s, ok := b.services[id]
	if !ok {
		return config.Service{}, false
	}
	return s.config, true
}

// ServiceIDs returns the sorted IDs of all services
func (b *Builder) ServiceIDs() []string {
	ids := make([]string, 0, len(b.services))
	for id := range b.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Builder) lookup(id string) (*service, error) {
	s, ok := b.services[id]
	if !ok {
		return nil, fmt.Errorf("service with ID %s not found", id)
	}
	return s, nil
}

// BuildOptions contains the options for rendering a document
type BuildOptions struct {
	Format Format

	// Delimiter overrides the key delimiter of the service if set
	Delimiter string
}

// Decode parses a document into an ODataUri. A document without a
// service root inherits the root of the service.
func (b *Builder) Decode(serviceID string, format Format, doc []byte) (*uri.ODataUri, error) {
	s, err := b.lookup(serviceID)
	if err != nil {
		return nil, err
	}

	var u *uri.ODataUri
	switch format {
	case YAML:
		u, err = parser.ParseDocumentYAML(doc, s.codec)
	default:
		u, err = parser.ParseDocument(doc, s.codec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	if u.ServiceRoot() == nil && s.config.ServiceRoot != "" {
		if err := u.SetServiceRoot(s.config.ServiceRoot); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// BuildURI renders a document as a request URI for a service
func (b *Builder) BuildURI(serviceID string, opts BuildOptions, doc []byte) (string, error) {
	s, err := b.lookup(serviceID)
	if err != nil {
		return "", err
	}

	delim := s.delim
	if opts.Delimiter != "" {
		if delim, err = path.ParseKeyDelimiter(opts.Delimiter); err != nil {
			return "", err
		}
	}

	u, err := b.Decode(serviceID, opts.Format, doc)
	if err != nil {
		return "", err
	}

	built, err := uri.BuildUri(u, delim)
	if err != nil {
		log.Debug().Err(err).Str("service", serviceID).Msg("Failed to build URI")
		return "", fmt.Errorf("failed to build URI: %w", err)
	}

	result := built.String()
	log.Debug().Str("service", serviceID).Str("uri", result).Msg("Built URI")
	return result, nil
}

// MetadataDocumentURI returns the metadata document URI of a service, or
// an empty string if the service has no root
func (b *Builder) MetadataDocumentURI(serviceID string) (string, error) {
	s, err := b.lookup(serviceID)
	if err != nil {
		return "", err
	}
	if s.config.ServiceRoot == "" {
		return "", nil
	}

	var u uri.ODataUri
	if err := u.SetServiceRoot(s.config.ServiceRoot); err != nil {
		return "", err
	}
	return u.MetadataDocumentURI().String(), nil
}

// Conversion is the result of converting a URI literal
type Conversion struct {
	Input    string `json:"input"`
	TypeName string `json:"type,omitempty"`
	Literal  string `json:"literal"`
	Value    any    `json:"-"`
	JSON     string `json:"-"`
}

// ConvertLiteral parses a URI literal, optionally as typeName, and
// renders the value back as its normalized literal and JSON forms
func (b *Builder) ConvertLiteral(serviceID, text, typeName string) (*Conversion, error) {
	s, err := b.lookup(serviceID)
	if err != nil {
		return nil, err
	}

	var target *edm.TypeReference
	if typeName != "" {
		if target, err = edm.ParseTypeName(typeName, true, s.model); err != nil {
			return nil, err
		}
	}

	value, err := s.codec.LiteralToValue(text, target)
	if err != nil {
		return nil, err
	}

	if target == nil {
		target = naturalType(value)
	}

	normalized, err := s.codec.ValueToLiteral(value, target)
	if err != nil {
		return nil, err
	}

	conv := &Conversion{
		Input:    text,
		TypeName: target.FullName(),
		Literal:  normalized,
		Value:    value,
	}
	if _, isAlias := value.(literal.ParameterAlias); !isAlias {
		if conv.JSON, err = literal.MarshalValue(value); err != nil {
			return nil, err
		}
	}

	log.Debug().Str("service", serviceID).Str("input", text).Str("literal", normalized).Msg("Converted literal")
	return conv, nil
}

// naturalType returns the type a value implies, or nil when it implies none
func naturalType(value any) *edm.TypeReference {
	if k, ok := edm.PrimitiveKindOf(value); ok {
		return edm.PrimitiveType(k, true)
	}
	if ev, ok := value.(edm.EnumValue); ok {
		return edm.EnumTypeRef(ev.TypeName, true)
	}
	return nil
}
