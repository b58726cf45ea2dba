package config

import (
	"fmt"
	"os"

	"github.com/odatakit/odatauri/edm"
	"github.com/odatakit/odatauri/path"
	"github.com/odatakit/odatauri/uri"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 5780
	defaultLogLevel     = "warn"
	defaultKeyDelimiter = "parentheses"
)

// EnumDecl declares an enum type of a service
type EnumDecl struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
	Flags   bool     `yaml:"flags,omitempty"`
}

// TypeDecl declares a complex or entity type of a service. Properties
// map property names to type names.
type TypeDecl struct {
	Name       string            `yaml:"name"`
	Entity     bool              `yaml:"entity,omitempty"`
	Open       bool              `yaml:"open,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Service describes one OData service URIs are built for
type Service struct {
	ID           string     `yaml:"id"`
	Description  string     `yaml:"desc,omitempty"`
	ServiceRoot  string     `yaml:"serviceRoot,omitempty"`
	KeyDelimiter string     `yaml:"keyDelimiter,omitempty"`
	Enums        []EnumDecl `yaml:"enums,omitempty"`
	ComplexTypes []TypeDecl `yaml:"complexTypes,omitempty"`
}

// Config represents the root configuration containing multiple services
type Config struct {
	Port         int       `yaml:"port,omitempty"`
	LogLevel     string    `yaml:"loglevel,omitempty"`
	ServiceRoot  string    `yaml:"serviceRoot,omitempty"`
	KeyDelimiter string    `yaml:"keyDelimiter,omitempty"`
	Services     []Service `yaml:"services,omitempty"`
}

// Delimiter returns the parsed key delimiter convention of the service
func (s *Service) Delimiter() (path.KeyDelimiter, error) {
	return path.ParseKeyDelimiter(s.KeyDelimiter)
}

// Model builds the type model declared by the service. Property types may
// refer to any enum or structured type of the same service.
func (s *Service) Model() (*edm.InMemoryModel, error) {
	model := edm.NewModel()

	for _, e := range s.Enums {
		if len(e.Members) == 0 {
			return nil, fmt.Errorf("enum type '%s' has no members", e.Name)
		}
		if err := model.AddEnumType(&edm.EnumType{Name: e.Name, Members: e.Members, Flags: e.Flags}); err != nil {
			return nil, err
		}
	}

	types := make([]*edm.StructuredType, len(s.ComplexTypes))
	for i, t := range s.ComplexTypes {
		types[i] = &edm.StructuredType{Name: t.Name, Entity: t.Entity, Open: t.Open}
		if err := model.AddStructuredType(types[i]); err != nil {
			return nil, err
		}
	}

	// Properties are resolved once every type is known
	for i, t := range s.ComplexTypes {
		for name, typeName := range t.Properties {
			ref, err := edm.ParseTypeName(typeName, true, model)
			if err != nil {
				return nil, fmt.Errorf("property '%s' of type '%s': %w", name, t.Name, err)
			}
			types[i].Properties[name] = ref
		}
	}

	return model, nil
}

// LoadFromSources loads configuration from multiple sources and merges them:
// - A main configuration file (optional) containing global settings and services
// - Individual service files (optional) containing a single service each
// At least one source must be provided
func LoadFromSources(configFile string, serviceFiles []string) (*Config, error) {
	var allServices []Service
	var globalConfig Config

	seenIDs := make(map[string]bool)

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}

		if len(data) == 0 {
			return nil, fmt.Errorf("EOF: config file '%s' is empty", configFile)
		}

		if err := yaml.Unmarshal(data, &globalConfig); err == nil {
			allServices = append(allServices, globalConfig.Services...)
		} else {
			// A bare list of services
			var services []Service
			if err := yaml.Unmarshal(data, &services); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", configFile, err)
			}
			allServices = append(allServices, services...)
			globalConfig.Services = nil
		}

		for _, s := range allServices {
			if seenIDs[s.ID] {
				return nil, fmt.Errorf("duplicate service ID found: %s", s.ID)
			}
			seenIDs[s.ID] = true
		}
	}

	for _, file := range serviceFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to read service file")
			continue
		}

		if len(data) == 0 {
			log.Error().Str("file", file).Msg("EOF: service file is empty")
			continue
		}

		var service Service
		if err := yaml.Unmarshal(data, &service); err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to parse YAML service file")
			continue
		}

		if seenIDs[service.ID] {
			log.Error().Str("file", file).Str("service", service.ID).Msg("Duplicate service ID found")
			continue
		}
		seenIDs[service.ID] = true
		allServices = append(allServices, service)
	}

	if len(allServices) == 0 {
		return nil, fmt.Errorf("no services found: provide either a config file (-c) with services or service files (-s)")
	}

	result := &Config{
		Port:         globalConfig.Port,
		LogLevel:     globalConfig.LogLevel,
		ServiceRoot:  globalConfig.ServiceRoot,
		KeyDelimiter: globalConfig.KeyDelimiter,
		Services:     allServices,
	}

	if err := validate(result); err != nil {
		return nil, err
	}

	ApplyDefaults(result)

	return result, nil
}

// ApplyDefaults sets default values for configuration fields if they are
// empty. Services inherit the global service root and key delimiter.
func ApplyDefaults(config *Config) {
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	if config.KeyDelimiter == "" {
		config.KeyDelimiter = defaultKeyDelimiter
	}
	if config.Port == 0 {
		config.Port = defaultPort
	}

	for i := range config.Services {
		s := &config.Services[i]
		if s.ServiceRoot == "" {
			s.ServiceRoot = config.ServiceRoot
		}
		if s.KeyDelimiter == "" {
			s.KeyDelimiter = config.KeyDelimiter
		}
	}
}

func validate(config *Config) error {
	if err := validateRoot(config.ServiceRoot); err != nil {
		return err
	}
	if _, err := path.ParseKeyDelimiter(config.KeyDelimiter); err != nil {
		return err
	}
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port %d", config.Port)
	}

	for i := range config.Services {
		s := &config.Services[i]
		if s.ID == "" {
			return fmt.Errorf("service at index %d is missing an ID", i)
		}
		if err := validateRoot(s.ServiceRoot); err != nil {
			return fmt.Errorf("service '%s': %w", s.ID, err)
		}
		if _, err := s.Delimiter(); err != nil {
			return fmt.Errorf("service '%s': %w", s.ID, err)
		}
		if _, err := s.Model(); err != nil {
			return fmt.Errorf("service '%s': %w", s.ID, err)
		}
	}
	return nil
}

func validateRoot(root string) error {
	if root == "" {
		return nil
	}
	var u uri.ODataUri
	return u.SetServiceRoot(root)
}
