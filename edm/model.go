package edm

import (
	"fmt"
	"slices"
	"strings"
)

// EnumType declares the members of an enum type
type EnumType struct {
	Name    string
	Members []string
	Flags   bool
}

// HasMember reports whether name is a declared member
func (e *EnumType) HasMember(name string) bool {
	return slices.Contains(e.Members, name)
}

// ValidateValue checks a member name or, for flags enums, a
// comma separated member list
func (e *EnumType) ValidateValue(value string) error {
	members := []string{value}
	if e.Flags {
		members = strings.Split(value, ",")
	}
	for _, m := range members {
		m = strings.TrimSpace(m)
		if !e.HasMember(m) {
			return fmt.Errorf("'%s' is not a member of enum type '%s'", m, e.Name)
		}
	}
	return nil
}

// StructuredType declares a complex or entity type
type StructuredType struct {
	Name       string
	Entity     bool
	Open       bool
	Properties map[string]*TypeReference
}

// Property returns the declared type of a property
func (s *StructuredType) Property(name string) (*TypeReference, bool) {
	t, ok := s.Properties[name]
	return t, ok
}

// Model resolves named types
type Model interface {
	FindEnumType(name string) (*EnumType, bool)
	FindStructuredType(name string) (*StructuredType, bool)
}

// InMemoryModel is a Model backed by maps
type InMemoryModel struct {
	enums      map[string]*EnumType
	structured map[string]*StructuredType
}

// NewModel creates an empty model
func NewModel() *InMemoryModel {
	return &InMemoryModel{
		enums:      make(map[string]*EnumType),
		structured: make(map[string]*StructuredType),
	}
}

// AddEnumType registers an enum type
func (m *InMemoryModel) AddEnumType(t *EnumType) error {
	if t.Name == "" {
		return fmt.Errorf("enum type is missing a name")
	}
	if _, exists := m.enums[t.Name]; exists {
		return fmt.Errorf("duplicate enum type '%s'", t.Name)
	}
	m.enums[t.Name] = t
	return nil
}

// AddStructuredType registers a complex or entity type
func (m *InMemoryModel) AddStructuredType(t *StructuredType) error {
	if t.Name == "" {
		return fmt.Errorf("structured type is missing a name")
	}
	if _, exists := m.structured[t.Name]; exists {
		return fmt.Errorf("duplicate structured type '%s'", t.Name)
	}
	if t.Properties == nil {
		t.Properties = make(map[string]*TypeReference)
	}
	m.structured[t.Name] = t
	return nil
}

func (m *InMemoryModel) FindEnumType(name string) (*EnumType, bool) {
	t, ok := m.enums[name]
	return t, ok
}

func (m *InMemoryModel) FindStructuredType(name string) (*StructuredType, bool) {
	t, ok := m.structured[name]
	return t, ok
}
