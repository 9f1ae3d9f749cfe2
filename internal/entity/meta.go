package entity

import (
	"errors"
	"fmt"

	"igloogo/internal/graphql"
)

var (
	// ErrUnknownField is returned for fields not declared on the entity type
	ErrUnknownField = errors.New("unknown field")

	// ErrReadOnlyField is returned when writing a field without a setter
	ErrReadOnlyField = errors.New("read-only field")

	// ErrNotObject is returned when navigating a field that is not an object reference
	ErrNotObject = errors.New("field is not an object reference")
)

// Kind describes how a field is selected and decoded
type Kind int

const (
	// Scalar fields are selected by name and returned as-is
	Scalar Kind = iota
	// Object fields reference another entity and are selected as name{id}
	Object
)

// Field describes one field of an entity type
type Field struct {
	Name     string
	Kind     Kind
	Target   string // entity type of Object fields
	Writable bool
}

// Key returns the selection requested for this field
func (f Field) Key() graphql.FieldKey {
	if f.Kind == Object {
		return graphql.ObjectKey(f.Name)
	}
	return graphql.FieldKey(f.Name)
}

// Meta describes an entity type: the root query name and its fields
type Meta struct {
	Name   string
	fields map[string]Field
}

// NewMeta creates entity-type metadata
func NewMeta(name string, fields ...Field) *Meta {
	m := &Meta{
		Name:   name,
		fields: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		m.fields[f.Name] = f
	}
	return m
}

// Field looks up a declared field
func (m *Meta) Field(name string) (Field, error) {
	f, ok := m.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.Name, name)
	}
	return f, nil
}

// Fields returns the declared field names
func (m *Meta) Fields() []string {
	names := make([]string, 0, len(m.fields))
	for name := range m.fields {
		names = append(names, name)
	}
	return names
}

// ScalarField declares a read-only scalar field
func ScalarField(name string) Field {
	return Field{Name: name, Kind: Scalar}
}

// WritableField declares a scalar field with a setter
func WritableField(name string) Field {
	return Field{Name: name, Kind: Scalar, Writable: true}
}

// ObjectField declares a reference to another entity type
func ObjectField(name, target string) Field {
	return Field{Name: name, Kind: Object, Target: target}
}
