package resource

import (
	"errors"
	"fmt"
	"sort"
)

// Common registry error types
var (
	// ErrDuplicateType is returned when a type name is registered twice
	ErrDuplicateType = errors.New("resource type already registered")

	// ErrDuplicateAlias is returned when two associations on a type share an alias
	ErrDuplicateAlias = errors.New("association alias is not unique")

	// ErrDuplicateRelationship is returned when two associations on a type
	// derive the same relationship name
	ErrDuplicateRelationship = errors.New("relationship name is not unique")

	// ErrUnknownType is returned when a type name is not registered
	ErrUnknownType = errors.New("unknown resource type")
)

// Registry holds the descriptors of every registered resource type. It is
// built once at startup and read-only afterwards, so lookups need no
// locking.
type Registry struct {
	types map[string]*Descriptor
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor to the registry. A duplicate type name or a
// duplicate association alias within the descriptor is an error.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no type name")
	}
	if d.PrimaryKey == "" {
		return fmt.Errorf("descriptor %s has no primary key", d.Name)
	}
	if _, exists := r.types[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, d.Name)
	}

	seenAliases := make(map[string]bool, len(d.Associations))
	seenRelationships := make(map[string]string, len(d.Associations))
	for _, assoc := range d.Associations {
		if seenAliases[assoc.Alias] {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateAlias, assoc.Alias, d.Name)
		}
		seenAliases[assoc.Alias] = true

		// Distinct aliases can still collide after derivation, e.g. a
		// has-many alias that camelizes to a belongs-to foreign key. A
		// collision would make relationship lookup ambiguous.
		rel := RelationshipName(assoc)
		if prev, dup := seenRelationships[rel]; dup {
			return fmt.Errorf("%w: %s and %s on %s both derive %s",
				ErrDuplicateRelationship, prev, assoc.Alias, d.Name, rel)
		}
		seenRelationships[rel] = assoc.Alias
	}

	r.types[d.Name] = d
	return nil
}

// Lookup returns the descriptor for a type name
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return d, nil
}

// Names returns the registered type names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
