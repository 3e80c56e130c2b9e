// Package resource defines the static type descriptors the document engine
// is driven by: column types, association descriptors, and the registry
// built once at startup.
package resource

import "fmt"

// ColumnType represents the semantic type of a declared column
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnText
	ColumnInteger
	ColumnFloat
	ColumnBoolean
	ColumnDate
	ColumnJSON
)

// String returns the string representation of the column type
func (c ColumnType) String() string {
	switch c {
	case ColumnString:
		return "string"
	case ColumnText:
		return "text"
	case ColumnInteger:
		return "integer"
	case ColumnFloat:
		return "float"
	case ColumnBoolean:
		return "boolean"
	case ColumnDate:
		return "date"
	case ColumnJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseColumnType converts a string to a ColumnType
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "string":
		return ColumnString, nil
	case "text":
		return ColumnText, nil
	case "integer":
		return ColumnInteger, nil
	case "float":
		return ColumnFloat, nil
	case "boolean":
		return ColumnBoolean, nil
	case "date":
		return ColumnDate, nil
	case "json":
		return ColumnJSON, nil
	default:
		return 0, fmt.Errorf("unknown column type: %s", s)
	}
}

// AssociationKind represents the kind of a declared association
type AssociationKind int

const (
	// HasMany stores its foreign key on the target type; many target rows
	// may reference one owning row.
	HasMany AssociationKind = iota
	// HasOne stores its foreign key on the target type; at most one target
	// row references the owning row.
	HasOne
	// BelongsTo stores its foreign key on the declaring type itself.
	BelongsTo
)

// String returns the string representation of the association kind
func (k AssociationKind) String() string {
	switch k {
	case HasMany:
		return "has_many"
	case HasOne:
		return "has_one"
	case BelongsTo:
		return "belongs_to"
	default:
		return "unknown"
	}
}

// ParseAssociationKind converts a string to an AssociationKind
func ParseAssociationKind(s string) (AssociationKind, error) {
	switch s {
	case "has_many":
		return HasMany, nil
	case "has_one":
		return HasOne, nil
	case "belongs_to":
		return BelongsTo, nil
	default:
		return 0, fmt.Errorf("unknown association kind: %s", s)
	}
}

// Association describes one declared association of a resource type.
type Association struct {
	Kind       AssociationKind
	Target     string // singular target type name
	ForeignKey string // on the target for HasMany/HasOne, on this type for BelongsTo
	Alias      string // key under which loaded rows are attached to the owning row
}

// Descriptor describes one resource type. Descriptors are supplied at
// startup and never mutated afterwards.
type Descriptor struct {
	Name         string // singular type name, e.g. "User"
	PrimaryKey   string
	Columns      map[string]ColumnType
	Associations []Association
}

// Column returns the declared type of a column, if present.
func (d *Descriptor) Column(name string) (ColumnType, bool) {
	t, ok := d.Columns[name]
	return t, ok
}
