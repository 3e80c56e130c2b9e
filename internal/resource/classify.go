package resource

import (
	utilstrings "github.com/relata/relata/internal/util/strings"
)

// Classification is the result of sorting a descriptor's associations into
// their three kinds, plus the attribute keys that must not appear in the
// plain-attribute view of a row.
type Classification struct {
	ToMany    []Association
	ToOne     []Association // has-one: foreign key lives on the target
	BelongsTo []Association // foreign key lives on this type

	// ExcludedAttributes is the union of every has-many/has-one alias and
	// every belongs-to foreign key (plus the belongs-to alias when it
	// differs from the foreign key).
	ExcludedAttributes map[string]struct{}
}

// Classify sorts a descriptor's associations by kind and computes the
// attribute exclusion set. Pure function of the descriptor; a type with no
// associations yields empty slices and an empty set.
func Classify(d *Descriptor) Classification {
	c := Classification{
		ExcludedAttributes: make(map[string]struct{}),
	}

	for _, assoc := range d.Associations {
		switch assoc.Kind {
		case HasMany:
			c.ToMany = append(c.ToMany, assoc)
			c.ExcludedAttributes[assoc.Alias] = struct{}{}
		case HasOne:
			c.ToOne = append(c.ToOne, assoc)
			c.ExcludedAttributes[assoc.Alias] = struct{}{}
		case BelongsTo:
			c.BelongsTo = append(c.BelongsTo, assoc)
			c.ExcludedAttributes[assoc.ForeignKey] = struct{}{}
			if assoc.Alias != assoc.ForeignKey {
				c.ExcludedAttributes[assoc.Alias] = struct{}{}
			}
		}
	}

	return c
}

// RelationshipName derives the document-level relationship name for an
// association. Has-many and has-one use the camel-cased alias; belongs-to
// uses the foreign key field name verbatim. The derivation is reversible
// via AssociationForRelationship.
func RelationshipName(a Association) string {
	switch a.Kind {
	case BelongsTo:
		return a.ForeignKey
	default:
		return utilstrings.Camelize(a.Alias)
	}
}

// AssociationForRelationship resolves a document-level relationship name
// back to the association it was derived from. It is the exact inverse of
// RelationshipName.
func (d *Descriptor) AssociationForRelationship(name string) (Association, bool) {
	for _, assoc := range d.Associations {
		if RelationshipName(assoc) == name {
			return assoc, true
		}
	}
	return Association{}, false
}
