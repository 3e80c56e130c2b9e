package document

import (
	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
	utilstrings "github.com/relata/relata/internal/util/strings"
)

// BuildOptions controls how a row is rendered
type BuildOptions struct {
	// Simple suppresses relationships, links, and include accumulation
	Simple bool

	// BaseURL, when set, enables self/related links on relationships
	BaseURL string
}

// Accumulator collects resource objects built for loaded related rows, in
// the order they were encountered. The caller dedupes before emitting.
type Accumulator struct {
	objects []*ResourceObject
}

// Add appends an object to the accumulator
func (a *Accumulator) Add(obj *ResourceObject) {
	a.objects = append(a.objects, obj)
}

// Objects returns everything accumulated so far
func (a *Accumulator) Objects() []*ResourceObject {
	return a.objects
}

// Builder turns row snapshots into resource objects using the registry to
// resolve association targets.
type Builder struct {
	registry *resource.Registry
}

// NewBuilder creates a Builder over a registry
func NewBuilder(registry *resource.Registry) *Builder {
	return &Builder{registry: registry}
}

// Build renders one row of the named type as a resource object.
//
// In non-simple mode the relationships map is always present, one entry per
// declared association. To-many and has-one linkage comes from rows loaded
// onto the snapshot; when an alias was never loaded the data member is
// omitted and only links remain. Belongs-to linkage is derived from the
// foreign key column alone, so it is present whether or not the target row
// was fetched. Loaded to-many and has-one rows are built recursively and
// fed to the accumulator; belongs-to targets are not, even when loaded.
func (b *Builder) Build(row *store.Row, typeName string, opts BuildOptions, acc *Accumulator) (*ResourceObject, error) {
	if row == nil {
		return nil, nil
	}

	d, err := b.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	c := resource.Classify(d)

	obj := &ResourceObject{
		Type:       d.Name,
		ID:         FormatID(row.Get(d.PrimaryKey)),
		Attributes: make(map[string]any, len(d.Columns)),
	}

	for field := range d.Columns {
		if field == d.PrimaryKey {
			continue
		}
		if _, excluded := c.ExcludedAttributes[field]; excluded {
			continue
		}
		obj.Attributes[field] = row.Get(field)
	}

	if opts.Simple {
		return obj, nil
	}

	obj.Relationships = make(map[string]*Relationship, len(d.Associations))
	for _, assoc := range d.Associations {
		rel, err := b.buildRelationship(row, d, assoc, opts, acc)
		if err != nil {
			return nil, err
		}
		obj.Relationships[resource.RelationshipName(assoc)] = rel
	}

	return obj, nil
}

// BuildMany renders a list of rows, sharing one accumulator
func (b *Builder) BuildMany(rows []*store.Row, typeName string, opts BuildOptions, acc *Accumulator) ([]*ResourceObject, error) {
	objects := make([]*ResourceObject, 0, len(rows))
	for _, row := range rows {
		obj, err := b.Build(row, typeName, opts, acc)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (b *Builder) buildRelationship(row *store.Row, d *resource.Descriptor, assoc resource.Association, opts BuildOptions, acc *Accumulator) (*Relationship, error) {
	target, err := b.registry.Lookup(assoc.Target)
	if err != nil {
		return nil, err
	}

	rel := &Relationship{}
	if opts.BaseURL != "" {
		rel.Links = relationshipLinks(opts.BaseURL, d.Name, FormatID(row.Get(d.PrimaryKey)), resource.RelationshipName(assoc))
	}

	switch assoc.Kind {
	case resource.HasMany:
		if !row.Loaded(assoc.Alias) {
			return rel, nil
		}
		related := row.Related(assoc.Alias)
		ids := make([]*Identifier, 0, len(related))
		for _, r := range related {
			ids = append(ids, &Identifier{Type: target.Name, ID: FormatID(r.Get(target.PrimaryKey))})
			if acc != nil {
				obj, err := b.Build(r, target.Name, opts, acc)
				if err != nil {
					return nil, err
				}
				acc.Add(obj)
			}
		}
		rel.Data = ToMany(ids)

	case resource.HasOne:
		if !row.Loaded(assoc.Alias) {
			return rel, nil
		}
		related, ok := row.RelatedOne(assoc.Alias)
		if !ok {
			rel.Data = ToOne(nil)
			return rel, nil
		}
		rel.Data = ToOne(&Identifier{Type: target.Name, ID: FormatID(related.Get(target.PrimaryKey))})
		if acc != nil {
			obj, err := b.Build(related, target.Name, opts, acc)
			if err != nil {
				return nil, err
			}
			acc.Add(obj)
		}

	case resource.BelongsTo:
		// Linkage comes from the foreign key value, never from a loaded
		// row, and the target is never accumulated into included.
		fk := row.Get(assoc.ForeignKey)
		if fk == nil {
			rel.Data = ToOne(nil)
			return rel, nil
		}
		rel.Data = ToOne(&Identifier{Type: target.Name, ID: FormatID(fk)})
	}

	return rel, nil
}

func relationshipLinks(base, typeName, id, relName string) *RelationshipLinks {
	segment := utilstrings.PluralDasherize(typeName)
	return &RelationshipLinks{
		Self:    base + "/" + segment + "/" + id + "/relationships/" + relName,
		Related: base + "/" + segment + "/" + id + "/" + relName,
	}
}
