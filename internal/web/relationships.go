package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relata/relata/internal/document"
	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
)

// GetRelationship serves GET /{type}/{id}/relationships/{relationship}
func (h *Handler) GetRelationship(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		relName := chi.URLParam(r, "relationship")
		assoc, ok := d.AssociationForRelationship(relName)
		if !ok {
			writeErrors(w, document.RelationshipNotFound("No relationship named "+relName))
			return
		}

		id := chi.URLParam(r, "id")
		linkage, err := h.loadLinkage(r, typeName, id, assoc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		base := h.requestBaseURL(r)
		doc := document.NewDocument(linkage)
		doc.Links = document.Links{
			"self":    document.RelationshipURL(base, typeName, id, relName),
			"related": document.RelatedURL(base, typeName, id, relName),
		}
		writeDocument(w, http.StatusOK, doc)
	}
}

// UpdateRelationship serves PATCH /{type}/{id}/relationships/{relationship}.
// The supplied linkage fully replaces the current one; identifiers naming
// rows that do not exist are skipped without error. Clearing and re-linking
// run as separate statements, so a concurrent reader may observe the
// intermediate state.
func (h *Handler) UpdateRelationship(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		relName := chi.URLParam(r, "relationship")
		assoc, ok := d.AssociationForRelationship(relName)
		if !ok {
			writeErrors(w, document.RelationshipNotFound("No relationship named "+relName))
			return
		}

		payload, errObj := parseLinkagePayload(r.Body)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}

		if assoc.Kind == resource.HasMany && !payload.IsMany {
			writeErrors(w, document.InvalidRequest("A to-many relationship takes a list of resource identifiers", "/data"))
			return
		}
		if assoc.Kind != resource.HasMany && payload.IsMany {
			writeErrors(w, document.InvalidRequest("A to-one relationship takes a single resource identifier or null", "/data"))
			return
		}

		id := chi.URLParam(r, "id")
		row, err := h.store.FindByID(r.Context(), typeName, id, nil)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		switch assoc.Kind {
		case resource.BelongsTo:
			var value any
			if !payload.IsNull {
				value = payload.IDs[0].ID
			}
			if _, err := h.store.Update(r.Context(), typeName, row, map[string]any{assoc.ForeignKey: value}); err != nil {
				h.writeStoreError(w, r, err)
				return
			}

		default:
			// Has-many and has-one: null the foreign key everywhere it
			// points at this row, then point the named targets back.
			parentID := row.Get(d.PrimaryKey)
			if err := h.store.ClearForeignKey(r.Context(), assoc.Target, assoc.ForeignKey, parentID); err != nil {
				h.writeStoreError(w, r, err)
				return
			}
			if !payload.IsNull {
				for _, ident := range payload.IDs {
					if err := h.store.UpdateForeignKey(r.Context(), assoc.Target, ident.ID, assoc.ForeignKey, parentID); err != nil {
						h.writeStoreError(w, r, err)
						return
					}
				}
			}
		}

		linkage, err := h.loadLinkage(r, typeName, id, assoc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		base := h.requestBaseURL(r)
		doc := document.NewDocument(linkage)
		doc.Links = document.Links{
			"self":    document.RelationshipURL(base, typeName, id, relName),
			"related": document.RelatedURL(base, typeName, id, relName),
		}

		h.broadcast("update", typeName, document.FormatID(row.Get(d.PrimaryKey)))
		writeDocument(w, http.StatusOK, doc)
	}
}

// GetRelated serves GET /{type}/{id}/{relationship}, returning full
// resource objects instead of bare identifiers.
func (h *Handler) GetRelated(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		relName := chi.URLParam(r, "relationship")
		assoc, ok := d.AssociationForRelationship(relName)
		if !ok {
			writeErrors(w, document.RelationshipNotFound("No relationship named "+relName))
			return
		}

		id := chi.URLParam(r, "id")
		row, err := h.store.FindByID(r.Context(), typeName, id, []string{assoc.Alias})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		opts := h.buildOptions(r)
		base := opts.BaseURL

		switch assoc.Kind {
		case resource.HasMany:
			related := row.Related(assoc.Alias)
			objects, err := h.builder.BuildMany(related, assoc.Target, opts, nil)
			if err != nil {
				h.writeStoreError(w, r, err)
				return
			}
			doc := document.NewDocument(objects)
			doc.Links = document.Links{"self": document.RelatedURL(base, typeName, id, relName)}
			writeDocument(w, http.StatusOK, doc)

		default:
			var target *store.Row
			if assoc.Kind == resource.BelongsTo {
				// Belongs-to targets are loaded through the foreign key
				if fk := row.Get(assoc.ForeignKey); fk != nil {
					target, err = h.store.FindByID(r.Context(), assoc.Target, document.FormatID(fk), nil)
					if err != nil && !store.IsNotFound(err) {
						h.writeStoreError(w, r, err)
						return
					}
				}
			} else if loaded, ok := row.RelatedOne(assoc.Alias); ok {
				target = loaded
			}

			obj, err := h.builder.Build(target, assoc.Target, opts, nil)
			if err != nil {
				h.writeStoreError(w, r, err)
				return
			}
			doc := document.NewDocument(obj)
			doc.Links = document.Links{"self": document.RelatedURL(base, typeName, id, relName)}
			writeDocument(w, http.StatusOK, doc)
		}
	}
}

// loadLinkage computes the current linkage of one relationship
func (h *Handler) loadLinkage(r *http.Request, typeName, id string, assoc resource.Association) (*document.Linkage, error) {
	target, err := h.registry.Lookup(assoc.Target)
	if err != nil {
		return nil, err
	}

	var include []string
	if assoc.Kind != resource.BelongsTo {
		include = []string{assoc.Alias}
	}

	row, err := h.store.FindByID(r.Context(), typeName, id, include)
	if err != nil {
		return nil, err
	}

	switch assoc.Kind {
	case resource.HasMany:
		related := row.Related(assoc.Alias)
		ids := make([]*document.Identifier, 0, len(related))
		for _, rel := range related {
			ids = append(ids, &document.Identifier{
				Type: target.Name,
				ID:   document.FormatID(rel.Get(target.PrimaryKey)),
			})
		}
		return document.ToMany(ids), nil

	case resource.HasOne:
		if rel, ok := row.RelatedOne(assoc.Alias); ok {
			return document.ToOne(&document.Identifier{
				Type: target.Name,
				ID:   document.FormatID(rel.Get(target.PrimaryKey)),
			}), nil
		}
		return document.ToOne(nil), nil

	default: // BelongsTo
		fk := row.Get(assoc.ForeignKey)
		if fk == nil {
			return document.ToOne(nil), nil
		}
		return document.ToOne(&document.Identifier{Type: target.Name, ID: document.FormatID(fk)}), nil
	}
}
