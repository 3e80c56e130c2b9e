package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/relata/relata/internal/document"
	"github.com/relata/relata/internal/filter"
	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
)

// Broadcaster receives mutation events for the change feed
type Broadcaster interface {
	Broadcast(event string, id document.Identifier)
}

// Handler serves the JSON:API endpoints for every registered type
type Handler struct {
	registry    *resource.Registry
	store       store.Store
	builder     *document.Builder
	logger      *zap.Logger
	baseURL     string
	broadcaster Broadcaster
}

// HandlerConfig holds handler dependencies
type HandlerConfig struct {
	Registry *resource.Registry
	Store    store.Store
	Logger   *zap.Logger

	// BaseURL overrides per-request URL derivation for links when set
	BaseURL string

	// Broadcaster is optional; mutations are announced to it when present
	Broadcaster Broadcaster
}

// NewHandler creates a Handler
func NewHandler(config HandlerConfig) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:    config.Registry,
		store:       config.Store,
		builder:     document.NewBuilder(config.Registry),
		logger:      logger,
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		broadcaster: config.Broadcaster,
	}
}

// requestBaseURL resolves the base for generated links, honoring proxy
// headers when no base is configured.
func (h *Handler) requestBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	prefix := strings.TrimSuffix(r.Header.Get("X-Forwarded-Prefix"), "/")
	return scheme + "://" + r.Host + prefix
}

// buildOptions derives per-request rendering options. The options value is
// never shared between requests.
func (h *Handler) buildOptions(r *http.Request) document.BuildOptions {
	return document.BuildOptions{
		Simple:  r.URL.Query().Get("simple") == "true",
		BaseURL: h.requestBaseURL(r),
	}
}

// autoInclude lists the aliases loaded for document rendering: every
// to-many and has-one association. Belongs-to linkage needs only the
// foreign key, so its target row is never fetched here.
func autoInclude(d *resource.Descriptor) []string {
	c := resource.Classify(d)
	include := make([]string, 0, len(c.ToMany)+len(c.ToOne))
	for _, assoc := range c.ToMany {
		include = append(include, assoc.Alias)
	}
	for _, assoc := range c.ToOne {
		include = append(include, assoc.Alias)
	}
	return include
}

func (h *Handler) broadcast(event, typeName string, id string) {
	if h.broadcaster == nil {
		return
	}
	h.broadcaster.Broadcast(event, document.Identifier{Type: typeName, ID: id})
}

// List serves GET /{type}
func (h *Handler) List(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		opts := h.buildOptions(r)
		where := filter.Translate(r.URL.Query(), d)

		var include []string
		if !opts.Simple {
			include = autoInclude(d)
		}

		rows, err := h.store.FindAll(r.Context(), typeName, where, include)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		acc := &document.Accumulator{}
		objects, err := h.builder.BuildMany(rows, typeName, opts, acc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		doc := document.NewDocument(objects)
		if !opts.Simple {
			doc.Included = document.Dedupe(acc.Objects())
			doc.Links = document.Links{"self": document.ResourceURL(opts.BaseURL, typeName)}
		}
		writeDocument(w, http.StatusOK, doc)
	}
}

// GetSingle serves GET /{type}/{id}
func (h *Handler) GetSingle(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		opts := h.buildOptions(r)
		id := chi.URLParam(r, "id")

		var include []string
		if !opts.Simple {
			include = autoInclude(d)
		}

		row, err := h.store.FindByID(r.Context(), typeName, id, include)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		acc := &document.Accumulator{}
		obj, err := h.builder.Build(row, typeName, opts, acc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		doc := document.NewDocument(obj)
		if !opts.Simple {
			doc.Included = document.Dedupe(acc.Objects())
			doc.Links = document.SelfLinks(opts.BaseURL, typeName, obj.ID)
		}
		writeDocument(w, http.StatusOK, doc)
	}
}

// Create serves POST /{type}
func (h *Handler) Create(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		payload, errObj := parseResourcePayload(r.Body)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}

		attrs := normalizeAttributes(d, payload.Attributes)
		row, err := h.store.Create(r.Context(), typeName, attrs)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		opts := h.buildOptions(r)
		if !opts.Simple {
			if include := autoInclude(d); len(include) > 0 {
				id := document.FormatID(row.Get(d.PrimaryKey))
				if reloaded, err := h.store.FindByID(r.Context(), typeName, id, include); err == nil {
					row = reloaded
				}
			}
		}

		acc := &document.Accumulator{}
		obj, err := h.builder.Build(row, typeName, opts, acc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		doc := document.NewDocument(obj)
		if !opts.Simple {
			doc.Included = document.Dedupe(acc.Objects())
			doc.Links = document.SelfLinks(opts.BaseURL, typeName, obj.ID)
		}

		h.broadcast("create", typeName, obj.ID)
		w.Header().Set("Location", document.ResourceURL(opts.BaseURL, typeName, obj.ID))
		writeDocument(w, http.StatusCreated, doc)
	}
}

// Update serves PATCH /{type}/{id}
func (h *Handler) Update(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.registry.Lookup(typeName)
		if err != nil {
			writeErrors(w, document.ResourceNotFound("Unknown resource type"))
			return
		}

		payload, errObj := parseResourcePayload(r.Body)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}

		id := chi.URLParam(r, "id")
		row, err := h.store.FindByID(r.Context(), typeName, id, nil)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		attrs := normalizeAttributes(d, payload.Attributes)
		updated, err := h.store.Update(r.Context(), typeName, row, attrs)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		opts := h.buildOptions(r)
		var include []string
		if !opts.Simple {
			include = autoInclude(d)
		}
		if len(include) > 0 {
			if reloaded, err := h.store.FindByID(r.Context(), typeName, id, include); err == nil {
				updated = reloaded
			}
		}

		acc := &document.Accumulator{}
		obj, err := h.builder.Build(updated, typeName, opts, acc)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		doc := document.NewDocument(obj)
		if !opts.Simple {
			doc.Included = document.Dedupe(acc.Objects())
			doc.Links = document.SelfLinks(opts.BaseURL, typeName, obj.ID)
		}

		h.broadcast("update", typeName, obj.ID)
		writeDocument(w, http.StatusOK, doc)
	}
}

// Delete serves DELETE /{type}/{id}
func (h *Handler) Delete(typeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		row, err := h.store.FindByID(r.Context(), typeName, id, nil)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		if err := h.store.Delete(r.Context(), typeName, row); err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		h.broadcast("delete", typeName, id)
		w.WriteHeader(http.StatusNoContent)
	}
}
