package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relata/relata/internal/document"
	utilstrings "github.com/relata/relata/internal/util/strings"
)

// NewRouter mounts the JSON:API routes for every registered type. Each
// type lives under its pluralized, dasherized path segment.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	for _, typeName := range h.registry.Names() {
		segment := utilstrings.PluralDasherize(typeName)
		name := typeName

		r.Route("/"+segment, func(r chi.Router) {
			r.Get("/", h.List(name))
			r.Post("/", h.Create(name))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSingle(name))
				r.Patch("/", h.Update(name))
				r.Delete("/", h.Delete(name))

				r.Get("/relationships/{relationship}", h.GetRelationship(name))
				r.Patch("/relationships/{relationship}", h.UpdateRelationship(name))

				r.Get("/{relationship}", h.GetRelated(name))
			})
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrors(w, document.ResourceNotFound("The requested path does not exist"))
	})

	return r
}
