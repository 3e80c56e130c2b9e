// Package web exposes the registered resource types over HTTP as a
// JSON:API interface: collection and single-resource endpoints,
// relationship endpoints, and related-resource endpoints.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/relata/relata/internal/document"
	"github.com/relata/relata/internal/store"
)

// writeDocument serializes a document with the JSON:API media type
func writeDocument(w http.ResponseWriter, status int, doc *document.Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(status)
	w.Write(raw)
}

// writeErrors emits an error document; the HTTP status comes from the
// first error object.
func writeErrors(w http.ResponseWriter, errs ...*document.ErrorObject) {
	status := http.StatusInternalServerError
	if len(errs) > 0 {
		if code, err := strconv.Atoi(errs[0].Status); err == nil {
			status = code
		}
	}
	writeDocument(w, status, document.NewErrorDocument(errs...))
}

// writeStoreError maps storage failures onto the error taxonomy. Raw
// driver errors are logged but never surfaced.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *store.ValidationErrors
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrors(w, document.ResourceNotFound("The requested resource does not exist"))
	case errors.As(err, &ve):
		writeErrors(w, document.ValidationErrorObjects(ve.Fields)...)
	default:
		h.logger.Error("store error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrors(w, document.DatabaseError())
	}
}
