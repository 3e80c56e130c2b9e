package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relata/relata/internal/document"
)

// ContentType enforces the JSON:API media type on requests that carry a
// body. A missing Content-Type is a 400; a non-JSON:API type is a 415; the
// JSON:API type with any media type parameter is also a 415, with a detail
// that distinguishes the two cases. Bodyless methods pass through.
func ContentType() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPatch, http.MethodPut:
			default:
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Content-Type")
			if header == "" {
				writeContentTypeError(w, http.StatusBadRequest, document.MissingContentType())
				return
			}

			mediaType, params := splitMediaType(header)
			if mediaType != document.MediaType {
				writeContentTypeError(w, http.StatusUnsupportedMediaType,
					document.UnsupportedMediaType("Content-Type must be "+document.MediaType))
				return
			}
			if params != "" {
				writeContentTypeError(w, http.StatusUnsupportedMediaType,
					document.UnsupportedMediaType("Media type parameters are not allowed on "+document.MediaType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// splitMediaType separates the media type from its parameters without
// rejecting malformed parameter syntax; the bare type is what matters.
func splitMediaType(header string) (mediaType, params string) {
	if i := strings.IndexByte(header, ';'); i >= 0 {
		return strings.TrimSpace(strings.ToLower(header[:i])), strings.TrimSpace(header[i+1:])
	}
	return strings.TrimSpace(strings.ToLower(header)), ""
}

func writeContentTypeError(w http.ResponseWriter, status int, errObj *document.ErrorObject) {
	raw, err := json.Marshal(document.NewErrorDocument(errObj))
	if err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(status)
	w.Write(raw)
}
