package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/relata/relata/internal/document"
)

// Recovery creates a middleware that recovers from handler panics and
// responds with an opaque error document. Panic values never reach the
// client.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
					)
					writePanicResponse(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter) {
	doc := document.NewErrorDocument(&document.ErrorObject{
		Status: fmt.Sprintf("%d", http.StatusInternalServerError),
		Title:  "Internal Server Error",
		Detail: "An unexpected error occurred",
	})

	raw, err := json.Marshal(doc)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}

	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(raw)
}
