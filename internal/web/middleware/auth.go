package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relata/relata/internal/document"
)

const (
	// SubjectKey is the context key for the authenticated token subject
	SubjectKey ContextKey = "auth_subject"
)

// RequireAuth creates a middleware that demands a valid HS256 bearer token
// on write methods. Reads stay open.
func RequireAuth(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, "Missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !parsed.Valid {
				writeAuthError(w, "Invalid bearer token")
				return
			}

			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				r = r.WithContext(withSubject(r.Context(), sub))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject extracts the authenticated token subject from the context
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(SubjectKey).(string); ok {
		return subject
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, detail string) {
	doc := document.NewErrorDocument(&document.ErrorObject{
		Status: strconv.Itoa(http.StatusUnauthorized),
		Title:  "Unauthorized",
		Detail: detail,
		Source: &document.ErrorSource{Header: "Authorization"},
	})

	raw, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", document.MediaType)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write(raw)
}
