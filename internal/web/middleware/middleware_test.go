package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relata/relata/internal/document"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(tag("first")).Use(tag("second"))
	rec := httptest.NewRecorder()
	chain.Then(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestChain_AppendDoesNotMutate(t *testing.T) {
	base := NewChain()
	extended := base.Append(func(next http.Handler) http.Handler { return next })

	assert.Len(t, base.middlewares, 0)
	assert.Len(t, extended.middlewares, 1)
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_HonorsInbound(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-me")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "trace-me", seen)
}

func TestRecovery_ConvertsPanicToErrorDocument(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, document.MediaType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"errors"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestContentType_MissingHeader(t *testing.T) {
	handler := ContentType()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), document.TitleMissingContentType)
}

func TestContentType_WrongMediaType(t *testing.T) {
	handler := ContentType()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), document.TitleUnsupportedMediaType)
}

func TestContentType_ParameterizedMediaType(t *testing.T) {
	handler := ContentType()(okHandler())

	req := httptest.NewRequest(http.MethodPatch, "/users/1", strings.NewReader("{}"))
	req.Header.Set("Content-Type", document.MediaType+"; charset=utf-8")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "parameters")
}

func TestContentType_ValidPasses(t *testing.T) {
	handler := ContentType()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{}"))
	req.Header.Set("Content-Type", document.MediaType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentType_BodylessMethodsSkipped(t *testing.T) {
	handler := ContentType()(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/users", nil))
		require.Equal(t, http.StatusOK, rec.Code, method)
	}
}
