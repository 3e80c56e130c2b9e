package document

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Fixed error titles; clients match on these
const (
	TitleInvalidRequest       = "Invalid Request"
	TitleMissingContentType   = "Missing Content-Type"
	TitleUnsupportedMediaType = "Unsupported Media Type"
	TitleResourceNotFound     = "Resource Not Found"
	TitleRelationshipNotFound = "Relationship Not Found"
	TitleValidationError      = "Validation Error"
	TitleDatabaseError        = "Database Error"
)

func status(code int) string {
	return strconv.Itoa(code)
}

// InvalidRequest builds a 400 for a structurally malformed request body.
// pointer may be empty when no single body location is at fault.
func InvalidRequest(detail, pointer string) *ErrorObject {
	e := &ErrorObject{
		Status: status(http.StatusBadRequest),
		Title:  TitleInvalidRequest,
		Detail: detail,
	}
	if pointer != "" {
		e.Source = &ErrorSource{Pointer: pointer}
	}
	return e
}

// MissingContentType builds a 400 for a body request with no Content-Type
func MissingContentType() *ErrorObject {
	return &ErrorObject{
		Status: status(http.StatusBadRequest),
		Title:  TitleMissingContentType,
		Detail: "All requests with a body must include a Content-Type header",
		Source: &ErrorSource{Header: "Content-Type"},
	}
}

// UnsupportedMediaType builds a 415; detail distinguishes a wrong media
// type from a parameterized JSON:API one.
func UnsupportedMediaType(detail string) *ErrorObject {
	return &ErrorObject{
		Status: status(http.StatusUnsupportedMediaType),
		Title:  TitleUnsupportedMediaType,
		Detail: detail,
		Source: &ErrorSource{Header: "Content-Type"},
	}
}

// ResourceNotFound builds a 404 for a missing resource or unknown type
func ResourceNotFound(detail string) *ErrorObject {
	return &ErrorObject{
		Status: status(http.StatusNotFound),
		Title:  TitleResourceNotFound,
		Detail: detail,
	}
}

// RelationshipNotFound builds a 404 for a relationship name the resource
// does not declare.
func RelationshipNotFound(detail string) *ErrorObject {
	return &ErrorObject{
		Status: status(http.StatusNotFound),
		Title:  TitleRelationshipNotFound,
		Detail: detail,
	}
}

// ValidationErrorObjects expands per-field constraint messages into one
// error object per message, each pointing into the request's attributes.
// Fields are emitted in sorted order so documents are deterministic.
func ValidationErrorObjects(fields map[string][]string) []*ErrorObject {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []*ErrorObject
	for _, name := range names {
		for _, msg := range fields[name] {
			errs = append(errs, &ErrorObject{
				Status: status(http.StatusUnprocessableEntity),
				Title:  TitleValidationError,
				Detail: msg,
				Source: &ErrorSource{Pointer: "/data/attributes/" + escapePointer(name)},
			})
		}
	}
	return errs
}

// DatabaseError builds an opaque 500; driver details never reach clients
func DatabaseError() *ErrorObject {
	return &ErrorObject{
		Status: status(http.StatusInternalServerError),
		Title:  TitleDatabaseError,
		Detail: "An unexpected database error occurred",
	}
}

// escapePointer applies RFC 6901 escaping to one pointer token
func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
