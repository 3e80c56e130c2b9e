// Package document models JSON:API documents and implements the
// transformation from row snapshots to resource objects: identity,
// attributes, relationship linkage, compound-document inclusion, and the
// error document format.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MediaType is the JSON:API media type every document is served with
const MediaType = "application/vnd.api+json"

// Version is the JSON:API version advertised in the jsonapi member
const Version = "1.0"

// Identifier is a (type, id) pair with no attributes, used for linkage.
// The id is always string-encoded regardless of the underlying column type.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// FormatID converts a primary key value to its canonical string form
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case []byte:
		return string(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case float64:
		// Integral floats (how some drivers report integer columns) must
		// not pick up a decimal point.
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", id)
	}
}

// Linkage is the data member of a relationship object: null, a single
// identifier, or an ordered list of identifiers.
type Linkage struct {
	many bool
	one  *Identifier
	list []*Identifier
}

// ToOne creates a single-identifier linkage; a nil identifier means null
func ToOne(id *Identifier) *Linkage {
	return &Linkage{one: id}
}

// ToMany creates a list linkage; it always marshals as an array, never null
func ToMany(ids []*Identifier) *Linkage {
	if ids == nil {
		ids = []*Identifier{}
	}
	return &Linkage{many: true, list: ids}
}

// IsMany reports whether the linkage is a list
func (l *Linkage) IsMany() bool { return l.many }

// One returns the single identifier (nil for null linkage)
func (l *Linkage) One() *Identifier { return l.one }

// List returns the identifier list
func (l *Linkage) List() []*Identifier { return l.list }

// MarshalJSON implements json.Marshaler
func (l *Linkage) MarshalJSON() ([]byte, error) {
	if l.many {
		return json.Marshal(l.list)
	}
	if l.one == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.one)
}

// RelationshipLinks holds the self/related link pair of a relationship
type RelationshipLinks struct {
	Self    string `json:"self,omitempty"`
	Related string `json:"related,omitempty"`
}

// Relationship is one entry of a resource object's relationships map. Data
// is omitted entirely when the linkage was not loaded; a loaded-but-empty
// to-many linkage still marshals as [].
type Relationship struct {
	Data  *Linkage
	Links *RelationshipLinks
}

// MarshalJSON implements json.Marshaler
func (r *Relationship) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Data  json.RawMessage    `json:"data,omitempty"`
		Links *RelationshipLinks `json:"links,omitempty"`
	}

	env := envelope{Links: r.Links}
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// ResourceObject is the document-level representation of one row
type ResourceObject struct {
	Type       string
	ID         string
	Attributes map[string]any

	// Relationships is nil in simple mode; in non-simple mode it is always
	// non-nil, possibly empty, and marshals as {} rather than being
	// dropped.
	Relationships map[string]*Relationship
}

// Key returns the (type, id) composite identity of the object
func (r *ResourceObject) Key() string {
	return r.Type + "\x00" + r.ID
}

// Identifier returns the object's identifier
func (r *ResourceObject) Identifier() *Identifier {
	return &Identifier{Type: r.Type, ID: r.ID}
}

// MarshalJSON implements json.Marshaler
func (r *ResourceObject) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Type          string          `json:"type"`
		ID            string          `json:"id"`
		Attributes    map[string]any  `json:"attributes"`
		Relationships json.RawMessage `json:"relationships,omitempty"`
	}

	env := envelope{
		Type:       r.Type,
		ID:         r.ID,
		Attributes: r.Attributes,
	}
	if env.Attributes == nil {
		env.Attributes = map[string]any{}
	}

	if r.Relationships != nil {
		raw, err := json.Marshal(r.Relationships)
		if err != nil {
			return nil, err
		}
		env.Relationships = raw
	}
	return json.Marshal(env)
}

// ErrorSource identifies where in the request an error originates
type ErrorSource struct {
	Pointer string `json:"pointer,omitempty"`
	Header  string `json:"header,omitempty"`
}

// ErrorObject is one entry of an error document. Status is string-encoded.
type ErrorObject struct {
	Status string       `json:"status"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// VersionInfo is the top-level jsonapi member
type VersionInfo struct {
	Version string `json:"version"`
}

// Links is a top-level or resource-level links map
type Links map[string]string

// Document is the top-level envelope. Exactly one of Data or Errors is
// emitted; Included only when non-empty.
type Document struct {
	// Data holds the primary data: *ResourceObject (possibly nil for
	// null), []*ResourceObject, *Identifier, []*Identifier, or *Linkage.
	Data any

	Errors   []*ErrorObject
	Included []*ResourceObject
	Links    Links
	JSONAPI  *VersionInfo
}

// NewDocument creates a document carrying primary data and the version marker
func NewDocument(data any) *Document {
	return &Document{
		Data:    data,
		JSONAPI: &VersionInfo{Version: Version},
	}
}

// NewErrorDocument creates an errors-only document
func NewErrorDocument(errs ...*ErrorObject) *Document {
	return &Document{Errors: errs}
}

// MarshalJSON implements json.Marshaler, enforcing the data XOR errors rule
func (d *Document) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Data     json.RawMessage   `json:"data,omitempty"`
		Errors   []*ErrorObject    `json:"errors,omitempty"`
		Included []*ResourceObject `json:"included,omitempty"`
		Links    Links             `json:"links,omitempty"`
		JSONAPI  *VersionInfo      `json:"jsonapi,omitempty"`
	}

	if len(d.Errors) > 0 {
		return json.Marshal(envelope{Errors: d.Errors})
	}

	raw, err := json.Marshal(d.Data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{
		Data:     raw,
		Included: d.Included,
		Links:    d.Links,
		JSONAPI:  d.JSONAPI,
	})
}
