package web

import (
	"encoding/json"
	"io"

	"github.com/relata/relata/internal/document"
	"github.com/relata/relata/internal/resource"
)

// resourcePayload is the decoded body of a create or update request
type resourcePayload struct {
	Type       string
	Attributes map[string]any
}

// parseResourcePayload decodes and validates a {data: {...}} body. The
// returned error object, when non-nil, is ready to send.
func parseResourcePayload(body io.Reader) (*resourcePayload, *document.ErrorObject) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, document.InvalidRequest("Request body is not valid JSON", "")
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, document.InvalidRequest("Request body must contain a data member", "/data")
	}

	var data struct {
		Type       string          `json:"type"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, document.InvalidRequest("The data member must be a resource object", "/data")
	}
	if len(data.Attributes) == 0 || string(data.Attributes) == "null" {
		return nil, document.InvalidRequest("The data member must contain attributes", "/data/attributes")
	}

	var attrs map[string]any
	if err := json.Unmarshal(data.Attributes, &attrs); err != nil {
		return nil, document.InvalidRequest("The attributes member must be an object", "/data/attributes")
	}
	if len(attrs) == 0 {
		return nil, document.InvalidRequest("The attributes member must not be empty", "/data/attributes")
	}

	return &resourcePayload{Type: data.Type, Attributes: attrs}, nil
}

// linkagePayload is the decoded body of a relationship update request
type linkagePayload struct {
	IsNull bool
	IsMany bool
	IDs    []*document.Identifier
}

// parseLinkagePayload decodes a relationship update body: data may be
// null, a single identifier, or a list of identifiers.
func parseLinkagePayload(body io.Reader) (*linkagePayload, *document.ErrorObject) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, document.InvalidRequest("Request body is not valid JSON", "")
	}
	if len(envelope.Data) == 0 {
		return nil, document.InvalidRequest("Request body must contain a data member", "/data")
	}
	if string(envelope.Data) == "null" {
		return &linkagePayload{IsNull: true}, nil
	}

	if envelope.Data[0] == '[' {
		var list []*document.Identifier
		if err := json.Unmarshal(envelope.Data, &list); err != nil {
			return nil, document.InvalidRequest("Linkage must be a list of resource identifiers", "/data")
		}
		for _, id := range list {
			if id == nil || id.Type == "" || id.ID == "" {
				return nil, document.InvalidRequest("Resource identifiers must have type and id", "/data")
			}
		}
		if list == nil {
			list = []*document.Identifier{}
		}
		return &linkagePayload{IsMany: true, IDs: list}, nil
	}

	var one document.Identifier
	if err := json.Unmarshal(envelope.Data, &one); err != nil {
		return nil, document.InvalidRequest("Linkage must be a resource identifier", "/data")
	}
	if one.Type == "" || one.ID == "" {
		return nil, document.InvalidRequest("Resource identifiers must have type and id", "/data")
	}
	return &linkagePayload{IDs: []*document.Identifier{&one}}, nil
}

// normalizeAttributes coerces empty strings to null for integer columns,
// which HTML form frontends routinely send for cleared numeric inputs.
func normalizeAttributes(d *resource.Descriptor, attrs map[string]any) map[string]any {
	for field, value := range attrs {
		colType, declared := d.Column(field)
		if !declared {
			continue
		}
		if colType == resource.ColumnInteger && value == "" {
			attrs[field] = nil
		}
	}
	return attrs
}
