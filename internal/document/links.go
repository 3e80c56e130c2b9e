package document

import (
	utilstrings "github.com/relata/relata/internal/util/strings"
)

// ResourceURL builds the canonical URL for a collection or a single
// resource. The path segment is the pluralized, dasherized type name.
func ResourceURL(base, typeName string, id ...string) string {
	url := base + "/" + utilstrings.PluralDasherize(typeName)
	if len(id) > 0 && id[0] != "" {
		url += "/" + id[0]
	}
	return url
}

// SelfLinks builds the top-level links member pointing at a resource
func SelfLinks(base, typeName, id string) Links {
	if base == "" {
		return nil
	}
	return Links{"self": ResourceURL(base, typeName, id)}
}

// RelationshipURL builds the self URL of a relationship endpoint
func RelationshipURL(base, typeName, id, relName string) string {
	return ResourceURL(base, typeName, id) + "/relationships/" + relName
}

// RelatedURL builds the related-resource URL of a relationship
func RelatedURL(base, typeName, id, relName string) string {
	return ResourceURL(base, typeName, id) + "/" + relName
}
