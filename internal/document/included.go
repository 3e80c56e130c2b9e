package document

// Dedupe collapses accumulated resource objects by (type, id), keeping the
// first occurrence of each and preserving encounter order. An empty input
// yields nil so the included member is omitted from the document.
func Dedupe(objects []*ResourceObject) []*ResourceObject {
	if len(objects) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(objects))
	out := make([]*ResourceObject, 0, len(objects))
	for _, obj := range objects {
		if obj == nil {
			continue
		}
		key := obj.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, obj)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
