// Package filter translates query-string filter parameters into store
// where clauses.
package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
)

// operators maps filter operator keys to their store condition operators
var operators = map[string]store.Op{
	"gt":   store.OpGt,
	"gte":  store.OpGte,
	"lt":   store.OpLt,
	"lte":  store.OpLte,
	"ne":   store.OpNe,
	"like": store.OpLike,
	"in":   store.OpIn,
}

// Translate converts filter[...] query parameters into a where clause for
// the described type.
//
// filter[field]=v is literal equality. filter[id]=a,b,c on the primary key
// splits into membership. filter[field][op]=v applies a comparison
// operator; an operator key that is not recognized falls back to literal
// equality on the raw value. Values for date-typed fields are parsed as
// Unix epoch milliseconds; unparseable values pass through unchanged.
// Unknown fields are ignored, and translation never fails.
func Translate(values url.Values, d *resource.Descriptor) *store.WhereClause {
	where := &store.WhereClause{}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[0]

		field, op, ok := parseKey(key)
		if !ok {
			continue
		}

		colType, declared := d.Column(field)
		if !declared {
			continue
		}

		if op == "" {
			if field == d.PrimaryKey && strings.Contains(raw, ",") {
				where.Add(field, store.OpIn, splitList(raw))
				continue
			}
			where.Add(field, store.OpEq, convert(raw, colType))
			continue
		}

		storeOp, known := operators[op]
		if !known {
			// Unrecognized operator keys degrade to equality on the raw
			// value rather than erroring.
			where.Add(field, store.OpEq, raw)
			continue
		}

		if storeOp == store.OpIn {
			parts := splitList(raw)
			converted := make([]any, len(parts))
			for i, p := range parts {
				converted[i] = convert(p.(string), colType)
			}
			where.Add(field, store.OpIn, converted)
			continue
		}

		where.Add(field, storeOp, convert(raw, colType))
	}

	return where
}

// parseKey recognizes filter[field] and filter[field][op] keys
func parseKey(key string) (field, op string, ok bool) {
	if !strings.HasPrefix(key, "filter[") {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, "filter[")

	end := strings.IndexByte(rest, ']')
	if end <= 0 {
		return "", "", false
	}
	field = rest[:end]
	rest = rest[end+1:]

	if rest == "" {
		return field, "", true
	}
	if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
		op = rest[1 : len(rest)-1]
		if op != "" {
			return field, op, true
		}
	}
	return "", "", false
}

func splitList(raw string) []any {
	parts := strings.Split(raw, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

// convert interprets the raw string for the column type. Date fields are
// epoch milliseconds; anything that doesn't parse is passed through so the
// database reports the mismatch, not us.
func convert(raw string, colType resource.ColumnType) any {
	if colType != resource.ColumnDate {
		return raw
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return raw
	}
	return time.UnixMilli(ms).UTC()
}
