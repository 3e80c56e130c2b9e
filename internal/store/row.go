// Package store provides the persistence boundary of the document engine: a
// Store interface describing what the engine consumes, and a database/sql
// implementation driven by the resource registry.
package store

// Row is a request-scoped snapshot of one database row, plus any associated
// rows that were loaded alongside it (keyed by association alias). Rows are
// never mutated after they are handed out.
type Row struct {
	columns map[string]any
	related map[string][]*Row
}

// NewRow creates a row from a column snapshot
func NewRow(columns map[string]any) *Row {
	return &Row{
		columns: columns,
		related: make(map[string][]*Row),
	}
}

// Get returns the value of a single column
func (r *Row) Get(field string) any {
	return r.columns[field]
}

// Attributes returns a copy of the full column snapshot
func (r *Row) Attributes() map[string]any {
	out := make(map[string]any, len(r.columns))
	for k, v := range r.columns {
		out[k] = v
	}
	return out
}

// Related returns the rows loaded under an association alias, in the order
// the persistence engine produced them. Nil when the alias was not loaded.
func (r *Row) Related(alias string) []*Row {
	return r.related[alias]
}

// RelatedOne returns the first row loaded under an association alias
func (r *Row) RelatedOne(alias string) (*Row, bool) {
	rows := r.related[alias]
	if len(rows) == 0 {
		return nil, false
	}
	return rows[0], true
}

// Loaded reports whether an association alias was loaded at all, which is
// distinct from it having loaded zero rows.
func (r *Row) Loaded(alias string) bool {
	_, ok := r.related[alias]
	return ok
}

// SetRelated attaches loaded association rows under an alias
func (r *Row) SetRelated(alias string, rows []*Row) {
	if rows == nil {
		rows = []*Row{}
	}
	r.related[alias] = rows
}
