package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/relata/relata/internal/resource"
	utilstrings "github.com/relata/relata/internal/util/strings"
)

// SQLStore implements Store over database/sql, driven by the resource
// registry. Table names are the pluralized snake_case of the type name;
// column names are the declared field names, quoted verbatim.
type SQLStore struct {
	db       *sql.DB
	registry *resource.Registry
	dialect  Dialect
}

// NewSQLStore creates a SQLStore for the given connection and registry
func NewSQLStore(db *sql.DB, registry *resource.Registry, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:       db,
		registry: registry,
		dialect:  dialect,
	}
}

// FindByID fetches one row by primary key
func (s *SQLStore) FindByID(ctx context.Context, typeName, id string, include []string) (*Row, error) {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	where := &WhereClause{}
	where.Add(d.PrimaryKey, OpEq, id)

	rows, err := s.selectRows(ctx, d, where)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	row := rows[0]
	if err := s.loadIncludes(ctx, row, d, include); err != nil {
		return nil, err
	}
	return row, nil
}

// FindAll fetches every row matching the where clause
func (s *SQLStore) FindAll(ctx context.Context, typeName string, where *WhereClause, include []string) ([]*Row, error) {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	rows, err := s.selectRows(ctx, d, where)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if err := s.loadIncludes(ctx, row, d, include); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Create inserts a row from an attribute map
func (s *SQLStore) Create(ctx context.Context, typeName string, attrs map[string]any) (*Row, error) {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(attrs))
	for field := range attrs {
		if _, declared := d.Columns[field]; declared && field != d.PrimaryKey {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to insert for %s", typeName)
	}

	quoted := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	values := make([]any, len(fields))
	for i, field := range fields {
		quoted[i] = s.dialect.QuoteIdent(field)
		placeholders[i] = s.dialect.Placeholder(i + 1)
		values[i] = attrs[field]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		s.tableFor(d),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	inserted, err := scanRows(rows)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("insert returned no row")
	}
	return inserted[0], nil
}

// Update applies an attribute map to an existing row
func (s *SQLStore) Update(ctx context.Context, typeName string, row *Row, attrs map[string]any) (*Row, error) {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(attrs))
	for field := range attrs {
		if _, declared := d.Columns[field]; declared && field != d.PrimaryKey {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	if len(fields) == 0 {
		// Nothing to change; return the current snapshot
		return row, nil
	}

	assignments := make([]string, len(fields))
	values := make([]any, 0, len(fields)+1)
	counter := 1
	for i, field := range fields {
		assignments[i] = fmt.Sprintf("%s = %s", s.dialect.QuoteIdent(field), s.dialect.Placeholder(counter))
		values = append(values, attrs[field])
		counter++
	}
	values = append(values, row.Get(d.PrimaryKey))

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = %s RETURNING *",
		s.tableFor(d),
		strings.Join(assignments, ", "),
		s.dialect.QuoteIdent(d.PrimaryKey),
		s.dialect.Placeholder(counter),
	)

	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	updated, err := scanRows(rows)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	if len(updated) == 0 {
		return nil, ErrNotFound
	}
	return updated[0], nil
}

// Delete removes a row
func (s *SQLStore) Delete(ctx context.Context, typeName string, row *Row) error {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = %s",
		s.tableFor(d),
		s.dialect.QuoteIdent(d.PrimaryKey),
		s.dialect.Placeholder(1),
	)

	if _, err := s.db.ExecContext(ctx, query, row.Get(d.PrimaryKey)); err != nil {
		return ConvertDBError(err)
	}
	return nil
}

// UpdateForeignKey sets a foreign key column on one row by primary key
func (s *SQLStore) UpdateForeignKey(ctx context.Context, typeName, id, fkField string, value any) error {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s WHERE %s = %s",
		s.tableFor(d),
		s.dialect.QuoteIdent(fkField),
		s.dialect.Placeholder(1),
		s.dialect.QuoteIdent(d.PrimaryKey),
		s.dialect.Placeholder(2),
	)

	// Zero rows affected means the id does not exist; callers treat that
	// as a silent skip, not an error.
	if _, err := s.db.ExecContext(ctx, query, value, id); err != nil {
		return ConvertDBError(err)
	}
	return nil
}

// ClearForeignKey nulls a foreign key column on every row holding parentID
func (s *SQLStore) ClearForeignKey(ctx context.Context, typeName, fkField string, parentID any) error {
	d, err := s.registry.Lookup(typeName)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = NULL WHERE %s = %s",
		s.tableFor(d),
		s.dialect.QuoteIdent(fkField),
		s.dialect.QuoteIdent(fkField),
		s.dialect.Placeholder(1),
	)

	if _, err := s.db.ExecContext(ctx, query, parentID); err != nil {
		return ConvertDBError(err)
	}
	return nil
}

// selectRows runs SELECT * against the descriptor's table
func (s *SQLStore) selectRows(ctx context.Context, d *resource.Descriptor, where *WhereClause) ([]*Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s", s.tableFor(d))

	var args []any
	if !where.Empty() {
		counter := 1
		fragment, err := where.ToSQL(s.dialect, &counter, &args)
		if err != nil {
			return nil, err
		}
		query += " WHERE " + fragment
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// loadIncludes loads the requested association aliases onto a row
func (s *SQLStore) loadIncludes(ctx context.Context, row *Row, d *resource.Descriptor, include []string) error {
	for _, alias := range include {
		var assoc resource.Association
		found := false
		for _, a := range d.Associations {
			if a.Alias == alias {
				assoc = a
				found = true
				break
			}
		}
		if !found {
			continue
		}

		target, err := s.registry.Lookup(assoc.Target)
		if err != nil {
			return err
		}

		switch assoc.Kind {
		case resource.HasMany:
			where := &WhereClause{}
			where.Add(assoc.ForeignKey, OpEq, row.Get(d.PrimaryKey))
			related, err := s.selectRows(ctx, target, where)
			if err != nil {
				return err
			}
			row.SetRelated(alias, related)

		case resource.HasOne:
			where := &WhereClause{}
			where.Add(assoc.ForeignKey, OpEq, row.Get(d.PrimaryKey))
			related, err := s.selectRows(ctx, target, where)
			if err != nil {
				return err
			}
			if len(related) > 1 {
				related = related[:1]
			}
			row.SetRelated(alias, related)

		case resource.BelongsTo:
			fk := row.Get(assoc.ForeignKey)
			if fk == nil {
				// Null foreign key: nothing to load, alias stays unloaded
				continue
			}
			where := &WhereClause{}
			where.Add(target.PrimaryKey, OpEq, fk)
			related, err := s.selectRows(ctx, target, where)
			if err != nil {
				return err
			}
			row.SetRelated(alias, related)
		}
	}
	return nil
}

func (s *SQLStore) tableFor(d *resource.Descriptor) string {
	return s.dialect.QuoteIdent(utilstrings.PluralSnake(d.Name))
}

// scanRows scans every SQL row into a snapshot, converting []byte column
// values to strings.
func scanRows(rows *sql.Rows) ([]*Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []*Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}

		results = append(results, NewRow(record))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
