package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects placeholder and JSON syntax of a SQL database
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("%w: driver %q", ErrUnsupported, driver)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) jsonField(field string) string {
	if d == DialectPostgres {
		return fmt.Sprintf("(doc::jsonb->>%s)", pq.QuoteLiteral(field))
	}
	return fmt.Sprintf("json_extract(doc, %s)", pq.QuoteLiteral("$."+field))
}

// SQLAdapter stores each collection in a table of (id, doc) rows, doc being
// the JSON encoded document
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLAdapter creates an adapter over an open database
func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// DB returns the underlying database
func (a *SQLAdapter) DB() *sql.DB {
	return a.db
}

func (a *SQLAdapter) table(collection string) string {
	return pq.QuoteIdentifier(collection)
}

// Push inserts a document
func (a *SQLAdapter) Push(ctx context.Context, collection string, doc map[string]interface{}) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (%s, %s)",
		a.table(collection), a.dialect.placeholder(1), a.dialect.placeholder(2))
	if _, err := a.db.ExecContext(ctx, query, DocumentKey(doc["id"]), string(data)); err != nil {
		return ConvertDBError(err)
	}
	return nil
}

// Override replaces a document
func (a *SQLAdapter) Override(ctx context.Context, collection string, id interface{}, doc map[string]interface{}) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET doc = %s WHERE id = %s",
		a.table(collection), a.dialect.placeholder(1), a.dialect.placeholder(2))
	result, err := a.db.ExecContext(ctx, query, string(data), DocumentKey(id))
	if err != nil {
		return ConvertDBError(err)
	}
	return requireAffected(result, collection, id)
}

// Remove deletes a document
func (a *SQLAdapter) Remove(ctx context.Context, collection string, id interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", a.table(collection), a.dialect.placeholder(1))
	result, err := a.db.ExecContext(ctx, query, DocumentKey(id))
	if err != nil {
		return ConvertDBError(err)
	}
	return requireAffected(result, collection, id)
}

func requireAffected(result sql.Result, collection string, id interface{}) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
	}
	return nil
}

// Take reads one document
func (a *SQLAdapter) Take(ctx context.Context, collection string, id interface{}) (map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", a.table(collection), a.dialect.placeholder(1))

	var data string
	if err := a.db.QueryRowContext(ctx, query, DocumentKey(id)).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
		}
		return nil, ConvertDBError(err)
	}
	return decodeDocument([]byte(data))
}

// Query reads all documents of a collection ordered by id
func (a *SQLAdapter) Query(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY id", a.table(collection))

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var docs []map[string]interface{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		doc, err := decodeDocument([]byte(data))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Includes reports whether a document exists
func (a *SQLAdapter) Includes(ctx context.Context, collection string, id interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = %s", a.table(collection), a.dialect.placeholder(1))

	var count int
	if err := a.db.QueryRowContext(ctx, query, DocumentKey(id)).Scan(&count); err != nil {
		return false, ConvertDBError(err)
	}
	return count > 0, nil
}

// CreateCollection creates the table of a collection if it does not exist
func (a *SQLAdapter) CreateCollection(ctx context.Context, name string) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)", a.table(name))
	_, err := a.db.ExecContext(ctx, query)
	return ConvertDBError(err)
}

// DropCollection drops the table of a collection
func (a *SQLAdapter) DropCollection(ctx context.Context, name string) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", a.table(name)))
	return ConvertDBError(err)
}

// RenameCollection renames the table of a collection
func (a *SQLAdapter) RenameCollection(ctx context.Context, oldName, newName string) error {
	query := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", a.table(oldName), a.table(newName))
	_, err := a.db.ExecContext(ctx, query)
	return ConvertDBError(err)
}

// AddIndex creates an expression index over document fields
func (a *SQLAdapter) AddIndex(ctx context.Context, collection string, index IndexSpec) error {
	if len(index.Fields) == 0 {
		return fmt.Errorf("index %s has no fields", index.Name)
	}

	exprs := make([]string, len(index.Fields))
	for i, field := range index.Fields {
		exprs[i] = a.dialect.jsonField(field)
	}

	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}
	query := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, pq.QuoteIdentifier(index.Name), a.table(collection), strings.Join(exprs, ", "))
	if index.Sparse {
		conds := make([]string, len(exprs))
		for i, expr := range exprs {
			conds[i] = expr + " IS NOT NULL"
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	_, err := a.db.ExecContext(ctx, query)
	return ConvertDBError(err)
}

// RemoveIndex drops an index
func (a *SQLAdapter) RemoveIndex(ctx context.Context, collection, name string) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP INDEX IF EXISTS %s", pq.QuoteIdentifier(name)))
	return ConvertDBError(err)
}

// RenameIndex renames an index. SQLite cannot rename indexes.
func (a *SQLAdapter) RenameIndex(ctx context.Context, collection, oldName, newName string) error {
	if a.dialect != DialectPostgres {
		return fmt.Errorf("%w: rename index on sqlite", ErrUnsupported)
	}
	query := fmt.Sprintf("ALTER INDEX %s RENAME TO %s", pq.QuoteIdentifier(oldName), pq.QuoteIdentifier(newName))
	_, err := a.db.ExecContext(ctx, query)
	return ConvertDBError(err)
}
