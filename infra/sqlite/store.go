package sqlite

import (
	"affiliate/pkg/docstore"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// foldFunc is a Unicode-aware lower(). The built-in one only folds ASCII.
const foldFunc = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Errorf("register %s: %w", foldFunc, err))
	}
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Store keeps documents as JSON text in a single SQLite table and queries
// them with the JSON1 functions.
type Store struct {
	db *sqlx.DB
}

type row struct {
	ID   string `db:"id"`
	Body string `db:"body"`
}

// NewStore opens (and creates if needed) the database at dsn, e.g.
// "file:catalog.db" or "file:memdb1?mode=memory&cache=shared".
func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	id := docstore.NewID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, body) VALUES (?, ?, ?)`,
		id, collection, string(body),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%s: %w", collection, docstore.ErrDuplicateKey)
		}
		return "", err
	}

	return id, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter, limit int) ([]docstore.Document, error) {
	where, args := whereClause(collection, filter)
	query := `SELECT id, body FROM documents WHERE ` + where + ` ORDER BY rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows := make([]row, 0)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	where, args := whereClause(collection, filter)

	var r row
	err := s.db.GetContext(ctx, &r, `SELECT id, body FROM documents WHERE `+where+` ORDER BY rowid LIMIT 1`, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return decodeRow(r)
}

func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	return names, err
}

func (s *Store) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if !identPattern.MatchString(collection) || !identPattern.MatchString(field) {
		return fmt.Errorf("invalid index target %q.%q", collection, field)
	}

	query := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_%[1]s_%[2]s_key ON documents (json_extract(body, '$.%[2]s')) WHERE collection = '%[1]s'`,
		collection, field,
	)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PoolStats exposes database/sql pool statistics for monitoring.
func (s *Store) PoolStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func whereClause(collection string, filter docstore.Filter) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{collection}

	if filter.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}

	for field, value := range filter.Equals {
		conds = append(conds, "json_extract(body, ?) = ?")
		args = append(args, "$."+field, sqlValue(value))
	}

	if filter.Search != nil && filter.Search.Term != "" {
		term := strings.ToLower(filter.Search.Term)
		var ors []string
		for _, field := range filter.Search.Fields {
			// json_each over a scalar yields the scalar itself, so the same
			// clause covers string fields and string arrays.
			ors = append(ors, `EXISTS (SELECT 1 FROM json_each(documents.body, ?) AS e WHERE e.type = 'text' AND instr(` + foldFunc + `(e.value), ?) > 0)`)
			args = append(args, "$."+field, term)
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	return strings.Join(conds, " AND "), args
}

// sqlValue maps a JSON value to what json_extract returns for it.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func decodeRow(r row) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal([]byte(r.Body), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", r.ID, err)
	}
	doc[docstore.IDField] = r.ID
	return doc, nil
}
