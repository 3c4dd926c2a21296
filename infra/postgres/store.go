package postgres

import (
	"affiliate/pkg/docstore"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

const uniqueViolation = "23505"

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// PgStore keeps every collection in one JSONB table.
type PgStore struct {
	db *sqlx.DB
}

type row struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// Connection pool configuration
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PgStore{db: db}, nil
}

func (r *PgStore) Close() error {
	return r.db.Close()
}

// PoolStats returns current connection pool statistics
func (r *PgStore) PoolStats() sql.DBStats {
	return r.db.Stats()
}

func (r *PgStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PgStore) Insert(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	id := docstore.NewID()
	query := `INSERT INTO documents (id, collection, body) VALUES ($1, $2, $3::jsonb)`

	if _, err := r.db.ExecContext(ctx, query, id, collection, string(body)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("%s (%s): %w", collection, pqErr.Constraint, docstore.ErrDuplicateKey)
		}
		return "", err
	}

	return id, nil
}

func (r *PgStore) Find(ctx context.Context, collection string, filter docstore.Filter, limit int) ([]docstore.Document, error) {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, body FROM documents WHERE ` + where + ` ORDER BY seq`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows := make([]row, 0)
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, rw := range rows {
		doc, err := decodeRow(rw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (r *PgStore) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return nil, err
	}

	var rw row
	query := `SELECT id, body FROM documents WHERE ` + where + ` ORDER BY seq LIMIT 1`
	if err := r.db.GetContext(ctx, &rw, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return decodeRow(rw)
}

func (r *PgStore) CollectionNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := r.db.SelectContext(ctx, &names, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	return names, err
}

func (r *PgStore) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if !identPattern.MatchString(collection) || !identPattern.MatchString(field) {
		return fmt.Errorf("invalid index target %q.%q", collection, field)
	}

	query := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_%[1]s_%[2]s_key ON documents ((body->>'%[2]s')) WHERE collection = '%[1]s'`,
		collection, field,
	)
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// whereClause builds the WHERE body with "?" placeholders; callers Rebind.
func whereClause(collection string, filter docstore.Filter) (string, []any, error) {
	conds := []string{"collection = ?"}
	args := []any{collection}

	if filter.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}

	for field, value := range filter.Equals {
		raw, err := json.Marshal(value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", field, err)
		}
		conds = append(conds, "body -> ?::text = ?::jsonb")
		args = append(args, field, string(raw))
	}

	if filter.Search != nil && filter.Search.Term != "" {
		term := strings.ToLower(filter.Search.Term)
		var ors []string
		for _, field := range filter.Search.Fields {
			// Scalars are wrapped in an array so strings and string arrays
			// share one clause.
			ors = append(ors, `EXISTS (SELECT 1 FROM jsonb_array_elements_text(`+
				`CASE jsonb_typeof(body -> ?::text) WHEN 'array' THEN body -> ?::text ELSE jsonb_build_array(body -> ?::text) END`+
				`) AS e(v) WHERE strpos(lower(e.v), ?) > 0)`)
			args = append(args, field, field, field, term)
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	return strings.Join(conds, " AND "), args, nil
}

func decodeRow(rw row) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(rw.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", rw.ID, err)
	}
	doc[docstore.IDField] = rw.ID
	return doc, nil
}
