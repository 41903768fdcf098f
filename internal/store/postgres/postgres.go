// Package postgres stores documents as JSONB rows in a single documents table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-transition/internal/store"
)

const (
	// DefaultMaxBatchOps bounds a single transaction.
	DefaultMaxBatchOps = 500
	defaultOpTimeout   = 30 * time.Second
)

const (
	getQuery = `SELECT id, data FROM documents WHERE collection = $1 AND id = $2`

	listQuery = `SELECT id, data FROM documents
WHERE collection = $1 AND id > $2
ORDER BY id ASC LIMIT $3`

	listByFieldQuery = `SELECT id, data FROM documents
WHERE collection = $1 AND data->>$2 = $3 AND id > $4
ORDER BY id ASC LIMIT $5`

	setQuery = `INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, $3::jsonb, NOW())
ON CONFLICT (collection, id)
DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	mergeQuery = `INSERT INTO documents (collection, id, data, updated_at)
VALUES ($1, $2, $3::jsonb, NOW())
ON CONFLICT (collection, id)
DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

type row struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// Store implements store.DocumentStore over PostgreSQL.
type Store struct {
	db          *sqlx.DB
	opTimeout   time.Duration
	maxBatchOps int
}

// Option customises the store.
type Option func(*Store)

// WithOpTimeout bounds every database call.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithMaxBatchOps overrides the per-transaction op limit.
func WithMaxBatchOps(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBatchOps = n
		}
	}
}

// New constructs the store.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, opTimeout: defaultOpTimeout, maxBatchOps: DefaultMaxBatchOps}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get fetches a document by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var r row
	if err := s.db.GetContext(ctx, &r, getQuery, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return toDocument(r)
}

// Query lists one page of documents ordered by id.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	var rows []row
	var err error
	if q.Field == "" {
		err = s.db.SelectContext(ctx, &rows, listQuery, q.Collection, q.After, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, listByFieldQuery, q.Collection, q.Field, q.Value, q.After, limit)
	}
	if err != nil {
		return nil, "", fmt.Errorf("query documents %s: %w", q.Collection, err)
	}

	docs := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := toDocument(r)
		if err != nil {
			return nil, "", err
		}
		docs = append(docs, doc)
	}
	return docs, store.NextCursor(docs, limit), nil
}

// CommitBatch applies all ops in one transaction.
func (s *Store) CommitBatch(ctx context.Context, ops []store.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > s.maxBatchOps {
		return fmt.Errorf("batch of %d ops exceeds limit of %d", len(ops), s.maxBatchOps)
	}
	if err := store.Validate(ops); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document batch tx: %w", err)
	}
	for _, op := range ops {
		payload, err := json.Marshal(nonNil(op.Data))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode document %s/%s: %w", op.Collection, op.ID, err)
		}
		query := setQuery
		if op.Kind == store.OpMerge {
			query = mergeQuery
		}
		if _, err := tx.ExecContext(ctx, query, op.Collection, op.ID, string(payload)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s document %s/%s: %w", op.Kind, op.Collection, op.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document batch tx: %w", err)
	}
	return nil
}

// MaxBatchOps reports the per-transaction op limit.
func (s *Store) MaxBatchOps() int {
	return s.maxBatchOps
}

func toDocument(r row) (store.Document, error) {
	data := map[string]interface{}{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return store.Document{}, fmt.Errorf("decode document %s: %w", r.ID, err)
		}
	}
	return store.Document{ID: r.ID, Data: data}, nil
}

func nonNil(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return data
}
