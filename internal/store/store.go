// Package store defines the document store the transition engine runs against.
// Adapters live in the postgres, mongo and memstore subpackages.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// Document is a stored record. Data holds JSON-compatible values only.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Decode unmarshals the document data into out.
func (d Document) Decode(out interface{}) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// OpKind selects how a write applies to an existing document.
type OpKind int

const (
	// OpSet replaces the whole document, creating it when absent.
	OpSet OpKind = iota
	// OpMerge overwrites the given top-level fields, creating the document when absent.
	OpMerge
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpMerge:
		return "merge"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// WriteOp is a single staged document write.
type WriteOp struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       map[string]interface{}
}

// Set stages a full document replacement.
func Set(collection, id string, data map[string]interface{}) WriteOp {
	return WriteOp{Kind: OpSet, Collection: collection, ID: id, Data: data}
}

// Merge stages a partial top-level update.
func Merge(collection, id string, data map[string]interface{}) WriteOp {
	return WriteOp{Kind: OpMerge, Collection: collection, ID: id, Data: data}
}

// Query selects documents of a collection, optionally by equality of a text field.
// Results are ordered by id; After is an exclusive id cursor.
type Query struct {
	Collection string
	Field      string
	Value      string
	After      string
	Limit      int
}

// DocumentStore is the storage port used by repositories.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Query returns one page and the cursor for the next page, empty when exhausted.
	Query(ctx context.Context, q Query) ([]Document, string, error)
	// CommitBatch applies ops atomically where the backend allows it.
	CommitBatch(ctx context.Context, ops []WriteOp) error
	// MaxBatchOps is the largest number of ops CommitBatch accepts.
	MaxBatchOps() int
}

// DefaultPageSize is used when a Query carries no limit.
const DefaultPageSize = 200

// Iterate streams every document matched by q page by page.
// It stops at the first error returned by fn or by the store.
func Iterate(ctx context.Context, s DocumentStore, q Query, fn func(Document) error) error {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		docs, next, err := s.Query(ctx, q)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := fn(doc); err != nil {
				return err
			}
		}
		if next == "" || len(docs) == 0 {
			return nil
		}
		q.After = next
	}
}

// NextCursor returns the cursor for a page of the given limit.
func NextCursor(docs []Document, limit int) string {
	if limit <= 0 || len(docs) < limit {
		return ""
	}
	return docs[len(docs)-1].ID
}

// ToFields converts a struct or map into JSON-compatible document fields.
func ToFields(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return fields, nil
}

// Validate rejects malformed ops before they reach a backend.
func Validate(ops []WriteOp) error {
	for i, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return fmt.Errorf("write op %d: collection and id are required", i)
		}
		if op.Kind != OpSet && op.Kind != OpMerge {
			return fmt.Errorf("write op %d: unsupported kind %s", i, op.Kind)
		}
	}
	return nil
}
