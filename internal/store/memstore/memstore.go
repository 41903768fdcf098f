// Package memstore is an in-process document store used by tests and dry runs.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// DefaultMaxBatchOps mirrors the Postgres adapter limit.
const DefaultMaxBatchOps = 500

// Store keeps collections in memory. Stored data is JSON-normalised so reads
// look exactly like they would from a real backend.
type Store struct {
	mu          sync.RWMutex
	maxBatchOps int
	collections map[string]map[string]map[string]interface{}
	commits     [][]store.WriteOp
	queries     int
	commitHook  func(ops []store.WriteOp) error
	getHook     func(collection, id string) error
}

// New creates an empty store. A non-positive limit selects DefaultMaxBatchOps.
func New(maxBatchOps int) *Store {
	if maxBatchOps <= 0 {
		maxBatchOps = DefaultMaxBatchOps
	}
	return &Store{
		maxBatchOps: maxBatchOps,
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

// OnCommit installs a hook run before every commit; a returned error aborts it.
func (s *Store) OnCommit(hook func(ops []store.WriteOp) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

// OnGet installs a hook run before every Get; a returned error is surfaced.
func (s *Store) OnGet(hook func(collection, id string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getHook = hook
}

// Put seeds a document outside of any batch.
func (s *Store) Put(collection, id string, data map[string]interface{}) error {
	fields, err := store.ToFields(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = fields
	return nil
}

// Get implements store.DocumentStore.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	s.mu.RLock()
	hook := s.getHook
	data, ok := s.collections[collection][id]
	s.mu.RUnlock()

	if hook != nil {
		if err := hook(collection, id); err != nil {
			return store.Document{}, err
		}
	}
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	copied, err := store.ToFields(data)
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{ID: id, Data: copied}, nil
}

// Query implements store.DocumentStore.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	coll := s.collections[q.Collection]
	ids := make([]string, 0, len(coll))
	for id, data := range coll {
		if q.After != "" && id <= q.After {
			continue
		}
		if q.Field != "" && !matches(data[q.Field], q.Value) {
			continue
		}
		ids = append(ids, id)
	}

	sort.Strings(ids)
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		copied, err := store.ToFields(coll[id])
		if err != nil {
			return nil, "", err
		}
		docs = append(docs, store.Document{ID: id, Data: copied})
	}
	return docs, store.NextCursor(docs, q.Limit), nil
}

// CommitBatch implements store.DocumentStore. All ops apply or none do.
func (s *Store) CommitBatch(ctx context.Context, ops []store.WriteOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > s.maxBatchOps {
		return fmt.Errorf("batch of %d ops exceeds limit of %d", len(ops), s.maxBatchOps)
	}
	if err := store.Validate(ops); err != nil {
		return err
	}

	normalized := make([]map[string]interface{}, len(ops))
	for i, op := range ops {
		fields, err := store.ToFields(op.Data)
		if err != nil {
			return err
		}
		normalized[i] = fields
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitHook != nil {
		if err := s.commitHook(ops); err != nil {
			return err
		}
	}
	for i, op := range ops {
		coll := s.collection(op.Collection)
		existing, ok := coll[op.ID]
		if op.Kind == store.OpSet || !ok {
			coll[op.ID] = normalized[i]
			continue
		}
		for k, v := range normalized[i] {
			existing[k] = v
		}
	}
	recorded := make([]store.WriteOp, len(ops))
	copy(recorded, ops)
	s.commits = append(s.commits, recorded)
	return nil
}

// MaxBatchOps implements store.DocumentStore.
func (s *Store) MaxBatchOps() int {
	return s.maxBatchOps
}

// Commits returns every committed batch in order.
func (s *Store) Commits() [][]store.WriteOp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]store.WriteOp, len(s.commits))
	copy(out, s.commits)
	return out
}

// QueryCount reports how many Query calls were served.
func (s *Store) QueryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) collection(name string) map[string]map[string]interface{} {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]map[string]interface{})
		s.collections[name] = coll
	}
	return coll
}

func matches(stored interface{}, want string) bool {
	switch v := stored.(type) {
	case nil:
		return false
	case string:
		return v == want
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return false
		}
		return string(raw) == want
	}
}
