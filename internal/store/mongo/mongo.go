// Package mongo stores each collection as a MongoDB collection keyed by _id.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/sma-academic-transition/internal/store"
)

const (
	// DefaultMaxBatchOps keeps one commit well under the server's write batch size.
	DefaultMaxBatchOps = 1000
	defaultOpTimeout   = 30 * time.Second
	idField            = "_id"
)

// Store implements store.DocumentStore over a MongoDB database.
//
// Without transactions a batch is applied with one ordered BulkWrite per
// collection, so atomicity holds per collection only.
type Store struct {
	db           *mongo.Database
	opTimeout    time.Duration
	maxBatchOps  int
	transactions bool
}

// Option customises the store.
type Option func(*Store)

// WithOpTimeout bounds every driver call.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithMaxBatchOps overrides the per-commit op limit.
func WithMaxBatchOps(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBatchOps = n
		}
	}
}

// WithTransactions wraps each commit in a multi-document transaction.
// Requires a replica set or sharded deployment.
func WithTransactions(enabled bool) Option {
	return func(s *Store) {
		s.transactions = enabled
	}
}

// New constructs the store.
func New(db *mongo.Database, opts ...Option) *Store {
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

	var raw bson.Raw
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: idField, Value: id}}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return toDocument(id, raw)
}

// Query lists one page of documents ordered by _id.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	filter := bson.D{}
	if q.Field != "" {
		filter = append(filter, bson.E{Key: q.Field, Value: q.Value})
	}
	if q.After != "" {
		filter = append(filter, bson.E{Key: idField, Value: bson.D{{Key: "$gt", Value: q.After}}})
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: idField, Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, "", fmt.Errorf("query documents %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	docs := make([]store.Document, 0, limit)
	for cursor.Next(ctx) {
		id, ok := cursor.Current.Lookup(idField).StringValueOK()
		if !ok {
			return nil, "", fmt.Errorf("query documents %s: non-string _id", q.Collection)
		}
		doc, err := toDocument(id, cursor.Current)
		if err != nil {
			return nil, "", err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate documents %s: %w", q.Collection, err)
	}
	return docs, store.NextCursor(docs, limit), nil
}

// CommitBatch applies ops with one ordered bulk write per collection.
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

	order, grouped, err := groupModels(ops)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	apply := func(ctx context.Context) error {
		for _, collection := range order {
			_, err := s.db.Collection(collection).BulkWrite(ctx, grouped[collection], options.BulkWrite().SetOrdered(true))
			if err != nil {
				return fmt.Errorf("bulk write %s: %w", collection, err)
			}
		}
		return nil
	}

	if !s.transactions {
		return apply(ctx)
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, apply(sc)
	})
	return err
}

// MaxBatchOps reports the per-commit op limit.
func (s *Store) MaxBatchOps() int {
	return s.maxBatchOps
}

func groupModels(ops []store.WriteOp) ([]string, map[string][]mongo.WriteModel, error) {
	order := make([]string, 0)
	grouped := make(map[string][]mongo.WriteModel)
	for _, op := range ops {
		fields, err := store.ToFields(op.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("encode document %s/%s: %w", op.Collection, op.ID, err)
		}
		delete(fields, idField)

		filter := bson.D{{Key: idField, Value: op.ID}}
		var model mongo.WriteModel
		switch op.Kind {
		case store.OpMerge:
			if len(fields) == 0 {
				// $set rejects an empty document; create the record if missing.
				model = mongo.NewUpdateOneModel().SetFilter(filter).
					SetUpdate(bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: idField, Value: op.ID}}}}).
					SetUpsert(true)
				break
			}
			model = mongo.NewUpdateOneModel().SetFilter(filter).
				SetUpdate(bson.D{{Key: "$set", Value: fields}}).
				SetUpsert(true)
		default:
			model = mongo.NewReplaceOneModel().SetFilter(filter).
				SetReplacement(fields).
				SetUpsert(true)
		}

		if _, seen := grouped[op.Collection]; !seen {
			order = append(order, op.Collection)
		}
		grouped[op.Collection] = append(grouped[op.Collection], model)
	}
	return order, grouped, nil
}

func toDocument(id string, raw bson.Raw) (store.Document, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return store.Document{}, fmt.Errorf("encode document %s: %w", id, err)
	}
	data := map[string]interface{}{}
	if err := json.Unmarshal(ext, &data); err != nil {
		return store.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	delete(data, idField)
	return store.Document{ID: id, Data: data}, nil
}
