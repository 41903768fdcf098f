package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// DefaultBatchThreshold is the number of staged ops that triggers a commit.
const DefaultBatchThreshold = 400

// ErrGroupTooLarge is returned when a write group cannot fit in a single batch.
var ErrGroupTooLarge = errors.New("write group exceeds batch threshold")

// BatchCommitter is the part of the document store the writer needs.
type BatchCommitter interface {
	CommitBatch(ctx context.Context, ops []store.WriteOp) error
	MaxBatchOps() int
}

// BatchWriterOption customises a BatchWriter.
type BatchWriterOption func(*BatchWriter)

// WithBatchLogger attaches a logger for commit events.
func WithBatchLogger(logger *zap.Logger) BatchWriterOption {
	return func(w *BatchWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithCommitObserver is called after every successful commit with its size and duration.
func WithCommitObserver(fn func(ops int, took time.Duration)) BatchWriterOption {
	return func(w *BatchWriter) {
		w.observe = fn
	}
}

// BatchWriter accumulates document writes and commits them in bounded batches.
// A BatchWriter is not safe for concurrent use.
type BatchWriter struct {
	committer BatchCommitter
	threshold int
	pending   []store.WriteOp
	batches   int
	ops       int
	logger    *zap.Logger
	observe   func(ops int, took time.Duration)
}

// NewBatchWriter builds a writer committing at most threshold ops at a time.
// The threshold is lowered to the store's own limit when that is smaller.
func NewBatchWriter(committer BatchCommitter, threshold int, opts ...BatchWriterOption) *BatchWriter {
	if threshold <= 0 {
		threshold = DefaultBatchThreshold
	}
	if limit := committer.MaxBatchOps(); limit > 0 && limit < threshold {
		threshold = limit
	}
	w := &BatchWriter{
		committer: committer,
		threshold: threshold,
		pending:   make([]store.WriteOp, 0, threshold),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Stage adds a single op.
func (w *BatchWriter) Stage(ctx context.Context, op store.WriteOp) error {
	return w.StageGroup(ctx, op)
}

// StageGroup adds ops that must land in the same commit. When the group does not
// fit in the current batch, the batch is committed first.
func (w *BatchWriter) StageGroup(ctx context.Context, ops ...store.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > w.threshold {
		return fmt.Errorf("%w: %d ops, threshold %d", ErrGroupTooLarge, len(ops), w.threshold)
	}
	if len(w.pending)+len(ops) > w.threshold {
		if err := w.commit(ctx); err != nil {
			return err
		}
	}
	w.pending = append(w.pending, ops...)
	return w.FlushIfFull(ctx)
}

// FlushIfFull commits the batch once it has reached the threshold.
func (w *BatchWriter) FlushIfFull(ctx context.Context) error {
	if len(w.pending) < w.threshold {
		return nil
	}
	return w.commit(ctx)
}

// FlushAll commits whatever is staged. An empty batch is not committed.
func (w *BatchWriter) FlushAll(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	return w.commit(ctx)
}

// Threshold returns the effective batch size.
func (w *BatchWriter) Threshold() int {
	return w.threshold
}

// Pending returns the number of staged, uncommitted ops.
func (w *BatchWriter) Pending() int {
	return len(w.pending)
}

// Batches returns the number of successful commits.
func (w *BatchWriter) Batches() int {
	return w.batches
}

// Operations returns the number of committed ops.
func (w *BatchWriter) Operations() int {
	return w.ops
}

func (w *BatchWriter) commit(ctx context.Context) error {
	size := len(w.pending)
	start := time.Now()
	if err := w.committer.CommitBatch(ctx, w.pending); err != nil {
		return fmt.Errorf("commit batch %d (%d ops): %w", w.batches+1, size, err)
	}
	took := time.Since(start)

	w.batches++
	w.ops += size
	w.pending = make([]store.WriteOp, 0, w.threshold)

	w.logger.Debug("batch committed",
		zap.Int("batch", w.batches),
		zap.Int("ops", size),
		zap.Duration("took", took),
	)
	if w.observe != nil {
		w.observe(size, took)
	}
	return nil
}
