package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-transition/internal/store"
)

func newStoreMock(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return New(sqlxDB, opts...), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestStoreGet(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "data"}).
		AddRow("S-1_2024", []byte(`{"totalFee":"15000","totalPaid":5000}`))
	mock.ExpectQuery("SELECT id, data FROM documents WHERE collection = \\$1 AND id = \\$2").
		WithArgs("fee_ledgers", "S-1_2024").
		WillReturnRows(rows)

	doc, err := s.Get(context.Background(), "fee_ledgers", "S-1_2024")
	require.NoError(t, err)
	assert.Equal(t, "S-1_2024", doc.ID)
	assert.Equal(t, "15000", doc.Data["totalFee"])
	assert.Equal(t, 5000.0, doc.Data["totalPaid"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetNotFound(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, data FROM documents").
		WithArgs("students", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}))

	_, err := s.Get(context.Background(), "students", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreQueryByFieldPaginates(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "data"}).
		AddRow("2024_class-1", []byte(`{"yearId":"2024","classId":"class-1"}`)).
		AddRow("2024_class-2", []byte(`{"yearId":"2024","classId":"class-2"}`))
	mock.ExpectQuery("data->>\\$2 = \\$3 AND id > \\$4").
		WithArgs("teaching_assignments", "yearId", "2024", "", 2).
		WillReturnRows(rows)

	docs, next, err := s.Query(context.Background(), store.Query{
		Collection: "teaching_assignments", Field: "yearId", Value: "2024", Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2024_class-2", next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreQueryAllUsesDefaultLimit(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("WHERE collection = \\$1 AND id > \\$2").
		WithArgs("students", "S-100", store.DefaultPageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("S-101", []byte(`{}`)))

	docs, next, err := s.Query(context.Background(), store.Query{Collection: "students", After: "S-100"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Empty(t, next)
}

func TestStoreCommitBatch(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DO UPDATE SET data = EXCLUDED.data").
		WithArgs("fee_ledgers", "S-1_2025", `{"totalFee":0}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DO UPDATE SET data = documents.data \\|\\| EXCLUDED.data").
		WithArgs("students", "S-1", `{"academicYear":"2025"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.CommitBatch(context.Background(), []store.WriteOp{
		store.Set("fee_ledgers", "S-1_2025", map[string]interface{}{"totalFee": 0}),
		store.Merge("students", "S-1", map[string]interface{}{"academicYear": "2025"}),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCommitBatchRollsBackOnFailure(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CommitBatch(context.Background(), []store.WriteOp{store.Set("students", "S-1", nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set document students/S-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCommitBatchRejectsOversizedBatch(t *testing.T) {
	s, mock, cleanup := newStoreMock(t, WithMaxBatchOps(1), WithOpTimeout(time.Second))
	defer cleanup()

	err := s.CommitBatch(context.Background(), []store.WriteOp{
		store.Set("a", "1", nil), store.Set("a", "2", nil),
	})
	require.Error(t, err)
	assert.Equal(t, 1, s.MaxBatchOps())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCommitEmptyBatchIsNoop(t *testing.T) {
	s, mock, cleanup := newStoreMock(t)
	defer cleanup()

	require.NoError(t, s.CommitBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
