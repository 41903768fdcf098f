package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/store"
	"github.com/noah-isme/sma-academic-transition/internal/store/memstore"
)

func TestStudentRepositoryEachDecodesAndReportsBadRecords(t *testing.T) {
	mem := memstore.New(0)
	require.NoError(t, mem.Put(CollectionStudents, "S-1", map[string]interface{}{"classId": "class-1", "status": "detained"}))
	require.NoError(t, mem.Put(CollectionStudents, "S-2", map[string]interface{}{"classId": "ukg"}))
	require.NoError(t, mem.Put(CollectionStudents, "S-3", map[string]interface{}{"classId": 42}))
	repo := NewStudentRepository(mem)

	var seen []string
	var failures []string
	err := repo.Each(context.Background(), 2, func(id string, student *models.Student, decodeErr error) error {
		if decodeErr != nil {
			failures = append(failures, id)
			return nil
		}
		seen = append(seen, student.SchoolID+":"+string(student.Status))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"S-1:DETAINED", "S-2:ACTIVE"}, seen)
	assert.Equal(t, []string{"S-3"}, failures)
}

func TestStudentRepositoryTransitionOp(t *testing.T) {
	mem := memstore.New(0)
	require.NoError(t, mem.Put(CollectionStudents, "S-1", map[string]interface{}{"name": "Asha", "classId": "ukg", "status": "ACTIVE"}))
	repo := NewStudentRepository(mem)
	at := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	op := repo.TransitionOp("S-1", StudentTransition{
		AcademicYear:       "2025-2026",
		ClassID:            "class-1",
		ClassName:          "Class 1",
		Status:             models.StudentStatusActive,
		PreviousYearStatus: models.StudentStatusActive,
		PreviousClassID:    "ukg",
		TransitionedAt:     at,
	})
	assert.Equal(t, store.OpMerge, op.Kind)
	require.NoError(t, mem.CommitBatch(context.Background(), []store.WriteOp{op}))

	student, err := repo.Get(context.Background(), "S-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", student.Name)
	assert.Equal(t, "class-1", student.ClassID)
	assert.Equal(t, "2025-2026", student.AcademicYear)
}

func TestFeeLedgerRepositoryFind(t *testing.T) {
	mem := memstore.New(0)
	require.NoError(t, mem.Put(CollectionFeeLedgers, "S-1_2024", map[string]interface{}{"totalFee": "15000", "totalPaid": "abc"}))
	repo := NewFeeLedgerRepository(mem)
	ctx := context.Background()

	ledger, warnings, err := repo.Find(ctx, "S-1", "2024")
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Equal(t, "S-1", ledger.StudentID)
	assert.Equal(t, "2024", ledger.AcademicYear)
	assert.Equal(t, 15000.0, ledger.Outstanding())
	assert.Len(t, warnings, 1)

	missing, warnings, err := repo.Find(ctx, "S-2", "2024")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Empty(t, warnings)
}

func TestFeeLedgerRepositoryFindSurfacesStoreErrors(t *testing.T) {
	mem := memstore.New(0)
	mem.OnGet(func(string, string) error { return errors.New("timeout") })

	_, _, err := NewFeeLedgerRepository(mem).Find(context.Background(), "S-1", "2024")
	assert.Error(t, err)
}

func TestFeeLedgerRepositorySaveOp(t *testing.T) {
	repo := NewFeeLedgerRepository(memstore.New(0))
	op, err := repo.SaveOp(models.FeeLedger{StudentID: "S-1", AcademicYear: "2025", Status: models.LedgerStatusPaid})
	require.NoError(t, err)

	assert.Equal(t, store.OpSet, op.Kind)
	assert.Equal(t, "S-1_2025", op.ID)
	assert.Equal(t, []interface{}{}, op.Data["items"])
	assert.Equal(t, 0.0, op.Data["totalPaid"])
}

func TestFeeLedgerRepositoryMergeOpKeepsOtherFields(t *testing.T) {
	mem := memstore.New(0)
	require.NoError(t, mem.Put(CollectionFeeLedgers, "S-1_2025", map[string]interface{}{
		"studentId": "S-1", "academicYear": "2025", "classId": "class-2", "totalFee": 100.0, "totalPaid": 40.0,
		"items": []interface{}{map[string]interface{}{"id": "TUITION_T1", "amount": 100.0, "termId": "T1"}},
	}))
	repo := NewFeeLedgerRepository(mem)
	ledger, _, err := repo.Find(context.Background(), "S-1", "2025")
	require.NoError(t, err)
	ledger.TotalFee = 300
	ledger.TotalPaid = 999
	ledger.Status = models.LedgerStatusPending

	op, err := repo.MergeOp(*ledger)
	require.NoError(t, err)
	assert.Equal(t, store.OpMerge, op.Kind)
	assert.NotContains(t, op.Data, "totalPaid")
	assert.NotContains(t, op.Data, "classId")
	require.NoError(t, mem.CommitBatch(context.Background(), []store.WriteOp{op}))

	doc, err := mem.Get(context.Background(), CollectionFeeLedgers, "S-1_2025")
	require.NoError(t, err)
	assert.Equal(t, "class-2", doc.Data["classId"])
	assert.Equal(t, 40.0, doc.Data["totalPaid"])
	assert.Equal(t, 300.0, doc.Data["totalFee"])
	items, ok := doc.Data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "T1", items[0].(map[string]interface{})["termId"])
}

func TestYearScopedRepositoryCopy(t *testing.T) {
	mem := memstore.New(0)
	require.NoError(t, mem.Put(CollectionTeachingAssignments, "2024_class-1_A", map[string]interface{}{
		"yearId": "2024", "classId": "class-1", "sectionId": "A", "teacherId": "T-9",
	}))
	require.NoError(t, mem.Put(CollectionTeachingAssignments, "2024_legacy", map[string]interface{}{"yearId": "2024"}))
	require.NoError(t, mem.Put(CollectionTeachingAssignments, "2023_class-1", map[string]interface{}{"yearId": "2023", "classId": "class-1"}))
	repo := NewTeachingAssignmentRepository(mem)

	var ops []store.WriteOp
	err := repo.EachForYear(context.Background(), "2024", 10, func(doc models.YearScopedDocument) error {
		ops = append(ops, repo.CopyOp(doc, "2025"))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "2025_class-1_A", ops[0].ID)
	assert.Equal(t, "2025", ops[0].Data["yearId"])
	assert.Equal(t, "T-9", ops[0].Data["teacherId"])
	assert.Equal(t, "2025_legacy", ops[1].ID)
	assert.Equal(t, CollectionTeachingAssignments, ops[1].Collection)
	assert.Equal(t, CollectionClassTimetables, NewClassTimetableRepository(mem).Collection())
}

func TestAcademicYearRepository(t *testing.T) {
	mem := memstore.New(0)
	repo := NewAcademicYearRepository(mem)
	ctx := context.Background()

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, mem.Put(CollectionSystemConfig, AcademicYearsDocID, map[string]interface{}{"schoolName": "SMA 1"}))
	op, err := repo.SaveOp(models.AcademicYearConfig{CurrentYear: "2025"})
	require.NoError(t, err)
	require.NoError(t, mem.CommitBatch(ctx, []store.WriteOp{op}))

	cfg, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "2025", cfg.CurrentYear)
	assert.Empty(t, cfg.History)

	doc, err := mem.Get(ctx, CollectionSystemConfig, AcademicYearsDocID)
	require.NoError(t, err)
	assert.Equal(t, "SMA 1", doc.Data["schoolName"])
}
