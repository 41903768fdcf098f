package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// StudentVisitor receives each stored student. decodeErr is set when the record
// could not be read; student is nil in that case.
type StudentVisitor func(id string, student *models.Student, decodeErr error) error

// StudentTransition holds the fields a transition rewrites on a student record.
type StudentTransition struct {
	AcademicYear       string
	ClassID            string
	ClassName          string
	Status             models.StudentStatus
	PreviousYearStatus models.StudentStatus
	PreviousClassID    string
	TransitionedAt     time.Time
}

// StudentRepository reads and stages writes for student documents.
type StudentRepository struct {
	store store.DocumentStore
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(s store.DocumentStore) *StudentRepository {
	return &StudentRepository{store: s}
}

// Get loads a single student.
func (r *StudentRepository) Get(ctx context.Context, id string) (*models.Student, error) {
	doc, err := r.store.Get(ctx, CollectionStudents, id)
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return decodeStudent(doc)
}

// Each streams every student page by page in id order.
func (r *StudentRepository) Each(ctx context.Context, pageSize int, visit StudentVisitor) error {
	q := store.Query{Collection: CollectionStudents, Limit: pageSize}
	return store.Iterate(ctx, r.store, q, func(doc store.Document) error {
		student, err := decodeStudent(doc)
		return visit(doc.ID, student, err)
	})
}

// TransitionOp builds the merge applied to a student during a transition.
func (r *StudentRepository) TransitionOp(id string, t StudentTransition) store.WriteOp {
	return store.Merge(CollectionStudents, id, map[string]interface{}{
		"academicYear":       t.AcademicYear,
		"classId":            t.ClassID,
		"className":          t.ClassName,
		"status":             string(t.Status),
		"previousYearStatus": string(t.PreviousYearStatus),
		"previousClassId":    t.PreviousClassID,
		"transitionedAt":     t.TransitionedAt.UTC().Format(time.RFC3339Nano),
	})
}

func decodeStudent(doc store.Document) (*models.Student, error) {
	var student models.Student
	if err := doc.Decode(&student); err != nil {
		return nil, fmt.Errorf("decode student %s: %w", doc.ID, err)
	}
	if student.SchoolID == "" {
		student.SchoolID = doc.ID
	}
	student.Status = models.ParseStudentStatus(string(student.Status))
	return &student, nil
}
