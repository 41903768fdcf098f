package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// Tag fields on teaching assignment and timetable documents.
const (
	fieldYearID    = "yearId"
	fieldClassID   = "classId"
	fieldSectionID = "sectionId"
)

// YearScopedRepository handles collections whose documents are tagged with a year,
// such as teaching assignments and class timetables.
type YearScopedRepository struct {
	store      store.DocumentStore
	collection string
}

// NewTeachingAssignmentRepository returns the repository for teaching assignments.
func NewTeachingAssignmentRepository(s store.DocumentStore) *YearScopedRepository {
	return &YearScopedRepository{store: s, collection: CollectionTeachingAssignments}
}

// NewClassTimetableRepository returns the repository for class timetables.
func NewClassTimetableRepository(s store.DocumentStore) *YearScopedRepository {
	return &YearScopedRepository{store: s, collection: CollectionClassTimetables}
}

// Collection returns the backing collection name.
func (r *YearScopedRepository) Collection() string {
	return r.collection
}

// EachForYear streams every document tagged with the year.
func (r *YearScopedRepository) EachForYear(ctx context.Context, year string, pageSize int, fn func(models.YearScopedDocument) error) error {
	q := store.Query{Collection: r.collection, Field: fieldYearID, Value: year, Limit: pageSize}
	err := store.Iterate(ctx, r.store, q, func(doc store.Document) error {
		return fn(models.YearScopedDocument{
			ID:        doc.ID,
			YearID:    stringField(doc.Data, fieldYearID),
			ClassID:   stringField(doc.Data, fieldClassID),
			SectionID: stringField(doc.Data, fieldSectionID),
			Payload:   doc.Data,
		})
	})
	if err != nil {
		return fmt.Errorf("iterate %s for %s: %w", r.collection, year, err)
	}
	return nil
}

// CopyOp stages a copy of doc under the new year. The payload is kept as is
// apart from the year tag.
func (r *YearScopedRepository) CopyOp(doc models.YearScopedDocument, newYear string) store.WriteOp {
	payload := make(map[string]interface{}, len(doc.Payload)+1)
	for k, v := range doc.Payload {
		payload[k] = v
	}
	payload[fieldYearID] = newYear

	var id string
	if doc.ClassID != "" {
		id = models.YearScopedKey(newYear, doc.ClassID, doc.SectionID)
	} else {
		id = newYear + "_" + strings.TrimPrefix(doc.ID, doc.YearID+"_")
	}
	return store.Set(r.collection, id, payload)
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
