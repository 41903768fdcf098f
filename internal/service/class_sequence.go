package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-academic-transition/internal/models"
)

// ClassSequence is the ordered list of grade levels.
type ClassSequence struct {
	levels []models.ClassLevel
	index  map[string]int
}

// NewClassSequence validates levels and returns them as a sequence ordered by Order.
// Ids must be unique and orders contiguous starting at 1.
func NewClassSequence(levels []models.ClassLevel) (*ClassSequence, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("class sequence requires at least one level")
	}
	sorted := make([]models.ClassLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	index := make(map[string]int, len(sorted))
	for i, level := range sorted {
		id := strings.TrimSpace(level.ID)
		if id == "" {
			return nil, fmt.Errorf("class level at order %d has no id", level.Order)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate class level id %q", id)
		}
		if level.Order != i+1 {
			return nil, fmt.Errorf("class level %q has order %d, expected %d", id, level.Order, i+1)
		}
		sorted[i].ID = id
		index[id] = i
	}
	return &ClassSequence{levels: sorted, index: index}, nil
}

// DefaultClassSequence returns Nursery, LKG, UKG then Class 1 to Class 10.
func DefaultClassSequence() *ClassSequence {
	levels := []models.ClassLevel{
		{ID: "nursery", Name: "Nursery", Order: 1},
		{ID: "lkg", Name: "LKG", Order: 2},
		{ID: "ukg", Name: "UKG", Order: 3},
	}
	for grade := 1; grade <= 10; grade++ {
		levels = append(levels, models.ClassLevel{
			ID:    fmt.Sprintf("class-%d", grade),
			Name:  fmt.Sprintf("Class %d", grade),
			Order: grade + 3,
		})
	}
	seq, err := NewClassSequence(levels)
	if err != nil {
		panic(err)
	}
	return seq
}

// Next returns the level right after classID, or nil when classID is the last
// level or is not part of the sequence.
func (s *ClassSequence) Next(classID string) *models.ClassLevel {
	i, ok := s.index[classID]
	if !ok || i+1 >= len(s.levels) {
		return nil
	}
	next := s.levels[i+1]
	return &next
}

// Lookup returns the level with the id.
func (s *ClassSequence) Lookup(classID string) (models.ClassLevel, bool) {
	i, ok := s.index[classID]
	if !ok {
		return models.ClassLevel{}, false
	}
	return s.levels[i], true
}

// Levels returns a copy of the ordered levels.
func (s *ClassSequence) Levels() []models.ClassLevel {
	out := make([]models.ClassLevel, len(s.levels))
	copy(out, s.levels)
	return out
}
