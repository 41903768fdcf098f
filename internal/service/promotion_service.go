package service

import "github.com/noah-isme/sma-academic-transition/internal/models"

// PromotionService decides each student's class and status for the next year.
type PromotionService struct {
	sequence *ClassSequence
}

// NewPromotionService constructs the service. A nil sequence selects the default one.
func NewPromotionService(sequence *ClassSequence) *PromotionService {
	if sequence == nil {
		sequence = DefaultClassSequence()
	}
	return &PromotionService{sequence: sequence}
}

// Decide applies the promotion rules in order: detained or teacher-retained
// students stay in their class, others move to the next level, and students
// with no next level graduate. An unknown class graduates.
func (s *PromotionService) Decide(student models.Student) models.PromotionDecision {
	if student.Status == models.StudentStatusDetained || student.PromotionStatus == models.PromotionStatusRetained {
		return models.PromotionDecision{
			NewStatus:    models.StudentStatusActive,
			NewClassID:   student.ClassID,
			NewClassName: s.className(student),
			Outcome:      models.OutcomeRetained,
		}
	}

	next := s.sequence.Next(student.ClassID)
	if next == nil {
		return models.PromotionDecision{
			NewStatus:    models.StudentStatusAlumni,
			NewClassID:   student.ClassID,
			NewClassName: s.className(student),
			Outcome:      models.OutcomeGraduated,
		}
	}

	return models.PromotionDecision{
		NewStatus:    models.StudentStatusActive,
		NewClassID:   next.ID,
		NewClassName: next.Name,
		Outcome:      models.OutcomePromoted,
	}
}

func (s *PromotionService) className(student models.Student) string {
	if student.ClassName != "" {
		return student.ClassName
	}
	if level, ok := s.sequence.Lookup(student.ClassID); ok {
		return level.Name
	}
	return ""
}
