package models

// PromotionOutcome is the result of the yearly promotion decision.
type PromotionOutcome string

const (
	OutcomePromoted  PromotionOutcome = "PROMOTED"
	OutcomeRetained  PromotionOutcome = "RETAINED"
	OutcomeGraduated PromotionOutcome = "GRADUATED"
)

// PromotionDecision carries the new class and status for a student.
type PromotionDecision struct {
	NewStatus    StudentStatus    `json:"newStatus"`
	NewClassID   string           `json:"newClassId"`
	NewClassName string           `json:"newClassName"`
	Outcome      PromotionOutcome `json:"outcome"`
}

// StudentOutcome describes what a transition did to one student.
type StudentOutcome struct {
	StudentID      string           `json:"studentId"`
	Name           string           `json:"name,omitempty"`
	FromClassID    string           `json:"fromClassId"`
	ToClassID      string           `json:"toClassId"`
	PreviousStatus StudentStatus    `json:"previousStatus"`
	NewStatus      StudentStatus    `json:"newStatus"`
	Outcome        PromotionOutcome `json:"outcome"`
	CarriedForward float64          `json:"carriedForward"`
}

// StudentFailure records a student the run could not process.
type StudentFailure struct {
	StudentID string `json:"studentId"`
	Message   string `json:"message"`
}
