package models

import "strings"

// StudentStatus is the enrolment state of a student.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusDetained StudentStatus = "DETAINED"
	StudentStatusAlumni   StudentStatus = "ALUMNI"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// PromotionStatusRetained marks a student held back by a teacher decision.
const PromotionStatusRetained = "RETAINED"

// ParseStudentStatus normalises stored status text. Blank values read as ACTIVE.
func ParseStudentStatus(raw string) StudentStatus {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return StudentStatusActive
	}
	return StudentStatus(trimmed)
}

// Student is the subset of the student record the transition reads.
type Student struct {
	SchoolID        string        `json:"schoolId"`
	Name            string        `json:"name,omitempty"`
	ClassID         string        `json:"classId"`
	ClassName       string        `json:"className,omitempty"`
	SectionID       string        `json:"sectionId,omitempty"`
	Status          StudentStatus `json:"status"`
	AcademicYear    string        `json:"academicYear,omitempty"`
	PromotionStatus string        `json:"promotionStatus,omitempty"`
}

// IsArchived reports whether the student is outside the yearly transition.
func (s Student) IsArchived() bool {
	return s.Status == StudentStatusAlumni || s.Status == StudentStatusInactive
}
