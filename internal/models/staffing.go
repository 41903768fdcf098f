package models

// YearScopedKey builds the document id for a year-tagged staffing or timetable record.
func YearScopedKey(year, classID, sectionID string) string {
	key := year + "_" + classID
	if sectionID != "" {
		key += "_" + sectionID
	}
	return key
}

// YearScopedDocument is a teaching assignment or class timetable. Only the tag
// fields are interpreted; Payload is copied verbatim.
type YearScopedDocument struct {
	ID        string
	YearID    string
	ClassID   string
	SectionID string
	Payload   map[string]interface{}
}
