package repository

// Document store collections touched by the transition.
const (
	CollectionStudents            = "students"
	CollectionFeeLedgers          = "fee_ledgers"
	CollectionTeachingAssignments = "teaching_assignments"
	CollectionClassTimetables     = "class_timetables"
	CollectionSystemConfig        = "system_config"

	// AcademicYearsDocID is the system_config document holding the academic year state.
	AcademicYearsDocID = "academic_years"
)
