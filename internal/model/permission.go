package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionQuestionsWrite allows creating and editing own bank questions.
	PermissionQuestionsWrite Permission = "questions:write"

	// PermissionExamsWrite allows creating exams and attaching questions.
	PermissionExamsWrite Permission = "exams:write"

	// PermissionExamsPublish allows publishing and archiving exams.
	PermissionExamsPublish Permission = "exams:publish"

	// PermissionExamsMonitor allows attaching to the live exam monitor.
	PermissionExamsMonitor Permission = "exams:monitor"

	// PermissionSubmissionsRead allows viewing attempts and reviews.
	PermissionSubmissionsRead Permission = "submissions:read"

	// PermissionSubmissionsGrade allows scoring answers that need manual review.
	PermissionSubmissionsGrade Permission = "submissions:grade"
)

// AllPermissions lists every permission code, for issuing instructor tokens.
var AllPermissions = []Permission{
	PermissionQuestionsWrite,
	PermissionExamsWrite,
	PermissionExamsPublish,
	PermissionExamsMonitor,
	PermissionSubmissionsRead,
	PermissionSubmissionsGrade,
}
