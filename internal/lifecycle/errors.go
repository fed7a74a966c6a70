package lifecycle

import "errors"

// Lifecycle errors. Callers wrap them with the attempt and question ids they
// concern, so match with errors.Is.
var (
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrInvalidAttemptState  = errors.New("invalid attempt state")
	ErrQuestionNotInExam    = errors.New("question not in exam")
	ErrExamNotAvailable     = errors.New("exam not available")
	ErrScoreOutOfRange      = errors.New("score out of range")
)
