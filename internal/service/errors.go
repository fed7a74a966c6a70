package service

import "errors"

// Domain errors raised by the services. Lifecycle and codec errors pass
// through wrapped and are matched by the handlers with errors.Is.
var (
	ErrNotAttemptOwner   = errors.New("attempt belongs to another student")
	ErrNotExamAuthor     = errors.New("not the author of this exam")
	ErrNotQuestionAuthor = errors.New("not the author of this question")
	ErrNoQuestions       = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft      = errors.New("exam status is not DRAFT")
	ErrExamNotPublished  = errors.New("exam status is not PUBLISHED")
	ErrInvalidDefinition = errors.New("invalid question definition")
	ErrQuestionNotFound  = errors.New("question not found")
)
