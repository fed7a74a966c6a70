package codec

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-assess/internal/model"
)

// ErrMalformedAnswer matches every *MalformedAnswerError via errors.Is.
var ErrMalformedAnswer = errors.New("malformed answer")

// MalformedAnswerError reports a stored value that does not fit the shape
// its question type requires.
type MalformedAnswerError struct {
	Type   model.QuestionType
	Field  string
	Reason string
	Err    error
}

func (e *MalformedAnswerError) Error() string {
	msg := fmt.Sprintf("malformed %s %s: %s", e.Type, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedAnswerError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedAnswer) hold for any MalformedAnswerError.
func (e *MalformedAnswerError) Is(target error) bool {
	return target == ErrMalformedAnswer
}

func malformed(t model.QuestionType, field, reason string, err error) error {
	return &MalformedAnswerError{Type: t, Field: field, Reason: reason, Err: err}
}
