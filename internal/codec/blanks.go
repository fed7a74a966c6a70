package codec

import (
	"strings"

	"github.com/stemsi/exstem-assess/internal/model"
)

// BlankDefinition lists the accepted value of each blank, in order.
type BlankDefinition struct {
	Correct []string
}

func (BlankDefinition) Type() model.QuestionType { return model.QuestionTypeFillBlank }
func (BlankDefinition) definition()              {}

// BlankAnswer holds the student's value for each blank. When every blank is
// empty nothing was entered and Blanks is nil.
type BlankAnswer struct {
	Blanks []string
}

func (BlankAnswer) Type() model.QuestionType { return model.QuestionTypeFillBlank }
func (BlankAnswer) response()                {}

// Padded returns exactly n blanks: missing ones are empty, extras dropped.
func (a BlankAnswer) Padded(n int) []string {
	out := make([]string, n)
	copy(out, a.Blanks)
	return out
}

func decodeBlankAnswer(in model.AnswerInput) BlankAnswer {
	a := BlankAnswer{Blanks: splitBlanks(in.AnswerText)}
	if a.empty() {
		return BlankAnswer{}
	}
	return a
}

func (a BlankAnswer) encode() model.AnswerInput {
	if a.empty() {
		return model.AnswerInput{}
	}
	return model.AnswerInput{AnswerText: joinBlanks(a.Blanks)}
}

func (a BlankAnswer) empty() bool {
	for _, b := range a.Blanks {
		if b != "" {
			return false
		}
	}
	return true
}

func decodeBlankDefinition(s StoredDefinition) (BlankDefinition, error) {
	blanks := splitBlanks(s.CorrectAnswer)
	if len(blanks) == 0 {
		return BlankDefinition{}, malformed(model.QuestionTypeFillBlank, "correct_answer", "no blanks defined", nil)
	}
	return BlankDefinition{Correct: blanks}, nil
}

func (d BlankDefinition) encode() StoredDefinition {
	return StoredDefinition{CorrectAnswer: joinBlanks(d.Correct)}
}

// splitBlanks splits a pipe-delimited list. A backslash escapes the next
// character so blanks may contain '|' or '\'.
func splitBlanks(s string) []string {
	if s == "" {
		return nil
	}
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == '|':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}

func joinBlanks(blanks []string) string {
	if len(blanks) == 0 {
		return ""
	}
	esc := strings.NewReplacer(`\`, `\\`, `|`, `\|`)
	parts := make([]string, len(blanks))
	for i, b := range blanks {
		parts[i] = esc.Replace(b)
	}
	return strings.Join(parts, "|")
}
