package codec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stemsi/exstem-assess/internal/model"
)

// ChoiceDefinition is a multiple choice key. Correct holds upper-case option
// letters (A is Options[0]) in sorted order. Multiple marks a multi-select
// question, even when it has a single correct letter.
type ChoiceDefinition struct {
	Options  []string
	Correct  []string
	Multiple bool
}

func (ChoiceDefinition) Type() model.QuestionType { return model.QuestionTypeMultipleChoice }
func (ChoiceDefinition) definition()              {}

// ChoiceAnswer is the student's selection. Selected is sorted and upper-case.
// An empty selection is the zero value, with Multiple false, whatever the
// question allows.
type ChoiceAnswer struct {
	Selected []string
	Multiple bool
}

func (ChoiceAnswer) Type() model.QuestionType { return model.QuestionTypeMultipleChoice }
func (ChoiceAnswer) response()                {}

// Letter returns the option letter for index i.
func Letter(i int) string {
	return string(rune('A' + i))
}

// LetterIndex returns the option index for a letter, or -1.
func LetterIndex(l string) int {
	if len(l) != 1 || l[0] < 'A' || l[0] > 'Z' {
		return -1
	}
	return int(l[0] - 'A')
}

func decodeChoiceDefinition(s StoredDefinition) (ChoiceDefinition, error) {
	const t = model.QuestionTypeMultipleChoice
	var def ChoiceDefinition

	if !isNull(s.Options) {
		if err := decodeJSON(schemaStringList, s.Options, &def.Options); err != nil {
			return def, malformed(t, "options", "expected a list of option texts", err)
		}
		if len(def.Options) > 26 {
			return def, malformed(t, "options", "more than 26 options", nil)
		}
	}

	var err error
	switch {
	case len(s.CorrectAnswers) > 0:
		def.Multiple = true
		def.Correct, err = canonicalLetters(s.CorrectAnswers)
	case strings.TrimSpace(s.CorrectAnswer) != "":
		def.Correct, err = canonicalLetters([]string{s.CorrectAnswer})
	default:
		return def, malformed(t, "correct_answer", "no correct option", nil)
	}
	if err != nil {
		return def, malformed(t, "correct_answer", err.Error(), nil)
	}

	if len(def.Options) > 0 {
		for _, l := range def.Correct {
			if LetterIndex(l) >= len(def.Options) {
				return def, malformed(t, "correct_answer", fmt.Sprintf("option %s out of range", l), nil)
			}
		}
	}
	return def, nil
}

func (d ChoiceDefinition) encode() StoredDefinition {
	s := StoredDefinition{}
	if d.Options != nil {
		s.Options = mustMarshal(d.Options)
	}
	if d.Multiple {
		s.CorrectAnswers = d.Correct
	} else if len(d.Correct) > 0 {
		s.CorrectAnswer = d.Correct[0]
	}
	return s
}

func decodeChoiceAnswer(in model.AnswerInput) (ChoiceAnswer, error) {
	const t = model.QuestionTypeMultipleChoice
	switch {
	case len(in.SelectedOptions) > 0:
		letters, err := canonicalLetters(in.SelectedOptions)
		if err != nil {
			return ChoiceAnswer{}, malformed(t, "selected_options", err.Error(), nil)
		}
		return ChoiceAnswer{Selected: letters, Multiple: true}, nil
	case in.SelectedOption != nil && strings.TrimSpace(*in.SelectedOption) != "":
		letters, err := canonicalLetters([]string{*in.SelectedOption})
		if err != nil {
			return ChoiceAnswer{}, malformed(t, "selected_option", err.Error(), nil)
		}
		return ChoiceAnswer{Selected: letters}, nil
	default:
		return ChoiceAnswer{}, nil
	}
}

func (a ChoiceAnswer) encode() model.AnswerInput {
	if len(a.Selected) == 0 {
		return model.AnswerInput{}
	}
	if a.Multiple {
		return model.AnswerInput{SelectedOptions: a.Selected}
	}
	l := a.Selected[0]
	return model.AnswerInput{SelectedOption: &l}
}

// canonicalLetters upper-cases, deduplicates and sorts option letters.
func canonicalLetters(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		l := strings.ToUpper(strings.TrimSpace(r))
		if LetterIndex(l) < 0 {
			return nil, fmt.Errorf("%q is not an option letter", r)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}
