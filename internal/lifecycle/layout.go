package lifecycle

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/model"
)

// buildLayout derives the attempt's question order and option permutations.
// The shuffle is seeded by the attempt id, so it is reproducible. Returns nil
// when the exam randomizes nothing.
func buildLayout(exam *model.Exam, attemptID uuid.UUID) *model.AttemptLayout {
	if !exam.RandomizeQuestions && !exam.RandomizeOptions {
		return nil
	}
	rng := rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(attemptID[:8]),
		binary.BigEndian.Uint64(attemptID[8:]),
	))

	questions := orderedQuestions(exam)
	layout := &model.AttemptLayout{QuestionOrder: make([]uuid.UUID, len(questions))}
	for i, eq := range questions {
		layout.QuestionOrder[i] = eq.QuestionID
	}
	if exam.RandomizeQuestions {
		rng.Shuffle(len(layout.QuestionOrder), func(i, j int) {
			layout.QuestionOrder[i], layout.QuestionOrder[j] = layout.QuestionOrder[j], layout.QuestionOrder[i]
		})
	}

	if exam.RandomizeOptions {
		layout.OptionOrder = make(map[uuid.UUID][]int)
		for _, eq := range questions {
			def, err := codec.DecodeDefinition(eq.Question.QuestionType, codec.FromQuestion(&eq.Question))
			if err != nil {
				continue
			}
			if n := codec.OptionCount(def); n > 1 {
				layout.OptionOrder[eq.QuestionID] = rng.Perm(n)
			}
		}
	}
	return layout
}

// optionPerm returns the option permutation shown for a question, if any.
func optionPerm(sub *model.Submission, questionID uuid.UUID) []int {
	if sub.Layout == nil {
		return nil
	}
	return sub.Layout.OptionOrder[questionID]
}

// canonicalInput maps letters chosen on a shuffled multiple choice list back
// to the stored option letters. Inputs that cannot be mapped are passed
// through so the grader records why they failed to decode.
func (m *Manager) canonicalInput(sub *model.Submission, eq model.ExamQuestion, in model.AnswerInput) model.AnswerInput {
	if eq.Question.QuestionType != model.QuestionTypeMultipleChoice {
		return in
	}
	perm := optionPerm(sub, eq.QuestionID)
	if perm == nil {
		return in
	}
	mapped, err := codec.RemapChoice(in, perm)
	if err != nil {
		return in
	}
	return mapped
}

// Paper builds the student-facing question list for an attempt, in the
// attempt's order and with permuted options, without answer keys.
func Paper(exam *model.Exam, sub *model.Submission) model.ExamPayload {
	questions := orderedQuestions(exam)
	if sub.Layout != nil && len(sub.Layout.QuestionOrder) == len(questions) {
		byID := make(map[uuid.UUID]model.ExamQuestion, len(questions))
		for _, eq := range questions {
			byID[eq.QuestionID] = eq
		}
		ordered := make([]model.ExamQuestion, 0, len(questions))
		for _, id := range sub.Layout.QuestionOrder {
			if eq, ok := byID[id]; ok {
				ordered = append(ordered, eq)
			}
		}
		if len(ordered) == len(questions) {
			questions = ordered
		}
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Kind:      exam.Kind,
		Title:     exam.Title,
		Duration:  exam.DurationMinutes,
		Questions: make([]model.QuestionForStudent, 0, len(questions)),
	}
	for i, eq := range questions {
		q := model.QuestionForStudent{
			ID:           eq.QuestionID,
			QuestionType: eq.Question.QuestionType,
			QuestionText: eq.Question.QuestionText,
			Points:       eq.EffectivePoints(),
			OrderNum:     i,
		}
		if def, err := codec.DecodeDefinition(eq.Question.QuestionType, codec.FromQuestion(&eq.Question)); err == nil {
			q.Options = codec.PublicOptions(def, optionPerm(sub, eq.QuestionID))
		}
		payload.Questions = append(payload.Questions, q)
	}
	return payload
}
