// Package codec converts between the stored encodings of question
// definitions and student answers and their typed forms.
//
// Definition and Response are sealed: only the types in this package
// implement them, so every switch over them is exhaustive over the closed
// set of question types.
//
// A response with nothing in it (no letter selected, every blank empty, no
// pair chosen, no item ordered or placed) is canonically the zero value of
// its type. Encoding any empty response yields an empty AnswerInput and
// decoding one yields the zero value, so the round trip is exact for
// canonical values and normalizes the rest.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-assess/internal/model"
)

// Definition is the typed answer key of a question.
type Definition interface {
	Type() model.QuestionType
	definition()
}

// Response is the typed form of a student's answer.
type Response interface {
	Type() model.QuestionType
	response()
}

// StoredDefinition is the persisted encoding of a question's options and key.
type StoredDefinition struct {
	Options        json.RawMessage `json:"options,omitempty"`
	CorrectAnswer  string          `json:"correct_answer,omitempty"`
	CorrectAnswers []string        `json:"correct_answers,omitempty"`
}

// FromQuestion extracts the stored definition of q.
func FromQuestion(q *model.Question) StoredDefinition {
	return StoredDefinition{
		Options:        q.Options,
		CorrectAnswer:  q.CorrectAnswer,
		CorrectAnswers: q.CorrectAnswers,
	}
}

// DecodeDefinition parses the stored definition of a question of type t.
func DecodeDefinition(t model.QuestionType, s StoredDefinition) (Definition, error) {
	switch t {
	case model.QuestionTypeMultipleChoice:
		return decodeChoiceDefinition(s)
	case model.QuestionTypeFillBlank:
		return decodeBlankDefinition(s)
	case model.QuestionTypeMatching:
		return decodeMatchingDefinition(s)
	case model.QuestionTypeRanking:
		return decodeRankingDefinition(s)
	case model.QuestionTypeDragDrop:
		return decodeDragDropDefinition(s)
	case model.QuestionTypeShortAnswer, model.QuestionTypeEssay, model.QuestionTypeStem:
		return FreeTextDefinition{Kind: t, Reference: s.CorrectAnswer}, nil
	default:
		return nil, malformed(t, "question_type", "unknown question type", nil)
	}
}

// EncodeDefinition is the inverse of DecodeDefinition.
func EncodeDefinition(def Definition) StoredDefinition {
	switch d := def.(type) {
	case ChoiceDefinition:
		return d.encode()
	case BlankDefinition:
		return d.encode()
	case MatchingDefinition:
		return d.encode()
	case RankingDefinition:
		return d.encode()
	case DragDropDefinition:
		return d.encode()
	case FreeTextDefinition:
		return StoredDefinition{CorrectAnswer: d.Reference}
	default:
		panic(fmt.Sprintf("codec: unhandled definition %T", def))
	}
}

// DecodeResponse parses a stored student answer for a question of type t.
// An empty input decodes to the zero response of that type.
func DecodeResponse(t model.QuestionType, in model.AnswerInput) (Response, error) {
	switch t {
	case model.QuestionTypeMultipleChoice:
		return decodeChoiceAnswer(in)
	case model.QuestionTypeFillBlank:
		return decodeBlankAnswer(in), nil
	case model.QuestionTypeMatching:
		return decodeMatchingAnswer(in)
	case model.QuestionTypeRanking:
		return decodeRankingAnswer(in)
	case model.QuestionTypeDragDrop:
		return decodeDragDropAnswer(in)
	case model.QuestionTypeShortAnswer, model.QuestionTypeEssay, model.QuestionTypeStem:
		return FreeTextAnswer{Kind: t, Text: in.AnswerText}, nil
	default:
		return nil, malformed(t, "question_type", "unknown question type", nil)
	}
}

// EncodeResponse is the inverse of DecodeResponse.
func EncodeResponse(resp Response) model.AnswerInput {
	switch r := resp.(type) {
	case ChoiceAnswer:
		return r.encode()
	case BlankAnswer:
		return r.encode()
	case MatchingAnswer:
		return r.encode()
	case RankingAnswer:
		return r.encode()
	case DragDropAnswer:
		return r.encode()
	case FreeTextAnswer:
		return model.AnswerInput{AnswerText: r.Text}
	default:
		panic(fmt.Sprintf("codec: unhandled response %T", resp))
	}
}

// isNull reports whether raw carries no JSON value.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("codec: marshal %T: %v", v, err))
	}
	return b
}
