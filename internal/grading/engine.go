// Package grading scores decoded answers against question definitions.
package grading

import (
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/model"
)

// Item is the minimal view of an exam question needed for grading.
type Item struct {
	QuestionID uuid.UUID
	Type       model.QuestionType
	Definition codec.StoredDefinition
	MaxScore   float64
}

// ItemFor builds the grading item of an exam question.
func ItemFor(eq model.ExamQuestion) Item {
	return Item{
		QuestionID: eq.QuestionID,
		Type:       eq.Question.QuestionType,
		Definition: codec.FromQuestion(&eq.Question),
		MaxScore:   eq.EffectivePoints(),
	}
}

// Result is the outcome of grading a single answer.
type Result struct {
	// Score is nil when the answer awaits manual review.
	Score                *float64
	MaxScore             float64
	RequiresManualReview bool
	// Correct and Total count the graded parts (blanks, pairs, positions,
	// zones); both are 1 for multiple choice.
	Correct int
	Total   int
	// Err is the decode failure that forced a zero score, if any.
	Err error
}

// strategy scores one question type. Score returns the number of correct
// parts out of the total.
type strategy interface {
	Score(def codec.Definition, resp codec.Response) (correct, total int)
}

// Engine routes answers to the strategy of their question type. It is
// stateless after construction and safe for concurrent use.
type Engine struct {
	strategies map[model.QuestionType]strategy
	precision  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrecision sets the number of decimals partial scores are rounded to.
func WithPrecision(decimals int) Option {
	return func(e *Engine) {
		if decimals >= 0 {
			e.precision = decimals
		}
	}
}

// NewEngine installs the built-in strategies.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		precision: 2,
		strategies: map[model.QuestionType]strategy{
			model.QuestionTypeMultipleChoice: choiceStrategy{},
			model.QuestionTypeFillBlank:      blankStrategy{},
			model.QuestionTypeMatching:       matchingStrategy{},
			model.QuestionTypeRanking:        rankingStrategy{},
			model.QuestionTypeDragDrop:       dragDropStrategy{},
			model.QuestionTypeShortAnswer:    manualStrategy{},
			model.QuestionTypeEssay:          manualStrategy{},
			model.QuestionTypeStem:           manualStrategy{},
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Supports reports whether the engine has a strategy for t.
func (e *Engine) Supports(t model.QuestionType) bool {
	_, ok := e.strategies[t]
	return ok
}

// Grade scores one stored answer. Missing answers score zero; malformed
// answers score zero with Result.Err set. Free-text types are never scored
// automatically.
func (e *Engine) Grade(item Item, in model.AnswerInput) Result {
	res := Result{MaxScore: item.MaxScore}

	s, ok := e.strategies[item.Type]
	if !ok {
		res.RequiresManualReview = true
		return res
	}
	if _, manual := s.(manualStrategy); manual {
		res.RequiresManualReview = true
		return res
	}

	def, err := codec.DecodeDefinition(item.Type, item.Definition)
	if err != nil {
		res.Err = err
		res.Score = e.ptr(0)
		return res
	}
	resp, err := codec.DecodeResponse(item.Type, in)
	if err != nil {
		res.Err = err
		res.Score = e.ptr(0)
		return res
	}

	res.Correct, res.Total = s.Score(def, resp)
	if res.Total == 0 {
		res.Score = e.ptr(0)
		return res
	}
	res.Score = e.ptr(item.MaxScore * float64(res.Correct) / float64(res.Total))
	return res
}

// Round rounds v to the engine's precision.
func (e *Engine) Round(v float64) float64 {
	p := math.Pow(10, float64(e.precision))
	return math.Round(v*p) / p
}

func (e *Engine) ptr(v float64) *float64 {
	r := e.Round(v)
	return &r
}
