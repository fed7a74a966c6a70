package codec

import "github.com/stemsi/exstem-assess/internal/model"

// FreeTextDefinition covers short answer, essay and stem questions. The
// reference answer is advisory for reviewers and never used to score.
type FreeTextDefinition struct {
	Kind      model.QuestionType
	Reference string
}

func (d FreeTextDefinition) Type() model.QuestionType { return d.Kind }
func (FreeTextDefinition) definition()                {}

// FreeTextAnswer is the student's free-form text.
type FreeTextAnswer struct {
	Kind model.QuestionType
	Text string
}

func (a FreeTextAnswer) Type() model.QuestionType { return a.Kind }
func (FreeTextAnswer) response()                  {}
