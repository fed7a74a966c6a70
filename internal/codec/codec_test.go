package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stemsi/exstem-assess/internal/model"
)

func TestDefinitionRoundTrip(t *testing.T) {
	defs := []Definition{
		ChoiceDefinition{Options: []string{"Paris", "London", "Rome"}, Correct: []string{"A"}},
		ChoiceDefinition{Options: []string{"2", "3", "4", "5"}, Correct: []string{"A", "B", "D"}, Multiple: true},
		ChoiceDefinition{Options: []string{"yes", "no"}, Correct: []string{"B"}, Multiple: true},
		BlankDefinition{Correct: []string{"Paris", "a|b", `back\slash`}},
		MatchingDefinition{Pairs: []Pair{{Left: "France", Right: "Paris"}, {Left: "Italy", Right: "Rome"}}},
		RankingDefinition{Items: []string{"Mercury", "Venus", "Earth"}},
		DragDropDefinition{
			Zones:      []string{"Fruit", "Vegetable"},
			Items:      []string{"apple", "carrot", "pear"},
			Placements: map[string][]string{"Fruit": {"apple", "pear"}, "Vegetable": {"carrot"}},
		},
		DragDropDefinition{
			Zones:      []string{"Fruit", "Meat"},
			Items:      []string{"apple", "tofu"},
			Placements: map[string][]string{"Fruit": {"apple"}, "Meat": nil},
		},
		FreeTextDefinition{Kind: model.QuestionTypeEssay, Reference: "Discuss causes and effects."},
		FreeTextDefinition{Kind: model.QuestionTypeStem},
	}

	for _, def := range defs {
		stored := EncodeDefinition(def)
		got, err := DecodeDefinition(def.Type(), stored)
		if err != nil {
			t.Errorf("DecodeDefinition(%T) error: %v", def, err)
			continue
		}
		if !reflect.DeepEqual(got, def) {
			t.Errorf("round trip %T = %#v, want %#v", def, got, def)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resps := []Response{
		ChoiceAnswer{Selected: []string{"B"}},
		ChoiceAnswer{Selected: []string{"A", "D"}, Multiple: true},
		ChoiceAnswer{},
		BlankAnswer{Blanks: []string{"paris", "", "x|y"}},
		BlankAnswer{},
		MatchingAnswer{Choices: map[int]string{0: "Paris", 1: "Rome"}},
		MatchingAnswer{},
		RankingAnswer{Order: []string{"Earth", "Mercury", "Venus"}},
		RankingAnswer{},
		DragDropAnswer{Placements: map[string][]string{"Fruit": {"apple"}, "Vegetable": {"carrot", "pear"}}},
		DragDropAnswer{Placements: map[string][]string{"Fruit": {"apple"}, "Meat": nil}},
		DragDropAnswer{},
		BlankAnswer{Blanks: []string{"", "rome"}},
		FreeTextAnswer{Kind: model.QuestionTypeShortAnswer, Text: "photosynthesis"},
	}

	for _, resp := range resps {
		stored := EncodeResponse(resp)
		got, err := DecodeResponse(resp.Type(), stored)
		if err != nil {
			t.Errorf("DecodeResponse(%T) error: %v", resp, err)
			continue
		}
		if !reflect.DeepEqual(got, resp) {
			t.Errorf("round trip %T = %#v, want %#v", resp, got, resp)
		}
	}
}

func TestEmptyResponsesEncodeAsUnanswered(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want Response
	}{
		{"multi select nothing chosen", ChoiceAnswer{Selected: []string{}, Multiple: true}, ChoiceAnswer{}},
		{"multi select nil", ChoiceAnswer{Multiple: true}, ChoiceAnswer{}},
		{"single empty blank", BlankAnswer{Blanks: []string{""}}, BlankAnswer{}},
		{"all blanks empty", BlankAnswer{Blanks: []string{"", ""}}, BlankAnswer{}},
		{"matching empty map", MatchingAnswer{Choices: map[int]string{}}, MatchingAnswer{}},
		{"ranking empty order", RankingAnswer{Order: []string{}}, RankingAnswer{}},
		{"drag drop empty map", DragDropAnswer{Placements: map[string][]string{}}, DragDropAnswer{}},
		{"drag drop only empty zones", DragDropAnswer{Placements: map[string][]string{"Fruit": nil, "Meat": {}}}, DragDropAnswer{}},
	}

	for _, tc := range tests {
		stored := EncodeResponse(tc.resp)
		if !stored.Empty() {
			t.Errorf("%s: EncodeResponse = %#v, want an empty input", tc.name, stored)
			continue
		}
		got, err := DecodeResponse(tc.resp.Type(), stored)
		if err != nil {
			t.Errorf("%s: DecodeResponse error: %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}
	}
}

func TestDecodeResponse_EmptyPayloads(t *testing.T) {
	tests := []struct {
		qtype model.QuestionType
		in    model.AnswerInput
		want  Response
	}{
		{model.QuestionTypeMultipleChoice, model.AnswerInput{SelectedOptions: []string{}}, ChoiceAnswer{}},
		{model.QuestionTypeFillBlank, model.AnswerInput{AnswerText: "|"}, BlankAnswer{}},
		{model.QuestionTypeMatching, model.AnswerInput{AnswerText: `{}`}, MatchingAnswer{}},
		{model.QuestionTypeRanking, model.AnswerInput{AnswerText: `[]`}, RankingAnswer{}},
		{model.QuestionTypeDragDrop, model.AnswerInput{AnswerText: `{"Fruit":[]}`}, DragDropAnswer{}},
	}

	for _, tc := range tests {
		got, err := DecodeResponse(tc.qtype, tc.in)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.qtype, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %#v, want %#v", tc.qtype, got, tc.want)
		}
	}
}

func TestDecodeResponse_Canonicalizes(t *testing.T) {
	got, err := DecodeResponse(model.QuestionTypeMultipleChoice, model.AnswerInput{
		SelectedOptions: []string{"c", " a ", "C"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ChoiceAnswer{Selected: []string{"A", "C"}, Multiple: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestDecodeResponse_Malformed(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name  string
		qtype model.QuestionType
		in    model.AnswerInput
		field string
	}{
		{"two letters", model.QuestionTypeMultipleChoice, model.AnswerInput{SelectedOption: ptr("AB")}, "selected_option"},
		{"digit option", model.QuestionTypeMultipleChoice, model.AnswerInput{SelectedOptions: []string{"A", "7"}}, "selected_options"},
		{"matching not json", model.QuestionTypeMatching, model.AnswerInput{AnswerText: "France=Paris"}, "answer_text"},
		{"matching non-numeric key", model.QuestionTypeMatching, model.AnswerInput{AnswerText: `{"x":"Paris"}`}, "answer_text"},
		{"ranking object", model.QuestionTypeRanking, model.AnswerInput{AnswerText: `{"a":1}`}, "answer_text"},
		{"drag drop list", model.QuestionTypeDragDrop, model.AnswerInput{AnswerText: `["apple"]`}, "answer_text"},
		{"unknown type", model.QuestionType("poll"), model.AnswerInput{AnswerText: "x"}, "question_type"},
	}

	for _, tc := range tests {
		_, err := DecodeResponse(tc.qtype, tc.in)
		if !errors.Is(err, ErrMalformedAnswer) {
			t.Errorf("%s: err = %v, want ErrMalformedAnswer", tc.name, err)
			continue
		}
		var me *MalformedAnswerError
		if !errors.As(err, &me) {
			t.Errorf("%s: err is not *MalformedAnswerError", tc.name)
			continue
		}
		if me.Field != tc.field || me.Type != tc.qtype {
			t.Errorf("%s: got %s/%s, want %s/%s", tc.name, me.Type, me.Field, tc.qtype, tc.field)
		}
	}
}

func TestDecodeDefinition_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		qtype  model.QuestionType
		stored StoredDefinition
	}{
		{"choice without key", model.QuestionTypeMultipleChoice, StoredDefinition{Options: []byte(`["a","b"]`)}},
		{"choice key out of range", model.QuestionTypeMultipleChoice, StoredDefinition{Options: []byte(`["a","b","c"]`), CorrectAnswer: "E"}},
		{"choice options object", model.QuestionTypeMultipleChoice, StoredDefinition{Options: []byte(`{"A":"a"}`), CorrectAnswer: "A"}},
		{"fill blank empty", model.QuestionTypeFillBlank, StoredDefinition{}},
		{"matching without pairs", model.QuestionTypeMatching, StoredDefinition{}},
		{"matching pair missing right", model.QuestionTypeMatching, StoredDefinition{Options: []byte(`[{"left":"France"}]`)}},
		{"ranking key not permutation", model.QuestionTypeRanking, StoredDefinition{Options: []byte(`["a","b"]`), CorrectAnswer: `["a","c"]`}},
		{"ranking empty", model.QuestionTypeRanking, StoredDefinition{Options: []byte(`[]`)}},
		{"drag drop unknown zone", model.QuestionTypeDragDrop, StoredDefinition{
			Options:       []byte(`{"zones":["Fruit"],"items":["apple"]}`),
			CorrectAnswer: `{"zones":[{"zone":"Meat","items":["apple"]}]}`,
		}},
		{"unknown type", model.QuestionType("poll"), StoredDefinition{}},
	}

	for _, tc := range tests {
		if _, err := DecodeDefinition(tc.qtype, tc.stored); !errors.Is(err, ErrMalformedAnswer) {
			t.Errorf("%s: err = %v, want ErrMalformedAnswer", tc.name, err)
		}
	}
}

func TestSplitBlanks(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"Paris", []string{"Paris"}},
		{"Paris|1889", []string{"Paris", "1889"}},
		{"a||b", []string{"a", "", "b"}},
		{"a|", []string{"a", ""}},
		{`a\|b|c`, []string{"a|b", "c"}},
		{`a\\|b`, []string{`a\`, "b"}},
		{`trailing\`, []string{`trailing\`}},
	}

	for _, tc := range tests {
		got := splitBlanks(tc.input)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitBlanks(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestBlankAnswerPadded(t *testing.T) {
	a := BlankAnswer{Blanks: []string{"x", "y", "z"}}

	if got := a.Padded(5); !reflect.DeepEqual(got, []string{"x", "y", "z", "", ""}) {
		t.Errorf("Padded(5) = %q", got)
	}
	if got := a.Padded(2); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Padded(2) = %q", got)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		resp Response
		want string
	}{
		{
			"choice",
			ChoiceDefinition{Options: []string{"Paris", "London"}, Correct: []string{"A"}},
			ChoiceAnswer{Selected: []string{"B"}},
			"B. London",
		},
		{
			"choice unanswered",
			ChoiceDefinition{Options: []string{"Paris", "London"}, Correct: []string{"A"}},
			ChoiceAnswer{},
			"(no answer)",
		},
		{
			"blanks padded",
			BlankDefinition{Correct: []string{"a", "b", "c"}},
			BlankAnswer{Blanks: []string{"paris"}},
			"[1] paris, [2] _, [3] _",
		},
		{
			"matching",
			MatchingDefinition{Pairs: []Pair{{Left: "France", Right: "Paris"}, {Left: "Italy", Right: "Rome"}}},
			MatchingAnswer{Choices: map[int]string{0: "Paris"}},
			"France -> Paris\nItaly -> _",
		},
		{
			"ranking",
			RankingDefinition{Items: []string{"a", "b"}},
			RankingAnswer{Order: []string{"b", "a"}},
			"1. b\n2. a",
		},
		{
			"drag drop in zone order",
			DragDropDefinition{Zones: []string{"Fruit", "Vegetable"}},
			DragDropAnswer{Placements: map[string][]string{"Vegetable": {"carrot"}, "Fruit": {"apple", "pear"}}},
			"Fruit: apple, pear\nVegetable: carrot",
		},
		{
			"empty essay",
			FreeTextDefinition{Kind: model.QuestionTypeEssay},
			FreeTextAnswer{Kind: model.QuestionTypeEssay, Text: "  "},
			"(no answer)",
		},
	}

	for _, tc := range tests {
		if got := Render(tc.def, tc.resp); got != tc.want {
			t.Errorf("%s: Render = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRenderStored_SurfacesDecodeError(t *testing.T) {
	def := StoredDefinition{Options: []byte(`["a","b"]`), CorrectAnswer: `["b","a"]`}

	_, err := RenderStored(model.QuestionTypeRanking, def, model.AnswerInput{AnswerText: "b,a"})
	if !errors.Is(err, ErrMalformedAnswer) {
		t.Fatalf("err = %v, want ErrMalformedAnswer", err)
	}

	got, err := RenderStored(model.QuestionTypeRanking, def, model.AnswerInput{AnswerText: `["b","a"]`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1. b\n2. a" {
		t.Errorf("RenderStored = %q", got)
	}
}

func TestRemapChoice(t *testing.T) {
	perm := []int{2, 0, 1} // displayed A shows option C
	ptr := func(s string) *string { return &s }

	got, err := RemapChoice(model.AnswerInput{SelectedOption: ptr("a")}, perm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SelectedOption == nil || *got.SelectedOption != "C" {
		t.Errorf("single remap = %+v, want C", got)
	}

	got, err = RemapChoice(model.AnswerInput{SelectedOptions: []string{"A", "B"}}, perm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.SelectedOptions, []string{"A", "C"}) {
		t.Errorf("multi remap = %v, want [A C]", got.SelectedOptions)
	}

	if _, err := RemapChoice(model.AnswerInput{SelectedOption: ptr("D")}, perm); !errors.Is(err, ErrMalformedAnswer) {
		t.Errorf("out of range err = %v, want ErrMalformedAnswer", err)
	}

	in := model.AnswerInput{SelectedOption: ptr("B")}
	if got, _ := RemapChoice(in, nil); !reflect.DeepEqual(got, in) {
		t.Errorf("nil perm changed input: %+v", got)
	}
}

func TestPublicOptions_HidesKeyOrder(t *testing.T) {
	ranking := RankingDefinition{Items: []string{"Venus", "Earth", "Mars"}}
	if got := string(PublicOptions(ranking, nil)); got != `["Earth","Mars","Venus"]` {
		t.Errorf("ranking options = %s", got)
	}
	if got := string(PublicOptions(ranking, []int{2, 0, 1})); got != `["Mars","Venus","Earth"]` {
		t.Errorf("permuted ranking options = %s", got)
	}

	matching := MatchingDefinition{Pairs: []Pair{{Left: "Italy", Right: "Rome"}, {Left: "France", Right: "Paris"}}}
	if got := string(PublicOptions(matching, nil)); got != `{"left":["Italy","France"],"right":["Paris","Rome"]}` {
		t.Errorf("matching options = %s", got)
	}

	choice := ChoiceDefinition{Options: []string{"a", "b", "c"}, Correct: []string{"A"}}
	if got := string(PublicOptions(choice, []int{1, 2, 0})); got != `["b","c","a"]` {
		t.Errorf("choice options = %s", got)
	}

	if got := PublicOptions(FreeTextDefinition{Kind: model.QuestionTypeEssay}, nil); got != nil {
		t.Errorf("essay options = %s, want nil", got)
	}
}
