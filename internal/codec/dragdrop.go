package codec

import (
	"sort"

	"github.com/stemsi/exstem-assess/internal/model"
)

// DragDropDefinition describes the drop zones, the draggable items and which
// items belong in each zone. Placement item lists are sorted, and a zone that
// must stay empty maps to nil.
type DragDropDefinition struct {
	Zones      []string
	Items      []string
	Placements map[string][]string
}

func (DragDropDefinition) Type() model.QuestionType { return model.QuestionTypeDragDrop }
func (DragDropDefinition) definition()              {}

// DragDropAnswer maps each zone to the items the student dropped into it.
// Item lists are sorted and an empty zone maps to nil. Placements is nil when
// no item was placed at all.
type DragDropAnswer struct {
	Placements map[string][]string
}

func (DragDropAnswer) Type() model.QuestionType { return model.QuestionTypeDragDrop }
func (DragDropAnswer) response()                {}

type dropOptions struct {
	Zones []string `json:"zones"`
	Items []string `json:"items"`
}

type dropKey struct {
	Zones []dropZone `json:"zones"`
}

type dropZone struct {
	Zone  string   `json:"zone"`
	Items []string `json:"items"`
}

func decodeDragDropDefinition(s StoredDefinition) (DragDropDefinition, error) {
	const t = model.QuestionTypeDragDrop
	var opts dropOptions
	if isNull(s.Options) {
		return DragDropDefinition{}, malformed(t, "options", "no zones defined", nil)
	}
	if err := decodeJSON(schemaDropOptions, s.Options, &opts); err != nil {
		return DragDropDefinition{}, malformed(t, "options", "expected {zones, items}", err)
	}

	var key dropKey
	if s.CorrectAnswer == "" {
		return DragDropDefinition{}, malformed(t, "correct_answer", "no placements defined", nil)
	}
	if err := decodeJSON(schemaDropKey, []byte(s.CorrectAnswer), &key); err != nil {
		return DragDropDefinition{}, malformed(t, "correct_answer", "expected {zones: [{zone, items}]}", err)
	}

	known := make(map[string]struct{}, len(opts.Zones))
	for _, z := range opts.Zones {
		known[z] = struct{}{}
	}
	placements := make(map[string][]string, len(key.Zones))
	for _, z := range key.Zones {
		if _, ok := known[z.Zone]; !ok {
			return DragDropDefinition{}, malformed(t, "correct_answer", "placement for unknown zone "+z.Zone, nil)
		}
		placements[z.Zone] = sortedItems(z.Items)
	}

	return DragDropDefinition{Zones: opts.Zones, Items: opts.Items, Placements: placements}, nil
}

func (d DragDropDefinition) encode() StoredDefinition {
	key := dropKey{Zones: make([]dropZone, 0, len(d.Placements))}
	for _, z := range d.Zones {
		if items, ok := d.Placements[z]; ok {
			key.Zones = append(key.Zones, dropZone{Zone: z, Items: nonNil(items)})
		}
	}
	return StoredDefinition{
		Options:       mustMarshal(dropOptions{Zones: d.Zones, Items: d.Items}),
		CorrectAnswer: string(mustMarshal(key)),
	}
}

func decodeDragDropAnswer(in model.AnswerInput) (DragDropAnswer, error) {
	if in.AnswerText == "" {
		return DragDropAnswer{}, nil
	}
	var raw map[string][]string
	if err := decodeJSON(schemaDropResponse, []byte(in.AnswerText), &raw); err != nil {
		return DragDropAnswer{}, malformed(model.QuestionTypeDragDrop, "answer_text", "expected an object of zone to item list", err)
	}
	a := DragDropAnswer{Placements: make(map[string][]string, len(raw))}
	for zone, items := range raw {
		a.Placements[zone] = sortedItems(items)
	}
	if a.empty() {
		return DragDropAnswer{}, nil
	}
	return a, nil
}

func (a DragDropAnswer) encode() model.AnswerInput {
	if a.empty() {
		return model.AnswerInput{}
	}
	raw := make(map[string][]string, len(a.Placements))
	for zone, items := range a.Placements {
		raw[zone] = nonNil(items)
	}
	return model.AnswerInput{AnswerText: string(mustMarshal(raw))}
}

func (a DragDropAnswer) empty() bool {
	for _, items := range a.Placements {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

// sortedItems is sortedCopy with nil for an empty list.
func sortedItems(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return sortedCopy(items)
}

// nonNil keeps an empty item list encoding as [] rather than null.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func sortedCopy(items []string) []string {
	out := append([]string{}, items...)
	sort.Strings(out)
	return out
}
