package grading

import (
	"strings"

	"github.com/stemsi/exstem-assess/internal/codec"
)

// choiceStrategy is all-or-nothing: the selected letters must equal the key
// exactly, for single and multi-select questions alike.
type choiceStrategy struct{}

func (choiceStrategy) Score(def codec.Definition, resp codec.Response) (int, int) {
	d, ok := def.(codec.ChoiceDefinition)
	a, ok2 := resp.(codec.ChoiceAnswer)
	if !ok || !ok2 {
		return 0, 1
	}
	if len(a.Selected) > 0 && setEqual(toSet(d.Correct), toSet(a.Selected)) {
		return 1, 1
	}
	return 0, 1
}

// blankStrategy awards one part per blank, compared trimmed and
// case-insensitively. Missing blanks count as empty.
type blankStrategy struct{}

func (blankStrategy) Score(def codec.Definition, resp codec.Response) (int, int) {
	d, ok := def.(codec.BlankDefinition)
	a, ok2 := resp.(codec.BlankAnswer)
	if !ok || !ok2 {
		return 0, 0
	}
	correct := 0
	for i, got := range a.Padded(len(d.Correct)) {
		if normalize(got) == normalize(d.Correct[i]) {
			correct++
		}
	}
	return correct, len(d.Correct)
}

// matchingStrategy awards one part per left item matched to its right value.
type matchingStrategy struct{}

func (matchingStrategy) Score(def codec.Definition, resp codec.Response) (int, int) {
	d, ok := def.(codec.MatchingDefinition)
	a, ok2 := resp.(codec.MatchingAnswer)
	if !ok || !ok2 {
		return 0, 0
	}
	correct := 0
	for i, p := range d.Pairs {
		if got, answered := a.Choices[i]; answered && strings.TrimSpace(got) == strings.TrimSpace(p.Right) {
			correct++
		}
	}
	return correct, len(d.Pairs)
}

// rankingStrategy awards one part per item in its target position.
type rankingStrategy struct{}

func (rankingStrategy) Score(def codec.Definition, resp codec.Response) (int, int) {
	d, ok := def.(codec.RankingDefinition)
	a, ok2 := resp.(codec.RankingAnswer)
	if !ok || !ok2 {
		return 0, 0
	}
	correct := 0
	for i, item := range d.Items {
		if i < len(a.Order) && a.Order[i] == item {
			correct++
		}
	}
	return correct, len(d.Items)
}

// dragDropStrategy awards one part per zone whose item set equals the key.
// Zones with no expected items are correct only when left empty.
type dragDropStrategy struct{}

func (dragDropStrategy) Score(def codec.Definition, resp codec.Response) (int, int) {
	d, ok := def.(codec.DragDropDefinition)
	a, ok2 := resp.(codec.DragDropAnswer)
	if !ok || !ok2 {
		return 0, 0
	}
	zones := d.Zones
	if len(zones) == 0 {
		for z := range d.Placements {
			zones = append(zones, z)
		}
	}
	correct := 0
	for _, z := range zones {
		if setEqual(toSet(d.Placements[z]), toSet(a.Placements[z])) {
			correct++
		}
	}
	return correct, len(zones)
}

// manualStrategy marks free-text types; Engine.Grade never calls Score.
type manualStrategy struct{}

func (manualStrategy) Score(codec.Definition, codec.Response) (int, int) { return 0, 0 }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
