package lifecycle

import "github.com/stemsi/exstem-assess/internal/model"

// RecomputeHighest flags the single best graded attempt of one student at one
// exam: highest total/max ratio, earliest attempt number on ties. All other
// attempts are cleared. It returns the attempts whose flag changed.
func RecomputeHighest(subs []*model.Submission) []*model.Submission {
	var best *model.Submission
	for _, s := range subs {
		if s.Status != model.SubmissionStatusGraded {
			continue
		}
		if best == nil {
			best = s
			continue
		}
		r, br := s.ScoreRatio(), best.ScoreRatio()
		if r > br || (r == br && s.AttemptNumber < best.AttemptNumber) {
			best = s
		}
	}

	var changed []*model.Submission
	for _, s := range subs {
		want := s == best
		if s.IsHighestScore != want {
			s.IsHighestScore = want
			changed = append(changed, s)
		}
	}
	return changed
}
