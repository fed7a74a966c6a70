package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <submission-id>",
	Short: "Print a finalized attempt with every answer rendered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		submissionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid submission id: %w", err)
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		review, err := a.grading.Review(cmd.Context(), submissionID, 0)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sub := review.Submission
		fmt.Fprintf(out, "attempt %d of student %d: %s", sub.AttemptNumber, sub.StudentID, sub.Status)
		if sub.TotalScore != nil {
			fmt.Fprintf(out, ", %.2f/%.2f", *sub.TotalScore, sub.MaxScore)
		}
		if sub.IsLate {
			fmt.Fprint(out, ", late")
		}
		if sub.ProctoringData.IsTerminatedForViolations {
			fmt.Fprint(out, ", terminated")
		}
		fmt.Fprintln(out)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUESTION\tTYPE\tSCORE\tANSWER")
		for _, ans := range review.Answers {
			score := "pending"
			if ans.Score != nil {
				score = fmt.Sprintf("%.2f/%.2f", *ans.Score, ans.MaxScore)
			}
			rendered := ans.Rendered
			if ans.RenderError != "" {
				rendered = "! " + ans.RenderError
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ans.QuestionID, ans.QuestionType, score, rendered)
		}
		return tw.Flush()
	},
}
