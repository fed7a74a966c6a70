package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/grading"
	"github.com/stemsi/exstem-assess/internal/model"
)

var gradeCmd = &cobra.Command{
	Use:   "grade --question q.json --answer a.json",
	Short: "Grade one answer against one question offline",
	Long: "Decode a question (as stored in the question bank) and an answer " +
		"(answer_text / selected_option / selected_options), then print the score " +
		"and the rendered answer. No database is needed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		questionPath, _ := cmd.Flags().GetString("question")
		answerPath, _ := cmd.Flags().GetString("answer")
		precision, _ := cmd.Flags().GetInt("precision")

		var q model.Question
		if err := readJSON(questionPath, &q); err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		var in model.AnswerInput
		if err := readJSON(answerPath, &in); err != nil {
			return fmt.Errorf("read answer: %w", err)
		}

		stored := codec.FromQuestion(&q)
		if _, err := codec.DecodeDefinition(q.QuestionType, stored); err != nil {
			return err
		}

		engine := grading.NewEngine(grading.WithPrecision(precision))
		res := engine.Grade(grading.Item{
			QuestionID: q.ID,
			Type:       q.QuestionType,
			Definition: stored,
			MaxScore:   float64(q.Points),
		}, in)

		out := cmd.OutOrStdout()
		switch {
		case res.RequiresManualReview:
			fmt.Fprintf(out, "score: pending manual review (max %.2f)\n", res.MaxScore)
		default:
			fmt.Fprintf(out, "score: %.*f/%.2f (%d of %d correct)\n", precision, *res.Score, res.MaxScore, res.Correct, res.Total)
		}
		if res.Err != nil {
			fmt.Fprintf(out, "error: %v\n", res.Err)
		}

		rendered, err := codec.RenderStored(q.QuestionType, stored, in)
		if err != nil {
			return nil
		}
		fmt.Fprintf(out, "answer: %s\n", rendered)
		return nil
	},
}

func init() {
	gradeCmd.Flags().String("question", "", "Path to the question JSON")
	gradeCmd.Flags().String("answer", "", "Path to the answer JSON")
	gradeCmd.Flags().Int("precision", 2, "Decimal places for scores")
	gradeCmd.MarkFlagRequired("question")
	gradeCmd.MarkFlagRequired("answer")
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
