package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recomputeHighestCmd = &cobra.Command{
	Use:   "recompute-highest <exam-id>",
	Short: "Re-derive the highest-score flag for every student of an exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid exam id: %w", err)
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		changed, err := a.grading.RecomputeHighest(cmd.Context(), examID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d attempt(s) updated\n", changed)
		return nil
	},
}
