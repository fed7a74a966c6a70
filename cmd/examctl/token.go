package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token (student|admin) <user-id>",
	Short: "Mint a JWT signed with JWT_SECRET, for development and testing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		auth := service.NewAuthService(config.Load())

		var token string
		switch args[0] {
		case "student":
			classID, _ := cmd.Flags().GetInt("class")
			token, err = auth.GenerateStudentToken(userID, classID)
		case "admin":
			perms := make([]string, 0, len(model.AllPermissions))
			for _, p := range model.AllPermissions {
				perms = append(perms, string(p))
			}
			token, err = auth.GenerateAdminToken(userID, perms)
		default:
			return fmt.Errorf("unknown token type %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int("class", 0, "Class id embedded in student tokens")
}
