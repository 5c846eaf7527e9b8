package commands

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	checkCmd.AddCommand(checkGradesCmd, checkContentCmd, checkAllCmd)
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs a single check.",
}

// runCheck builds and runs a domain's checker with a fresh app, so that
// concurrent checks share no clients or connections.
func runCheck(ctx context.Context, domain string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	switch domain {
	case "grades":
		checker, err := a.grades(ctx)
		if err != nil {
			return err
		}
		return checker.Run(ctx)
	default:
		checker, err := a.content(ctx)
		if err != nil {
			return err
		}
		return checker.Run(ctx)
	}
}

var checkGradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Checks the grade portal for new or changed grades.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), "grades")
	},
}

var checkContentCmd = &cobra.Command{
	Use:   "content",
	Short: "Checks the content portal for new lessons.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), "content")
	},
}

var checkAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Checks every configured domain concurrently.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig(configPath)
		if err != nil {
			return err
		}

		// a failing domain does not cancel the other
		var group errgroup.Group
		if config.Grades != nil {
			group.Go(func() error {
				return runCheck(cmd.Context(), "grades")
			})
		}
		if config.Content != nil {
			group.Go(func() error {
				return runCheck(cmd.Context(), "content")
			})
		}
		return group.Wait()
	},
}
