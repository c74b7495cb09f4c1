package commands

import (
	"fmt"

	"github.com/intendproject/ingraph/internal/printer"
	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear [repository]",
	Short: "Delete every statement in a repository",
	Long: `Delete every statement in a repository. The repository itself is kept.

This cannot be undone, so --yes is required.

Examples:
  ingraph clear --yes
  ingraph clear second-graph --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm deleting all statements")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo := repositoryOr(argOrRepository(args), cfg)

	if !clearYes {
		return printer.Error(
			"confirmation required",
			fmt.Sprintf("Clearing '%s' deletes every statement in it.", repo),
			[]string{fmt.Sprintf("Run again with --yes:\n  ingraph clear %s --yes", repo)},
		)
	}

	store, target, err := newBackend(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	orch, cleanup, err := newOrchestrator(ctx, cfg, store, false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orch.Clear(ctx, repo); err != nil {
		return storeError("failed to clear repository", err, target)
	}
	return nil
}
