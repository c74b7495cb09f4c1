package commands

import (
	"context"
	"slices"

	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/spf13/cobra"
)

var (
	setupRepository string
	setupTitle      string
	setupRuleset    string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Make sure the target repository exists",
	Long: `Check GraphDB is reachable and create the repository if it is missing.

The repository defaults to repository.id from ingraph.yml (GATE). An
existing repository is left untouched.

Examples:
  ingraph setup
  ingraph setup --repository second-graph --title "Second graph"`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVarP(&setupRepository, "repository", "r", "", "Repository id (default from config)")
	setupCmd.Flags().StringVar(&setupTitle, "title", "", "Repository title (defaults to the id)")
	setupCmd.Flags().StringVar(&setupRuleset, "ruleset", "", "Inference ruleset (default rdfsplus-optimized)")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, target, err := newBackend(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	desc := cfg.Descriptor()
	if setupRepository != "" {
		desc = graphstore.RepositoryDescriptor{ID: setupRepository}
	}
	if setupTitle != "" {
		desc.Title = setupTitle
	}
	if setupRuleset != "" {
		desc.Ruleset = setupRuleset
	}
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		return printer.Error("invalid repository", err.Error(), nil)
	}

	printer.Step("Checking GraphDB at %s...\n", target)
	hctx, hcancel := context.WithTimeout(ctx, cfg.GraphDB.HealthTimeout)
	err = store.Health(hctx)
	hcancel()
	if err != nil {
		return storeError("GraphDB is not available", err, target)
	}
	printer.Success("GraphDB is healthy\n")

	repos, err := store.ListRepositories(ctx)
	if err != nil {
		return storeError("failed to list repositories", err, target)
	}
	if slices.Contains(graphstore.RepositoryIDs(repos), desc.ID) {
		printer.Success("Repository '%s' already exists\n", desc.ID)
		return nil
	}

	printer.Step("Creating repository '%s' (%s)...\n", desc.ID, desc.Ruleset)
	if err := store.CreateRepository(ctx, desc); err != nil {
		if graphstore.IsAlreadyExists(err) {
			printer.Success("Repository '%s' already exists\n", desc.ID)
			return nil
		}
		return storeError("failed to create repository", err, target)
	}

	printer.Success("Repository '%s' is ready for uploads\n", desc.ID)
	return nil
}
