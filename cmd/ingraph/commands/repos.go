package commands

import (
	"fmt"

	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/spf13/cobra"
)

var (
	reposActive bool
	reposOutput string
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories",
	Long: `List GraphDB repositories, or only running ones with --active.

Output Formats:
  default - Table with id, state, access and title
  json    - One JSON object per line

Examples:
  ingraph repos
  ingraph repos --active --output=json`,
	Args: cobra.NoArgs,
	RunE: runRepos,
}

func init() {
	reposCmd.Flags().BoolVar(&reposActive, "active", false, "Only list running repositories")
	reposCmd.Flags().StringVarP(&reposOutput, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, args []string) error {
	if reposOutput != "default" && reposOutput != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", reposOutput),
			[]string{"Valid formats: default, json"},
		)
	}

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

	var repos []graphstore.Repository
	if reposActive {
		repos, err = store.ActiveRepositories(ctx)
	} else {
		repos, err = store.ListRepositories(ctx)
	}
	if err != nil {
		return storeError("failed to list repositories", err, target)
	}
	render.SortRepositories(repos)

	if reposOutput == "json" {
		return render.FormatJSONL(printer.Stdout(), repos)
	}
	render.FormatRepositories(printer.Stdout(), repos, target)
	return nil
}
