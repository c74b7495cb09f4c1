package commands

import (
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/spf13/cobra"
)

var (
	infoJSON bool
	sizeJSON bool
)

var infoCmd = &cobra.Command{
	Use:   "info [repository]",
	Short: "Show repository details, size and named graphs",
	Long: `Show a repository's metadata together with its triple count and named
graphs. Size and named graphs are best effort: when they cannot be read the
count shows as unknown and the graph list is empty.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

var sizeCmd = &cobra.Command{
	Use:   "size [repository]",
	Short: "Print the number of statements in a repository",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSize,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print as JSON")
	sizeCmd.Flags().BoolVar(&sizeJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(sizeCmd)
}

func argOrRepository(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	repo := repositoryOr(argOrRepository(args), cfg)
	info, err := store.RepositoryInfo(ctx, repo)
	if err != nil {
		return storeError("failed to get repository info", err, target)
	}

	if infoJSON {
		return render.FormatSingleJSON(printer.Stdout(), info)
	}
	render.FormatInfo(printer.Stdout(), info)
	return nil
}

func runSize(cmd *cobra.Command, args []string) error {
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

	repo := repositoryOr(argOrRepository(args), cfg)
	size, err := store.Size(ctx, repo)
	if err != nil {
		return storeError("failed to get repository size", err, target)
	}

	if sizeJSON {
		return render.FormatSingleJSON(printer.Stdout(), map[string]any{"repository": repo, "size": size})
	}
	printer.Printf("%d\n", size)
	return nil
}
