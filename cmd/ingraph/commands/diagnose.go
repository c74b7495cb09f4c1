package commands

import (
	"github.com/intendproject/ingraph/internal/diagnose"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/spf13/cobra"
)

var (
	diagnoseRepository string
	diagnoseJSON       bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Find an upload variant GraphDB accepts",
	Long: `Try uploading a JSON-LD file with several content types, with an explicit
charset, and as a small chunk of its first nodes, stopping at the first
variant GraphDB accepts. Then check the repository answers queries.

Accepted attempts write data: run it against a scratch repository when the
target must stay clean. diagnose always talks to GraphDB directly.

Examples:
  ingraph diagnose KG/gateKG.jsonld
  ingraph diagnose -r scratch --json kg.jsonld`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVarP(&diagnoseRepository, "repository", "r", "", "Target repository (default from config)")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, err := jsonld.ReadRaw(args[0])
	if err != nil {
		return printer.Error("failed to read file", err.Error(), nil)
	}

	store, err := newGraphStore(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	repo := repositoryOr(diagnoseRepository, cfg)
	report, err := diagnose.Run(ctx, store, repo, content)
	if report == nil {
		return printer.Error("diagnostics failed", err.Error(), nil)
	}

	if diagnoseJSON {
		if ferr := render.FormatSingleJSON(printer.Stdout(), report); ferr != nil {
			return ferr
		}
	} else {
		render.FormatDiagnosis(printer.Stdout(), report)
		printer.Println()
		if _, ok := report.Succeeded(); ok {
			printer.Success("%s\n", report.Hint())
		} else {
			printer.Warning("%s\n", report.Hint())
		}
	}
	if err != nil {
		return printer.Error("diagnostics interrupted", err.Error(), nil)
	}
	return nil
}
