package commands

import (
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/spf13/cobra"
)

var (
	uploadRepository string
	uploadNoCreate   bool
	uploadJSON       bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Normalize a knowledge graph and upload it",
	Long: `Normalize a JSON-LD file and upload it to a repository.

Before uploading, ingraph checks GraphDB is reachable and creates the
repository when it does not exist (disable with --no-create). After the
upload the repository triple count is read back; when that read fails the
upload still succeeds and the count is reported as unknown.

Examples:
  ingraph upload KG/gateKG.jsonld
  ingraph upload -r second-graph --no-create kg.jsonld
  ingraph upload --json kg.jsonld | jq .total_triples`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadRepository, "repository", "r", "", "Target repository (default from config)")
	uploadCmd.Flags().BoolVar(&uploadNoCreate, "no-create", false, "Fail instead of creating a missing repository")
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
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

	doc, err := jsonld.NewNormalizer(cfg.JSONLDContext()).ReadFile(args[0])
	if err != nil {
		return storeError("invalid knowledge graph", err, target)
	}

	orch, cleanup, err := newOrchestrator(ctx, cfg, store, false)
	if err != nil {
		return err
	}
	defer cleanup()

	desc := cfg.Descriptor()
	if uploadRepository != "" {
		desc = graphstore.RepositoryDescriptor{ID: uploadRepository}.WithDefaults()
	}

	var result *orchestrator.Result
	if uploadNoCreate {
		result, err = orch.Upload(ctx, doc, desc.ID)
	} else {
		result, err = orch.EnsureAndUpload(ctx, doc, desc)
	}
	if err != nil {
		return storeError("upload failed", err, target)
	}

	if uploadJSON {
		return render.FormatSingleJSON(printer.Stdout(), result)
	}

	printer.Println()
	printer.Success("Upload successful\n")
	printer.Detail("Repository:    %s\n", result.Repository)
	printer.Detail("Filename:      %s\n", result.Filename)
	printer.Detail("Nodes:         %d\n", doc.Len())
	printer.Detail("Total triples: %s\n", result.TripleCount)
	return nil
}
