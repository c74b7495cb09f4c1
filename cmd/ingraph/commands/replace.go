package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/spf13/cobra"
)

var (
	replaceDelay time.Duration
	replaceJSON  bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace <file>",
	Short: "Replace nodes one by one through the things API",
	Long: `Replace every node of a JSON-LD file through the things API.

Each node is deleted by its @id, then re-imported after --delay. The two
calls are not atomic: a node is missing while the delay runs, and stays
missing if the import fails. Processing stops at the first failure.

Requires INGRAPH_THINGS_API_KEY (or things.api_key in ingraph.yml).

Examples:
  ingraph replace updated-nodes.jsonld
  ingraph replace --delay 2s node.jsonld`,
	Args: cobra.ExactArgs(1),
	RunE: runReplace,
}

func init() {
	replaceCmd.Flags().DurationVar(&replaceDelay, "delay", 0, "Wait between delete and import (default from config, 10s)")
	replaceCmd.Flags().BoolVar(&replaceJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(replaceCmd)
}

func runReplace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("delay") {
		if replaceDelay < 0 {
			return printer.Error("invalid delay", fmt.Sprintf("--delay must be >= 0, got %s", replaceDelay), nil)
		}
		cfg.Things.ReplaceDelay = replaceDelay
	}

	store, target, err := newBackend(cfg)
	if err != nil {
		return err
	}

	doc, err := jsonld.NewNormalizer(cfg.JSONLDContext()).ReadFile(args[0])
	if err != nil {
		return storeError("invalid knowledge graph", err, target)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	orch, cleanup, err := newOrchestrator(ctx, cfg, store, true)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := orch.ReplaceNodes(ctx, doc)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoThingsAPI) {
			return printer.Error("things API not configured", err.Error(), nil)
		}
		if len(summary.Replaced) > 0 {
			printer.Warning("%d of %d nodes were replaced before the failure\n", len(summary.Replaced), doc.Len())
		}
		return printer.ErrorWithContext(
			"replace failed",
			err.Error(),
			map[string]string{"Things API": cfg.Things.URL},
			[]string{"Check the things API key and that the node ids exist"},
		)
	}

	if replaceJSON {
		return render.FormatSingleJSON(printer.Stdout(), summary)
	}
	printer.Println()
	printer.Success("Replaced %d nodes\n", len(summary.Replaced))
	return nil
}
