package commands

import (
	"fmt"

	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/spf13/cobra"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|glob>...",
	Short: "Check that files are JSON-LD ingraph can upload",
	Long: `Inspect knowledge-graph files without modifying them.

Reports the document shape, whether @context and @graph are present, the
node count, nodes without @id, and top-level keys normalization would drop.

Examples:
  ingraph validate KG/gateKG.jsonld
  ingraph validate --json 'KG/*.jsonld'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print one JSON report per line")
	rootCmd.AddCommand(validateCmd)
}

type validateResult struct {
	File   string         `json:"file"`
	Valid  bool           `json:"valid"`
	Error  string         `json:"error,omitempty"`
	Report *jsonld.Report `json:"report,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := expandInputs(args)
	if err != nil {
		return err
	}

	results := make([]validateResult, 0, len(files))
	invalid := 0
	for _, f := range files {
		res := validateFile(f)
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}

	if validateJSON {
		if err := render.FormatJSONL(printer.Stdout(), results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Report != nil {
				render.FormatStructure(printer.Stdout(), res.File, res.Report)
			}
			if res.Valid {
				printer.Success("%s is valid JSON-LD\n\n", res.File)
			} else {
				printer.Failure("%s: %s\n\n", res.File, res.Error)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d files invalid", invalid, len(files))
	}
	return nil
}

func validateFile(path string) validateResult {
	res := validateResult{File: path}

	raw, err := jsonld.ReadRaw(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	report, err := jsonld.Inspect(raw)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Report = report

	if _, err := jsonld.Normalize(raw); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Valid = true
	return res
}
