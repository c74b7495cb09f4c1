package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/spf13/cobra"
)

var (
	normalizeOutput string
	normalizeStdout bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file|glob>...",
	Short: "Wrap JSON-LD files in the {\"@context\", \"@graph\"} envelope",
	Long: `Normalize knowledge-graph files into the canonical JSON-LD envelope.

Accepts a bare array of nodes, a single node, or an object that already has
@graph. The configured context (or the built-in INTEND context) is applied.
Each input is written next to itself with a _fixed suffix unless --output is
given.

Arguments may be doublestar globs, quoted so the shell leaves them alone.

Examples:
  # Fix one file (writes KG/gateKG_fixed.jsonld)
  ingraph normalize KG/gateKG.jsonld

  # Fix every knowledge graph under KG/
  ingraph normalize 'KG/**/*.jsonld'

  # Print the normalized document
  ingraph normalize --stdout gateKG.jsonld`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "Output path (single input only)")
	normalizeCmd.Flags().BoolVar(&normalizeStdout, "stdout", false, "Write the result to stdout instead of a file")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := expandInputs(args)
	if err != nil {
		return err
	}
	if (normalizeOutput != "" || normalizeStdout) && len(files) > 1 {
		return printer.Error(
			"too many inputs",
			fmt.Sprintf("--output and --stdout take a single input, got %d files.", len(files)),
			[]string{"Drop the flag to write each file next to its input"},
		)
	}

	normalizer := jsonld.NewNormalizer(cfg.JSONLDContext())

	if normalizeStdout {
		doc, err := normalizer.ReadFile(files[0])
		if err != nil {
			return storeError("normalization failed", err, "")
		}
		data, err := doc.Bytes()
		if err != nil {
			return err
		}
		_, err = printer.Stdout().Write(data)
		return err
	}

	failed := 0
	for _, in := range files {
		out := normalizeOutput
		if out == "" {
			out = jsonld.DefaultOutputPath(in)
		}

		doc, err := normalizer.FixFile(in, out)
		if err != nil {
			printer.Failure("%s: %v\n", in, err)
			failed++
			continue
		}
		printer.Success("%s → %s (%d nodes)\n", in, out, doc.Len())
	}

	if failed > 0 {
		return printer.Error(
			"normalization failed",
			fmt.Sprintf("%d of %d files could not be normalized.", failed, len(files)),
			[]string{"Inspect a file:\n  ingraph validate <file>"},
		)
	}
	return nil
}

// expandInputs resolves each argument as a glob, falling back to the literal
// path when it has no pattern characters. The result is sorted and unique.
func expandInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, printer.Error("invalid pattern", fmt.Sprintf("%q: %v", arg, err), nil)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(arg); statErr != nil {
				return nil, printer.Error(
					"no input files",
					fmt.Sprintf("Nothing matches %q.", arg),
					[]string{"Check the path, and quote globs so the shell does not expand them"},
				)
			}
			matches = []string{arg}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
