package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/spf13/cobra"
)

var (
	queryRepository string
	queryFile       string
	queryFormat     string
	queryRaw        bool

	updateRepository string
	updateFile       string
)

var queryCmd = &cobra.Command{
	Use:   "query [sparql]",
	Short: "Run a SPARQL query",
	Long: `Run a SPARQL query given inline or with --file.

JSON results are shown as a table; use --raw for the SPARQL JSON document.
Other formats (xml, csv, turtle, rdf) are printed as GraphDB returns them.

Examples:
  ingraph query 'SELECT ?s WHERE { ?s ?p ?o } LIMIT 10'
  ingraph query -f queries/intents.rq -r GATE
  ingraph query -f all.sparql --format csv > out.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var updateCmd = &cobra.Command{
	Use:   "update [sparql]",
	Short: "Run a SPARQL update",
	Long: `Run a SPARQL update (INSERT, DELETE, ...) given inline or with --file.

Examples:
  ingraph update -f query_delete.sparql
  ingraph update 'DELETE WHERE { <https://intendproject.eu/gate/x> ?p ?o }'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	queryCmd.Flags().StringVarP(&queryRepository, "repository", "r", "", "Repository (default from config)")
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "Read the query from a .sparql or .rq file")
	queryCmd.Flags().StringVar(&queryFormat, "format", "json", "Result format: json, xml, csv, turtle, rdf")
	queryCmd.Flags().BoolVar(&queryRaw, "raw", false, "Print JSON results unformatted")
	rootCmd.AddCommand(queryCmd)

	updateCmd.Flags().StringVarP(&updateRepository, "repository", "r", "", "Repository (default from config)")
	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "Read the update from a .sparql or .rq file")
	rootCmd.AddCommand(updateCmd)
}

// readSPARQL returns the inline argument or the contents of file.
func readSPARQL(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", printer.Error("ambiguous input", "Pass either an inline query or --file, not both.", nil)
	case file != "":
		ext := strings.ToLower(file[strings.LastIndex(file, ".")+1:])
		if ext != "sparql" && ext != "rq" {
			return "", printer.Error(
				"unsupported file type",
				fmt.Sprintf("%s is not a .sparql or .rq file.", file),
				nil,
			)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", printer.Error("failed to read query file", err.Error(), nil)
		}
		return string(data), nil
	case len(args) > 0 && strings.TrimSpace(args[0]) != "":
		return args[0], nil
	}
	return "", printer.Error("no query provided", "Pass the query inline or with --file.", nil)
}

func runQuery(cmd *cobra.Command, args []string) error {
	format := graphstore.Format(queryFormat)
	switch format {
	case graphstore.FormatJSON, graphstore.FormatXML, graphstore.FormatCSV, graphstore.FormatTurtle, graphstore.FormatRDF:
	default:
		return printer.Error(
			"invalid format",
			fmt.Sprintf("Unknown format: %s", queryFormat),
			[]string{"Valid formats: json, xml, csv, turtle, rdf"},
		)
	}

	query, err := readSPARQL(args, queryFile)
	if err != nil {
		return err
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

	repo := repositoryOr(queryRepository, cfg)

	if format == graphstore.FormatJSON && !queryRaw {
		result, err := store.Select(ctx, repo, query)
		if err != nil {
			return storeError("query execution failed", err, target)
		}
		render.FormatBindings(printer.Stdout(), result)
		return nil
	}

	raw, err := store.Query(ctx, repo, query, format)
	if err != nil {
		return storeError("query execution failed", err, target)
	}
	out := printer.Stdout()
	if _, err := out.Write(raw.Body); err != nil {
		return err
	}
	if len(raw.Body) > 0 && raw.Body[len(raw.Body)-1] != '\n' {
		fmt.Fprintln(out)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	update, err := readSPARQL(args, updateFile)
	if err != nil {
		return err
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

	repo := repositoryOr(updateRepository, cfg)
	if err := store.Update(ctx, repo, update); err != nil {
		return storeError("update operation failed", err, target)
	}
	printer.Success("Update operation completed on '%s'\n", repo)
	return nil
}
