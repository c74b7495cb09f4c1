package commands

import (
	"errors"
	"fmt"

	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// storeError prints a typed store error with troubleshooting suggestions
// and returns the short error for cobra. target is the GraphDB or facade URL.
func storeError(title string, err error, target string) error {
	var rejected *graphstore.RejectedError

	switch {
	case graphstore.IsUnavailable(err):
		return printer.ErrorWithContext(
			title,
			err.Error(),
			map[string]string{"Server": target},
			[]string{
				fmt.Sprintf("Check that GraphDB is running and reachable at %s", target),
				"Start a local GraphDB:\n  ingraph graphdb up",
				"Point at another server:\n  ingraph --graphdb-url http://host:7200 ...",
			},
		)

	case graphstore.IsNotFound(err):
		return printer.Error(
			title,
			err.Error(),
			[]string{
				"List repositories:\n  ingraph repos",
				"Create the repository first:\n  ingraph setup --repository <id>",
			},
		)

	case graphstore.IsAlreadyExists(err):
		return printer.Error(title, err.Error(), []string{"Use the existing repository, or pick another id"})

	case jsonld.IsFormatError(err), orchestrator.IsValidation(err):
		return printer.Error(
			title,
			err.Error(),
			[]string{"Inspect the file:\n  ingraph validate <file>"},
		)

	case errors.As(err, &rejected):
		return printer.ErrorWithContext(
			title,
			fmt.Sprintf("GraphDB answered %d.", rejected.StatusCode),
			map[string]string{
				"Server":   target,
				"Response": firstLine(rejected.Body),
			},
			[]string{
				"Verify the JSON-LD file is valid:\n  ingraph validate <file>",
				"Try upload variations:\n  ingraph diagnose <file>",
				"Check GraphDB logs for detailed error messages",
			},
		)
	}

	return printer.Error(title, err.Error(), nil)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	if s == "" {
		return "-"
	}
	return s
}
