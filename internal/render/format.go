// Package render formats repositories, query results and reports for the
// terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/intendproject/ingraph/internal/container"
	"github.com/intendproject/ingraph/internal/diagnose"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// maxCell is the widest a query result column is allowed to grow.
const maxCell = 60

// FormatRepositories writes repositories as a table with columns ID, STATE,
// ACCESS and TITLE. Returns the number of repositories formatted.
func FormatRepositories(w io.Writer, repos []graphstore.Repository, server string) int {
	if len(repos) == 0 {
		fmt.Fprintf(w, "No repositories found on %s\n", server)
		return 0
	}

	fmt.Fprintf(w, "Repositories on %s:\n\n", server)

	fmt.Fprintf(w, "%-24s %-10s %-6s %s\n", "ID", "STATE", "ACCESS", "TITLE")
	fmt.Fprintf(w, "%-24s %-10s %-6s %s\n",
		"------------------------", "----------", "------", "------------------------------")

	for _, r := range repos {
		fmt.Fprintf(w, "%-24s %-10s %-6s %s\n",
			truncate(r.ID, 24),
			formatState(r.State),
			formatAccess(r),
			truncate(r.Title, 40),
		)
	}

	noun := "repository"
	if len(repos) != 1 {
		noun = "repositories"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(repos), noun)

	return len(repos)
}

// FormatJSONL writes each value as compact JSON on its own line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON line: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// FormatInfo writes a repository summary as aligned key/value lines.
func FormatInfo(w io.Writer, info *graphstore.RepositoryInfo) {
	fmt.Fprintf(w, "%-14s %s\n", "Repository:", info.ID)
	fmt.Fprintf(w, "%-14s %s\n", "Title:", dash(info.Title))
	fmt.Fprintf(w, "%-14s %s\n", "State:", formatState(info.State))
	fmt.Fprintf(w, "%-14s %s\n", "Access:", formatAccess(info.Repository))
	fmt.Fprintf(w, "%-14s %s\n", "URI:", dash(info.URI))
	fmt.Fprintf(w, "%-14s %s\n", "Triples:", info.TripleCount)

	if len(info.NamedGraphs) == 0 {
		fmt.Fprintf(w, "%-14s %s\n", "Named graphs:", "-")
		return
	}
	fmt.Fprintf(w, "%-14s %d\n", "Named graphs:", len(info.NamedGraphs))
	for _, g := range info.NamedGraphs {
		fmt.Fprintf(w, "  %s\n", g)
	}
}

// FormatBindings writes SPARQL JSON results as a table sized to its
// contents. Returns the number of rows formatted.
func FormatBindings(w io.Writer, result *graphstore.QueryResult) int {
	if result.Boolean != nil {
		fmt.Fprintf(w, "%t\n", *result.Boolean)
		return 0
	}

	vars := result.Variables()
	rows := result.Rows()
	if len(vars) == 0 || len(rows) == 0 {
		fmt.Fprintln(w, "No results")
		return 0
	}

	widths := make([]int, len(vars))
	cells := make([][]string, len(rows))
	for i, v := range vars {
		widths[i] = len(v)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(vars))
		for i, v := range vars {
			cell := formatTerm(row[v])
			cells[r][i] = cell
			widths[i] = max(widths[i], len(cell))
		}
	}

	writeRow := func(values []string) {
		parts := make([]string, len(values))
		for i, value := range values {
			parts[i] = fmt.Sprintf("%-*s", widths[i], value)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(vars)
	rule := make([]string, len(vars))
	for i := range vars {
		rule[i] = strings.Repeat("-", widths[i])
	}
	writeRow(rule)
	for _, row := range cells {
		writeRow(row)
	}

	noun := "row"
	if len(rows) != 1 {
		noun = "rows"
	}
	if result.Duration > 0 {
		fmt.Fprintf(w, "\n%d %s (%s)\n", len(rows), noun, result.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "\n%d %s\n", len(rows), noun)
	}
	return len(rows)
}

// FormatStructure writes what Inspect found about a document.
func FormatStructure(w io.Writer, path string, report *jsonld.Report) {
	fmt.Fprintf(w, "%s\n", path)

	shape := "object"
	switch {
	case report.IsRootArray:
		shape = "array"
	case report.Wrapped():
		shape = "envelope"
	case report.SingleObject:
		shape = "single node"
	}
	fmt.Fprintf(w, "  %-14s %s\n", "shape:", shape)
	fmt.Fprintf(w, "  %-14s %s\n", "@context:", yesNo(report.HasContext))
	fmt.Fprintf(w, "  %-14s %s\n", "@graph:", yesNo(report.HasGraph))
	fmt.Fprintf(w, "  %-14s %d\n", "nodes:", report.NodeCount)
	fmt.Fprintf(w, "  %-14s %d\n", "missing @id:", report.MissingIDs)
	if len(report.SiblingKeys) > 0 {
		fmt.Fprintf(w, "  %-14s %s\n", "dropped keys:", strings.Join(report.SiblingKeys, ", "))
	}
}

// FormatDiagnosis writes each upload attempt and the accessibility probe.
func FormatDiagnosis(w io.Writer, report *diagnose.Report) {
	fmt.Fprintf(w, "Upload diagnostics for '%s' (%d bytes):\n\n", report.Repository, report.Bytes)

	fmt.Fprintf(w, "%-4s %-13s %-36s %-6s %s\n", "", "ATTEMPT", "CONTENT-TYPE", "STATUS", "DETAIL")
	for _, a := range report.Attempts {
		mark := "FAIL"
		detail := truncate(firstLine(a.Error), 50)
		if a.OK {
			mark = "OK"
			detail = fmt.Sprintf("%d bytes in %s", a.Bytes, a.Duration.Round(time.Millisecond))
		}
		fmt.Fprintf(w, "%-4s %-13s %-36s %-6s %s\n", mark, a.Name, a.ContentType, formatStatus(a.StatusCode), detail)
	}

	fmt.Fprintln(w)
	if report.Probe.Accessible {
		fmt.Fprintf(w, "Repository accessible, current triples: %s\n", report.Probe.TripleCount)
	} else {
		fmt.Fprintf(w, "Repository query failed: %s\n", truncate(firstLine(report.Probe.Error), 100))
	}
}

// FormatContainer writes the local GraphDB container state.
func FormatContainer(w io.Writer, info *container.Info) {
	fmt.Fprintf(w, "%-11s %s\n", "Container:", info.Name)
	fmt.Fprintf(w, "%-11s %s\n", "Status:", info.Status)
	if info.Status == container.StatusMissing {
		fmt.Fprintln(w, "\nStart it with: ingraph graphdb up")
		return
	}
	fmt.Fprintf(w, "%-11s %s\n", "ID:", info.ID)
	fmt.Fprintf(w, "%-11s %s\n", "Image:", info.Image)
	fmt.Fprintf(w, "%-11s %s\n", "URL:", dash(info.URL))
	fmt.Fprintf(w, "%-11s %s\n", "Uptime:", dash(info.Uptime))
	fmt.Fprintf(w, "%-11s %s\n", "Details:", dash(info.Details))
}

// SortRepositories orders repositories by id, in place.
func SortRepositories(repos []graphstore.Repository) {
	sort.Slice(repos, func(i, j int) bool { return repos[i].ID < repos[j].ID })
}

// formatTerm renders one RDF term, marking literals with a datatype or
// language tag.
func formatTerm(v graphstore.BindingValue) string {
	switch {
	case v.Type == "" && v.Value == "":
		return "-"
	case v.Type == "bnode":
		return truncate("_:"+v.Value, maxCell)
	case v.Lang != "":
		return truncate(fmt.Sprintf("%q@%s", v.Value, v.Lang), maxCell)
	}
	return truncate(v.Value, maxCell)
}

func formatState(state string) string {
	if state == "" {
		return "-"
	}
	return state
}

// formatAccess shows readable and writable flags as "rw", "r-", "-w" or "--".
func formatAccess(r graphstore.Repository) string {
	access := []byte("--")
	if r.Readable {
		access[0] = 'r'
	}
	if r.Writable {
		access[1] = 'w'
	}
	return string(access)
}

func formatStatus(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}

// truncate shortens s to n characters, ending in "..." when cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "-"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
