package graphstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultRuleset is the GraphDB inference ruleset used when none is given.
const DefaultRuleset = "rdfsplus-optimized"

// StateRunning is the GraphDB state of a repository that is open for requests.
const StateRunning = "RUNNING"

// RepositoryDescriptor identifies a repository to create or upload into.
// ID is the unique key used for existence checks.
type RepositoryDescriptor struct {
	ID      string `json:"id" validate:"required,max=128,excludesall=/?#&% "`
	Title   string `json:"title" validate:"max=256"`
	Ruleset string `json:"ruleset" validate:"omitempty,oneof=empty rdfs rdfsplus owl-horst owl-max owl2-rl owl2-ql rdfs-optimized rdfsplus-optimized owl-horst-optimized owl-max-optimized owl2-rl-optimized owl2-ql-optimized"`
}

var descriptorValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the descriptor fields.
func (d RepositoryDescriptor) Validate() error {
	if err := descriptorValidator.Struct(d); err != nil {
		return fmt.Errorf("invalid repository descriptor: %w", err)
	}
	return nil
}

// WithDefaults fills in the title and ruleset when they are empty.
func (d RepositoryDescriptor) WithDefaults() RepositoryDescriptor {
	if d.Title == "" {
		d.Title = fmt.Sprintf("%s Knowledge Graph Repository", d.ID)
	}
	if d.Ruleset == "" {
		d.Ruleset = DefaultRuleset
	}
	return d
}

// Repository is one entry of the GraphDB repository listing.
type Repository struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URI         string `json:"uri,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
	Type        string `json:"type,omitempty"`
	SesameType  string `json:"sesameType,omitempty"`
	Location    string `json:"location,omitempty"`
	State       string `json:"state,omitempty"`
	Local       bool   `json:"local"`
	Readable    bool   `json:"readable"`
	Writable    bool   `json:"writable"`
	Unsupported bool   `json:"unsupported,omitempty"`
}

// RepositoryIDs extracts the ids of a listing, preserving order.
func RepositoryIDs(repos []Repository) []string {
	ids := make([]string, 0, len(repos))
	for _, r := range repos {
		ids = append(ids, r.ID)
	}
	return ids
}

// Count is a triple total that may be unknown when it could not be read.
type Count struct {
	Value int64
	Known bool
}

// KnownCount wraps a successfully read total.
func KnownCount(n int64) Count {
	return Count{Value: n, Known: true}
}

// UnknownCount is the placeholder used when a count could not be read.
var UnknownCount = Count{}

func (c Count) String() string {
	if !c.Known {
		return "unknown"
	}
	return strconv.FormatInt(c.Value, 10)
}

// MarshalJSON renders a number, or the string "unknown".
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.FormatInt(c.Value, 10)), nil
}

// UnmarshalJSON accepts a number, a numeric string, or "unknown".
func (c *Count) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = KnownCount(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid count: %s", string(data))
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*c = KnownCount(n)
		return nil
	}
	*c = UnknownCount
	return nil
}

// RepositoryInfo combines listing metadata with size and named graphs.
type RepositoryInfo struct {
	Repository
	TripleCount Count    `json:"triple_count"`
	NamedGraphs []string `json:"named_graphs"`
}

// Format selects the Accept header of a SPARQL query.
type Format string

const (
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatCSV    Format = "csv"
	FormatTurtle Format = "turtle"
	FormatRDF    Format = "rdf"
)

var acceptHeaders = map[Format]string{
	FormatJSON:   "application/sparql-results+json",
	FormatXML:    "application/sparql-results+xml",
	FormatCSV:    "text/csv",
	FormatTurtle: "text/turtle",
	FormatRDF:    "application/rdf+xml",
}

// AcceptHeader returns the media type for a format, defaulting to SPARQL JSON results.
func AcceptHeader(f Format) string {
	if h, ok := acceptHeaders[f]; ok {
		return h
	}
	return acceptHeaders[FormatJSON]
}

// BindingValue is a single RDF term in a SPARQL JSON result row.
type BindingValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// BindingRow maps variable names to their values.
type BindingRow map[string]BindingValue

// QueryResult is a decoded application/sparql-results+json document.
type QueryResult struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []BindingRow `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`

	Duration time.Duration `json:"-"`
}

// Variables returns the projected variable names.
func (r *QueryResult) Variables() []string {
	return r.Head.Vars
}

// Rows returns the result rows.
func (r *QueryResult) Rows() []BindingRow {
	return r.Results.Bindings
}

// RawResponse is an undecoded query answer.
type RawResponse struct {
	ContentType string
	Body        []byte
}
