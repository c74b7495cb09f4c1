package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// Media types spoken by the GraphDB REST API.
const (
	ContentTypeJSONLD        = "application/ld+json"
	ContentTypeSPARQLQuery   = "application/sparql-query"
	ContentTypeSPARQLUpdate  = "application/sparql-update"
	ContentTypeSPARQLResults = "application/sparql-results+json"
)

// SPARQL statements issued by the client.
const (
	CountQuery       = "SELECT (COUNT(*) as ?count) WHERE { ?s ?p ?o }"
	ClearUpdate      = "DELETE { ?s ?p ?o } WHERE { ?s ?p ?o }"
	NamedGraphsQuery = "SELECT DISTINCT ?g WHERE { GRAPH ?g { ?s ?p ?o } }"
)

// Config holds the connection settings for a GraphDB server.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// DefaultConfig points at a local GraphDB on its standard port.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:7200",
		Timeout: 30 * time.Second,
	}
}

// Client talks to the GraphDB REST API. It performs no retries: every
// failure is returned to the caller as-is.
type Client struct {
	http *resty.Client
	cfg  Config
}

// NewClient creates a GraphDB client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("graphdb base URL cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	if cfg.Username != "" {
		httpClient.SetBasicAuth(cfg.Username, cfg.Password)
	}

	return &Client{http: httpClient, cfg: cfg}, nil
}

// BaseURL returns the GraphDB server address.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Health checks that GraphDB answers its repository listing.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/rest/repositories")
	if err != nil {
		return &UnavailableError{Op: "health", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &UnavailableError{Op: "health", StatusCode: resp.StatusCode()}
	}
	return nil
}

// ListRepositories returns every repository known to the server.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/rest/repositories")
	if err != nil {
		return nil, &UnavailableError{Op: "list repositories", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &RejectedError{Op: "list repositories", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var repos []Repository
	if err := json.Unmarshal(resp.Body(), &repos); err != nil {
		return nil, fmt.Errorf("failed to decode repository listing: %w", err)
	}
	return repos, nil
}

// ActiveRepositories returns only repositories in the RUNNING state.
func (c *Client) ActiveRepositories(ctx context.Context) ([]Repository, error) {
	repos, err := c.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if r.State == StateRunning {
			active = append(active, r)
		}
	}
	return active, nil
}

// CreateRepository creates a file-backed GraphDB repository.
// Returns AlreadyExistsError if the id is taken.
func (c *Client) CreateRepository(ctx context.Context, desc RepositoryDescriptor) error {
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(NewRepositoryConfig(desc)).
		Post("/rest/repositories")
	if err != nil {
		return &UnavailableError{Op: "create repository", Err: err}
	}

	if resp.IsSuccess() {
		return nil
	}
	if isAlreadyExistsResponse(resp.StatusCode(), resp.String()) {
		return &AlreadyExistsError{Repository: desc.ID}
	}
	return &RejectedError{Op: "create repository", StatusCode: resp.StatusCode(), Body: resp.String()}
}

// isAlreadyExistsResponse recognises GraphDB's answers for a duplicate id:
// 409 on recent versions, 400/500 with an explanatory message on older ones.
func isAlreadyExistsResponse(status int, body string) bool {
	if status == http.StatusConflict {
		return true
	}
	return status >= 400 && strings.Contains(strings.ToLower(body), "already exists")
}

// Upload sends a JSON-LD document to a repository as a single request.
func (c *Client) Upload(ctx context.Context, repoID string, doc *jsonld.Document) error {
	body, err := doc.Bytes()
	if err != nil {
		return err
	}
	return c.PostStatements(ctx, repoID, ContentTypeJSONLD, body)
}

// PostStatements posts a raw RDF payload with the given content type.
func (c *Client) PostStatements(ctx context.Context, repoID, contentType string, body []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("repository", repoID).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post("/repositories/{repository}/statements")
	if err != nil {
		return &UnavailableError{Op: "upload", Err: err}
	}
	if !resp.IsSuccess() {
		return &RejectedError{Op: fmt.Sprintf("upload to '%s'", repoID), StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Query runs a SPARQL query and returns the answer undecoded.
func (c *Client) Query(ctx context.Context, repoID, query string, format Format) (*RawResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("repository", repoID).
		SetHeader("Content-Type", ContentTypeSPARQLQuery).
		SetHeader("Accept", AcceptHeader(format)).
		SetBody(query).
		Post("/repositories/{repository}")
	if err != nil {
		return nil, &UnavailableError{Op: "query", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "repository", Name: repoID}
	}
	if !resp.IsSuccess() {
		return nil, &RejectedError{Op: "query", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return &RawResponse{
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// Select runs a SPARQL SELECT or ASK query and decodes the JSON results.
func (c *Client) Select(ctx context.Context, repoID, query string) (*QueryResult, error) {
	start := time.Now()
	raw, err := c.Query(ctx, repoID, query, FormatJSON)
	if err != nil {
		return nil, err
	}

	var result QueryResult
	if err := json.Unmarshal(raw.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse query results: %w", err)
	}
	result.Duration = time.Since(start)
	return &result, nil
}

// Update runs a SPARQL update against a repository.
func (c *Client) Update(ctx context.Context, repoID, update string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("repository", repoID).
		SetHeader("Content-Type", ContentTypeSPARQLUpdate).
		SetBody(update).
		Post("/repositories/{repository}/statements")
	if err != nil {
		return &UnavailableError{Op: "update", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &NotFoundError{Kind: "repository", Name: repoID}
	}
	if !resp.IsSuccess() {
		return &RejectedError{Op: "update", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// CountTriples counts all statements with a SPARQL aggregate.
func (c *Client) CountTriples(ctx context.Context, repoID string) (int64, error) {
	result, err := c.Select(ctx, repoID, CountQuery)
	if err != nil {
		return 0, err
	}

	rows := result.Rows()
	if len(rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	value, ok := rows[0]["count"]
	if !ok {
		return 0, fmt.Errorf("count query returned no ?count binding")
	}

	n, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid triple count %q: %w", value.Value, err)
	}
	return n, nil
}

// Size returns the repository size as reported by GraphDB.
func (c *Client) Size(ctx context.Context, repoID string) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("repository", repoID).
		Get("/repositories/{repository}/size")
	if err != nil {
		return 0, &UnavailableError{Op: "size", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, &NotFoundError{Kind: "repository", Name: repoID}
	}
	if !resp.IsSuccess() {
		return 0, &RejectedError{Op: "size", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(resp.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid repository size %q: %w", resp.String(), err)
	}
	return n, nil
}

// Clear deletes every triple in the repository. There is no confirmation.
func (c *Client) Clear(ctx context.Context, repoID string) error {
	return c.Update(ctx, repoID, ClearUpdate)
}

// NamedGraphs lists the distinct named graphs holding at least one triple.
func (c *Client) NamedGraphs(ctx context.Context, repoID string) ([]string, error) {
	result, err := c.Select(ctx, repoID, NamedGraphsQuery)
	if err != nil {
		return nil, err
	}

	graphs := make([]string, 0, len(result.Rows()))
	for _, row := range result.Rows() {
		if g, ok := row["g"]; ok {
			graphs = append(graphs, g.Value)
		}
	}
	return graphs, nil
}

// RepositoryInfo looks a repository up and enriches it with its size and
// named graphs. Size and named graphs are best effort and degrade to
// "unknown" and an empty list.
func (c *Client) RepositoryInfo(ctx context.Context, repoID string) (*RepositoryInfo, error) {
	repos, err := c.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var found *Repository
	for i := range repos {
		if repos[i].ID == repoID {
			found = &repos[i]
			break
		}
	}
	if found == nil {
		return nil, &NotFoundError{Kind: "repository", Name: repoID}
	}

	info := &RepositoryInfo{
		Repository:  *found,
		TripleCount: UnknownCount,
		NamedGraphs: []string{},
	}

	if size, err := c.Size(ctx, repoID); err == nil {
		info.TripleCount = KnownCount(size)
	}
	if graphs, err := c.NamedGraphs(ctx, repoID); err == nil {
		info.NamedGraphs = graphs
	}

	return info, nil
}
