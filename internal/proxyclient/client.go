// Package proxyclient talks to an ingraph-server facade instead of GraphDB.
// It exposes the same operations as graphstore.Client so either can back
// the orchestrator and the CLI.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/intendproject/ingraph/internal/api"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// Client is a facade client. It never retries.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New creates a facade client for baseURL (e.g. http://localhost:5000).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("proxy URL cannot be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{http: httpClient, baseURL: baseURL}, nil
}

// BaseURL returns the facade address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks the facade and, through it, GraphDB.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return &graphstore.UnavailableError{Op: "health", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &graphstore.UnavailableError{Op: "health", StatusCode: resp.StatusCode()}
	}
	return nil
}

// ListRepositories returns the repository details reported by the facade.
func (c *Client) ListRepositories(ctx context.Context) ([]graphstore.Repository, error) {
	var body api.RepositoriesResponse
	if err := c.getJSON(ctx, "list repositories", "/repositories", &body); err != nil {
		return nil, err
	}
	return body.Details, nil
}

// ActiveRepositories returns only running repositories.
func (c *Client) ActiveRepositories(ctx context.Context) ([]graphstore.Repository, error) {
	var body api.ActiveRepositoriesResponse
	if err := c.getJSON(ctx, "list active repositories", "/repositories/active", &body); err != nil {
		return nil, err
	}
	return body.Details, nil
}

// CreateRepository posts the descriptor as form data.
func (c *Client) CreateRepository(ctx context.Context, desc graphstore.RepositoryDescriptor) error {
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"id":      desc.ID,
			"title":   desc.Title,
			"ruleset": desc.Ruleset,
		}).
		Post("/repositories/create")
	if err != nil {
		return &graphstore.UnavailableError{Op: "create repository", Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}
	return decodeError("create repository", desc.ID, resp)
}

// Upload sends doc as a multipart file to /upload.
func (c *Client) Upload(ctx context.Context, repoID string, doc *jsonld.Document) error {
	body, err := doc.Bytes()
	if err != nil {
		return err
	}

	filename := "document.jsonld"
	if doc.Source != "" {
		filename = filepath.Base(doc.Source)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"repository": repoID}).
		SetFileReader("file", filename, bytes.NewReader(body)).
		Post("/upload")
	if err != nil {
		return &graphstore.UnavailableError{Op: "upload", Err: err}
	}
	if !resp.IsSuccess() {
		return decodeError(fmt.Sprintf("upload to '%s'", repoID), repoID, resp)
	}
	return nil
}

// Size returns the triple count reported by /repository/{name}/size.
func (c *Client) Size(ctx context.Context, repoID string) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("name", repoID).
		Get("/repository/{name}/size")
	if err != nil {
		return 0, &graphstore.UnavailableError{Op: "size", Err: err}
	}
	if !resp.IsSuccess() {
		return 0, decodeError("size", repoID, resp)
	}

	var body api.SizeResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("failed to decode size response: %w", err)
	}
	return body.Size, nil
}

// CountTriples is Size: the facade has no separate count route.
func (c *Client) CountTriples(ctx context.Context, repoID string) (int64, error) {
	return c.Size(ctx, repoID)
}

// Clear deletes every triple in the repository.
func (c *Client) Clear(ctx context.Context, repoID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("name", repoID).
		Delete("/repository/{name}/clear")
	if err != nil {
		return &graphstore.UnavailableError{Op: "clear", Err: err}
	}
	if !resp.IsSuccess() {
		return decodeError("clear", repoID, resp)
	}
	return nil
}

// RepositoryInfo returns the facade's repository summary.
func (c *Client) RepositoryInfo(ctx context.Context, repoID string) (*graphstore.RepositoryInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("name", repoID).
		Get("/repository/{name}/info")
	if err != nil {
		return nil, &graphstore.UnavailableError{Op: "info", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, decodeError("info", repoID, resp)
	}

	var body api.InfoResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode info response: %w", err)
	}
	return &body.Info, nil
}

// Query runs a SPARQL query through /query. JSON results are unwrapped from
// the facade envelope.
func (c *Client) Query(ctx context.Context, repoID, query string, format graphstore.Format) (*graphstore.RawResponse, error) {
	if format == "" {
		format = graphstore.FormatJSON
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		SetFormData(map[string]string{
			"repository": repoID,
			"query":      query,
			"format":     string(format),
		}).
		Post("/query")
	if err != nil {
		return nil, &graphstore.UnavailableError{Op: "query", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, decodeError("query", repoID, resp)
	}

	if format != graphstore.FormatJSON {
		return &graphstore.RawResponse{ContentType: resp.Header().Get("Content-Type"), Body: resp.Body()}, nil
	}

	var body api.QueryResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &graphstore.RawResponse{ContentType: graphstore.ContentTypeSPARQLResults, Body: body.Results}, nil
}

// Select runs a query and decodes SPARQL JSON results.
func (c *Client) Select(ctx context.Context, repoID, query string) (*graphstore.QueryResult, error) {
	start := time.Now()
	raw, err := c.Query(ctx, repoID, query, graphstore.FormatJSON)
	if err != nil {
		return nil, err
	}

	var result graphstore.QueryResult
	if err := json.Unmarshal(raw.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse query results: %w", err)
	}
	result.Duration = time.Since(start)
	return &result, nil
}

// Update runs a SPARQL update through /update.
func (c *Client) Update(ctx context.Context, repoID, update string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"repository": repoID,
			"query":      update,
		}).
		Post("/update")
	if err != nil {
		return &graphstore.UnavailableError{Op: "update", Err: err}
	}
	if !resp.IsSuccess() {
		return decodeError("update", repoID, resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return &graphstore.UnavailableError{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return decodeError(op, "", resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// decodeError rebuilds a typed graphstore error from a facade error body.
func decodeError(op, repoID string, resp *resty.Response) error {
	var body api.ErrorResponse
	_ = json.Unmarshal(resp.Body(), &body)

	switch {
	case body.Kind == api.KindAlreadyExists || resp.StatusCode() == http.StatusConflict:
		return &graphstore.AlreadyExistsError{Repository: repoID}
	case body.Kind == api.KindNotFound || resp.StatusCode() == http.StatusNotFound:
		return &graphstore.NotFoundError{Kind: "repository", Name: repoID}
	case body.Kind == api.KindUnavailable || resp.StatusCode() == http.StatusServiceUnavailable:
		return &graphstore.UnavailableError{Op: op, StatusCode: resp.StatusCode()}
	case body.Kind == api.KindRejected && body.UpstreamStatus != 0:
		return &graphstore.RejectedError{Op: op, StatusCode: body.UpstreamStatus, Body: body.UpstreamBody}
	}

	msg := body.Error
	if msg == "" {
		msg = resp.String()
	}
	return &graphstore.RejectedError{Op: op, StatusCode: resp.StatusCode(), Body: msg}
}
