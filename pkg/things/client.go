// Package things is a client for the knowledge-graph "things" API used to
// replace individual nodes of a published graph.
package things

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/intendproject/ingraph/pkg/graphstore"
)

// Defaults for the public INTEND knowledge graph.
const (
	DefaultBaseURL   = "https://proxy.onlim.com/api/ts/v1/kg"
	DefaultNamespace = "https://intendproject.eu/gate/"
)

// Config holds the things API endpoint and credentials.
type Config struct {
	BaseURL    string
	Namespace  string
	APIKey     string
	Publisher  string
	Datasource string
	Timeout    time.Duration
}

// Client deletes and imports things. It never retries.
type Client struct {
	http *resty.Client
	cfg  Config
}

// NewClient creates a things API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("things API key is required (set things.api_key or INGRAPH_THINGS_API_KEY)")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetRetryCount(0)

	return &Client{http: httpClient, cfg: cfg}, nil
}

// Namespace returns the namespace deletes are scoped to.
func (c *Client) Namespace() string {
	return c.cfg.Namespace
}

// ShortID returns the last path segment of a node IRI.
func ShortID(nodeID string) string {
	trimmed := strings.TrimRight(nodeID, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Delete removes one thing by its IRI. Returns graphstore.NotFoundError on 404.
func (c *Client) Delete(ctx context.Context, nodeID string) error {
	short := ShortID(nodeID)
	if short == "" {
		return fmt.Errorf("cannot delete node with empty id")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", short).
		SetQueryParams(map[string]string{
			"ns":     c.cfg.Namespace,
			"dryRun": "false",
			"force":  "true",
		}).
		Delete("/things/{id}")
	if err != nil {
		return &graphstore.UnavailableError{Op: "delete thing", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &graphstore.NotFoundError{Kind: "thing", Name: nodeID}
	}
	if !resp.IsSuccess() {
		return &graphstore.RejectedError{Op: fmt.Sprintf("delete '%s'", nodeID), StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Import posts a JSON-LD payload to the imports endpoint.
func (c *Client) Import(ctx context.Context, payload []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-publisher", c.cfg.Publisher).
		SetHeader("x-datasource", c.cfg.Datasource).
		SetHeader("Content-Type", graphstore.ContentTypeJSONLD).
		SetBody(payload).
		Post("/things/imports")
	if err != nil {
		return &graphstore.UnavailableError{Op: "import things", Err: err}
	}
	if !resp.IsSuccess() {
		return &graphstore.RejectedError{Op: "import things", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
