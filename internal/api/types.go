// Package api holds the JSON bodies exchanged between ingraph-server and
// its clients.
package api

import (
	"encoding/json"

	"github.com/intendproject/ingraph/pkg/graphstore"
)

// Status values used in response bodies.
const (
	StatusSuccess   = "success"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Error kinds let clients rebuild typed errors from a response.
const (
	KindUnavailable   = "unavailable"
	KindRejected      = "rejected"
	KindNotFound      = "not_found"
	KindAlreadyExists = "already_exists"
	KindValidation    = "validation"
	KindTooLarge      = "too_large"
	KindInternal      = "internal"
)

type ErrorResponse struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamBody   string `json:"upstream_body,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	GraphDB string `json:"graphdb,omitempty"`
	Error   string `json:"error,omitempty"`
}

type RepositoriesResponse struct {
	Repositories []string                `json:"repositories"`
	Count        int                     `json:"count"`
	Details      []graphstore.Repository `json:"details"`
}

type ActiveRepositoriesResponse struct {
	ActiveRepositories []string                `json:"active_repositories"`
	Count              int                     `json:"count"`
	Details            []graphstore.Repository `json:"details"`
}

type CreateRepositoryResponse struct {
	Message    string                      `json:"message"`
	Repository string                      `json:"repository"`
	Config     graphstore.RepositoryConfig `json:"config"`
	Status     string                      `json:"status"`
}

type UploadResponse struct {
	Message      string           `json:"message"`
	RunID        string           `json:"run_id,omitempty"`
	Repository   string           `json:"repository"`
	Filename     string           `json:"filename"`
	Normalized   bool             `json:"normalized,omitempty"`
	TotalTriples graphstore.Count `json:"total_triples"`
	Status       string           `json:"status"`
}

type QueryResponse struct {
	Query      string          `json:"query"`
	Repository string          `json:"repository"`
	Results    json.RawMessage `json:"results"`
	Status     string          `json:"status"`
}

type UpdateResponse struct {
	Message    string `json:"message"`
	Query      string `json:"query"`
	Repository string `json:"repository"`
	Status     string `json:"status"`
}

type SizeResponse struct {
	Repository string `json:"repository"`
	Size       int64  `json:"size"`
	Status     string `json:"status"`
}

type ClearResponse struct {
	Message    string `json:"message"`
	Repository string `json:"repository"`
	Status     string `json:"status"`
}

type InfoResponse struct {
	Repository string                    `json:"repository"`
	Info       graphstore.RepositoryInfo `json:"info"`
	Status     string                    `json:"status"`
}

// Example documents one facade call.
type Example struct {
	Description string `json:"description"`
	Curl        string `json:"curl"`
}
