package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"github.com/intendproject/ingraph/internal/api"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/pkg/graphstore"
)

var (
	uploadExtensions = []string{"jsonld", "json"}
	queryExtensions  = []string{"sparql", "rq"}
)

// handleHealth handles GET /health.
// Returns 200 if GraphDB answers, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.HealthTimeout)
	defer cancel()

	if err := s.backend.Health(ctx); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, api.HealthResponse{
			Status:  api.StatusUnhealthy,
			GraphDB: "disconnected",
			Error:   err.Error(),
		})
		return
	}
	writeJSONResponse(w, http.StatusOK, api.HealthResponse{Status: api.StatusHealthy, GraphDB: "connected"})
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.backend.ListRepositories(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to fetch repositories", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.RepositoriesResponse{
		Repositories: graphstore.RepositoryIDs(repos),
		Count:        len(repos),
		Details:      nonNil(repos),
	})
}

func (s *Server) handleActiveRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.backend.ActiveRepositories(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to fetch active repositories", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.ActiveRepositoriesResponse{
		ActiveRepositories: graphstore.RepositoryIDs(repos),
		Count:              len(repos),
		Details:            nonNil(repos),
	})
}

func nonNil(repos []graphstore.Repository) []graphstore.Repository {
	if repos == nil {
		return []graphstore.Repository{}
	}
	return repos
}

// handleCreateRepository handles POST /repositories/create with form fields
// id, title and ruleset.
func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.writeFormError(w, err)
		return
	}

	desc := graphstore.RepositoryDescriptor{
		ID:      r.FormValue("id"),
		Title:   r.FormValue("title"),
		Ruleset: r.FormValue("ruleset"),
	}
	if desc.ID == "" {
		writeBadRequestResponse(w, "Repository ID is required")
		return
	}
	if desc.Title == "" {
		desc.Title = desc.ID
	}
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}

	if err := s.backend.CreateRepository(r.Context(), desc); err != nil {
		writeStoreError(w, "Failed to create repository", err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, api.CreateRepositoryResponse{
		Message:    fmt.Sprintf("Repository '%s' created successfully", desc.ID),
		Repository: desc.ID,
		Config:     graphstore.NewRepositoryConfig(desc),
		Status:     api.StatusSuccess,
	})
}

// handleUpload handles POST /upload. Form fields: file (required),
// repository, normalize=true to wrap the document first, ensure=true to
// also create the repository when missing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.writeFormError(w, err)
		return
	}

	repository := formValueOr(r, "repository", s.opts.DefaultRepository)
	normalize := formBool(r, "normalize")
	ensure := formBool(r, "ensure")

	content, filename, err := readFormFile(r, uploadExtensions)
	if err != nil {
		s.metrics.observeUpload("invalid", 0)
		writeBadRequestResponse(w, err.Error())
		return
	}

	if !isJSON(content) {
		s.metrics.observeUpload("invalid", 0)
		writeBadRequestResponse(w, "Invalid JSON format")
		return
	}

	if !normalize && !ensure {
		s.uploadRaw(w, r, repository, filename, content)
		return
	}

	doc, err := s.normalizer.Normalize(content)
	if err != nil {
		s.metrics.observeUpload("invalid", 0)
		writeBadRequestResponse(w, err.Error())
		return
	}
	doc.Source = filename

	var result *orchestrator.Result
	if ensure {
		desc := graphstore.RepositoryDescriptor{ID: repository}.WithDefaults()
		result, err = s.orch.EnsureAndUpload(r.Context(), doc, desc)
	} else {
		result, err = s.orch.Upload(r.Context(), doc, repository)
	}
	if err != nil {
		s.metrics.observeUpload("failed", 0)
		writeStoreError(w, "Upload failed", err)
		return
	}

	s.metrics.observeUpload("success", doc.Len())
	writeJSONResponse(w, http.StatusOK, api.UploadResponse{
		Message:      "File uploaded successfully",
		RunID:        result.RunID,
		Repository:   result.Repository,
		Filename:     filename,
		Normalized:   true,
		TotalTriples: result.TripleCount,
		Status:       string(result.Status),
	})
}

// uploadRaw forwards the file unchanged and reads back the count.
func (s *Server) uploadRaw(w http.ResponseWriter, r *http.Request, repository, filename string, content []byte) {
	ctx := r.Context()
	if err := s.backend.PostStatements(ctx, repository, graphstore.ContentTypeJSONLD, content); err != nil {
		s.metrics.observeUpload("failed", 0)
		writeStoreError(w, "Upload failed", err)
		return
	}

	total := graphstore.UnknownCount
	if n, err := s.backend.CountTriples(ctx, repository); err == nil {
		total = graphstore.KnownCount(n)
	} else {
		s.logger.Warn("triple count unavailable", "repository", repository, "err", err)
	}

	s.metrics.observeUpload("success", 0)
	writeJSONResponse(w, http.StatusOK, api.UploadResponse{
		Message:      "File uploaded successfully",
		Repository:   repository,
		Filename:     filename,
		TotalTriples: total,
		Status:       api.StatusSuccess,
	})
}

// handleQuery handles POST /query with a query file or a query field.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	repository, query, ok := s.readSPARQL(w, r, "No query provided (file or query parameter)")
	if !ok {
		return
	}

	format := graphstore.Format(formValueOr(r, "format", string(graphstore.FormatJSON)))
	raw, err := s.backend.Query(r.Context(), repository, query, format)
	if err != nil {
		writeStoreError(w, "Query execution failed", err)
		return
	}

	if format != graphstore.FormatJSON {
		w.Header().Set("Content-Type", graphstore.AcceptHeader(format))
		w.WriteHeader(http.StatusOK)
		w.Write(raw.Body)
		return
	}

	results := json.RawMessage(raw.Body)
	if !json.Valid(raw.Body) {
		quoted, _ := json.Marshal(string(raw.Body))
		results = quoted
	}
	writeJSONResponse(w, http.StatusOK, api.QueryResponse{
		Query:      query,
		Repository: repository,
		Results:    results,
		Status:     api.StatusSuccess,
	})
}

// handleUpdate handles POST /update with an update file or a query field.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	repository, update, ok := s.readSPARQL(w, r, "No update query provided (file or query parameter)")
	if !ok {
		return
	}

	if err := s.backend.Update(r.Context(), repository, update); err != nil {
		writeStoreError(w, "Update operation failed", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.UpdateResponse{
		Message:    "Update operation completed successfully",
		Query:      update,
		Repository: repository,
		Status:     api.StatusSuccess,
	})
}

// readSPARQL extracts the repository and SPARQL text of /query and /update.
func (s *Server) readSPARQL(w http.ResponseWriter, r *http.Request, missing string) (string, string, bool) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.writeFormError(w, err)
		return "", "", false
	}

	repository := formValueOr(r, "repository", s.opts.DefaultRepository)

	if r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0 && r.MultipartForm.File["file"][0].Filename != "" {
		content, _, err := readFormFile(r, queryExtensions)
		if err != nil {
			writeBadRequestResponse(w, err.Error())
			return "", "", false
		}
		return repository, string(content), true
	}

	if query := r.FormValue("query"); query != "" {
		return repository, query, true
	}

	writeBadRequestResponse(w, missing)
	return "", "", false
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	size, err := s.backend.Size(r.Context(), name)
	if err != nil {
		writeStoreError(w, "Failed to get repository size", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.SizeResponse{Repository: name, Size: size, Status: api.StatusSuccess})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.orch.Clear(r.Context(), name); err != nil {
		writeStoreError(w, "Failed to clear repository", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.ClearResponse{
		Message:    fmt.Sprintf("Repository '%s' cleared successfully", name),
		Repository: name,
		Status:     api.StatusSuccess,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, err := s.backend.RepositoryInfo(r.Context(), name)
	if err != nil {
		writeStoreError(w, "Failed to get repository info", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, api.InfoResponse{Repository: name, Info: *info, Status: api.StatusSuccess})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(s.opts.PublicURL, "/")
	repo := s.opts.DefaultRepository

	writeJSONResponse(w, http.StatusOK, map[string]api.Example{
		"upload_jsonld": {
			Description: "Upload JSON-LD file",
			Curl:        fmt.Sprintf(`curl -X POST %s/upload -F "repository=%s" -F "file=@gateKG.jsonld"`, base, repo),
		},
		"upload_normalized": {
			Description: "Normalize a bare node array, create the repository if needed, then upload",
			Curl:        fmt.Sprintf(`curl -X POST %s/upload -F "repository=%s" -F "normalize=true" -F "ensure=true" -F "file=@gateKG.jsonld"`, base, repo),
		},
		"sparql_query": {
			Description: "Execute SPARQL query from file",
			Curl:        fmt.Sprintf(`curl -X POST %s/query -F "repository=%s" -F "file=@query.sparql" -F "format=json"`, base, repo),
		},
		"sparql_update": {
			Description: "Execute SPARQL update/delete",
			Curl:        fmt.Sprintf(`curl -X POST %s/update -F "repository=%s" -F "file=@query_delete.sparql"`, base, repo),
		},
		"clear_repository": {
			Description: "Delete every triple in a repository",
			Curl:        fmt.Sprintf(`curl -X DELETE %s/repository/%s/clear`, base, repo),
		},
	})
}

// writeFormError reports a body that could not be parsed. Bodies over the
// limit are answered with 413.
func (s *Server) writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, api.KindTooLarge, "File too large")
		return
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		writeBadRequestResponse(w, "No file provided")
		return
	}
	writeBadRequestResponse(w, fmt.Sprintf("Invalid form data: %v", err))
}

// readFormFile reads the "file" part and checks its extension.
func readFormFile(r *http.Request, allowed []string) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("No file provided")
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, "", errors.New("No file selected")
	}
	if !allowedFile(header.Filename, allowed) {
		return nil, "", fmt.Errorf("File type not allowed. Use: %s", strings.Join(allowed, ", "))
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return content, header.Filename, nil
}

func allowedFile(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && slices.Contains(allowed, ext)
}

// isJSON sniffs content and then checks it parses.
func isJSON(content []byte) bool {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if m.Is("application/json") {
			return json.Valid(content)
		}
	}
	return false
}

func formValueOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func formBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.FormValue(key))
	return err == nil && v
}
