package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeGraphDB is an in-memory stand-in for the GraphDB REST endpoints used
// by ingraph. Each uploaded JSON-LD node counts as one triple.
type FakeGraphDB struct {
	Server *httptest.Server

	mu           sync.Mutex
	repos        map[string]*fakeRepo
	order        []string
	calls        map[string]int
	unhealthy    bool
	uploadStatus int
	uploadBody   string
	queryStatus  int
	lastUpload   []byte
	lastCType    string
}

type fakeRepo struct {
	id      string
	title   string
	ruleset string
	state   string
	triples int64
	graphs  []string
}

// NewFakeGraphDB starts a fake server that is closed when the test ends.
func NewFakeGraphDB(t *testing.T, repoIDs ...string) *FakeGraphDB {
	t.Helper()

	f := &FakeGraphDB{
		repos: make(map[string]*fakeRepo),
		calls: make(map[string]int),
	}
	for _, id := range repoIDs {
		f.addRepo(id, id, "rdfsplus-optimized")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/repositories", f.handleList)
	mux.HandleFunc("POST /rest/repositories", f.handleCreate)
	mux.HandleFunc("POST /repositories/{id}/statements", f.handleStatements)
	mux.HandleFunc("POST /repositories/{id}", f.handleQuery)
	mux.HandleFunc("GET /repositories/{id}/size", f.handleSize)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake server.
func (f *FakeGraphDB) URL() string {
	return f.Server.URL
}

// SetUnhealthy makes the repository listing answer 503.
func (f *FakeGraphDB) SetUnhealthy(unhealthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unhealthy = unhealthy
}

// FailUploads makes statement uploads answer with the given status and body.
func (f *FakeGraphDB) FailUploads(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadStatus = status
	f.uploadBody = body
}

// FailQueries makes SPARQL queries answer with the given status.
func (f *FakeGraphDB) FailQueries(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryStatus = status
}

// SetTriples sets the triple count of a repository.
func (f *FakeGraphDB) SetTriples(id string, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[id]; ok {
		r.triples = n
	}
}

// SetNamedGraphs sets the named graphs reported for a repository.
func (f *FakeGraphDB) SetNamedGraphs(id string, graphs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[id]; ok {
		r.graphs = graphs
	}
}

// SetState sets the state reported for a repository.
func (f *FakeGraphDB) SetState(id, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[id]; ok {
		r.state = state
	}
}

// HasRepository reports whether a repository exists.
func (f *FakeGraphDB) HasRepository(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.repos[id]
	return ok
}

// Triples returns the triple count of a repository.
func (f *FakeGraphDB) Triples(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.repos[id]; ok {
		return r.triples
	}
	return 0
}

// Calls returns how many times an operation was served.
// Operations: list, create, upload, update, query, size.
func (f *FakeGraphDB) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// LastUpload returns the body and content type of the last statements upload.
func (f *FakeGraphDB) LastUpload() ([]byte, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpload, f.lastCType
}

func (f *FakeGraphDB) addRepo(id, title, ruleset string) {
	f.repos[id] = &fakeRepo{id: id, title: title, ruleset: ruleset, state: "RUNNING"}
	f.order = append(f.order, id)
}

func (f *FakeGraphDB) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++

	if f.unhealthy {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	list := make([]map[string]any, 0, len(f.order))
	for _, id := range f.order {
		repo := f.repos[id]
		list = append(list, map[string]any{
			"id":       repo.id,
			"title":    repo.title,
			"uri":      fmt.Sprintf("%s/repositories/%s", f.Server.URL, repo.id),
			"type":     "graphdb",
			"state":    repo.state,
			"local":    true,
			"readable": true,
			"writable": true,
		})
	}
	writeJSON(w, http.StatusOK, list)
}

func (f *FakeGraphDB) handleCreate(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++

	var cfg struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Params map[string]struct {
			Value string `json:"value"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil || cfg.ID == "" {
		http.Error(w, "invalid repository config", http.StatusBadRequest)
		return
	}
	if _, exists := f.repos[cfg.ID]; exists {
		http.Error(w, fmt.Sprintf("Repository %s already exists.", cfg.ID), http.StatusBadRequest)
		return
	}

	f.addRepo(cfg.ID, cfg.Title, cfg.Params["ruleset"].Value)
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeGraphDB) handleStatements(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	contentType := r.Header.Get("Content-Type")

	f.mu.Lock()
	defer f.mu.Unlock()

	repo, ok := f.repos[r.PathValue("id")]

	if strings.HasPrefix(contentType, "application/sparql-update") {
		f.calls["update"]++
		if !ok {
			http.Error(w, "Unknown repository", http.StatusNotFound)
			return
		}
		if strings.Contains(string(body), "DELETE { ?s ?p ?o } WHERE { ?s ?p ?o }") {
			repo.triples = 0
			repo.graphs = nil
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	f.calls["upload"]++
	f.lastUpload = body
	f.lastCType = contentType

	if f.uploadStatus != 0 {
		http.Error(w, f.uploadBody, f.uploadStatus)
		return
	}
	if !ok {
		http.Error(w, "Unknown repository", http.StatusNotFound)
		return
	}
	if !strings.HasPrefix(contentType, "application/ld+json") {
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var doc struct {
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		http.Error(w, "Could not parse JSON-LD", http.StatusBadRequest)
		return
	}
	repo.triples += int64(len(doc.Graph))
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeGraphDB) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["query"]++

	if f.queryStatus != 0 {
		http.Error(w, "query failed", f.queryStatus)
		return
	}
	repo, ok := f.repos[r.PathValue("id")]
	if !ok {
		http.Error(w, "Unknown repository", http.StatusNotFound)
		return
	}

	query := string(body)
	switch {
	case strings.Contains(query, "COUNT(*)"):
		writeJSON(w, http.StatusOK, map[string]any{
			"head": map[string]any{"vars": []string{"count"}},
			"results": map[string]any{"bindings": []any{
				map[string]any{"count": map[string]string{
					"type":     "literal",
					"value":    strconv.FormatInt(repo.triples, 10),
					"datatype": "http://www.w3.org/2001/XMLSchema#integer",
				}},
			}},
		})
	case strings.Contains(query, "GRAPH ?g"):
		bindings := make([]any, 0, len(repo.graphs))
		for _, g := range repo.graphs {
			bindings = append(bindings, map[string]any{"g": map[string]string{"type": "uri", "value": g}})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"head":    map[string]any{"vars": []string{"g"}},
			"results": map[string]any{"bindings": bindings},
		})
	default:
		accept := r.Header.Get("Accept")
		if accept == "text/csv" {
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, "s,p,o\n")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"head":    map[string]any{"vars": []string{"s"}},
			"results": map[string]any{"bindings": []any{}},
		})
	}
}

func (f *FakeGraphDB) handleSize(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["size"]++

	repo, ok := f.repos[r.PathValue("id")]
	if !ok {
		http.Error(w, "Unknown repository", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, repo.triples)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
