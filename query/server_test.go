package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/rpcquery/rpc"
)

// hitCounter counts requests per route pattern.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) add(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[route]++
}

func (h *hitCounter) get(route string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[route]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newUsersServer serves the sample users API.
func newUsersServer(t *testing.T) (*httptest.Server, *hitCounter) {
	t.Helper()
	hits := &hitCounter{hits: make(map[string]int)}
	r := chi.NewRouter()

	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
		hits.add("GET /users")
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]string{{"id": "id", "name": "John Doe"}},
		})
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		hits.add("GET /users/:id")
		id := chi.URLParam(req, "id")
		if id == "none" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User ID is required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": id, "name": "John Doe"}})
	})
	r.Post("/users", func(w http.ResponseWriter, req *http.Request) {
		hits.add("POST /users")
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		name, ok := body["name"].(string)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name is required"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]string{"id": "id", "name": name}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hits
}

func usersRegistry() *rpc.Registry {
	reg := rpc.NewRegistry()
	reg.MustRegister("$get", "/users")
	reg.MustRegister("$get", "/users/:id")
	reg.MustRegister("$post", "/users")
	return reg
}

// newBinder returns a Binder over the sample users API.
func newBinder(t *testing.T, opts ...Option) (*Binder, *hitCounter) {
	t.Helper()
	srv, hits := newUsersServer(t)
	rc, err := rpc.New(srv.URL, rpc.WithRegistry(usersRegistry()))
	if err != nil {
		t.Fatalf("rpc.New() error = %v", err)
	}
	return Bind(rc, NewClient(opts...)), hits
}
