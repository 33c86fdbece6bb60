package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// seen records the last request a test server received.
type seen struct {
	mu     sync.Mutex
	path   string
	query  string
	header http.Header
	hits   atomic.Int64
}

func (s *seen) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = r.URL.EscapedPath()
	s.query = r.URL.RawQuery
	s.header = r.Header.Clone()
	s.hits.Add(1)
}

func (s *seen) last() (path, query string, header http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.query, s.header
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func usersRouter(s *seen) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.record(req)
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users": []map[string]string{{"id": "id", "name": "John Doe"}},
		})
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if id == "none" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User ID is required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": id, "name": "John Doe"}})
	})
	r.Post("/users", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		name, ok := body["name"].(string)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Name is required"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": map[string]string{"id": "id", "name": name}})
	})
	r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})
	r.Post("/form", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, req.PostForm)
	})
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
	})
	r.Get("/slow", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-req.Context().Done():
		}
	})
	return r
}

// newUsersServer starts a server with the sample users API.
func newUsersServer(t *testing.T) (*httptest.Server, *seen) {
	t.Helper()
	s := &seen{}
	srv := httptest.NewServer(usersRouter(s))
	t.Cleanup(srv.Close)
	return srv, s
}

// usersRegistry registers the routes of the sample users API.
func usersRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister("$get", "/users")
	reg.MustRegister("$get", "/users/:id")
	reg.MustRegister("$post", "/users")
	return reg
}
