// Package testutil provides testing utilities for the catalog packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockPokemon defines one creature served by the mock API.
type MockPokemon struct {
	ID   int
	Name string
	// Sprite is sprites.front_default; empty renders as null.
	Sprite string
	// Artwork is sprites.other.official-artwork.front_default.
	Artwork string
	// DetailStatus overrides the detail response status when non-zero.
	DetailStatus int
	// Delay postpones the detail response.
	Delay time.Duration
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
type MockPokeAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	pokemon     []MockPokemon
	listStatus  int
	ignoreLimit bool

	// Tracking
	ListRequests   int
	DetailRequests int
	LastListQuery  string
	LastUserAgent  string
}

// NewMockPokeAPI creates a new mock server with no pokemon.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/pokemon", mock.handleList)
	mux.HandleFunc("/api/v2/pokemon/", mock.handleDetail)

	mock.server = httptest.NewServer(mux)
	return mock
}

// URL returns the mock server root URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the catalog base URL, i.e. URL() + "/api/v2".
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + "/api/v2"
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// SetPokemon replaces the served catalog.
func (m *MockPokeAPI) SetPokemon(p []MockPokemon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pokemon = append([]MockPokemon(nil), p...)
}

// SetListStatus makes the list endpoint fail with status (0 restores 200).
func (m *MockPokeAPI) SetListStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listStatus = status
}

// SetIgnoreLimit makes the list endpoint return everything from offset on,
// regardless of the requested limit.
func (m *MockPokeAPI) SetIgnoreLimit(ignore bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreLimit = ignore
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListRequests = 0
	m.DetailRequests = 0
	m.LastListQuery = ""
	m.LastUserAgent = ""
}

// GetListRequests returns the number of list requests served.
func (m *MockPokeAPI) GetListRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListRequests
}

// GetDetailRequests returns the number of detail requests served.
func (m *MockPokeAPI) GetDetailRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DetailRequests
}

// GetLastUserAgent returns the User-Agent of the latest request.
func (m *MockPokeAPI) GetLastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastUserAgent
}

type namedRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (m *MockPokeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.ListRequests++
	m.LastListQuery = r.URL.RawQuery
	m.LastUserAgent = r.Header.Get("User-Agent")
	status := m.listStatus
	ignoreLimit := m.ignoreLimit
	all := append([]MockPokemon(nil), m.pokemon...)
	m.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": "mock failure"}`))
		return
	}

	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	if ignoreLimit {
		limit = len(all)
	}

	results := []namedRef{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		results = append(results, namedRef{
			Name: all[i].Name,
			URL:  fmt.Sprintf("%s/api/v2/pokemon/%d/", m.server.URL, all[i].ID),
		})
	}

	writeJSON(w, map[string]any{
		"count":    len(all),
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
}

func (m *MockPokeAPI) handleDetail(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.DetailRequests++
	m.LastUserAgent = r.Header.Get("User-Agent")
	all := append([]MockPokemon(nil), m.pokemon...)
	m.mu.Unlock()

	id, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v2/pokemon/"), "/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	for _, p := range all {
		if p.ID != id {
			continue
		}
		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
		if p.DetailStatus != 0 {
			w.WriteHeader(p.DetailStatus)
			return
		}
		writeJSON(w, map[string]any{
			"id":   p.ID,
			"name": p.Name,
			"sprites": map[string]any{
				"front_default": nullable(p.Sprite),
				"other": map[string]any{
					"official-artwork": map[string]any{
						"front_default": nullable(p.Artwork),
					},
				},
			},
		})
		return
	}
	http.NotFound(w, r)
}

// Generate returns n pokemon named pokemon-1..n, all with sprites.
func Generate(n int) []MockPokemon {
	out := make([]MockPokemon, n)
	for i := range out {
		id := i + 1
		out[i] = MockPokemon{
			ID:     id,
			Name:   fmt.Sprintf("pokemon-%d", id),
			Sprite: fmt.Sprintf("https://img.example/sprites/%d.png", id),
		}
	}
	return out
}

// Named returns pokemon with the given names and sprites, ids from 1.
func Named(names ...string) []MockPokemon {
	out := make([]MockPokemon, len(names))
	for i, name := range names {
		out[i] = MockPokemon{
			ID:     i + 1,
			Name:   name,
			Sprite: fmt.Sprintf("https://img.example/sprites/%d.png", i+1),
		}
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
