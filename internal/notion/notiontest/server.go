// Package notiontest serves an in-memory Notion API over httptest. It
// evaluates the database filters the credential store sends and serves
// content pages with their block children.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/notiongate/notiongate/internal/notion"
)

// Server is a fake Notion API.
type Server struct {
	URL string

	mu       sync.Mutex
	rows     map[string]map[string]notion.PropertyValue
	pages    map[string]notion.Page
	children map[string][]notion.Block
	nextID   int
	fail     bool
	requests int
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		rows:     make(map[string]map[string]notion.PropertyValue),
		pages:    make(map[string]notion.Page),
		children: make(map[string][]notion.Block),
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

// Client returns a notion.Client pointed at the server.
func (s *Server) Client() *notion.Client {
	return notion.NewClient(notion.Options{BaseURL: s.URL, Token: "secret_test"})
}

// SetFail makes every request answer 502.
func (s *Server) SetFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// Requests reports how many requests were served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Row returns the properties of a database row.
func (s *Server) Row(id string) map[string]notion.PropertyValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

// AddPage registers a content page titled title with the given blocks.
func (s *Server) AddPage(id, title string, blocks ...notion.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := notion.Title(title)
	name.Type = "title"
	s.pages[id] = notion.Page{Object: "page", ID: id, Properties: map[string]notion.PropertyValue{"Name": name}}
	s.children[id] = blocks
}

// AddChildren registers the children of a block.
func (s *Server) AddChildren(blockID string, blocks ...notion.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[blockID] = blocks
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	w.Header().Set("Content-Type", "application/json")
	if s.fail {
		writeError(w, http.StatusBadGateway, "bad_gateway")
		return
	}
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/query"):
		s.query(w, r)
	case r.Method == http.MethodPost && path == "/v1/pages":
		s.create(w, r)
	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/v1/pages/"):
		s.update(w, r, strings.TrimPrefix(path, "/v1/pages/"))
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/pages/"):
		page, ok := s.pages[strings.TrimPrefix(path, "/v1/pages/")]
		if !ok {
			writeError(w, http.StatusNotFound, "object_not_found")
			return
		}
		_ = json.NewEncoder(w).Encode(page)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/blocks/") && strings.HasSuffix(path, "/children"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/blocks/"), "/children")
		blocks := s.children[id]
		if blocks == nil {
			blocks = []notion.Block{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "results": blocks, "has_more": false})
	default:
		writeError(w, http.StatusNotFound, "object_not_found")
	}
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter *notion.Filter `json:"filter"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	results := []notion.Page{}
	for id, props := range s.rows {
		page := notion.Page{Object: "page", ID: id, Properties: props}
		if req.Filter == nil || Matches(page, *req.Filter) {
			results = append(results, page)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "results": results, "has_more": false})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Properties map[string]notion.PropertyValue `json:"properties"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.nextID++
	id := fmt.Sprintf("row-%d", s.nextID)
	s.rows[id] = req.Properties
	_ = json.NewEncoder(w).Encode(notion.Page{Object: "page", ID: id, Properties: req.Properties})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, id string) {
	props, ok := s.rows[id]
	if !ok {
		writeError(w, http.StatusNotFound, "object_not_found")
		return
	}
	var req struct {
		Properties map[string]notion.PropertyValue `json:"properties"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	for k, v := range req.Properties {
		props[k] = v
	}
	_ = json.NewEncoder(w).Encode(notion.Page{Object: "page", ID: id, Properties: props})
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "error", "status": status, "code": code, "message": code})
}

// Matches evaluates filter against page the way the Notion query API does
// for the filter kinds notiongate sends.
func Matches(page notion.Page, filter notion.Filter) bool {
	if len(filter.And) > 0 {
		for _, sub := range filter.And {
			if !Matches(page, sub) {
				return false
			}
		}
		return true
	}
	switch {
	case filter.Email != nil:
		return page.EmailValue(filter.Property) == filter.Email.Equals
	case filter.RichText != nil:
		return page.Text(filter.Property) == filter.RichText.Equals
	case filter.Date != nil:
		at, ok := page.Time(filter.Property)
		after, _ := notion.ParseTime(filter.Date.After)
		return ok && at.After(after)
	}
	return true
}
