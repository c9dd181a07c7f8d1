// Package testutil provides testing utilities for the site cache.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockPageResponse defines the behavior for a mock origin page response.
type MockPageResponse struct {
	StatusCode  int
	Body        string
	Version     string
	ContentType string
	Delay       time.Duration
}

// MockOrigin is a configurable mock publishing origin for testing. It
// serves rendered pages under /sites/{siteID}/pages/{slug} the way the
// CMS publishing service does.
type MockOrigin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockOrigin creates a new mock origin server.
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrigin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockOrigin) SetResponse(path string, resp MockPageResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "text/html; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		if resp.Version != "" {
			w.Header().Set("X-Content-Version", resp.Version)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPage configures a published page for a site and slug.
func (m *MockOrigin) SetPage(siteID, slug string, resp MockPageResponse) {
	path := fmt.Sprintf("/sites/%s/pages/%s", siteID, slug)
	m.SetResponse(path, resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOrigin) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// NewPublishedPage creates a standard 200 OK page response.
func NewPublishedPage(body, version string) MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Version:    version,
	}
}

// NewNotFoundPage creates a 404 Not Found response.
func NewNotFoundPage() MockPageResponse {
	return MockPageResponse{
		StatusCode:  http.StatusNotFound,
		Body:        `{"error": "page not found"}`,
		ContentType: "application/json; charset=utf-8",
	}
}

// NewServerErrorPage creates a 500 Internal Server Error response.
func NewServerErrorPage() MockPageResponse {
	return MockPageResponse{
		StatusCode:  http.StatusInternalServerError,
		Body:        `{"error": "internal server error"}`,
		ContentType: "application/json; charset=utf-8",
	}
}
