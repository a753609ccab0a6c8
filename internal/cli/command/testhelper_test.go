package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
)

// mockServer serves canned envelopes by "METHOD /path" and records the
// requests it received.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
	bodies   []string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)

		m.mu.Lock()
		m.requests = append(m.requests, r)
		m.bodies = append(m.bodies, body.String())
		h, ok := m.handlers[r.Method+" "+r.URL.Path]
		m.mu.Unlock()

		if !ok {
			errorResponse(w, http.StatusNotFound, "RM-SYS-4040", "not found")
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) handle(pattern string, h http.HandlerFunc) {
	m.mu.Lock()
	m.handlers[pattern] = h
	m.mu.Unlock()
}

// reply registers a success envelope carrying data.
func (m *mockServer) reply(pattern string, data any) {
	m.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"code": "OK", "message": "Success", "data": data})
	})
}

func (m *mockServer) last() (*http.Request, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil, ""
	}
	return m.requests[len(m.requests)-1], m.bodies[len(m.bodies)-1]
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]string{"code": code, "message": message})
}

// run executes the CLI against server with an isolated config file and
// returns what the command wrote.
func run(t *testing.T, server *mockServer, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, filepath.Join(t.TempDir(), "cli.yaml"), server, args...)
}

func runWithConfig(t *testing.T, configPath string, server *mockServer, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out

	full := []string{"regmesh-cli", "--config", configPath}
	if server != nil {
		full = append(full, "--server", server.URL)
	}
	full = append(full, args...)
	err := app.Run(full)
	return out.String(), err
}
