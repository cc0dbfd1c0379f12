package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/pkg/deployment"
	"github.com/agentgate/agentgate/pkg/errors"
)

const testEngineURL = "https://x.googleapis.com/v1/projects/p/locations/l/reasoningEngines/e"

// staticHeaders is a HeaderSource returning fixed headers or a fixed error.
type staticHeaders struct {
	headers map[string]string
	err     error
}

func (s *staticHeaders) Headers(_ context.Context) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.headers, nil
}

// captureTransport records the outbound request and returns a canned response.
type captureTransport struct {
	req *http.Request
}

func (c *captureTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.req = r
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
		Request:    r,
	}, nil
}

func jsonHeaders() *staticHeaders {
	return &staticHeaders{headers: map[string]string{"Content-Type": "application/json"}}
}

func TestGateway_ForwardsToLocalBackend(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotContentType, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":42}`))
	}))
	defer backend.Close()

	cfg := &deployment.Config{
		BackendURL: backend.URL,
		Type:       deployment.TypeLocal,
	}
	gw := NewGateway(cfg, jsonHeaders())
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{"q":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"answer":42}`, string(body))
	assert.Equal(t, "/query", gotPath)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"q":"hi"}`, gotBody)
}

func TestGateway_SessionsPassthrough(t *testing.T) {
	t.Parallel()

	var gotPath, gotMethod string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	cfg := &deployment.Config{
		BackendURL: backend.URL,
		Type:       deployment.TypeCloudRun,
	}
	gw := NewGateway(cfg, jsonHeaders())
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/abc", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/sessions/abc", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestGateway_AgentEngineTargets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		method  string
		wantURL string
	}{
		{
			name:    "query",
			path:    "/api/query",
			method:  http.MethodPost,
			wantURL: testEngineURL + ":query",
		},
		{
			name:    "stream query",
			path:    "/api/streamQuery",
			method:  http.MethodPost,
			wantURL: testEngineURL + ":streamQuery",
		},
		{
			name:    "sessions",
			path:    "/api/sessions/abc",
			method:  http.MethodGet,
			wantURL: "https://x.googleapis.com/v1beta1/projects/p/locations/l/reasoningEngines/e/sessions/abc",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &deployment.Config{
				BackendURL:     testEngineURL,
				AgentEngineURL: testEngineURL,
				Type:           deployment.TypeAgentEngine,
			}
			transport := &captureTransport{}
			headers := &staticHeaders{headers: map[string]string{
				"Content-Type":  "application/json",
				"Authorization": "Bearer tok-123",
			}}
			gw := NewGateway(cfg, headers, WithTransport(transport))
			srv := httptest.NewServer(gw.Router())
			defer srv.Close()

			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(`{}`))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			require.NotNil(t, transport.req)
			assert.Equal(t, tt.wantURL, transport.req.URL.String())
			assert.Equal(t, "Bearer tok-123", transport.req.Header.Get("Authorization"))
			assert.NotEmpty(t, transport.req.Header.Get("X-Request-Id"))
		})
	}
}

func TestGateway_AuthFailureMapsToBadGateway(t *testing.T) {
	t.Parallel()

	cfg := &deployment.Config{
		BackendURL:     testEngineURL,
		AgentEngineURL: testEngineURL,
		Type:           deployment.TypeAgentEngine,
	}
	headers := &staticHeaders{err: errors.NewAuthenticationError("failed to acquire access token", nil)}
	transport := &captureTransport{}
	gw := NewGateway(cfg, headers, WithTransport(transport))
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Nil(t, transport.req, "backend must not be called when auth fails")

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "authentication")
}

func TestGateway_MalformedEngineURLMapsToServerError(t *testing.T) {
	t.Parallel()

	cfg := &deployment.Config{
		BackendURL:     "https://x.googleapis.com/v1/projects/p",
		AgentEngineURL: "https://x.googleapis.com/v1/projects/p",
		Type:           deployment.TypeAgentEngine,
	}
	gw := NewGateway(cfg, jsonHeaders(), WithTransport(&captureTransport{}))
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions/abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	cfg := &deployment.Config{
		BackendURL: deployment.DefaultBackendURL,
		Type:       deployment.TypeLocal,
	}
	gw := NewGateway(cfg, jsonHeaders())
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGateway_StreamQueryFlushes(t *testing.T) {
	t.Parallel()

	events := make(chan string)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}
		// Flush the headers so the client sees the response open before
		// any event is produced.
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for ev := range events {
			_, _ = io.WriteString(w, ev)
			flusher.Flush()
		}
	}))
	defer backend.Close()

	cfg := &deployment.Config{
		BackendURL: backend.URL,
		Type:       deployment.TypeLocal,
	}
	gw := NewGateway(cfg, jsonHeaders())
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/streamQuery", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	// The first event must arrive while the backend handler is still
	// running, proving the proxy does not buffer the stream.
	events <- "data: first\n\n"
	buf := make([]byte, 64)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "data: first")

	close(events)
}
