package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingEnv = []string{
	"MOCK_API", "VUE_APP_MOCK_API", "MOCK_API_NETWORK_DELAY", "CONFREQ_NETWORK_DELAY",
	"MOCK_API_AUTH_WHITELIST", "MOCK_API_AUTH_BLACKLIST", "CONFREQ_CONFIG", "CONFREQ_CATALOG",
	"CONFREQ_REPLAY_FILE", "CONFREQ_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"CONFREQ_LOG_LEVEL", "CONFREQ_LOG_OUTPUT",
}

const catalogTemplate = `
baseURL: %s
endpoints:
  - name: getUser
    description: Fetch one user
    method: GET
    url: /users/{id}
    unwrap: data
    query:
      verbose: {$dynamic: {default: false}}
    headers:
      X-Client: confreq-test
    mock:
      expr: '{"data": {"id": params.id, "name": "mock user"}}'
  - name: createUser
    method: POST
    url: /users
    body:
      role: member
      email: {$dynamic: {required: true}}
`

type env struct {
	dir     string
	catalog string
	replay  string
}

func setup(t *testing.T, baseURL string) env {
	t.Helper()
	for _, name := range settingEnv {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(catalogTemplate, baseURL)), 0o600))
	return env{dir: dir, catalog: path, replay: filepath.Join(dir, "calls.jsonl")}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"--catalog", e.catalog, "--replay-file", e.replay, "--log-level", "error"}
	err := run(append(args, base...), &stdout, &stderr)
	return stdout.String(), err
}

func newUserServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/42":
			assert.Equal(t, "confreq-test", r.Header.Get("X-Client"))
			assert.Equal(t, "false", r.URL.Query().Get("verbose"))
			fmt.Fprint(w, `{"data": {"id": 42, "name": "Ada"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(body)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "no such user"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEndpointsCommand(t *testing.T) {
	e := setup(t, "http://example.invalid")
	out, err := e.run(t, "endpoints")
	require.NoError(t, err)
	assert.Contains(t, out, "getUser")
	assert.Contains(t, out, "/users/{id}")
	assert.Contains(t, out, "Fetch one user")
	assert.Contains(t, out, "createUser")
}

func TestInfoCommand(t *testing.T) {
	e := setup(t, "http://example.invalid")
	out, err := e.run(t, "info", "getUser", "--param", "id=7", "--param", "verbose:=true")
	require.NoError(t, err)

	var resolved map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	assert.Equal(t, "http://example.invalid/users/7?verbose=true", resolved["url"])
	assert.Equal(t, false, resolved["isMockRequest"])
}

func TestInfoCommandMissingRequired(t *testing.T) {
	e := setup(t, "http://example.invalid")
	_, err := e.run(t, "info", "createUser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestRequestCommand(t *testing.T) {
	srv := newUserServer(t)
	e := setup(t, srv.URL)

	out, err := e.run(t, "request", "getUser", "-p", "id=42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 42, "name": "Ada"}`, out)

	out, err = e.run(t, "request", "getUser", "-p", "id=42", "--extract", "name=name")
	require.NoError(t, err)
	assert.Equal(t, "name=Ada\n", out)

	out, err = e.run(t, "request", "createUser", "-p", "email=a@b.c", "--full")
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, float64(201), resp["status"])
	assert.Equal(t, map[string]any{"role": "member", "email": "a@b.c"}, resp["data"])
}

func TestRequestCommandErrorStatus(t *testing.T) {
	srv := newUserServer(t)
	e := setup(t, srv.URL)

	_, err := e.run(t, "request", "getUser", "-p", "id=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestMockCommand(t *testing.T) {
	e := setup(t, "http://example.invalid")
	out, err := e.run(t, "mock", "getUser", "-p", "id=9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "9", "name": "mock user"}`, out)

	_, err = e.run(t, "mock", "createUser", "-p", "email=a@b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestBenchCommandOnMockPath(t *testing.T) {
	e := setup(t, "http://example.invalid")
	out, err := e.run(t, "bench", "getUser", "-p", "id=1", "--mock", "--count", "5", "--concurrency", "2", "--json")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(5), stats["total"])
	assert.Equal(t, float64(0), stats["failures"])
	buckets, ok := stats["status_buckets"].([]any)
	require.True(t, ok)
	require.Len(t, buckets, 1)
	assert.Equal(t, "mock", buckets[0].(map[string]any)["path"])
}

func TestBenchCommandWithFeedAndThresholds(t *testing.T) {
	srv := newUserServer(t)
	e := setup(t, srv.URL)
	feed := filepath.Join(e.dir, "users.csv")
	require.NoError(t, os.WriteFile(feed, []byte("id\n42\n7\n"), 0o600))

	out, err := e.run(t, "bench", "getUser", "--feed", feed, "--count", "4", "--json",
		"--threshold", "failures:rate <= 0.5", "--threshold", "calls:count == 4")
	require.NoError(t, err)

	var report struct {
		Total      int64 `json:"total"`
		Failures   int64 `json:"failures"`
		Thresholds struct {
			Passed int `json:"passed"`
			Failed int `json:"failed"`
		} `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(4), report.Total)
	assert.Equal(t, int64(2), report.Failures)
	assert.Equal(t, 2, report.Thresholds.Passed)
	assert.Equal(t, 0, report.Thresholds.Failed)

	out, err = e.run(t, "bench", "getUser", "--feed", feed, "--count", "2", "--threshold", "failures:count == 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 thresholds failed")
	assert.Contains(t, out, "✗ failures:count == 0")
}

func TestBenchCommandValidatesFlags(t *testing.T) {
	e := setup(t, "http://example.invalid")
	_, err := e.run(t, "bench", "getUser", "--count", "0")
	require.Error(t, err)

	_, err = e.run(t, "bench", "getUser", "-p", "id=1", "--arrival", "burst")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--arrival")
}

func TestReplayCommands(t *testing.T) {
	e := setup(t, "http://example.invalid")

	out, err := e.run(t, "replay", "save", "getUser", "-p", "id=3", "-o", "mock:=true", "--label", "third user")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.Len(t, id, 26)

	out, err = e.run(t, "replay", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "third user")

	out, err = e.run(t, "replay", "run", id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "3", "name": "mock user"}`, out)

	_, err = e.run(t, "replay", "save", "createUser")
	require.Error(t, err)
}

func TestMissingCatalog(t *testing.T) {
	for _, name := range settingEnv {
		t.Setenv(name, "")
	}
	var stdout, stderr bytes.Buffer
	err := run([]string{"endpoints"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=1", "b:=2", "c:={\"x\":true}", "d=x:=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": "1",
		"b": float64(2),
		"c": map[string]any{"x": true},
		"d": "x:=y",
	}, got)

	_, err = parseAssignments([]string{"novalue"})
	require.Error(t, err)
	_, err = parseAssignments([]string{"a:={"})
	require.Error(t, err)
}
