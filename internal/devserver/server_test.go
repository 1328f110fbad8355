package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
	"github.com/fluxbase-eu/jsbundle/internal/observability"
)

type fakeBuilder struct {
	mu     sync.Mutex
	calls  int
	result *bundler.Result
	err    error
}

func (f *fakeBuilder) Build(_ context.Context, _ []string) (*bundler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeClient struct {
	mu       sync.Mutex
	messages []string
	closed   bool
	fail     bool
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func okResult() *bundler.Result {
	return &bundler.Result{
		Output:     "js/bundle.js",
		TotalBytes: 128,
		Files: []bundler.FileReport{
			{Path: "js/a.js", Found: true},
			{Path: "js/gone.js"},
		},
	}
}

func newTestServer(t *testing.T, cfg Config, b Builder) *Server {
	t.Helper()
	if cfg.Root == "" {
		cfg.Root = t.TempDir()
	}
	m := observability.NewMetrics(prometheus.NewRegistry())
	return NewServer(cfg, b, []string{"js/a.js", "js/gone.js"}, WithMetrics(m), WithLogger(zerolog.Nop()))
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHealth_BeforeFirstBuild(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeBuilder{result: okResult()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, "starting", decodeBody(t, resp.Body)["status"])
}

func TestHealth_AfterBuild(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeBuilder{result: okResult()})
	require.NoError(t, s.Rebuild(context.Background()))

	resp, err := s.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "js/bundle.js", body["output"])
	assert.Equal(t, float64(1), body["files"])
	assert.Equal(t, []interface{}{"js/gone.js"}, body["missing"])
}

func TestHealth_AfterFailedBuild(t *testing.T) {
	b := &fakeBuilder{err: bundler.ErrIOFailure}
	s := newTestServer(t, Config{}, b)

	err := s.Rebuild(context.Background())
	require.ErrorIs(t, err, bundler.ErrIOFailure)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "bundle I/O failure")
}

func TestRebuild_BroadcastsOnSuccessOnly(t *testing.T) {
	b := &fakeBuilder{result: okResult()}
	s := newTestServer(t, Config{LiveReload: true}, b)

	c := &fakeClient{}
	s.Hub().Add("browser", c)

	require.NoError(t, s.Rebuild(context.Background()))
	assert.Equal(t, []string{ReloadMessage}, c.messages)

	b.err = errors.New("boom")
	require.Error(t, s.Rebuild(context.Background()))
	assert.Len(t, c.messages, 1, "failed builds do not reload")
	assert.Equal(t, 2, b.calls)
}

func TestRebuild_NoBroadcastWithoutLiveReload(t *testing.T) {
	s := newTestServer(t, Config{LiveReload: false}, &fakeBuilder{result: okResult()})

	c := &fakeClient{}
	s.Hub().Add("browser", c)

	require.NoError(t, s.Rebuild(context.Background()))
	assert.Empty(t, c.messages)
}

func TestRebuild_Serialised(t *testing.T) {
	b := &fakeBuilder{result: okResult()}
	s := newTestServer(t, Config{}, b)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Rebuild(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, b.calls)
}

func TestLiveReloadRoutes(t *testing.T) {
	s := newTestServer(t, Config{LiveReload: true}, &fakeBuilder{result: okResult()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/__livereload.js", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/javascript")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/__livereload")
	assert.Contains(t, string(body), "location.reload()")

	resp, err = s.App().Test(httptest.NewRequest("GET", "/__livereload", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode, "plain GET must ask for an upgrade")
}

func TestLiveReloadRoutes_Disabled(t *testing.T) {
	s := newTestServer(t, Config{LiveReload: false}, &fakeBuilder{result: okResult()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/__livereload.js", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, Config{Metrics: true}, &fakeBuilder{result: okResult()})
	require.NoError(t, s.Rebuild(context.Background()))

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jsbundle_builds_total{status="success"} 1`)
	assert.Contains(t, string(body), "jsbundle_bundle_bytes 128")
}

func TestMetricsRoute_Disabled(t *testing.T) {
	s := newTestServer(t, Config{Metrics: false}, &fakeBuilder{result: okResult()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestStaticFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "bundle.js"), []byte("var x = 1;"), 0o644))

	s := newTestServer(t, Config{Root: root}, &fakeBuilder{result: okResult()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/js/bundle.js", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "var x = 1;", string(body))

	resp, err = s.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
