package devserver

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func outputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":      "<html><body>app</body></html>",
		"bundle.js":       "console.log(1)",
		"images/logo.png": "png",
		"docs/index.html": "<html><body>docs</body></html>",
	}
	for name, contents := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	}
	return dir
}

func TestHandler(t *testing.T) {
	var logs bytes.Buffer
	srv := New(Config{Dir: outputDir(t), CORSOrigins: []string{"http://localhost:3000"}}, zerolog.New(&logs))
	handler := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "root serves index", method: http.MethodGet, path: "/", status: http.StatusOK, body: "app"},
		{name: "static file", method: http.MethodGet, path: "/bundle.js", status: http.StatusOK, body: "console.log(1)"},
		{name: "nested file", method: http.MethodGet, path: "/images/logo.png", status: http.StatusOK, body: "png"},
		{name: "client route falls back", method: http.MethodGet, path: "/users/42", status: http.StatusOK, body: "app"},
		{name: "directory index", method: http.MethodGet, path: "/docs/", status: http.StatusOK, body: "docs"},
		{name: "missing asset", method: http.MethodGet, path: "/missing.js", status: http.StatusNotFound},
		{name: "traversal stays inside", method: http.MethodGet, path: "/../../etc/passwd", status: http.StatusOK, body: "app"},
		{name: "post rejected", method: http.MethodPost, path: "/", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", nil)
			r.URL.Path = tt.path
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			require.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				require.Contains(t, w.Body.String(), tt.body)
			}
		})
	}

	require.Contains(t, logs.String(), `"message":"http request"`)
}

func TestHandler_IndexNotCached(t *testing.T) {
	handler := New(Config{Dir: outputDir(t)}, zerolog.Nop()).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bundle.js", nil))
	require.Empty(t, w.Header().Get("Cache-Control"))
}

func TestHandler_Precompressed(t *testing.T) {
	dir := outputDir(t)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("console.log(1)"), nil)
	require.NoError(t, enc.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.js.zst"), compressed, 0o600))

	handler := New(Config{Dir: dir}, zerolog.Nop()).Handler()

	r := httptest.NewRequest(http.MethodGet, "/bundle.js", nil)
	r.Header.Set("Accept-Encoding", "gzip, zstd")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "zstd", w.Header().Get("Content-Encoding"))
	require.Contains(t, w.Header().Get("Content-Type"), "javascript")
	require.Equal(t, compressed, w.Body.Bytes())

	r = httptest.NewRequest(http.MethodGet, "/bundle.js", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, "console.log(1)", w.Body.String())
}

func TestHandler_CORS(t *testing.T) {
	handler := New(Config{Dir: outputDir(t), CORSOrigins: []string{"http://localhost:3000"}}, zerolog.Nop()).Handler()

	r := httptest.NewRequest(http.MethodGet, "/bundle.js", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/bundle.js", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(Config{Dir: outputDir(t), Listen: addr}, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/bundle.js")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "console.log(1)"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
