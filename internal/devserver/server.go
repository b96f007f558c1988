// Package devserver serves a built bundle for local development, falling back
// to the HTML page for client side routes.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/spabundle/internal/precompress"
)

// Config configures the development server.
type Config struct {
	// Dir is the output directory to serve.
	Dir string
	// Index is the page served for unknown routes, relative to Dir.
	Index       string
	Listen      string
	CORSOrigins []string
}

type Server struct {
	config Config
	logger zerolog.Logger
}

func New(config Config, logger zerolog.Logger) *Server {
	if config.Index == "" {
		config.Index = "index.html"
	}
	return &Server{config: config, logger: logger}
}

// Handler serves files from the output directory. Requests without a file
// extension that match no file receive the index page. Precompressed
// variants are preferred when the client accepts them.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = http.HandlerFunc(s.serveFile)

	handler = cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(handler)
	handler = RequestLogger(s.logger)(handler)
	handler = ClientIPMiddleware()(handler)

	return handler
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(name, "/") {
		name += s.config.Index
	}

	file, ok := s.lookup(name)
	if !ok {
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		file, ok = s.lookup("/" + s.config.Index)
		if !ok {
			http.NotFound(w, r)
			return
		}
	}

	if filepath.Base(file) == path.Base(s.config.Index) {
		w.Header().Set("Cache-Control", "no-cache")
	}

	// the content type follows the original name, not the encoded variant
	served := file
	if encoded, encoding := s.precompressed(file, r.Header.Get("Accept-Encoding")); encoded != "" {
		w.Header().Set("Content-Encoding", encoding)
		w.Header().Add("Vary", "Accept-Encoding")
		served = encoded
	}

	f, err := os.Open(served)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, filepath.Base(file), info.ModTime(), f)
}

// lookup maps a URL path to a regular file inside the served directory.
func (s *Server) lookup(name string) (string, bool) {
	file := filepath.Join(s.config.Dir, filepath.FromSlash(name))
	info, err := os.Stat(file)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		file = filepath.Join(file, s.config.Index)
		if info, err = os.Stat(file); err != nil || info.IsDir() {
			return "", false
		}
	}
	return file, true
}

func (s *Server) precompressed(file, acceptEncoding string) (string, string) {
	accepted := map[string]bool{}
	for _, part := range strings.Split(acceptEncoding, ",") {
		enc, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		accepted[strings.ToLower(enc)] = true
	}

	for _, c := range []struct{ algorithm, encoding string }{
		{precompress.Zstd, "zstd"},
		{precompress.Gzip, "gzip"},
	} {
		if !accepted[c.encoding] {
			continue
		}
		candidate := file + precompress.Extension(c.algorithm)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, c.encoding
		}
	}
	return "", ""
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := configureHTTPServer(s.config.Listen, s.Handler())

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.config.Listen).Str("dir", s.config.Dir).Msg("Serving bundle")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
