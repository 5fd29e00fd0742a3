// Package server serves the site pages with per-visitor theme preferences.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/folio/app/site"
	"github.com/umputun/folio/app/store"
)

//go:generate moq -out mocks/kvstore.go -pkg mocks -skip-ensure -fmt goimports . KVStore

// KVStore defines the persistent store operations used for visitor preferences.
// Defined here (consumer side) to allow different store implementations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]store.KeyInfo, error)
}

// Server represents the HTTP server.
type Server struct {
	store    KVStore
	cfg      Config
	staticFS fs.FS

	mu      sync.RWMutex
	builder *site.Builder
}

// Config holds server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Version         string
	SecureCookies   bool // mark visitor cookies Secure, for sites served over https

	// limits
	BodySizeLimit  int64 // max request body size in bytes
	RequestsPerSec int64 // max requests per second
}

// New creates a new Server instance serving pages from b.
func New(st KVStore, b *site.Builder, cfg Config) (*Server, error) {
	if b == nil {
		return nil, errors.New("site builder is required")
	}
	staticContent, err := site.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	return &Server{store: st, cfg: cfg, staticFS: staticContent, builder: b}, nil
}

// SetSite swaps the site builder, used when the site config is reloaded.
func (s *Server) SetSite(b *site.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builder = b
}

func (s *Server) site() *site.Builder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builder
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	// graceful shutdown
	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] shutdown error: %v", err)
		}
	}()

	log.Printf("[DEBUG] started server on %s", s.cfg.Address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// routes configures and returns the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.Recoverer(log.Default()),
		rest.RealIP, // must be before Throttle to rate-limit by real client IP
		rest.Throttle(s.requestsPerSec()),
		rest.Trace,
		rest.SizeLimit(s.bodySizeLimit()),
		rest.AppInfo("folio", "umputun", s.cfg.Version),
		rest.Ping,
	)

	router.HandleFunc("GET /static/highlight.css", s.handleHighlightCSS)
	router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.staticFS))))

	router.HandleFunc("POST /web/theme", s.handleThemeToggle)

	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.HandleFunc("GET /theme", s.handleThemeGet)
		api.HandleFunc("POST /theme/toggle", s.handleThemeToggleAPI)
		api.HandleFunc("DELETE /theme", s.handleThemeForget)
		api.HandleFunc("GET /prefs", s.handlePrefsList)
	})

	router.HandleFunc("GET /{path...}", s.handlePage)
	return router
}

// bodySizeLimit returns the configured body size limit, or default 64KB if not set.
func (s *Server) bodySizeLimit() int64 {
	if s.cfg.BodySizeLimit > 0 {
		return s.cfg.BodySizeLimit
	}
	return 64 * 1024
}

// requestsPerSec returns the configured requests per second limit, or default 1000 if not set.
func (s *Server) requestsPerSec() int64 {
	if s.cfg.RequestsPerSec > 0 {
		return s.cfg.RequestsPerSec
	}
	return 1000
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 5 * time.Second
}
