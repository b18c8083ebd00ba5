// Package api serves the MovieBox catalog as uniform JSON endpoints.
//
// Every handler validates its parameters, opens a fresh upstream session,
// dispatches one or two moviebox queries and returns an ordered payload.
// Errors are returned, never written, and are rendered by a single
// interceptor so each response body, success or failure, is an envelope
// whose first key is the attribution key.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/s0up4200/moviebox-api/moviebox"
)

// Fetcher runs moviebox queries. *moviebox.Session implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q moviebox.Query) (*moviebox.Content, error)
}

// SessionFunc builds a new Fetcher for every request
type SessionFunc func() (Fetcher, error)

// Options configures a Server
type Options struct {
	// Creator is the attribution value injected into every body
	Creator string
	Version string
	// StaticDir, when set, serves a single page frontend for non-API paths
	StaticDir   string
	MetricsPath string
}

// Server wires the HTTP routes to the upstream catalog
type Server struct {
	opts       Options
	newSession SessionFunc
	metrics    *Metrics
	logger     zerolog.Logger
}

// NewServer creates a new Server. metrics may be nil.
func NewServer(opts Options, newSession SessionFunc, metrics *Metrics, logger zerolog.Logger) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Server{
		opts:       opts,
		newSession: newSession,
		metrics:    metrics,
		logger:     logger,
	}
}

// handlerFunc returns the payload for a successful response or an error for
// the interceptor to translate
type handlerFunc func(r *http.Request) (Fields, error)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := h(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, payload)
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(s.metrics.Middleware)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	r.Get("/", s.handle(s.handleRoot))
	r.Get("/docs", s.handle(s.handleDocs))
	r.Get("/health", s.handle(s.handleHealth))
	if s.metrics != nil {
		r.Method(http.MethodGet, s.opts.MetricsPath, s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handle(s.handleSearch))
		r.Get("/trending", s.handle(s.handleTrending))
		r.Get("/homepage", s.handle(s.handleHomepage))
		r.Get("/popular-searches", s.handle(s.handlePopularSearches))
		r.Get("/movie/{subject_id}", s.handle(s.handleDetails(movieDetails)))
		r.Get("/series/{subject_id}", s.handle(s.handleDetails(seriesDetails)))
	})

	r.NotFound(s.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		body := Normalize(s.opts.Creator, Fields{
			{Key: "error", Value: "method not allowed"},
			{Key: "message", Value: http.StatusText(http.StatusMethodNotAllowed)},
		})
		writeBody(w, r, http.StatusMethodNotAllowed, body)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}

// notFound serves the frontend for unknown non-API paths when configured and
// an error envelope otherwise
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	isAPI := r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
	if s.opts.StaticDir != "" && !isAPI && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.serveStatic(w, r)
		return
	}
	s.writeError(w, r, &NotFoundError{Message: "Not Found"})
}

// serveStatic serves a file from StaticDir, falling back to index.html so
// client-side routes resolve
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.opts.StaticDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	f, info, err := openFile(name)
	if err != nil {
		f, info, err = openFile(filepath.Join(s.opts.StaticDir, "index.html"))
		if err != nil {
			s.writeError(w, r, &NotFoundError{Message: "Not Found"})
			return
		}
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// openFile opens a regular file
func openFile(name string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", name)
	}
	return f, info, nil
}
