// Package server exposes the chart pipeline over HTTP for `npmburst serve`.
//
// Every endpoint reads the same query parameters as the shareable chart URL
// (package, sortBy, lpf, selectedVersion, expanded), so a browser front end
// can pass its location straight through.
//
//	GET  /api/health
//	GET  /api/downloads    raw counts as returned by the registry
//	GET  /api/tree         aggregated version tree
//	GET  /api/table        drill-down rows of the selected node
//	GET  /api/chart.svg    rendered sunburst
//	GET  /api/chart.json   arcs with positions and colours
//	POST /api/activate     apply a click on the arc named by ?name=
//
// Errors are returned as {"error":{"code","message","retry"}} where retry
// marks failures worth retrying.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/pipeline"
)

// DefaultTimeout bounds the handling of one request.
const DefaultTimeout = 30 * time.Second

// Server serves charts built by a pipeline runner.
type Server struct {
	runner    *pipeline.Runner
	logger    *log.Logger
	timeout   time.Duration
	pkg       string
	threshold float64
	router    chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// WithLogger sets the request logger. It defaults to the runner's logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithDefaults sets the package and threshold used when a request leaves
// them out.
func WithDefaults(pkg string, threshold float64) Option {
	return func(s *Server) { s.pkg, s.threshold = pkg, threshold }
}

// New returns a server using r for every request.
func New(r *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:    r,
		logger:    r.Logger,
		timeout:   DefaultTimeout,
		pkg:       pipeline.DefaultPackage,
		threshold: pipeline.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/downloads", s.handleDownloads)
		r.Get("/tree", s.handleTree)
		r.Get("/table", s.handleTable)
		r.Get("/chart.svg", s.handleChartSVG)
		r.Get("/chart.json", s.handleChartJSON)
		r.Post("/activate", s.handleActivate)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errs.ErrCodeNotFound, "no route for "+r.URL.Path, false)
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// chartCache returns the cache rendered charts are kept in.
func (s *Server) chartCache() (cache.Cache, cache.Keyer) {
	return s.runner.Cache, s.runner.Keyer
}
