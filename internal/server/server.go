package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"curiousqa/pkg/config"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	// FormField is the name of the username input
	FormField = "user_input"
	// DownloadPath receives the form
	DownloadPath = "/download/"

	maxFormSize = 4 << 10
)

// Server serves the download form and the export endpoint
type Server struct {
	cfg        *config.Config
	exporter   Exporter
	metrics    metrics.Recorder
	gatherer   prometheus.Gatherer
	logger     logger.Logger
	index      *template.Template
	httpServer *http.Server
}

// New creates a server. gatherer backs /metrics and may be nil when
// metrics are disabled.
func New(cfg *config.Config, exporter Exporter, rec metrics.Recorder, gatherer prometheus.Gatherer, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if rec == nil {
		rec = metrics.Noop()
	}

	index, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		exporter: exporter,
		metrics:  rec,
		gatherer: gatherer,
		logger:   log.WithField("component", "server"),
		index:    index,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// Handler builds the routing tree
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(s.instrument)

	// the workbook is already zip-compressed; only text responses are gzipped
	r.Group(func(r chi.Router) {
		r.Use(gzip)
		r.Get("/", s.handleIndex)
		r.Get("/healthz", s.handleHealth)
	})
	r.Post(DownloadPath, s.handleDownload)

	if s.cfg.Metrics.Enabled && s.gatherer != nil {
		r.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func gzip(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.InfoWithFields("Starting HTTP server", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if t := s.cfg.Server.RequestTimeout; t > 0 {
		return context.WithTimeout(r.Context(), t)
	}
	return r.Context(), func() {}
}
