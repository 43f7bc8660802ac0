// Package server exposes the chart pages over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/user/datacharts-go/internal/dataset"
	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/metrics"
	"github.com/user/datacharts-go/internal/models"
	"github.com/user/datacharts-go/internal/page"
	"github.com/user/datacharts-go/internal/pipeline"
	"github.com/user/datacharts-go/internal/platform"
)

const staticURL = "/static/"

// Pipelines renders a dataset page. *pipeline.Runner satisfies it.
type Pipelines interface {
	Run(ctx context.Context, id dataset.ID) (models.PageData, error)
}

// PlatformCollector gathers the platform page details.
type PlatformCollector interface {
	Collect(ctx context.Context) models.PlatformInfo
}

type Options struct {
	Addr            string
	StaticDir       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	opts      Options
	pipelines Pipelines
	platform  PlatformCollector
	pages     *page.Composer
	metrics   *metrics.Metrics
	startedAt time.Time
}

var _ Pipelines = (*pipeline.Runner)(nil)
var _ PlatformCollector = (*platform.Collector)(nil)

func New(opts Options, pipelines Pipelines, collector PlatformCollector, m *metrics.Metrics) (*Server, error) {
	pages, err := page.New(staticURL)
	if err != nil {
		return nil, err
	}
	return &Server{
		opts:      opts,
		pipelines: pipelines,
		platform:  collector,
		pages:     pages,
		metrics:   m,
		startedAt: time.Now(),
	}, nil
}

// dataRoutes maps each data page to its dataset.
var dataRoutes = []struct {
	path    string
	page    string
	title   string
	dataset dataset.ID
	blurb   string
}{
	{"/energy-data", page.EnergyData, "Energy Data", dataset.Electricity, "installed electricity capacity by source"},
	{"/railway-data", page.RailwayData, "Railway Data", dataset.Railway, "stations by maximum distance and trips"},
	{"/health-data", page.HealthData, "Health Data", dataset.Health, "sampled COVID-19 daily cases"},
	{"/wind-data", page.WindData, "Wind Data", dataset.Wind, "wind speed distribution"},
}

// Handler builds the routing tree wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", s.route("/", http.HandlerFunc(s.handleIndex)))
	for _, r := range dataRoutes {
		mux.Handle("GET "+r.path, s.route(r.path, s.dataHandler(r.page, r.title, r.dataset)))
	}
	mux.Handle("GET /Platform_info", s.route("/Platform_info", http.HandlerFunc(s.handlePlatform)))
	mux.Handle("GET /healthz", s.route("/healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET "+staticURL, s.route(staticURL, http.StripPrefix(staticURL, http.FileServer(http.Dir(s.opts.StaticDir)))))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return requestID(mux)
}

// route adds per-route logging and metrics.
func (s *Server) route(name string, h http.Handler) http.Handler {
	return accessLog(name, s.metrics, h)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	links := make([]page.Link, 0, len(dataRoutes)+1)
	for _, dr := range dataRoutes {
		links = append(links, page.Link{Href: dr.path, Title: dr.title, Text: dr.blurb})
	}
	links = append(links, page.Link{Href: "/Platform_info", Title: "Platform Information", Text: "host and dataset details"})
	s.render(w, r, page.Index, page.View{Title: "Open Data Charts", Links: links})
}

func (s *Server) dataHandler(name, title string, id dataset.ID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.pipelines.Run(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.render(w, r, name, page.View{Title: title, Page: data})
	}
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	info := s.platform.Collect(r.Context())
	s.render(w, r, page.PlatformInfo, page.View{Title: "Platform Information", Platform: &info})
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "datacharts",
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		Details: map[string]string{
			"go_version": runtime.Version(),
			"version":    platform.Version,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Error().With(logging.ErrorField(err)).Msg("failed to encode health response")
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, view page.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.Render(w, name, view); err != nil {
		s.fail(w, r, err)
	}
}

// fail logs err and answers with the generic error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	id := RequestIDFrom(r.Context())
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) {
		// client went away; nobody will read the body
		logging.Warn().With(logging.RequestID(id), logging.Route(r.URL.Path), logging.ErrorField(err)).Msg("request canceled")
	} else {
		logging.Error().With(logging.RequestID(id), logging.Route(r.URL.Path), logging.ErrorField(err)).Msg("request failed")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	view := page.View{Title: "Error", Status: status, RequestID: id}
	if err := s.pages.Render(w, page.ErrorPage, view); err != nil {
		logging.Error().With(logging.RequestID(id), logging.ErrorField(err)).Msg("failed to render error page")
	}
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().With(logging.Addr(s.opts.Addr)).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.Info().Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
