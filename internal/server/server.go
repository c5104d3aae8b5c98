package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/zuhrulumam/mortchart/internal/chart"
	"github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/pipeline"
	"github.com/zuhrulumam/mortchart/internal/tooltip"
	"github.com/zuhrulumam/mortchart/internal/tracker"
	"github.com/zuhrulumam/mortchart/internal/worker"
)

// RenderIDHeader carries the render cycle ID of a chart response
const RenderIDHeader = "X-Render-ID"

// Config holds server configuration
type Config struct {
	Source       string
	Title        string
	DefaultWidth float64

	// MaxConcurrent bounds simultaneous chart renders; extra requests wait
	MaxConcurrent int

	Logger *slog.Logger
}

// Server serves the chart page and per-width SVG renders of one source
type Server struct {
	pipeline *pipeline.Pipeline
	config   Config
	sem      *worker.Semaphore
	logger   *slog.Logger
	router   chi.Router
}

// New creates a server drawing config.Source through p
func New(p *pipeline.Pipeline, config Config) *Server {
	if config.DefaultWidth <= 0 {
		config.DefaultWidth = 960
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		pipeline: p,
		config:   config,
		sem:      worker.NewSemaphore(config.MaxConcurrent),
		logger:   config.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/", s.handlePage)
	r.Get("/chart.svg", s.handleChart)
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "source", s.config.Source, "max_renders", s.sem.Limit())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	tipConfig := tooltip.DefaultConfig()
	if tip := s.pipeline.Tooltip(); tip != nil {
		tipConfig = tip.Config()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := chart.WritePage(w, chart.PageData{
		Title:    s.config.Title,
		ChartURL: "/chart.svg",
		Message:  tracker.MsgLoading,
		Tooltip:  tipConfig,
	})
	if err != nil {
		s.logger.Error("write page failed", "error", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	width := s.width(r)
	resize := r.URL.Query().Get("resize") == "1"

	id := uuid.NewString()
	w.Header().Set(RenderIDHeader, id)
	ctx := pipeline.WithRenderID(r.Context(), id)

	surface := chart.NewSVGSurface(width)
	err := s.sem.Do(ctx, func() error {
		s.logger.Debug("render slot acquired", "render_id", id, "in_flight", s.sem.InFlight(), "width", width)
		var err error
		if resize {
			_, err = s.pipeline.Redraw(ctx, surface, s.config.Source)
		} else {
			_, err = s.pipeline.Draw(ctx, surface, s.config.Source)
		}
		return err
	})

	if err != nil {
		status, message := classify(r.Context(), err)
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := surface.WriteTo(w); err != nil {
		s.logger.Error("write chart failed", "render_id", id, "error", err)
	}
}

// width is the ?width parameter, or the default when absent or unusable
func (s *Server) width(r *http.Request) float64 {
	raw := r.URL.Query().Get("width")
	if raw == "" {
		return s.config.DefaultWidth
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w <= 0 {
		return s.config.DefaultWidth
	}
	return w
}

// classify maps a draw error to a status and the user-facing message.
// Only the end of the request itself counts as a cancel; a load that ran
// out of time is a load failure.
func classify(ctx context.Context, err error) (int, string) {
	if ctx.Err() != nil {
		return http.StatusServiceUnavailable, "Render canceled."
	}

	if errors.KindOf(err) == errors.KindEmptyDataset {
		var empty *errors.EmptyDatasetError
		if stderrors.As(err, &empty) && empty.NoRows() {
			return http.StatusUnprocessableEntity, tracker.MsgNoRows
		}
		return http.StatusUnprocessableEntity, tracker.MsgNoValidRows
	}
	return http.StatusBadGateway, tracker.MsgLoadFailure
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"render_id", ww.Header().Get(RenderIDHeader))
	})
}
