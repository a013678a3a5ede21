// Package dashboard serves the coverage dashboard: server-rendered pages over
// the backend, chart endpoints, a small JSON view API and debug routes.
package dashboard

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/config"
	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/indicator"
	"github.com/banshee-data/coverage.report/internal/mapping"
	"github.com/banshee-data/coverage.report/internal/monitoring"
	"github.com/banshee-data/coverage.report/internal/timeutil"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

var logf = monitoring.Component("dashboard")

// Backend is the set of backend calls the dashboard makes.
type Backend interface {
	coverage.Store
	drilldown.Source

	BaseURL() string
	ListEvents(ctx context.Context) ([]coverage.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	BulkUpload(ctx context.Context, file backend.File) (backend.UploadResult, error)
	Template(ctx context.Context) (backend.Download, error)
	UniqueIPs(ctx context.Context) ([]string, error)
	Indicators(ctx context.Context, ip string) ([]indicator.Coverage, error)
	EventBreakdowns(ctx context.Context) ([]indicator.EventBreakdown, error)
	Mappings(ctx context.Context, ip string) ([]mapping.Mapping, error)
	UploadMapping(ctx context.Context, ip, sheetName string, file backend.File) (backend.UploadResult, error)
}

// Server renders the dashboard.
type Server struct {
	backend    Backend
	cfg        *config.DashboardConfig
	palette    []string
	maxUpload  int64
	assetsHost string
	pages      map[string]*template.Template
	clock      timeutil.Clock
}

// NewServer builds a Server over b. A nil cfg uses every default.
func NewServer(b Backend, cfg *config.DashboardConfig) (*Server, error) {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		backend:    b,
		cfg:        cfg,
		palette:    cfg.GetPalette(),
		maxUpload:  cfg.GetMaxUploadBytes(),
		assetsHost: cfg.GetEchartsAssetsHost(),
		pages:      pages,
		clock:      timeutil.RealClock{},
	}, nil
}

// SetClock replaces the clock used for health timestamps and backend timings.
func (s *Server) SetClock(c timeutil.Clock) { s.clock = c }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs status, method, path and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// RequestIDMiddleware reuses an incoming X-Request-ID or mints one, echoes
// it on the response and attaches it to the context for backend calls.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(backend.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(backend.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(backend.WithRequestID(r.Context(), id)))
	})
}

// ServeMux registers every dashboard route.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleOverall)
	mux.HandleFunc("GET /subscribe", s.handleSubscribe)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /tool", s.handleTool)
	mux.HandleFunc("GET /tool/chart", s.handleToolChart)
	mux.HandleFunc("GET /tool/chart.png", s.handleToolChartPNG)

	mux.HandleFunc("GET /coverage", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/coverage/events", http.StatusFound)
	})
	mux.HandleFunc("GET /coverage/events", s.handleEvents)
	mux.HandleFunc("POST /coverage/events/save", s.handleEventSave)
	mux.HandleFunc("POST /coverage/events/delete", s.handleEventDelete)
	mux.HandleFunc("POST /coverage/events/import", s.handleEventImport)
	mux.HandleFunc("GET /coverage/events/template", s.handleEventTemplate)

	mux.HandleFunc("GET /coverage/mapping", s.handleMapping)
	mux.HandleFunc("POST /coverage/mapping/upload", s.handleMappingUpload)

	mux.HandleFunc("GET /coverage/indicators", s.handleIndicators)
	mux.HandleFunc("GET /coverage/indicators/pie", s.handleIndicatorPie)
	mux.HandleFunc("GET /coverage/indicators/chart", s.handleIndicatorChart)

	mux.HandleFunc("GET /api/coverage/events", s.apiEvents)
	mux.HandleFunc("GET /api/indicators/search", s.apiIndicatorSearch)
	mux.HandleFunc("GET /api/drilldown", s.apiDrilldown)

	s.AttachDebugRoutes(mux)
	return mux
}

// Handler is the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(RequestIDMiddleware(s.ServeMux()))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting dashboard on %s (backend %s)", addr, s.backend.BaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down dashboard...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("dashboard force close error: %v", err)
		}
	}
	log.Printf("dashboard stopped")
	return nil
}
