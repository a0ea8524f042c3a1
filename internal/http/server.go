package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/cache"
	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/services"
	appweb "salesdash/web"
)

// requestTimeout bounds every handler's work.
const requestTimeout = 7 * time.Second

// Options configures the dashboard server.
type Options struct {
	TopN             int
	RawRowLimit      int
	CacheSize        int
	CacheTTL         time.Duration
	ReportsPerMinute int

	// Publisher is nil when AMQP is disabled; POST /reports then returns 503.
	Publisher services.Publisher
	Metrics   *metrics.Recorder
	Logger    *log.Logger
}

// Server wraps http.Server with the dataset and the shared result cache.
type Server struct {
	http.Server

	ds        *core.Dataset
	opts      Options
	templates *template.Template
	results   *cache.Loader[core.Result]
	reports   *services.ReportService
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	metrics   *metrics.Recorder
	logger    *log.Logger
	sl        *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ds *core.Dataset, opts Options) (*Server, error) {
	if ds == nil {
		return nil, core.ErrEmptyDataset
	}
	if opts.TopN <= 0 {
		opts.TopN = core.DefaultTopN
	}
	if opts.RawRowLimit <= 0 {
		opts.RawRowLimit = 500
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	results := cache.NewLRUCache[core.Result](opts.CacheSize, opts.CacheTTL)

	s := &Server{
		ds:        ds,
		opts:      opts,
		templates: t,
		results:   cache.NewLoader(results),
		reports:   services.NewReportService(ds, opts.Publisher, opts.Metrics),
		caches:    cache.NewManager(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.ReportsPerMinute}),
		metrics:   opts.Metrics,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
	}
	s.caches.Register(results)
	s.caches.StartCleanup(opts.CacheTTL)

	s.Handler = s.routes()
	s.Addr = addr
	s.ReadHeaderTimeout = 5 * time.Second
	s.WriteTimeout = 2 * requestTimeout
	s.IdleTimeout = 60 * time.Second
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	ipResolver := security.NewClientIPResolver()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /charts/extremes.png", s.handleExtremesChart)
	mux.HandleFunc("GET /charts/monthly-top.png", s.handleMonthlyChart)
	mux.HandleFunc("GET /export/rows.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export/rows.xlsx", s.handleExportXLSX)

	limitReports := s.limiter.Middleware(ipResolver.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, TooManyRequestsError("Too many report requests, try again in a minute"), !isHTMX(r))
	})
	mux.Handle("POST /reports", limitReports(http.HandlerFunc(s.handleCreateReport)))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, ipResolver.ExtractClientIP, s.metrics)
	return tracer.Middleware(headers.Middleware(mux))
}

// summary returns the pipeline result for sel, computing it at most once per
// cache lifetime even under concurrent requests.
func (s *Server) summary(ctx context.Context, sel core.Selection) (core.Result, error) {
	if err := ctx.Err(); err != nil {
		return core.Result{}, err
	}
	start := time.Now()
	res, hit, err := s.results.Get(sel.Key(), func() (core.Result, error) {
		return core.Run(s.ds, sel, core.Options{TopN: s.opts.TopN})
	})
	if err != nil {
		return core.Result{}, err
	}
	s.metrics.ObserveSummary(hit, time.Since(start))
	s.sl.LogSummary(ctx, sel.Year, sel.MonthLabel(), res.Total(), len(res.Counts), hit)
	return res, nil
}

// withTimeout derives the per-request deadline.
func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// Shutdown stops background cleanup and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
	})
	return shutdownErr
}

// CacheStats exposes the result cache counters.
func (s *Server) CacheStats() cache.Stats {
	return s.results.Cache().Stats()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
