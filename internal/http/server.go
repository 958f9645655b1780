// Package http serves the receipt, bulk import and dashboard screens.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"aicfo/internal/core"
	"aicfo/internal/log"
	"aicfo/internal/services"
	appweb "aicfo/web"
)

// DefaultMaxUploadBytes caps receipt and statement uploads.
const DefaultMaxUploadBytes int64 = 10 << 20

// Pipeline is the set of user actions behind the screens.
type Pipeline interface {
	RecordReceipt(ctx context.Context, up services.Upload) (services.Recorded, error)
	ImportStatement(ctx context.Context, statement string) (services.ImportResult, error)
	Dashboard(ctx context.Context) services.DashboardResult
	Advise(ctx context.Context) (string, error)
}

type Options struct {
	Currency       string
	MaxUploadBytes int64
	Logger         *log.Logger
	// RateLimit is the number of POST requests allowed per client per minute.
	RateLimit int
}

type Server struct {
	http.Server
	pipeline Pipeline
	pages    map[string]*template.Template
	opts     Options

	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *rateLimiter
	security    *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, p Pipeline, opts Options) *Server {
	if opts.Currency == "" || !core.IsKnownCurrency(opts.Currency) {
		opts.Currency = core.DefaultCurrency
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		pipeline:    p,
		opts:        opts,
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(opts.RateLimit, time.Minute),
		security:    &securityMetrics{},
		started:     time.Now(),
	}

	pages, err := parsePages(appweb.TemplatesFS, opts.Currency)
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.pages = pages

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return chimw.GetReqID(r.Context())
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		})
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSecurity)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/receipt", http.StatusSeeOther)
		})
		r.Get("/receipt", s.handleReceiptPage)
		r.Post("/receipt", s.handleReceiptUpload)
		r.Get("/bulk", s.handleBulkPage)
		r.Post("/bulk/preview", s.handleBulkPreview)
		r.Post("/bulk/process", s.handleBulkProcess)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard/advice", s.handleAdvice)
	})

	s.Server = http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// withSecurity adds security headers, rate limiting and request logging.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r, s.security)

		if reason := detectSuspiciousRequest(r, s.security); reason != "" {
			log.FromContext(ctx).WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"reason", reason)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.security) {
			log.FromContext(ctx).WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.structured.LogHTTPEnd(ctx, r, status, time.Since(start).Milliseconds(), clientIP)
	})
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
