package server

import (
	"log/slog"
	"net/http"
	"time"

	"leadbox/internal/config"
	"leadbox/internal/leads"
	"leadbox/internal/store"
	"leadbox/internal/trigger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute per IP. Valid webhook deliveries
	// and the public site are never limited.
	StatusRateLimit           = 30
	FormRateLimit             = 3
	SignatureFailureRateLimit = 10
)

// Server represents the HTTP server
type Server struct {
	Config   *config.Config
	Store    *store.Store // nil when persistence is disabled
	Trigger  *trigger.Trigger
	Leads    *leads.Service // nil when Store is nil
	Logger   *slog.Logger
	Version  string
	TestMode bool

	now         func() time.Time
	sigFailures *RateLimiter
}

// NewServer creates a new server instance. st may be nil, which disables the
// delivery audit, /status and the lead forms.
func NewServer(cfg *config.Config, st *store.Store, trig *trigger.Trigger, logger *slog.Logger, version string, testMode bool) *Server {
	s := &Server{
		Config:   cfg,
		Store:    st,
		Trigger:  trig,
		Logger:   logger,
		Version:  version,
		TestMode: testMode,

		now:         time.Now,
		sigFailures: newPerMinuteLimiter(SignatureFailureRateLimit),
	}
	if st != nil {
		s.Leads = leads.NewService(st, logger)
	}
	return s
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()))
			}()

			next.ServeHTTP(ww, r)
		})
	})

	r.Get("/health", s.HandleHealth)
	if !s.TestMode {
		r.With(NewRateLimitMiddleware("status", StatusRateLimit, s.Logger)).Get("/status", s.HandleStatus)
	} else {
		r.Get("/status", s.HandleStatus)
	}

	r.Get("/webhook", s.HandleWebhookCheck)
	r.Post("/webhook", s.HandleWebhook)

	r.Route("/api", func(r chi.Router) {
		if origins := s.Config.Site.AllowedOrigins; len(origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         300,
			}))
		}
		if !s.TestMode {
			r.Use(NewRateLimitMiddleware("forms", FormRateLimit, s.Logger))
		}
		r.Post("/contact", s.HandleLead(leads.KindContact))
		r.Post("/demo", s.HandleLead(leads.KindDemo))
	})

	r.Get("/robots.txt", s.HandleRobots)
	r.Get("/sitemap.xml", s.HandleSitemap)

	if dir := s.Config.Site.StaticDir; dir != "" {
		r.Handle("/*", staticHandler(dir))
	}

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.Config.Server.Addr()
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}
