package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lms/backend/internal/config"
	authusecase "lms/backend/internal/usecase/auth"
	courseusecase "lms/backend/internal/usecase/course"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer    *http.Server
	router        *http.ServeMux
	authService   *authusecase.Service
	courseService *courseusecase.Service
	cookieSecure  bool
	cookieMaxAge  time.Duration
	log           *slog.Logger
	addr          string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, courseService *courseusecase.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	handler := withLogging(withCORS(mux, cfg.AllowedOrigins), log)

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		router:        mux,
		authService:   authService,
		courseService: courseService,
		cookieSecure:  cfg.CookieSecure,
		cookieMaxAge:  cfg.JWTExpiry,
		log:           log,
		addr:          addr,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying ServeMux, mainly for tests.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
