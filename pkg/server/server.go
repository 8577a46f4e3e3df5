// Package server exposes a portfolio over HTTP.
//
// Routes:
//
//	GET    /snapshot          current document (?cells=1 adds occupancy rows)
//	GET    /holdings          per-asset holdings and metrics
//	POST   /assets            {"asset_id": "bitcoin", "quantity": 0.5}
//	GET    /blocks/{id}       one block with its valuation
//	DELETE /blocks/{id}       remove a block and compact the grid
//	POST   /reorganize        compact the grid
//	POST   /clear             drop every block and the saved portfolio
//	POST   /save              persist the portfolio
//	PUT    /prices/{asset}    {"usd": 1.5, "usd_24h_change": -2.1}
//	POST   /pause, /resume    stop or restart the simulation clock
//	GET    /ws                websocket stream of compact documents
//	GET    /version           build information
//	GET    /metrics           Prometheus metrics, when enabled with WithMetrics
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with the
// status derived from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/coinstack/pkg/portfolio"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger (default: the service logger).
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithCheckOrigin replaces the websocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithStreamBuffer sets how many snapshots a websocket client may lag behind
// before it starts missing them (default 8).
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// Server serves one portfolio service.
type Server struct {
	svc      *portfolio.Service
	logger   *log.Logger
	upgrader websocket.Upgrader
	buffer   int
	metrics  http.Handler
	router   chi.Router
}

// New creates a server for svc.
func New(svc *portfolio.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: svc.Logger,
		buffer: 8,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/holdings", s.handleHoldings)
	r.Post("/assets", s.handleAdd)
	r.Get("/blocks/{id}", s.handleBlock)
	r.Delete("/blocks/{id}", s.handleRemove)
	r.Post("/reorganize", s.handleReorganize)
	r.Post("/clear", s.handleClear)
	r.Post("/save", s.handleSave)
	r.Put("/prices/{asset}", s.handleSetPrice)
	r.Post("/pause", s.handlePause(true))
	r.Post("/resume", s.handlePause(false))
	r.Get("/ws", s.handleStream)
	r.Get("/version", s.handleVersion)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
