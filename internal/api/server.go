// Package api exposes the tick service over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/metrics"
	"github.com/trade-engine/tick-viewer/internal/services"
)

// Server serves listing and tick data requests
type Server struct {
	addr   string
	svc    *services.TickService
	logger *zap.Logger
	srv    *http.Server
}

// ServerOptions configures the HTTP server
type ServerOptions struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewServer(opts ServerOptions, svc *services.TickService, logger *zap.Logger) *Server {
	s := &Server{
		addr:   opts.Addr,
		svc:    svc,
		logger: logger,
	}
	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Router(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Router builds the request router.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/files", s.handleListFiles).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}/data", s.handleFileData).Methods(http.MethodGet)
	r.HandleFunc("/data", s.handleDataForm).Methods(http.MethodPost)
	r.HandleFunc("/average", s.handleAverage).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.Use(metrics.InstrumentHandler, s.logRequests)
	return r
}

// Start listens on the configured address and blocks until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server starting", zap.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
