package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server wires the chat API handlers and the metrics endpoint into one HTTP
// server.
type Server struct {
	addr    string
	handler *Handler
	metrics *Metrics
}

func New(addr string, handler *Handler, metrics *Metrics) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		metrics: metrics,
	}
}

// Routes returns the request multiplexer, exposed separately so tests can
// drive it through httptest.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handler.Chat)
	mux.HandleFunc("/api/chats", s.handler.Chats)
	mux.HandleFunc("/api/user/login", s.handler.Login)
	mux.HandleFunc("/api/user/logout", s.handler.Logout)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("starting chat server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("shutting down chat server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
