package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server exposes a trivial liveness endpoint. Hosting platforms that idle
// out web processes keep the bot alive by pinging it.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// New builds the liveness server for the given listen address.
func New(addr, greeting string, logger zerolog.Logger) *Server {
	if greeting == "" {
		greeting = "Hello, I am alive."
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, greeting)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "liveness_server").Logger(),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("liveness endpoint listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("liveness server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("liveness server shutdown failed")
		}
		return ctx.Err()
	}
}
