package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server wraps the HTTP server for graceful lifecycle.
type Server struct {
	Engine          *gin.Engine
	Addr            string
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

// Run listens on Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests
// for at most ShutdownTimeout before forcing open connections closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.Engine == nil {
		_ = ln.Close()
		return fmt.Errorf("engine not configured")
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	srv := &http.Server{
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown timed out, forcing close", zap.Error(err))
			_ = srv.Close()
			return err
		}
		return nil
	})
	return g.Wait()
}
