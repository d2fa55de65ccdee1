package http

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"time"

	"github.com/yungbote/rtc-attention/internal/config"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
)

type Server struct {
	srv             *nethttp.Server
	log             *logger.Logger
	shutdownTimeout time.Duration
}

func NewServer(cfg config.HTTPConfig, handler nethttp.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		srv: &nethttp.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
		},
		log:             log.With("component", "http.Server"),
		shutdownTimeout: cfg.ShutdownTimeout.Duration,
	}
}

func (s *Server) Addr() string { return s.srv.Addr }

// OnShutdown registers fn to run when shutdown starts, e.g. to end
// long-lived streams that would otherwise hold the drain open.
func (s *Server) OnShutdown(fn func()) { s.srv.RegisterOnShutdown(fn) }

// Run serves until ctx ends, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	return Serve(ctx, s.srv, s.shutdownTimeout, s.log)
}

// Serve runs srv until ctx ends and shuts it down gracefully within timeout.
func Serve(ctx context.Context, srv *nethttp.Server, timeout time.Duration, log *logger.Logger) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if log != nil {
		log.Info("listening", "addr", ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
