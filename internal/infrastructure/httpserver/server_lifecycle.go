package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Start blocks serving the ops endpoints until Shutdown or a listener error.
// TLS is used when both certificate paths are configured; the ops surface
// commonly runs plain HTTP behind an internal network boundary.
func (s *Server) Start() error {
	s.logMetricsReady()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.WithField("addr", addr).Info("Starting ops HTTPS server")
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}

	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.logger.WithField("addr", addr).Info("Starting ops HTTP server")
	return s.echo.StartServer(srv)
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
