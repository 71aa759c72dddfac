package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthReport struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes every registered backend checker. Any failing
// dependency marks the report degraded and the endpoint answers 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	report := healthReport{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      "1.0.0",
		Service:      "angel-eye-cache",
		Dependencies: make(map[string]string),
	}
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			report.Dependencies[hc.Name()] = "unhealthy"
			report.Status = "degraded"
			if s.logger != nil {
				s.logger.WithField("dependency", hc.Name()).WithError(err).Warn("health check failed")
			}
		} else {
			report.Dependencies[hc.Name()] = "healthy"
		}
	}

	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}
