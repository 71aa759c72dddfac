package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) getCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.Stats())
}

// resetCacheStats zeroes the counters and returns the fresh snapshot.
// Cached entries are left in place.
func (s *Server) resetCacheStats(c echo.Context) error {
	s.cache.ResetStats()
	return c.JSON(http.StatusOK, s.cache.Stats())
}
