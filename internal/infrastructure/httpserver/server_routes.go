package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	cache := api.Group("/cache")
	cache.GET("/stats", s.getCacheStats)
	cache.POST("/stats/reset", s.resetCacheStats)
}
