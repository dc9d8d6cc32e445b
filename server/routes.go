package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())

	s.RegisterRouteFunc("GET "+RouteWellKnownAuthServer, ChainMiddleware(s.AuthServerMetadata(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteOAuth2PAR, ChainMiddleware(s.PushedAuthorizationRequest(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS "+RouteOAuth2PAR, ChainMiddleware(s.NoContent(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
}
