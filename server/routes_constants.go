package server

// Route path constants
const (
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// OAuth2 Routes
	RouteWellKnownAuthServer = "/.well-known/oauth-authorization-server"
	RouteOAuth2PAR           = "/oauth2/par"
	RouteOAuth2Authorize     = "/oauth2/authorize"
)
