package server

import "net/http"

// AuthServerMetadata serves the RFC 8414 authorization server metadata document
func (s *Server) AuthServerMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetBaseURL()

		resp := map[string]any{
			"issuer":                                baseURL,
			"authorization_endpoint":                baseURL + RouteOAuth2Authorize,
			"pushed_authorization_request_endpoint": baseURL + RouteOAuth2PAR,
			"require_pushed_authorization_requests": false,
			"request_uri_parameter_supported":       true,
			"response_types_supported":              []string{"code"},
			"response_modes_supported":              []string{"query", "fragment", "form_post"},
			"code_challenge_methods_supported":      []string{"S256", "plain"},

			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic",
				"client_secret_post",
				"none", // Public clients
			},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NoContent answers preflight requests that carry no Origin
func (s *Server) NoContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
