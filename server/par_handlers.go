package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-par-server/clients"
	apperrors "github.com/jrsteele09/go-par-server/internal/errors"
	"github.com/jrsteele09/go-par-server/oauth2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	maxPushedRequestBytes = 64 << 10
)

// PushedAuthorizationResponse is the 201 body of the PAR endpoint
type PushedAuthorizationResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int64  `json:"expires_in"`
}

// PushedAuthorizationRequest stores the authorization request parameters pushed by an
// authenticated client and hands back a one-time request_uri.
func (s *Server) PushedAuthorizationRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxPushedRequestBytes)
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, "failed to parse form data", http.StatusBadRequest)
			return
		}

		client, usedBasic, err := s.authenticateClient(r)
		if err != nil {
			if usedBasic {
				w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
			}
			s.writeClientAuthError(w, err)
			return
		}

		if err := oauth2.ParseAuthorizationParameters(r.PostForm).ValidatePushed(client); err != nil {
			writeOAuthError(w, err)
			return
		}

		result, err := s.par.Issue(r.Context(), client.ID, pushedParameters(r.PostForm, client.ID))
		s.metrics.Issued(err)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		log.Info().
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("client_id", client.ID).
			Str("reference_id", result.ReferenceID).
			Int64("expires_in", result.ExpiresIn).
			Msg("pushed authorization request stored")

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusCreated, PushedAuthorizationResponse{
			RequestURI: result.RequestURI,
			ExpiresIn:  result.ExpiresIn,
		})
	}
}

// Authorize redeems a request_uri and returns the parameters that were pushed with it.
// Each request_uri can be redeemed once.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, "failed to parse request", http.StatusBadRequest)
			return
		}

		clientID := r.Form.Get(oauth2.ParamClientID)
		if clientID == "" {
			writeJSONError(w, errorCodeInvalidRequest, "client_id is required", http.StatusBadRequest)
			return
		}
		requestURI := r.Form.Get(oauth2.ParamRequestURI)
		if requestURI == "" {
			writeJSONError(w, errorCodeInvalidRequest, "request_uri is required", http.StatusBadRequest)
			return
		}

		params, err := s.par.ResolveRequestURI(r.Context(), requestURI, clientID)
		s.metrics.Resolved(err)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, params)
	}
}

// authenticateClient accepts client_secret_basic, client_secret_post, or a bare client_id
// for public clients. The bool reports whether Basic credentials were presented.
func (s *Server) authenticateClient(r *http.Request) (*clients.Client, bool, error) {
	clientID := r.PostForm.Get(oauth2.ParamClientID)
	secret := r.PostForm.Get(oauth2.ParamClientSecret)

	basicID, basicSecret, usedBasic := r.BasicAuth()
	if usedBasic {
		var err error
		// RFC 6749 2.3.1: credentials are form-encoded before Basic encoding
		if basicID, err = url.QueryUnescape(basicID); err != nil {
			return nil, true, errors.Wrap(apperrors.ErrInvalidClient, "malformed basic credentials")
		}
		if basicSecret, err = url.QueryUnescape(basicSecret); err != nil {
			return nil, true, errors.Wrap(apperrors.ErrInvalidClient, "malformed basic credentials")
		}
		if secret != "" || (clientID != "" && clientID != basicID) {
			return nil, true, errors.Wrap(apperrors.ErrInvalidRequest, "multiple client authentication methods")
		}
		clientID, secret = basicID, basicSecret
	}

	if clientID == "" {
		return nil, usedBasic, errors.Wrap(apperrors.ErrInvalidClient, "client_id is required")
	}

	client, err := s.clients.Get(clientID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, usedBasic, errors.Wrap(apperrors.ErrInvalidClient, "unknown client")
		}
		return nil, usedBasic, errors.Wrap(err, "client lookup failed")
	}

	if err := client.Authenticate(secret); err != nil {
		return nil, usedBasic, errors.Wrap(apperrors.ErrInvalidClient, "client authentication failed")
	}
	return client, usedBasic, nil
}

func (s *Server) writeClientAuthError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		writeJSONError(w, errorCodeInvalidRequest, "multiple client authentication methods", http.StatusBadRequest)
	case apperrors.Is(err, apperrors.ErrInvalidClient):
		writeJSONError(w, errorCodeInvalidClient, "client authentication failed", http.StatusUnauthorized)
	default:
		log.Err(err).Msg("client authentication error")
		writeJSONError(w, errorCodeServerError, "internal error", http.StatusInternalServerError)
	}
}

// pushedParameters keeps the first value of every body field except the client secret.
func pushedParameters(form url.Values, clientID string) map[string]string {
	params := make(map[string]string, len(form))
	for name, values := range form {
		if name == oauth2.ParamClientSecret || len(values) == 0 {
			continue
		}
		params[name] = values[0]
	}
	params[oauth2.ParamClientID] = clientID
	return params
}
