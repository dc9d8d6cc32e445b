package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-par-server/oauth2"
	"github.com/jrsteele09/go-par-server/par"
	"github.com/rs/zerolog/log"
)

const (
	errorCodeInvalidRequest = oauth2.ErrorCodeInvalidRequest
	errorCodeInvalidClient  = oauth2.ErrorCodeInvalidClient
	errorCodeServerError    = oauth2.ErrorCodeServerError
)

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeServiceError reports a par.Service error without leaking internal detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, description := par.Describe(err)
	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		log.Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("par service failure")
	}
	writeJSONError(w, code, description, status)
}

// writeOAuthError writes a validation failure; anything that is not an *oauth2.Error is a server error.
func writeOAuthError(w http.ResponseWriter, err error) {
	var oauthErr *oauth2.Error
	if !errors.As(err, &oauthErr) {
		log.Err(err).Msg("unexpected validation error")
		writeJSONError(w, errorCodeServerError, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONError(w, oauthErr.Code, oauthErr.Description, statusForCode(oauthErr.Code))
}

func statusForCode(code string) int {
	switch code {
	case errorCodeInvalidRequest, oauth2.ErrorCodeInvalidScope, oauth2.ErrorCodeUnsupportedResponseType:
		return http.StatusBadRequest
	case errorCodeInvalidClient:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
