package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-par-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-par-server/clients/fakerepo"
	"github.com/jrsteele09/go-par-server/internal/config"
	"github.com/jrsteele09/go-par-server/par"
	parrepofake "github.com/jrsteele09/go-par-server/par/repofake"
	"github.com/jrsteele09/go-par-server/server"
	"github.com/stretchr/testify/require"
)

const (
	confidentialID = "web-app"
	clientSecret   = "s3cret"
	publicID       = "spa"
	redirectURI    = "https://app.example/cb"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	server *server.Server
	repo   *parrepofake.FakeParRepo
	clock  *testClock
}

func setupServer(t *testing.T, options ...server.ServerOption) *fixture {
	t.Helper()
	t.Setenv("PAR_EXPIRY_TIME", "30")
	t.Setenv("BASE_URL", "https://auth.example")
	t.Setenv("ENV", "TEST")

	hash, err := clients.HashSecret(clientSecret)
	require.NoError(t, err)

	clientRepo := fakeclientrepo.NewFakeClientRepo()
	require.NoError(t, clientRepo.Upsert(&clients.Client{
		ID:           confidentialID,
		Type:         clients.ClientTypeConfidential,
		SecretHash:   hash,
		RedirectURIs: []string{redirectURI, "https://app.example/other"},
		Scopes:       []string{"openid", "profile"},
	}))
	require.NoError(t, clientRepo.Upsert(&clients.Client{
		ID:           publicID,
		Type:         clients.ClientTypePublic,
		RedirectURIs: []string{"https://spa.example/cb"},
		Scopes:       []string{"openid"},
	}))

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := parrepofake.NewFakeParRepo()
	cfg := config.New(nil)
	service, err := par.NewService(repo, cfg, par.WithNowTime(clock.Now))
	require.NoError(t, err)

	s, err := server.New(cfg, service, clientRepo, options...)
	require.NoError(t, err)
	return &fixture{server: s, repo: repo, clock: clock}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func pushRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, server.RouteOAuth2PAR, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func authorizeRequest(clientID, requestURI string) *http.Request {
	q := url.Values{"client_id": {clientID}, "request_uri": {requestURI}}
	return httptest.NewRequest(http.MethodGet, server.RouteOAuth2Authorize+"?"+q.Encode(), nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func requireOAuthError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decodeBody(t, rec)["error"])
}

func validPush() url.Values {
	return url.Values{
		"response_type": {"code"},
		"redirect_uri":  {redirectURI},
		"scope":         {"openid profile"},
		"state":         {"xyz"},
	}
}

func push(t *testing.T, f *fixture) server.PushedAuthorizationResponse {
	t.Helper()
	req := pushRequest(validPush())
	req.SetBasicAuth(confidentialID, clientSecret)
	rec := f.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp server.PushedAuthorizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPushWithBasicAuth(t *testing.T) {
	f := setupServer(t)

	req := pushRequest(validPush())
	req.SetBasicAuth(confidentialID, clientSecret)
	rec := f.do(t, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var resp server.PushedAuthorizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.RequestURI, par.RequestURIPrefix))
	require.Equal(t, int64(30), resp.ExpiresIn)
	require.Equal(t, 1, f.repo.Len())
}

func TestPushWithPostCredentialsAndRedeem(t *testing.T) {
	f := setupServer(t)

	form := validPush()
	form.Set("client_id", confidentialID)
	form.Set("client_secret", clientSecret)
	rec := f.do(t, pushRequest(form))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	requestURI := decodeBody(t, rec)["request_uri"].(string)

	rec = f.do(t, authorizeRequest(confidentialID, requestURI))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var params map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	require.Equal(t, map[string]string{
		"client_id":     confidentialID,
		"response_type": "code",
		"redirect_uri":  redirectURI,
		"scope":         "openid profile",
		"state":         "xyz",
	}, params)
	require.NotContains(t, params, "client_secret")
}

func TestPushPublicClient(t *testing.T) {
	f := setupServer(t)

	form := url.Values{
		"client_id":     {publicID},
		"response_type": {"code"},
		"scope":         {"openid"},
	}
	// Public clients must use PKCE
	requireOAuthError(t, f.do(t, pushRequest(form)), http.StatusBadRequest, "invalid_request")

	// redirect_uri may be omitted when exactly one is registered
	form.Set("code_challenge", strings.Repeat("E", 43))
	form.Set("code_challenge_method", "S256")
	rec := f.do(t, pushRequest(form))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	form.Set("client_secret", "nope")
	requireOAuthError(t, f.do(t, pushRequest(form)), http.StatusUnauthorized, "invalid_client")
}

func TestPushClientAuthenticationFailures(t *testing.T) {
	f := setupServer(t)

	req := pushRequest(validPush())
	req.SetBasicAuth(confidentialID, "wrong")
	rec := f.do(t, req)
	requireOAuthError(t, rec, http.StatusUnauthorized, "invalid_client")
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = f.do(t, pushRequest(validPush()))
	requireOAuthError(t, rec, http.StatusUnauthorized, "invalid_client")

	form := validPush()
	form.Set("client_id", "nobody")
	form.Set("client_secret", clientSecret)
	requireOAuthError(t, f.do(t, pushRequest(form)), http.StatusUnauthorized, "invalid_client")

	form = validPush()
	form.Set("client_secret", clientSecret)
	req = pushRequest(form)
	req.SetBasicAuth(confidentialID, clientSecret)
	requireOAuthError(t, f.do(t, req), http.StatusBadRequest, "invalid_request")

	require.Equal(t, 0, f.repo.Len())
}

func TestPushRejectsInvalidRequests(t *testing.T) {
	f := setupServer(t)

	tests := []struct {
		name   string
		mutate func(url.Values)
		code   string
	}{
		{"request_uri pushed", func(v url.Values) { v.Set("request_uri", par.RequestURIPrefix+"x") }, "invalid_request"},
		{"unregistered redirect", func(v url.Values) { v.Set("redirect_uri", "https://evil.example/cb") }, "invalid_request"},
		{"missing redirect with several registered", func(v url.Values) { v.Del("redirect_uri") }, "invalid_request"},
		{"scope not allowed", func(v url.Values) { v.Set("scope", "openid admin") }, "invalid_scope"},
		{"implicit response_type", func(v url.Values) { v.Set("response_type", "token") }, "unsupported_response_type"},
		{"malformed code_challenge", func(v url.Values) { v.Set("code_challenge", "short") }, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validPush()
			tt.mutate(form)
			req := pushRequest(form)
			req.SetBasicAuth(confidentialID, clientSecret)
			requireOAuthError(t, f.do(t, req), http.StatusBadRequest, tt.code)
		})
	}
	require.Equal(t, 0, f.repo.Len())
}

func TestPushMalformedExpiryConfig(t *testing.T) {
	f := setupServer(t)
	t.Setenv("PAR_EXPIRY_TIME", "abc")

	req := pushRequest(validPush())
	req.SetBasicAuth(confidentialID, clientSecret)
	requireOAuthError(t, f.do(t, req), http.StatusInternalServerError, "server_error")
	require.Equal(t, 0, f.repo.Len())
}

func TestPushStoreUnavailable(t *testing.T) {
	f := setupServer(t)
	f.repo.InsertErr = errors.Join(par.ErrStoreUnavailable, errors.New("connection refused"))

	req := pushRequest(validPush())
	req.SetBasicAuth(confidentialID, clientSecret)
	rec := f.do(t, req)
	requireOAuthError(t, rec, http.StatusInternalServerError, "server_error")
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthorizeIsSingleUse(t *testing.T) {
	f := setupServer(t)
	resp := push(t, f)

	rec := f.do(t, authorizeRequest(confidentialID, resp.RequestURI))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, authorizeRequest(confidentialID, resp.RequestURI))
	requireOAuthError(t, rec, http.StatusBadRequest, "invalid_request")
}

func TestAuthorizeExpired(t *testing.T) {
	f := setupServer(t)
	resp := push(t, f)

	f.clock.Advance(31 * time.Second)
	rec := f.do(t, authorizeRequest(confidentialID, resp.RequestURI))
	requireOAuthError(t, rec, http.StatusBadRequest, "invalid_request")
	require.Equal(t, "request_uri expired", decodeBody(t, rec)["error_description"])
	require.Equal(t, 0, f.repo.Len())
}

func TestAuthorizeClientMismatchConsumes(t *testing.T) {
	f := setupServer(t)
	resp := push(t, f)

	rec := f.do(t, authorizeRequest(publicID, resp.RequestURI))
	requireOAuthError(t, rec, http.StatusUnauthorized, "invalid_client")

	rec = f.do(t, authorizeRequest(confidentialID, resp.RequestURI))
	requireOAuthError(t, rec, http.StatusBadRequest, "invalid_request")
}

func TestAuthorizeInvalidParameters(t *testing.T) {
	f := setupServer(t)

	requireOAuthError(t, f.do(t, authorizeRequest("", par.RequestURIPrefix+"x")), http.StatusBadRequest, "invalid_request")
	requireOAuthError(t, f.do(t, authorizeRequest(confidentialID, "")), http.StatusBadRequest, "invalid_request")
	rec := f.do(t, authorizeRequest(confidentialID, "urn:other:123"))
	requireOAuthError(t, rec, http.StatusBadRequest, "invalid_request")
	require.Equal(t, "request_uri must start with "+par.RequestURIPrefix, decodeBody(t, rec)["error_description"])
}

func TestAuthorizeByPost(t *testing.T) {
	f := setupServer(t)
	resp := push(t, f)

	form := url.Values{"client_id": {confidentialID}, "request_uri": {resp.RequestURI}}
	req := httptest.NewRequest(http.MethodPost, server.RouteOAuth2Authorize, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, f.do(t, req).Code)
}

func TestMetadata(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteWellKnownAuthServer, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "https://auth.example", body["issuer"])
	require.Equal(t, "https://auth.example/oauth2/par", body["pushed_authorization_request_endpoint"])
	require.Equal(t, false, body["require_pushed_authorization_requests"])
}

func TestHealth(t *testing.T) {
	f := setupServer(t)
	require.Equal(t, http.StatusOK, f.do(t, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)).Code)

	f = setupServer(t, server.WithHealthCheck(func(context.Context) error { return errors.New("down") }))
	require.Equal(t, http.StatusServiceUnavailable, f.do(t, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupServer(t)
	resp := push(t, f)
	f.do(t, authorizeRequest(publicID, resp.RequestURI))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteMetrics, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `par_requests_issued_total{outcome="ok"} 1`)
	require.Contains(t, rec.Body.String(), `par_requests_resolved_total{outcome="client_mismatch"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)
	req.Header.Set("X-Request-Id", "abc-123")
	require.Equal(t, "abc-123", f.do(t, req).Header().Get("X-Request-Id"))
}

func TestCorsPreflight(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteOAuth2PAR, nil)
	req.Header.Set("Origin", "https://app.example")
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, server.RouteOAuth2PAR, nil)
	req.Header.Set("Origin", "https://evil.example")
	require.Empty(t, f.do(t, req).Header().Get("Access-Control-Allow-Origin"))
}
