package metrics_test

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-par-server/internal/metrics"
	"github.com/jrsteele09/go-par-server/par"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeOK},
		{par.ErrUnknownReference, metrics.OutcomeUnknown},
		{fmt.Errorf("wrapped: %w", par.ErrRequestExpired), metrics.OutcomeExpired},
		{par.ErrClientMismatch, metrics.OutcomeClientMismatch},
		{par.ErrInvalidArgument, metrics.OutcomeInvalid},
		{par.ErrConfiguration, metrics.OutcomeConfiguration},
		{fmt.Errorf("insert: %w", par.ErrStoreUnavailable), metrics.OutcomeUnavailable},
		{par.ErrDuplicateKey, metrics.OutcomeError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, metrics.Outcome(tt.err), "error %v", tt.err)
	}
}

func TestRecorderCounts(t *testing.T) {
	r := metrics.New()
	r.Issued(nil)
	r.Issued(nil)
	r.Resolved(par.ErrRequestExpired)

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["par_requests_issued_total"])
	require.True(t, names["go_goroutines"])

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `par_requests_issued_total{outcome="ok"} 2`)
	require.Contains(t, string(body), `par_requests_resolved_total{outcome="expired"} 1`)
}
