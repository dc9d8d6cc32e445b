package par_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-par-server/par"
	"github.com/stretchr/testify/require"
)

func TestNewReferenceID(t *testing.T) {
	id, err := par.NewReferenceID()
	require.NoError(t, err)
	require.Len(t, id, 36)
	require.NoError(t, par.ValidateReferenceID(id))
}

func TestValidateReferenceID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"canonical", "0b6f6c8e-8a51-4d8e-9d55-64e5b8a4a0f1", true},
		{"empty", "", false},
		{"upper case", "0B6F6C8E-8A51-4D8E-9D55-64E5B8A4A0F1", false},
		{"braced", "{0b6f6c8e-8a51-4d8e-9d55-64e5b8a4a0f1}", false},
		{"urn form", "urn:uuid:0b6f6c8e-8a51-4d8e-9d55-64e5b8a4a0f1", false},
		{"not hex", "zb6f6c8e-8a51-4d8e-9d55-64e5b8a4a0f1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := par.ValidateReferenceID(tt.id)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, par.ErrInvalidArgument)
		})
	}
}

func TestRequestURIRoundTrip(t *testing.T) {
	id, err := par.NewReferenceID()
	require.NoError(t, err)

	uri := par.RequestURI(id)
	require.True(t, strings.HasPrefix(uri, "urn:ietf:params:oauth:request_uri:"))

	got, err := par.ReferenceIDFromRequestURI(uri)
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = par.ReferenceIDFromRequestURI("https://example.com/" + id)
	require.ErrorIs(t, err, par.ErrInvalidArgument)

	_, err = par.ReferenceIDFromRequestURI(par.RequestURIPrefix + "short")
	require.ErrorIs(t, err, par.ErrInvalidArgument)
}
