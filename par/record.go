package par

import (
	"maps"
	"time"
)

// Record is a pushed authorization request held by a store until it is redeemed.
// A Record is never modified after Issue creates it.
type Record struct {
	ReferenceID string            // Opaque single-use id, the suffix of the request_uri
	ClientID    string            // Client that pushed the request
	Parameters  map[string]string // Pushed authorization parameters
	ExpiresAt   time.Time         // UTC instant after which the record is no longer redeemable
	CreatedAt   time.Time
}

// IsExpired reports whether the record can no longer be redeemed at now.
// A record is still valid at exactly ExpiresAt.
func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Clone returns a deep copy so stores and callers never share a parameter map.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Parameters = CloneParameters(r.Parameters)
	return &c
}

// CloneParameters copies a parameter map, turning nil into an empty map.
func CloneParameters(params map[string]string) map[string]string {
	c := make(map[string]string, len(params))
	maps.Copy(c, params)
	return c
}
