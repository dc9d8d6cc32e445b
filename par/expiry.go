package par

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultExpiry is used when no request_uri lifetime is configured.
const DefaultExpiry = 60 * time.Second

const maxExpirySeconds = math.MaxInt64 / int64(time.Second)

// ExpiryConfig supplies the configured request_uri lifetime in seconds.
// ok is false when nothing is configured; a present value is returned verbatim
// so that a malformed value can be told apart from a missing one.
type ExpiryConfig interface {
	GetParExpiryTime() (value string, ok bool)
}

// ExpiryConfigFunc adapts a function to ExpiryConfig.
type ExpiryConfigFunc func() (string, bool)

func (f ExpiryConfigFunc) GetParExpiryTime() (string, bool) {
	return f()
}

// Expiry is the validity window of a newly issued reference.
type Expiry struct {
	At  time.Time
	TTL time.Duration
}

// ExpiresIn returns the lifetime in whole seconds.
func (e Expiry) ExpiresIn() int64 {
	return int64(e.TTL / time.Second)
}

// ExpiryPolicy turns the configured lifetime into absolute expiry timestamps.
// The configuration is read on every call and nothing is cached.
type ExpiryPolicy struct {
	config ExpiryConfig
}

// NewExpiryPolicy creates a policy reading from cfg. A nil cfg always yields DefaultExpiry.
func NewExpiryPolicy(cfg ExpiryConfig) *ExpiryPolicy {
	return &ExpiryPolicy{config: cfg}
}

// TTL returns the currently configured lifetime.
func (p *ExpiryPolicy) TTL() (time.Duration, error) {
	if p.config == nil {
		return DefaultExpiry, nil
	}
	value, ok := p.config.GetParExpiryTime()
	if !ok {
		return DefaultExpiry, nil
	}

	seconds, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: error parsing expiry time %q: %w", ErrConfiguration, value, err)
	}
	if seconds <= 0 || seconds > maxExpirySeconds {
		return 0, fmt.Errorf("%w: expiry time %d out of range", ErrConfiguration, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// ComputeExpiry returns the expiry window for a reference issued at now.
func (p *ExpiryPolicy) ComputeExpiry(now time.Time) (Expiry, error) {
	ttl, err := p.TTL()
	if err != nil {
		return Expiry{}, err
	}
	return Expiry{At: now.UTC().Add(ttl), TTL: ttl}, nil
}
