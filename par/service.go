package par

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// IssueResult is returned to the client that pushed a request.
type IssueResult struct {
	ReferenceID string
	RequestURI  string
	ExpiresIn   int64 // Seconds, derived from the same TTL as ExpiresAt
	ExpiresAt   time.Time
}

// Service issues and redeems pushed authorization request references.
// It holds no mutable state; all state lives in the Repo.
type Service struct {
	repo    Repo
	expiry  *ExpiryPolicy
	newID   func() (string, error)
	nowTime func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithReferenceGenerator replaces NewReferenceID. Generated ids must still pass ValidateReferenceID.
func WithReferenceGenerator(generate func() (string, error)) ServiceOption {
	return func(s *Service) {
		s.newID = generate
	}
}

// NewService creates a Service backed by repo. cfg supplies the request_uri
// lifetime and may be nil to always use DefaultExpiry.
func NewService(repo Repo, cfg ExpiryConfig, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] repo is required")
	}

	s := &Service{
		repo:    repo,
		expiry:  NewExpiryPolicy(cfg),
		newID:   NewReferenceID,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Issue stores the pushed parameters for clientID and returns the new reference.
// If the store rejects the write no reference is issued.
func (s *Service) Issue(ctx context.Context, clientID string, parameters map[string]string) (*IssueResult, error) {
	if clientID == "" {
		return nil, errors.Wrap(invalidArgument("client_id is required"), "[Issue]")
	}

	// Stores keep millisecond timestamps; the returned expiry must equal the stored one
	now := s.nowTime().UTC().Truncate(time.Millisecond)
	expiry, err := s.expiry.ComputeExpiry(now)
	if err != nil {
		return nil, errors.Wrap(err, "[Issue] failed to compute expiry")
	}

	referenceID, err := s.newID()
	if err != nil {
		return nil, errors.Wrap(err, "[Issue] failed to generate reference")
	}

	if err := s.repo.Insert(ctx, &Record{
		ReferenceID: referenceID,
		ClientID:    clientID,
		Parameters:  CloneParameters(parameters),
		ExpiresAt:   expiry.At,
		CreatedAt:   now,
	}); err != nil {
		return nil, errors.Wrap(err, "[Issue] failed to persist request")
	}

	return &IssueResult{
		ReferenceID: referenceID,
		RequestURI:  RequestURI(referenceID),
		ExpiresIn:   expiry.ExpiresIn(),
		ExpiresAt:   expiry.At,
	}, nil
}

// Resolve redeems a reference for claimedClientID and returns the pushed parameters.
//
// The record is removed before it is validated, so any presentation of a reference
// consumes it: an expired reference or one presented by the wrong client cannot be
// presented again by anyone.
func (s *Service) Resolve(ctx context.Context, referenceID, claimedClientID string) (map[string]string, error) {
	if claimedClientID == "" {
		return nil, errors.Wrap(invalidArgument("client_id is required"), "[Resolve]")
	}
	if err := ValidateReferenceID(referenceID); err != nil {
		return nil, errors.Wrap(err, "[Resolve]")
	}

	record, err := s.repo.Take(ctx, referenceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(ErrUnknownReference, "[Resolve] "+referenceID)
		}
		return nil, errors.Wrap(err, "[Resolve] failed to take request")
	}

	if record.IsExpired(s.nowTime()) {
		log.Debug().Str("reference_id", referenceID).Time("expires_at", record.ExpiresAt).Msg("Consumed expired request_uri")
		return nil, errors.Wrap(ErrRequestExpired, "[Resolve] "+referenceID)
	}

	if record.ClientID != claimedClientID {
		log.Warn().Str("reference_id", referenceID).Str("client_id", claimedClientID).Msg("Consumed request_uri presented by another client")
		return nil, errors.Wrap(ErrClientMismatch, "[Resolve] "+referenceID)
	}

	return CloneParameters(record.Parameters), nil
}

// ResolveRequestURI resolves a full request_uri URN.
func (s *Service) ResolveRequestURI(ctx context.Context, requestURI, claimedClientID string) (map[string]string, error) {
	referenceID, err := ReferenceIDFromRequestURI(requestURI)
	if err != nil {
		return nil, errors.Wrap(err, "[ResolveRequestURI]")
	}
	return s.Resolve(ctx, referenceID, claimedClientID)
}
