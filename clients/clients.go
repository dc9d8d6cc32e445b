package clients

import (
	"slices"
	"strings"

	apperrors "github.com/jrsteele09/go-par-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

var (
	ErrInvalidScope       = apperrors.ErrInvalidScope
	ErrInvalidRedirectURI = apperrors.ErrInvalidRedirectURI
	ErrInvalidSecret      = apperrors.ErrInvalidClientSecret
)

type Client struct {
	ID           string     `json:"id" yaml:"id"`
	Type         ClientType `json:"type" yaml:"type"` // public or confidential
	Description  string     `json:"description" yaml:"description"`
	SecretHash   string     `json:"secretHash" yaml:"secret_hash"` // bcrypt hash, never the secret itself
	RedirectURIs []string   `json:"redirectURIs" yaml:"redirect_uris"`
	Scopes       []string   `json:"scopes" yaml:"scopes"` // Allowed scopes for this client
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// Authenticate checks the presented secret. Public clients must not present one.
func (c *Client) Authenticate(secret string) error {
	if c.IsPublic() {
		if secret != "" {
			return ErrInvalidSecret
		}
		return nil
	}
	if secret == "" || c.SecretHash == "" {
		return ErrInvalidSecret
	}
	if !CheckSecretHash(secret, c.SecretHash) {
		return ErrInvalidSecret
	}
	return nil
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range strings.Fields(requestedScopes) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// ValidateRedirectURI requires an exact match against a registered redirect URI.
func (c *Client) ValidateRedirectURI(redirectURI string) error {
	if !slices.Contains(c.RedirectURIs, redirectURI) {
		return ErrInvalidRedirectURI
	}
	return nil
}

func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
