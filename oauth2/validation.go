package oauth2

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-par-server/clients"
)

// AuthorizationParameters holds the parameters of an OAuth2 authorization request
// that the server checks before accepting it.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	ClientID string

	// ResponseType specifies what the authorization endpoint should return.
	// Only "code" is supported.
	ResponseType ResponseType

	// ResponseMode controls how the authorization response is returned. Optional.
	ResponseMode ResponseModeType

	// RedirectURI must exactly match a registered URI to prevent open redirects.
	// May be omitted when the client has exactly one registered.
	RedirectURI string

	// Scope is space separated and validated against the client's allowed scopes.
	Scope string

	// State is opaque to the server.
	State string

	// CodeChallenge is the PKCE challenge, required for public clients.
	CodeChallenge       string
	CodeChallengeMethod CodeMethodType

	// RequestURI must not appear in a pushed request.
	RequestURI string
}

// ParseAuthorizationParameters reads the parameters from form or query values.
func ParseAuthorizationParameters(values url.Values) AuthorizationParameters {
	return AuthorizationParameters{
		ClientID:            values.Get(ParamClientID),
		ResponseType:        ResponseType(values.Get(ParamResponseType)),
		ResponseMode:        ResponseModeType(values.Get(ParamResponseMode)),
		RedirectURI:         values.Get(ParamRedirectURI),
		Scope:               values.Get(ParamScope),
		State:               values.Get(ParamState),
		CodeChallenge:       values.Get(ParamCodeChallenge),
		CodeChallengeMethod: CodeMethodType(values.Get(ParamCodeChallengeMethod)),
		RequestURI:          values.Get(ParamRequestURI),
	}
}

// ValidatePushed checks a pushed authorization request the same way the authorization
// endpoint would check a direct one. Errors are *Error.
func (p AuthorizationParameters) ValidatePushed(client *clients.Client) error {
	if client == nil {
		return NewError(ErrorCodeInvalidClient, "client not found")
	}
	if p.RequestURI != "" {
		return NewError(ErrorCodeInvalidRequest, "request_uri must not be pushed")
	}
	if p.ResponseType != CodeResponseType {
		return NewError(ErrorCodeUnsupportedResponseType, "response_type must be code")
	}
	if err := p.validateResponseMode(); err != nil {
		return err
	}
	if err := p.validateRedirectURI(client); err != nil {
		return err
	}
	if err := client.ValidateScopes(p.Scope); err != nil {
		return NewError(ErrorCodeInvalidScope, "requested scope is not allowed for this client")
	}
	// Enforce PKCE for public clients
	return ValidatePKCE(p.CodeChallenge, p.CodeChallengeMethod, client.IsPublic())
}

func (p AuthorizationParameters) validateResponseMode() error {
	switch p.ResponseMode {
	case "", QueryResponseMode, FragmentResponseMode, FormPostResponseMode:
		return nil
	default:
		return NewError(ErrorCodeInvalidRequest, "unsupported response_mode")
	}
}

func (p AuthorizationParameters) validateRedirectURI(client *clients.Client) error {
	if p.RedirectURI == "" {
		if len(client.RedirectURIs) == 1 {
			return nil
		}
		return NewError(ErrorCodeInvalidRequest, "redirect_uri is required")
	}
	if err := client.ValidateRedirectURI(p.RedirectURI); err != nil {
		return NewError(ErrorCodeInvalidRequest, "redirect_uri is not registered for this client")
	}
	return nil
}

// ValidatePKCE validates PKCE (Proof Key for Code Exchange) parameters
func ValidatePKCE(codeChallenge string, method CodeMethodType, required bool) error {
	if codeChallenge == "" && method == "" {
		if required {
			return NewError(ErrorCodeInvalidRequest, "code_challenge is required")
		}
		return nil
	}

	if codeChallenge == "" {
		return NewError(ErrorCodeInvalidRequest, "code_challenge_method given without code_challenge")
	}

	// RFC 7636: 43 to 128 characters from the unreserved set
	if len(codeChallenge) < 43 || len(codeChallenge) > 128 || strings.IndexFunc(codeChallenge, notUnreserved) >= 0 {
		return NewError(ErrorCodeInvalidRequest, "malformed code_challenge")
	}

	switch method {
	case CodeMethodTypeS256, CodeMethodTypeNone, "": // Absent means plain
		return nil
	default:
		return NewError(ErrorCodeInvalidRequest, "code_challenge_method must be S256 or plain")
	}
}

func notUnreserved(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '-' || r == '.' || r == '_' || r == '~':
		return false
	}
	return true
}
