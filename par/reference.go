package par

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RequestURIPrefix is the URN namespace for pushed authorization request references.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// referenceIDLength is the length of a canonical UUID string.
const referenceIDLength = 36

// NewReferenceID returns a random version 4 UUID (122 bits from crypto/rand).
func NewReferenceID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate reference id: %w", err)
	}
	return id.String(), nil
}

// ValidateReferenceID checks that id has the canonical form produced by NewReferenceID.
func ValidateReferenceID(id string) error {
	if len(id) != referenceIDLength {
		return invalidArgument("malformed request_uri reference")
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return invalidArgument("malformed request_uri reference")
	}
	return nil
}

// RequestURI builds the request_uri handed to the client for a reference id.
func RequestURI(referenceID string) string {
	return RequestURIPrefix + referenceID
}

// ReferenceIDFromRequestURI extracts and validates the reference id of a request_uri.
func ReferenceIDFromRequestURI(requestURI string) (string, error) {
	id, ok := strings.CutPrefix(requestURI, RequestURIPrefix)
	if !ok {
		return "", invalidArgument("request_uri must start with " + RequestURIPrefix)
	}
	if err := ValidateReferenceID(id); err != nil {
		return "", err
	}
	return id, nil
}
