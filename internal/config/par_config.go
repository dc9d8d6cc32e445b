package config

import (
	"os"

	"github.com/jrsteele09/go-par-server/par"
)

const parExpiryTimeEnvVar = "PAR_EXPIRY_TIME"

// ParConfig supplies the pushed authorization request settings.
type ParConfig interface {
	par.ExpiryConfig
}

type Par struct {
	file *FileConfig
}

var _ ParConfig = Par{}

// GetParExpiryTime returns the raw configured request_uri lifetime in seconds.
// The config file wins over PAR_EXPIRY_TIME; an empty env var counts as unset.
// It is read on every call so a reloaded file applies to the next issuance.
func (p Par) GetParExpiryTime() (string, bool) {
	if p.file != nil {
		if value, ok := p.file.GetParExpiryTime(); ok {
			return value, true
		}
	}
	value := os.Getenv(parExpiryTimeEnvVar)
	if value == "" {
		return "", false
	}
	return value, true
}
