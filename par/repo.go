package par

import (
	"context"
	"time"
)

// Repo is the reference store used by the Service.
//
// Insert must never overwrite an existing record: a reference id that is already
// present is rejected with ErrDuplicateKey.
//
// Take fetches and removes a record in one atomic step. When two callers race on
// the same id exactly one receives the record and the other gets ErrNotFound.
type Repo interface {
	Insert(ctx context.Context, record *Record) error
	Take(ctx context.Context, referenceID string) (*Record, error)
}

// Purger is implemented by stores that keep expired records until they are taken.
type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
