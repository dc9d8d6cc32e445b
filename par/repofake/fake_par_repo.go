package parrepofake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-par-server/par"
)

var (
	_ par.Repo   = (*FakeParRepo)(nil)
	_ par.Purger = (*FakeParRepo)(nil)
)

// FakeParRepo is a thread-safe in-memory reference store.
type FakeParRepo struct {
	records map[string]*par.Record
	lock    sync.Mutex

	// InsertErr and TakeErr, when set, are returned instead of touching the map.
	InsertErr error
	TakeErr   error
}

func NewFakeParRepo() *FakeParRepo {
	return &FakeParRepo{
		records: make(map[string]*par.Record),
	}
}

func (r *FakeParRepo) Insert(_ context.Context, record *par.Record) error {
	if record == nil || record.ReferenceID == "" {
		return errors.New("record with a reference id is required")
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if _, ok := r.records[record.ReferenceID]; ok {
		return par.ErrDuplicateKey
	}
	r.records[record.ReferenceID] = record.Clone()
	return nil
}

func (r *FakeParRepo) Take(_ context.Context, referenceID string) (*par.Record, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.TakeErr != nil {
		return nil, r.TakeErr
	}
	record, ok := r.records[referenceID]
	if !ok {
		return nil, par.ErrNotFound
	}
	delete(r.records, referenceID)
	return record, nil
}

func (r *FakeParRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var deleted int64
	for id, record := range r.records {
		if record.ExpiresAt.Before(before) {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of live records.
func (r *FakeParRepo) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.records)
}

// Contains reports whether referenceID is still stored.
func (r *FakeParRepo) Contains(referenceID string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, ok := r.records[referenceID]
	return ok
}
