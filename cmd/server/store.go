package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-par-server/internal/config"
	"github.com/jrsteele09/go-par-server/par"
	parrepofake "github.com/jrsteele09/go-par-server/par/repofake"
	"github.com/jrsteele09/go-par-server/par/redisrepo"
	"github.com/jrsteele09/go-par-server/par/sqlrepo"
	"github.com/pkg/errors"
)

// parStore is the selected reference store with its lifecycle hooks
type parStore struct {
	par.Repo
	Ping  func(ctx context.Context) error
	Close func() error
}

func openStore(ctx context.Context, c config.StoreConfig) (*parStore, error) {
	switch driver := c.GetStoreDriver(); driver {
	case config.StoreMemory:
		return &parStore{
			Repo:  parrepofake.NewFakeParRepo(),
			Ping:  func(context.Context) error { return nil },
			Close: func() error { return nil },
		}, nil

	case config.StoreSQLite, config.StorePostgres:
		dsn := c.GetDatabaseURL()
		if driver == config.StoreSQLite {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, errors.Wrapf(err, "[openStore] create directory for %s", dsn)
			}
		}
		repo, err := sqlrepo.Open(ctx, driver, dsn)
		if err != nil {
			return nil, errors.Wrapf(err, "[openStore] open %s", driver)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, errors.Wrap(err, "[openStore]")
		}
		return &parStore{Repo: repo, Ping: repo.Ping, Close: repo.Close}, nil

	case config.StoreRedis:
		repo, err := redisrepo.Open(ctx, redisrepo.Config{
			URL:       c.GetRedisURL(),
			KeyPrefix: c.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "[openStore] open redis")
		}
		return &parStore{Repo: repo, Ping: repo.Ping, Close: repo.Close}, nil

	default:
		return nil, errors.Errorf("[openStore] unknown PAR_STORE %q", driver)
	}
}
