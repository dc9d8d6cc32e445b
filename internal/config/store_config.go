package config

import "strings"

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetDatabaseURL() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return strings.ToLower(GetEnv("PAR_STORE", StoreMemory))
}

func (Store) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "./data/par.db")
}

func (Store) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Store) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "parserver:")
}
