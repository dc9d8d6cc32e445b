// Package sqlrepo stores pushed authorization requests in SQLite or Postgres.
package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-par-server/internal/errors"
	"github.com/jrsteele09/go-par-server/par"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names accepted by Open, matching the registered database/sql driver names.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var (
	_ par.Repo   = (*Repo)(nil)
	_ par.Purger = (*Repo)(nil)
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS par_requests (
		reference_id TEXT PRIMARY KEY,
		client_id    TEXT NOT NULL,
		parameters   TEXT NOT NULL,
		expires_at   BIGINT NOT NULL,
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_par_requests_expires_at ON par_requests (expires_at)`,
}

// Repo is a par.Repo on database/sql. Timestamps are stored as Unix milliseconds
// and parameters as a JSON object so the same schema works in both dialects.
type Repo struct {
	db      *sql.DB
	dialect string
}

// Open connects to dsn with the given dialect and verifies the connection.
func Open(ctx context.Context, dialect, dsn string) (*Repo, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// Enable WAL mode for concurrent reads
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		// SQLite serialises writers; a single connection avoids SQLITE_BUSY under concurrent takes
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Unavailable(err, "failed to ping %s", dialect)
	}

	return New(db, dialect), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect string) *Repo {
	return &Repo{db: db, dialect: dialect}
}

// Close closes the underlying connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate creates the par_requests table if it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate par_requests: %w", err)
		}
	}
	return nil
}

// Insert stores a new record, rejecting an existing reference id with ErrDuplicateKey.
func (r *Repo) Insert(ctx context.Context, record *par.Record) error {
	if record == nil || record.ReferenceID == "" {
		return errors.New("record with a reference id is required")
	}

	params, err := json.Marshal(par.CloneParameters(record.Parameters))
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO par_requests (reference_id, client_id, parameters, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (reference_id) DO NOTHING`),
		record.ReferenceID, record.ClientID, string(params),
		record.ExpiresAt.UnixMilli(), record.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.Unavailable(err, "failed to insert request %s", record.ReferenceID)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return apperrors.Unavailable(err, "failed to read insert result")
	}
	if inserted == 0 {
		return fmt.Errorf("%w: reference %s", apperrors.ErrDuplicateKey, record.ReferenceID)
	}
	return nil
}

// Take deletes the record and returns it in one statement, so concurrent callers
// cannot both observe it.
func (r *Repo) Take(ctx context.Context, referenceID string) (*par.Record, error) {
	var (
		record    par.Record
		params    string
		expiresAt int64
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx, r.rebind(`
		DELETE FROM par_requests
		WHERE reference_id = ?
		RETURNING reference_id, client_id, parameters, expires_at, created_at`),
		referenceID).Scan(&record.ReferenceID, &record.ClientID, &params, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to take request %s", referenceID)
	}

	if err := json.Unmarshal([]byte(params), &record.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	if record.Parameters == nil {
		record.Parameters = map[string]string{}
	}
	record.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	record.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &record, nil
}

// DeleteExpired removes records that expired before the given time.
func (r *Repo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM par_requests WHERE expires_at < ?"), before.UnixMilli())
	if err != nil {
		return 0, apperrors.Unavailable(err, "failed to delete expired requests")
	}
	return result.RowsAffected()
}

func (r *Repo) rebind(query string) string {
	return Rebind(r.dialect, query)
}

// Rebind rewrites ? placeholders to $n for Postgres.
func Rebind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
