package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trop-dev/trop/internal/model"
)

const driverName = "sqlite"

// Store wraps the single-file reservation database described in spec.md
// §4.2. Reads go through the plain *sql.DB; writes go through WriteTx,
// which opens a dedicated connection and issues BEGIN IMMEDIATE so two
// concurrent writers serialize deterministically instead of racing.
type Store struct {
	db          *sql.DB
	maxLockWait time.Duration
}

// OpenOptions configures Open.
type OpenOptions struct {
	// MaximumLockWaitSeconds bounds how long WriteTx waits for the write
	// lock before giving up (spec.md §3.2 maximum_lock_wait_seconds).
	MaximumLockWaitSeconds int
	// DisableAutoinit refuses to create a new store file; opening a
	// missing path becomes a hard NoDataDirectory error instead.
	DisableAutoinit bool
}

// Open opens (and if necessary creates) the store at path.
func Open(path string, opts OpenOptions) (*Store, error) {
	if opts.MaximumLockWaitSeconds <= 0 {
		opts.MaximumLockWaitSeconds = 5
	}

	fresh := !fileExists(path)
	if fresh {
		if opts.DisableAutoinit {
			return nil, model.NewTropError(model.KindNoDataDirectory,
				fmt.Sprintf("no store at %s and disable_autoinit is set", path))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, model.WrapTropError(model.KindPermissionDenied,
				fmt.Sprintf("creating data directory for %s", path), err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(%d)",
		path, opts.MaximumLockWaitSeconds*1000,
	)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "opening store", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, model.WrapTropError(model.KindPermissionDenied, "connecting to store", err)
	}

	s := &Store{db: db, maxLockWait: time.Duration(opts.MaximumLockWaitSeconds) * time.Second}

	if fresh {
		if err := s.initSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		if err := s.checkSchemaVersion(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close releases the store's connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for read-only queries (internal/query).
// Writers must go through WriteTx instead.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return model.WrapTropError(model.KindInternal, "materializing schema", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion)); err != nil {
		return model.WrapTropError(model.KindInternal, "writing schema version", err)
	}
	return nil
}

func (s *Store) checkSchemaVersion(ctx context.Context) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	if err != nil {
		return model.WrapTropError(model.KindSchemaVersionMismatch, "reading schema version", err)
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return model.WrapTropError(model.KindSchemaVersionMismatch, "parsing schema version", err)
	}
	switch {
	case version > currentSchemaVersion:
		return model.NewTropError(model.KindSchemaVersionMismatch,
			fmt.Sprintf("store schema version %d is newer than this binary's expected version %d; upgrade trop", version, currentSchemaVersion))
	case version < currentSchemaVersion:
		return model.NewTropError(model.KindSchemaVersionMismatch,
			fmt.Sprintf("store schema version %d is older than this binary's expected version %d; a migration is required", version, currentSchemaVersion))
	}
	return nil
}

// Tx is a write-transaction handle bound to a single dedicated connection
// with BEGIN IMMEDIATE already in effect.
type Tx struct {
	conn *sql.Conn
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.conn.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.conn.QueryRowContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.conn.QueryContext(ctx, query, args...)
}

// Queryable is satisfied by both *sql.DB and *Tx, letting read helpers in
// this package run against either a plain connection or an in-flight write
// transaction.
type Queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// WriteTx runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. Every trop write operation (reserve, release, migrate,
// prune, ...) goes through here, so the whole plan commits or rolls back
// as one unit (spec.md §4.2, §4.8).
func (s *Store) WriteTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return model.WrapTropError(model.KindInternal, "acquiring store connection", err)
	}
	defer func() { _ = conn.Close() }()

	if err := s.beginImmediate(ctx, conn); err != nil {
		return err
	}

	if err := fn(ctx, &Tx{conn: conn}); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return model.WrapTropError(model.KindInternal, "committing store transaction", err)
	}
	return nil
}

// beginImmediate issues BEGIN IMMEDIATE, retrying on SQLITE_BUSY with a
// growing backoff until maxLockWait elapses.
func (s *Store) beginImmediate(ctx context.Context, conn *sql.Conn) error {
	deadline := time.Now().Add(s.maxLockWait)
	backoff := 25 * time.Millisecond

	for {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if !isBusyErr(err) {
			return model.WrapTropError(model.KindInternal, "beginning write transaction", err)
		}
		if time.Now().After(deadline) {
			return model.NewTropError(model.KindTimeout, "timed out waiting for the store's write lock")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 400*time.Millisecond {
			backoff *= 2
		}
	}
}

func isBusyErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
