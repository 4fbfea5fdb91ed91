// Package sqlite implements the fieldstore engine on an embedded SQLite
// database: the table/schema manager, the row lifecycle and sync-state
// machine, the key-value metadata store, sync-ETag bookkeeping, and the
// table health reporter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fieldstack/fieldstore/pkg/types"
)

// Store owns the database handle and the ambient defaults (active user,
// locale, clock) applied to rows. One Store is constructed per process
// and passed to all call sites; there is no package-level instance.
type Store struct {
	db     *sql.DB
	config types.Config
	log    *slog.Logger
	now    func() time.Time
	closed bool
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock sets the timestamp source used for savepoint timestamps and
// sync times. Tests use this to make timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates the data directory if needed, opens (or creates) the
// database file, and ensures the registry tables exist. Existing data
// is preserved; the store is the durable source of truth for an
// offline-first client.
func Open(config types.Config, opts ...Option) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(config.DataDir, config.GetDBFileName())
	dsn := "file:" + url.PathEscape(dbPath) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:     db,
		config: config,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, ddl := range registryDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing registry schema: %w", err)
		}
	}

	s.log.Debug("store opened", "path", dbPath)
	return s, nil
}

// Close releases the database handle. Idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// ActiveUser returns the configured savepoint-creator default.
func (s *Store) ActiveUser() string { return s.config.GetActiveUser() }

// Locale returns the configured locale default.
func (s *Store) Locale() string { return s.config.GetLocale() }

// Conn is one logical session's connection handle. It owns its
// transaction state explicitly as a depth counter; the engine never
// infers transaction state by querying the database. A Conn must not be
// shared across goroutines; concurrency across sessions comes from
// distinct Conns.
type Conn struct {
	store     *Store
	conn      *sql.Conn
	depth     int
	exclusive bool
	aborted   bool
}

// OpenConn returns a dedicated connection handle for one logical
// session.
func (s *Store) OpenConn(ctx context.Context) (*Conn, error) {
	if s.closed {
		return nil, types.ErrStoreClosed
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Conn{store: s, conn: conn}, nil
}

// Close releases the connection. A transaction still open at Close is a
// caller error; it is force-aborted and logged.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.depth > 0 {
		c.store.log.Warn("closing connection with open transaction; rolling back", "depth", c.depth)
		if _, err := c.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			c.store.log.Warn("force rollback failed", "error", err)
		}
		c.depth = 0
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}

// InTransaction reports whether a transaction is open on this handle.
func (c *Conn) InTransaction() bool { return c.depth > 0 }

// BeginTransaction starts a transaction, or joins the one already open.
// Only the outermost call issues BEGIN: IMMEDIATE for an exclusive
// transaction (row-mutating read-then-write sequences), DEFERRED
// otherwise (metadata and schema work).
func (c *Conn) BeginTransaction(ctx context.Context, exclusive bool) error {
	if c.depth > 0 {
		c.depth++
		return nil
	}
	stmt := "BEGIN DEFERRED"
	if exclusive {
		stmt = "BEGIN IMMEDIATE"
	}
	if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	c.depth = 1
	c.exclusive = exclusive
	c.aborted = false
	return nil
}

// Commit ends the current nesting level. Only the outermost call issues
// COMMIT; if any nested level rolled back, the outermost Commit rolls
// the whole transaction back instead and reports it.
func (c *Conn) Commit(ctx context.Context) error {
	if c.depth == 0 {
		return types.ErrNoTransaction
	}
	c.depth--
	if c.depth > 0 {
		return nil
	}
	if c.aborted {
		_, _ = c.conn.ExecContext(ctx, "ROLLBACK")
		return fmt.Errorf("commit after nested rollback: transaction rolled back")
	}
	if _, err := c.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback ends the current nesting level, marking the transaction
// aborted. Only the outermost call issues ROLLBACK.
func (c *Conn) Rollback(ctx context.Context) error {
	if c.depth == 0 {
		return types.ErrNoTransaction
	}
	c.depth--
	c.aborted = true
	if c.depth > 0 {
		return nil
	}
	if _, err := c.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// withTransaction runs fn inside a transaction on this handle, joining
// a caller-supplied one when present. The outermost owner commits on
// success and rolls back on error.
func (c *Conn) withTransaction(ctx context.Context, exclusive bool, fn func() error) error {
	if err := c.BeginTransaction(ctx, exclusive); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			c.store.log.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return c.Commit(ctx)
}

// exec runs a statement on this handle's connection.
func (c *Conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// query runs a query on this handle's connection.
func (c *Conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// queryRow runs a single-row query on this handle's connection.
func (c *Conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// WithConn opens a connection, runs fn, and closes it. Convenience for
// callers that do not hold a long-lived session.
func (s *Store) WithConn(ctx context.Context, fn func(*Conn) error) error {
	conn, err := s.OpenConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
