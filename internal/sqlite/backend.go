// Package sqlite implements the SQLite entity store for organigrama.
//
// The store holds four collections (persons, departments, assignments,
// workspaces) in one database file and upgrades older files in place through
// an ordered list of migrations. Every committed mutation is reported to a
// live.Notifier so live queries re-evaluate.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/organigrama/internal/ids"
	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// DatabaseFile is the fixed file name of the store inside DataDir.
const DatabaseFile = "organigrama.db"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Backend is the entity store. It is safe for concurrent use; mutations are
// serialized by the backend lock and each runs in its own transaction.
type Backend struct {
	mu     sync.RWMutex
	isOpen bool
	config types.Config
	db     *sql.DB

	log      zerolog.Logger
	notifier live.Notifier
	prefs    prefs.Store
	ids      ids.Generator
	now      func() time.Time
	target   int

	persons     *PersonsTable
	departments *DepartmentsTable
	assignments *AssignmentsTable
	workspaces  *WorkspacesTable
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for migrations and retries.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithNotifier sets the receiver of change notifications.
func WithNotifier(n live.Notifier) Option {
	return func(b *Backend) { b.notifier = n }
}

// WithPrefs sets the key-value store that receives the active workspace
// chosen by the workspace migration.
func WithPrefs(p prefs.Store) Option {
	return func(b *Backend) { b.prefs = p }
}

// WithIDGenerator replaces the random identifier generator.
func WithIDGenerator(g ids.Generator) Option {
	return func(b *Backend) { b.ids = g }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithSchemaVersion stops migrations at version v instead of the latest.
// Used to create stores in an older layout.
func WithSchemaVersion(v int) Option {
	return func(b *Backend) { b.target = v }
}

// NewBackend creates a closed backend. Call Open to use it.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log:    zerolog.Nop(),
		ids:    ids.Random{},
		now:    time.Now,
		target: LatestVersion,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.persons = &PersonsTable{backend: b}
	b.departments = &DepartmentsTable{backend: b}
	b.assignments = &AssignmentsTable{backend: b}
	b.workspaces = &WorkspacesTable{backend: b}
	return b
}

// Open creates a backend and opens it in one step.
func Open(ctx context.Context, config types.Config, opts ...Option) (*Backend, error) {
	b := NewBackend(opts...)
	if err := b.Open(ctx, config); err != nil {
		return nil, err
	}
	return b, nil
}

// Open opens or creates the database in config.DataDir and runs pending
// migrations in ascending order. Returns ErrAlreadyOpen if already open. Any
// failure wraps types.ErrStorage; the application cannot continue without
// the store.
func (b *Backend) Open(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isOpen {
		return types.ErrAlreadyOpen
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating data dir: %w", types.ErrStorage, err)
	}

	dsn := "file:" + filepath.Join(dataDir, DatabaseFile) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: opening database: %w", types.ErrStorage, err)
	}

	// Another process may hold the write lock while it migrates; retry
	// only on lock contention.
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		err := runMigrations(ctx, db, b, b.target)
		if err != nil && !isBusy(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			b.log.Warn().Err(err).Msg("database busy, retrying open")
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(config.GetBusyRetries())),
	)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	b.db = db
	b.config = config
	b.isOpen = true
	return nil
}

// Close releases the database. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("%w: closing database: %w", types.ErrStorage, err)
	}
	b.db = nil
	b.isOpen = false
	return nil
}

// Version returns the schema version of the open database.
func (b *Backend) Version(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isOpen {
		return 0, types.ErrStoreClosed
	}
	return currentVersion(ctx, b.db)
}

// Persons returns the persons accessor.
func (b *Backend) Persons() *PersonsTable { return b.persons }

// Departments returns the departments accessor.
func (b *Backend) Departments() *DepartmentsTable { return b.departments }

// Assignments returns the assignments accessor.
func (b *Backend) Assignments() *AssignmentsTable { return b.assignments }

// Workspaces returns the workspaces accessor.
func (b *Backend) Workspaces() *WorkspacesTable { return b.workspaces }

// NewID returns a fresh identifier from the backend's generator.
func (b *Backend) NewID() string {
	return b.ids.NewID()
}

// read runs fn under the read lock after checking the store is open.
func (b *Backend) read(fn func(db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isOpen {
		return types.ErrStoreClosed
	}
	return fn(b.db)
}

// write runs fn in a transaction under the write lock. On commit, the
// returned topics are sent to the notifier before write returns, so a read
// issued after write returns observes the change.
func (b *Backend) write(ctx context.Context, fn func(tx *sql.Tx) ([]string, error)) error {
	b.mu.Lock()
	if !b.isOpen {
		b.mu.Unlock()
		return types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: beginning transaction: %w", types.ErrStorage, err)
	}
	topics, err := fn(tx)
	if err != nil {
		tx.Rollback()
		b.mu.Unlock()
		return err
	}
	if err := tx.Commit(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: committing transaction: %w", types.ErrStorage, err)
	}
	b.mu.Unlock()

	if b.notifier != nil && len(topics) > 0 {
		b.notifier.Notify(topics...)
	}
	return nil
}

// timestamp returns the current time in UTC.
func (b *Backend) timestamp() time.Time {
	return b.now().UTC()
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// notFound maps sql.ErrNoRows to types.ErrNotFound with context.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, types.ErrNotFound)
	}
	return fmt.Errorf("getting %s %s: %w", what, id, err)
}

// nullString returns a NULL for empty strings.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
