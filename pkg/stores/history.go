package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/openlpar/hmcctl/pkg/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Invocation is one persisted history row.
type Invocation struct {
	ID       string        `json:"id"`
	Action   string        `json:"action"`
	Target   string        `json:"target"`
	Changed  bool          `json:"changed"`
	Status   string        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration"`
}

// HistoryStore is a SQLite-backed invocation history. It implements
// engine.Recorder.
type HistoryStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path string
}

// NewHistoryStore creates a history store. Init must be called before use.
func NewHistoryStore(cfg Config) (*HistoryStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &HistoryStore{path: cfg.Path}, nil
}

// Init opens the database and enables WAL mode.
func (s *HistoryStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *HistoryStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Record inserts one invocation row.
func (s *HistoryStore) Record(ctx context.Context, rec engine.InvocationRecord) error {
	query := `
		INSERT INTO invocations (id, action, target, changed, status, detail, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Action,
		rec.Target,
		rec.Changed,
		rec.Status,
		rec.Detail,
		rec.Started.UTC(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Get retrieves an invocation by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Invocation, error) {
	query := `
		SELECT id, action, target, changed, status, detail, started_at, duration_ms
		FROM invocations
		WHERE id = ?
	`
	inv, err := scanInvocation(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invocation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return inv, nil
}

// ListOptions filter a history listing.
type ListOptions struct {
	// Target restricts to one managed system or partition. Empty means all.
	Target string
	Limit  int
	Offset int
}

// List returns history rows newest first.
func (s *HistoryStore) List(ctx context.Context, opts ListOptions) ([]*Invocation, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	query := `
		SELECT id, action, target, changed, status, detail, started_at, duration_ms
		FROM invocations
	`
	args := []any{}
	if opts.Target != "" {
		query += " WHERE target = ?"
		args = append(args, opts.Target)
	}
	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var list []*Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// Prune deletes rows older than the cutoff and reports how many went.
func (s *HistoryStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM invocations WHERE started_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row rowScanner) (*Invocation, error) {
	var inv Invocation
	var durationMS int64
	if err := row.Scan(
		&inv.ID,
		&inv.Action,
		&inv.Target,
		&inv.Changed,
		&inv.Status,
		&inv.Detail,
		&inv.Started,
		&durationMS,
	); err != nil {
		return nil, err
	}
	inv.Duration = time.Duration(durationMS) * time.Millisecond
	return &inv, nil
}
