// Package sqlite provides a SQLite journal store built on the Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	tokenstore "github.com/xraph/token/store"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("token/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("token/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Journal Store ====================

// AppendNotifications inserts ns. Rows already journaled for the same
// (ledger_id, seq) are skipped.
func (s *Store) AppendNotifications(ctx context.Context, ns []*notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	models := make([]notificationModel, len(ns))
	for i, n := range ns {
		models[i] = *toNotificationModel(n)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, opts notification.ListOpts) ([]*notification.Notification, error) {
	var models []notificationModel
	q := s.sdb.NewSelect(&models)

	if !opts.LedgerID.IsNil() {
		q = q.Where("ledger_id = ?", opts.LedgerID.String())
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Principal != "" {
		p := string(opts.Principal)
		q = q.Where("(from_addr = ? OR to_addr = ? OR target = ?)", p, p, p)
	}
	if opts.AfterSeq > 0 {
		q = q.Where("seq > ?", int64(opts.AfterSeq)) //nolint:gosec // seq never exceeds int64
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return []*notification.Notification{}, nil
		}
		return nil, err
	}

	result := make([]*notification.Notification, len(models))
	for i := range models {
		n, err := fromNotificationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = n
	}
	return result, nil
}

func (s *Store) LastSequence(ctx context.Context, ledgerID id.LedgerID) (uint64, error) {
	var last int64
	err := s.sdb.NewRaw(`
		SELECT COALESCE(MAX(seq), 0) FROM token_notifications WHERE ledger_id = ?
	`, ledgerID.String()).Scan(ctx, &last)
	if err != nil {
		return 0, err
	}
	return uint64(last), nil //nolint:gosec // seq is never negative
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
