// Package mongo provides a MongoDB journal store built on the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	tokenstore "github.com/xraph/token/store"
)

// Collection name constants.
const (
	colNotifications = "token_notifications"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all token collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("token/mongo: migrate %s indexes: %w", col, err)
		}
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

func (s *Store) AppendNotifications(ctx context.Context, ns []*notification.Notification) error {
	for _, n := range ns {
		m := toNotificationModel(n)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates for idempotency
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("token/mongo: append notification: %w", err)
		}
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, opts notification.ListOpts) ([]*notification.Notification, error) {
	var models []notificationModel

	q := s.mdb.NewFind(&models).
		Filter(listFilter(opts)).
		Sort(bson.D{{Key: "seq", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return []*notification.Notification{}, nil
		}
		return nil, fmt.Errorf("token/mongo: list notifications: %w", err)
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
	var m notificationModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("token/mongo: last sequence: %w", err)
	}
	return uint64(m.Seq), nil //nolint:gosec // seq is never negative
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// listFilter translates opts into a query document.
func listFilter(opts notification.ListOpts) bson.M {
	filter := bson.M{}
	if !opts.LedgerID.IsNil() {
		filter["ledger_id"] = opts.LedgerID.String()
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Principal != "" {
		p := string(opts.Principal)
		filter["$or"] = bson.A{
			bson.M{"from_addr": p},
			bson.M{"to_addr": p},
			bson.M{"target": p},
		}
	}
	if opts.AfterSeq > 0 {
		filter["seq"] = bson.M{"$gt": int64(opts.AfterSeq)} //nolint:gosec // seq never exceeds int64
	}
	return filter
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all token collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colNotifications: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "from_addr", Value: 1}}},
			{Keys: bson.D{{Key: "to_addr", Value: 1}}},
			{Keys: bson.D{{Key: "target", Value: 1}}},
		},
	}
}
