package store

import (
	"context"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
)

// Store is the unified journal storage interface. Ledger state itself is
// never persisted; backends only keep the notification journal.
type Store interface {
	// Journal methods
	AppendNotifications(ctx context.Context, ns []*notification.Notification) error
	ListNotifications(ctx context.Context, opts notification.ListOpts) ([]*notification.Notification, error)
	LastSequence(ctx context.Context, ledgerID id.LedgerID) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var _ notification.Store = (Store)(nil)
