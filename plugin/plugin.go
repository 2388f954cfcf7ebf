// Package plugin provides an extensible plugin system for the token ledger.
// Plugins hook into lifecycle and ledger events to extend functionality.
//
// Hooks run synchronously after the ledger lock is released and only for
// committed operations. Rejected operations are reported through
// OnOperationRejected instead.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *token.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every committed Transfer notification, including
// both halves of a mint.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, n notification.Notification) error
}

// OnFrozenFunds is called for every committed FrozenFunds notification.
type OnFrozenFunds interface {
	Plugin
	OnFrozenFunds(ctx context.Context, n notification.Notification) error
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnMinted is called once per successful mint.
type OnMinted interface {
	Plugin
	OnMinted(ctx context.Context, target types.Principal, amount, totalSupply types.Amount) error
}

// OnPricesSet is called when the owner updates prices.
type OnPricesSet interface {
	Plugin
	OnPricesSet(ctx context.Context, sell, buy types.Amount) error
}

// OnOwnershipTransferred is called when ownership changes hands.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, prev, next types.Principal) error
}

// OnOperationRejected is called when a mutating operation fails its
// preconditions. err unwraps to one of the ledger sentinel errors.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller types.Principal, err error) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called after a batch of notifications is persisted.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}
