package notification

import (
	"context"

	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// Store persists notification records for later inspection.
type Store interface {
	AppendNotifications(ctx context.Context, ns []*Notification) error
	ListNotifications(ctx context.Context, opts ListOpts) ([]*Notification, error)
	LastSequence(ctx context.Context, ledgerID id.LedgerID) (uint64, error)
}

// ListOpts filters a journal listing. Results are ordered by Seq ascending.
type ListOpts struct {
	LedgerID  id.LedgerID
	Kind      Kind
	Principal types.Principal
	AfterSeq  uint64
	Limit     int
}

// Match reports whether n satisfies every filter in opts except Limit.
func (opts ListOpts) Match(n *Notification) bool {
	if !opts.LedgerID.IsNil() && n.LedgerID.String() != opts.LedgerID.String() {
		return false
	}
	if opts.Kind != "" && n.Kind != opts.Kind {
		return false
	}
	if opts.Principal != "" && !n.Involves(opts.Principal) {
		return false
	}
	return n.Seq > opts.AfterSeq
}
