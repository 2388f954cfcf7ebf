// Package notification defines the ordered change records a token ledger
// emits for committed transfers and freezes.
package notification

import (
	"time"

	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// Kind tags a notification record.
type Kind string

const (
	KindTransfer    Kind = "Transfer"
	KindFrozenFunds Kind = "FrozenFunds"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindTransfer || k == KindFrozenFunds
}

// Notification is one entry of a ledger's notification log.
//
// Transfer records use From, To and Value. FrozenFunds records use Target and
// Frozen. Seq is assigned by the Log and starts at 1.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	LedgerID  id.LedgerID       `json:"ledger_id"`
	Seq       uint64            `json:"seq"`
	Kind      Kind              `json:"kind"`
	From      types.Principal   `json:"from,omitempty"`
	To        types.Principal   `json:"to,omitempty"`
	Value     types.Amount      `json:"value"`
	Target    types.Principal   `json:"target,omitempty"`
	Frozen    bool              `json:"frozen"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewTransfer builds an unsequenced Transfer record.
func NewTransfer(from, to types.Principal, value types.Amount, at time.Time) Notification {
	return Notification{
		ID:        id.NewNotificationID(),
		Kind:      KindTransfer,
		From:      from,
		To:        to,
		Value:     value,
		Timestamp: at.UTC(),
	}
}

// NewFrozenFunds builds an unsequenced FrozenFunds record.
func NewFrozenFunds(target types.Principal, frozen bool, at time.Time) Notification {
	return Notification{
		ID:        id.NewNotificationID(),
		Kind:      KindFrozenFunds,
		Target:    target,
		Frozen:    frozen,
		Timestamp: at.UTC(),
	}
}

// IsMint reports whether n is the mint-from-void half of a mint.
func (n Notification) IsMint() bool {
	return n.Kind == KindTransfer && n.From == types.ZeroPrincipal
}

// Involves reports whether p is a party to n.
func (n Notification) Involves(p types.Principal) bool {
	switch n.Kind {
	case KindTransfer:
		return n.From == p || n.To == p
	case KindFrozenFunds:
		return n.Target == p
	default:
		return false
	}
}
