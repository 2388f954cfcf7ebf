package sqlite

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

// ==================== Notification models ====================

type notificationModel struct {
	grove.BaseModel `grove:"table:token_notifications"`

	ID        string    `grove:"id,pk"`
	LedgerID  string    `grove:"ledger_id"`
	Seq       int64     `grove:"seq"`
	Kind      string    `grove:"kind"`
	FromAddr  string    `grove:"from_addr"`
	ToAddr    string    `grove:"to_addr"`
	Value     string    `grove:"value"`
	Target    string    `grove:"target"`
	Frozen    bool      `grove:"frozen"`
	Timestamp time.Time `grove:"timestamp"`
	CreatedAt time.Time `grove:"created_at"`
}

func toNotificationModel(n *notification.Notification) *notificationModel {
	return &notificationModel{
		ID:        n.ID.String(),
		LedgerID:  n.LedgerID.String(),
		Seq:       int64(n.Seq), //nolint:gosec // seq never exceeds int64
		Kind:      string(n.Kind),
		FromAddr:  string(n.From),
		ToAddr:    string(n.To),
		Value:     n.Value.String(),
		Target:    string(n.Target),
		Frozen:    n.Frozen,
		Timestamp: n.Timestamp,
		CreatedAt: now(),
	}
}

func fromNotificationModel(m *notificationModel) (*notification.Notification, error) {
	notificationID, err := id.ParseNotificationID(m.ID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	value, err := strconv.ParseUint(m.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("token/sqlite: parse value of %s: %w", m.ID, err)
	}

	return &notification.Notification{
		ID:        notificationID,
		LedgerID:  ledgerID,
		Seq:       uint64(m.Seq), //nolint:gosec // stored from a uint64
		Kind:      notification.Kind(m.Kind),
		From:      types.Principal(m.FromAddr),
		To:        types.Principal(m.ToAddr),
		Value:     types.Amount(value),
		Target:    types.Principal(m.Target),
		Frozen:    m.Frozen,
		Timestamp: m.Timestamp.UTC(),
	}, nil
}
