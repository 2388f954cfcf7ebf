// Package audithook bridges token ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/token/notification"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTransfer             = (*Extension)(nil)
	_ plugin.OnFrozenFunds          = (*Extension)(nil)
	_ plugin.OnMinted               = (*Extension)(nil)
	_ plugin.OnPricesSet            = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
	_ plugin.OnOperationRejected    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, n notification.Notification) error {
	return e.record(ctx, ActionTransfer, SeverityInfo, OutcomeSuccess,
		ResourceAccount, string(n.From), CategoryBalance, nil,
		"notification_id", n.ID.String(),
		"ledger_id", n.LedgerID.String(),
		"seq", n.Seq,
		"from", string(n.From),
		"to", string(n.To),
		"value", n.Value.String(),
		"mint", n.IsMint(),
	)
}

// OnFrozenFunds implements plugin.OnFrozenFunds.
func (e *Extension) OnFrozenFunds(ctx context.Context, n notification.Notification) error {
	action := ActionUnfrozen
	if n.Frozen {
		action = ActionFrozen
	}
	return e.record(ctx, action, SeverityWarning, OutcomeSuccess,
		ResourceAccount, string(n.Target), CategoryControl, nil,
		"notification_id", n.ID.String(),
		"ledger_id", n.LedgerID.String(),
		"seq", n.Seq,
		"frozen", n.Frozen,
	)
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnMinted implements plugin.OnMinted.
func (e *Extension) OnMinted(ctx context.Context, target types.Principal, amount, totalSupply types.Amount) error {
	return e.record(ctx, ActionMinted, SeverityInfo, OutcomeSuccess,
		ResourceAccount, string(target), CategoryAdmin, nil,
		"value", amount.String(),
		"total_supply", totalSupply.String(),
	)
}

// OnPricesSet implements plugin.OnPricesSet.
func (e *Extension) OnPricesSet(ctx context.Context, sell, buy types.Amount) error {
	return e.record(ctx, ActionPricesSet, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryAdmin, nil,
		"sell_price", sell.String(),
		"buy_price", buy.String(),
	)
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, prev, next types.Principal) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityCritical, OutcomeSuccess,
		ResourceLedger, "", CategoryAdmin, nil,
		"previous_owner", string(prev),
		"new_owner", string(next),
	)
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller types.Principal, err error) error {
	// Unwrap so the reason carries the sentinel text only.
	cause := err
	if inner := errors.Unwrap(err); inner != nil {
		cause = inner
	}
	return e.record(ctx, ActionRejected, SeverityWarning, OutcomeFailure,
		ResourceAccount, string(caller), CategoryAccess, cause,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
