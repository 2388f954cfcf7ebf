// Package observability provides a metrics extension for the token ledger
// that records event counts and volumes via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTransfer             = (*MetricsExtension)(nil)
	_ plugin.OnFrozenFunds          = (*MetricsExtension)(nil)
	_ plugin.OnMinted               = (*MetricsExtension)(nil)
	_ plugin.OnPricesSet            = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected    = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a ledger plugin to automatically track token activity.
type MetricsExtension struct {
	factory MetricFactory

	// Balance metrics
	Transfers      Counter
	TransferVolume Counter
	Mints          Counter
	MintVolume     Counter

	// Account control metrics
	Freezes   Counter
	Unfreezes Counter

	// Administrative metrics
	PriceUpdates       Counter
	OwnershipTransfers Counter

	// Rejection metrics, by error kind
	RejectedUnauthorized        Counter
	RejectedAccountFrozen       Counter
	RejectedInsufficientBalance Counter
	RejectedOverflow            Counter
	RejectedOther               Counter

	// Journal metrics
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory to export through Prometheus.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Balance metrics
		Transfers:      factory.Counter("token.transfers"),
		TransferVolume: factory.Counter("token.transfer.volume"),
		Mints:          factory.Counter("token.mints"),
		MintVolume:     factory.Counter("token.mint.volume"),

		// Account control metrics
		Freezes:   factory.Counter("token.freezes"),
		Unfreezes: factory.Counter("token.unfreezes"),

		// Administrative metrics
		PriceUpdates:       factory.Counter("token.price.updates"),
		OwnershipTransfers: factory.Counter("token.ownership.transfers"),

		// Rejection metrics
		RejectedUnauthorized:        factory.Counter("token.rejected.unauthorized"),
		RejectedAccountFrozen:       factory.Counter("token.rejected.account_frozen"),
		RejectedInsufficientBalance: factory.Counter("token.rejected.insufficient_balance"),
		RejectedOverflow:            factory.Counter("token.rejected.overflow"),
		RejectedOther:               factory.Counter("token.rejected.other"),

		// Journal metrics
		JournalBatchSize:    factory.Histogram("token.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("token.journal.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer. The mint-from-void half of a mint
// is counted by OnMinted instead.
func (m *MetricsExtension) OnTransfer(_ context.Context, n notification.Notification) error {
	if n.IsMint() {
		return nil
	}
	m.Transfers.Inc()
	m.TransferVolume.Add(float64(n.Value))
	return nil
}

// OnFrozenFunds implements plugin.OnFrozenFunds.
func (m *MetricsExtension) OnFrozenFunds(_ context.Context, n notification.Notification) error {
	if n.Frozen {
		m.Freezes.Inc()
	} else {
		m.Unfreezes.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnMinted implements plugin.OnMinted.
func (m *MetricsExtension) OnMinted(_ context.Context, _ types.Principal, amount, _ types.Amount) error {
	m.Mints.Inc()
	m.MintVolume.Add(float64(amount))
	return nil
}

// OnPricesSet implements plugin.OnPricesSet.
func (m *MetricsExtension) OnPricesSet(_ context.Context, _, _ types.Amount) error {
	m.PriceUpdates.Inc()
	return nil
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _, _ types.Principal) error {
	m.OwnershipTransfers.Inc()
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ types.Principal, err error) error {
	switch token.ErrorKind(err) {
	case "Unauthorized":
		m.RejectedUnauthorized.Inc()
	case "AccountFrozen":
		m.RejectedAccountFrozen.Inc()
	case "InsufficientBalance":
		m.RejectedInsufficientBalance.Inc()
	case "Overflow":
		m.RejectedOverflow.Inc()
	default:
		m.RejectedOther.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
