package observability

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/store/memory"
)

type fakeMetric struct {
	mu       sync.Mutex
	total    float64
	observed []float64
}

func (f *fakeMetric) Inc() { f.Add(1) }

func (f *fakeMetric) Add(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total += v
}

func (f *fakeMetric) Observe(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, v)
}

type fakeFactory struct {
	metrics map[string]*fakeMetric
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{metrics: make(map[string]*fakeMetric)}
}

func (f *fakeFactory) get(name string) *fakeMetric {
	m, ok := f.metrics[name]
	if !ok {
		m = &fakeMetric{}
		f.metrics[name] = m
	}
	return m
}

func (f *fakeFactory) Counter(name string) Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) Histogram { return f.get(name) }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMetricsExtensionCountsLedgerActivity(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	l := token.New(token.Genesis{Name: "AmaliaToken", Symbol: "Amal", InitialSupply: 10000, Owner: "0xA"},
		token.WithLogger(quiet),
		token.WithStore(memory.New()),
		token.WithPlugin(NewMetricsExtension(factory)),
	)

	require.NoError(t, l.Transfer(ctx, "0xA", "0xB", 1000))
	require.NoError(t, l.MintToken(ctx, "0xA", "0xC", 250))
	require.NoError(t, l.FreezeAccount(ctx, "0xA", "0xB", true))
	require.NoError(t, l.FreezeAccount(ctx, "0xA", "0xB", false))
	require.NoError(t, l.SetPrices(ctx, "0xA", 3, 1))
	require.NoError(t, l.TransferOwnership(ctx, "0xA", "0xA"))
	require.Error(t, l.Transfer(ctx, "0xB", "0xC", 5000))
	require.Error(t, l.MintToken(ctx, "0xB", "0xB", 1))
	require.NoError(t, l.Flush(ctx))

	// The owner-to-target half of the mint counts as a transfer.
	assert.Equal(t, 2.0, factory.get("token.transfers").total)
	assert.Equal(t, 1250.0, factory.get("token.transfer.volume").total)
	assert.Equal(t, 1.0, factory.get("token.mints").total)
	assert.Equal(t, 250.0, factory.get("token.mint.volume").total)
	assert.Equal(t, 1.0, factory.get("token.freezes").total)
	assert.Equal(t, 1.0, factory.get("token.unfreezes").total)
	assert.Equal(t, 1.0, factory.get("token.price.updates").total)
	assert.Equal(t, 1.0, factory.get("token.ownership.transfers").total)
	assert.Equal(t, 1.0, factory.get("token.rejected.insufficient_balance").total)
	assert.Equal(t, 1.0, factory.get("token.rejected.unauthorized").total)
	assert.Equal(t, []float64{5}, factory.get("token.journal.batch.size").observed)
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg, WithNamespace("test"))

	c := f.Counter("token.transfers")
	c.Inc()
	c.Add(2)
	assert.Same(t, c, f.Counter("token.transfers"))

	h := f.Histogram("token.journal.batch.size")
	h.Observe(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "test_token_transfers_total")
	assert.Contains(t, names, "test_token_journal_batch_size")

	pc, ok := c.(prometheus.Counter)
	require.True(t, ok)
	assert.Equal(t, 3.0, testutil.ToFloat64(pc))
}

func TestPrometheusFactoryReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewPrometheusFactory(reg).Counter("token.mints")
	second := NewPrometheusFactory(reg).Counter("token.mints")
	second.Inc()

	pc, ok := first.(prometheus.Counter)
	require.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(pc))
}

func TestPrometheusFactoryBacksMetricsExtension(t *testing.T) {
	reg := prometheus.NewRegistry()
	ext := NewMetricsExtension(NewPrometheusFactory(reg))
	require.NotNil(t, ext.Transfers)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, count)
}
