package token_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/types"
)

const (
	alice types.Principal = "0xA"
	bob   types.Principal = "0xB"
	carol types.Principal = "0xC"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLedger(t *testing.T, opts ...token.Option) *token.Ledger {
	t.Helper()
	opts = append([]token.Option{token.WithLogger(quiet)}, opts...)
	return token.New(token.Genesis{
		Name:          "AmaliaToken",
		Symbol:        "Amal",
		InitialSupply: 10000,
		Owner:         alice,
	}, opts...)
}

func requireConserved(t *testing.T, l *token.Ledger) {
	t.Helper()
	require.NoError(t, l.Audit())
}

func TestNew(t *testing.T) {
	l := newLedger(t)

	assert.Equal(t, "AmaliaToken", l.Name())
	assert.Equal(t, "Amal", l.Symbol())
	assert.Equal(t, types.DefaultDecimals, l.Decimals())
	assert.Equal(t, types.Amount(10000), l.TotalSupply())
	assert.Equal(t, types.Amount(10000), l.BalanceOf(alice))
	assert.Equal(t, alice, l.Owner())
	assert.Zero(t, l.SellPrice())
	assert.Zero(t, l.BuyPrice())
	assert.Zero(t, l.BalanceOf(bob))
	assert.False(t, l.FrozenAccount(bob))
	assert.Equal(t, id.PrefixLedger, l.ID().Prefix())
	assert.Zero(t, l.NotificationCount())
	requireConserved(t, l)
}

func TestNewKeepsDecimals(t *testing.T) {
	l := token.New(token.Genesis{Name: "T", Symbol: "T", Decimals: 2, Owner: alice}, token.WithLogger(quiet))
	assert.Equal(t, uint8(2), l.Decimals())
	assert.Zero(t, l.TotalSupply())
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Transfer(ctx, alice, bob, 1000))

	assert.Equal(t, types.Amount(9000), l.BalanceOf(alice))
	assert.Equal(t, types.Amount(1000), l.BalanceOf(bob))
	assert.Equal(t, types.Amount(10000), l.TotalSupply())

	ns := l.Notifications(0)
	require.Len(t, ns, 1)
	assert.Equal(t, notification.KindTransfer, ns[0].Kind)
	assert.Equal(t, alice, ns[0].From)
	assert.Equal(t, bob, ns[0].To)
	assert.Equal(t, types.Amount(1000), ns[0].Value)
	assert.Equal(t, uint64(1), ns[0].Seq)
	requireConserved(t, l)
}

func TestTransferZeroAmount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Transfer(ctx, bob, carol, 0))

	assert.Zero(t, l.BalanceOf(bob))
	assert.Zero(t, l.BalanceOf(carol))
	assert.Equal(t, 1, l.NotificationCount())
	requireConserved(t, l)
}

func TestTransferToSelf(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Transfer(ctx, alice, alice, 400))

	assert.Equal(t, types.Amount(10000), l.BalanceOf(alice))
	assert.Equal(t, 1, l.NotificationCount())

	err := l.Transfer(ctx, alice, alice, 10001)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Transfer(ctx, alice, bob, 1000))

	err := l.Transfer(ctx, bob, carol, 1001)
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.True(t, token.IsTransferError(err))

	var opErr *token.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, token.OpTransfer, opErr.Op)
	assert.Equal(t, bob, opErr.Caller)

	assert.Equal(t, types.Amount(1000), l.BalanceOf(bob))
	assert.Zero(t, l.BalanceOf(carol))
	assert.Equal(t, 1, l.NotificationCount())
}

func TestTransferFromFrozenAccount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Transfer(ctx, alice, bob, 1000))
	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))

	for _, amount := range []types.Amount{0, 1, 1000, 5000} {
		err := l.Transfer(ctx, bob, carol, amount)
		assert.ErrorIs(t, err, token.ErrAccountFrozen, "amount %d", amount)
	}

	assert.Equal(t, types.Amount(1000), l.BalanceOf(bob))
	assert.Zero(t, l.BalanceOf(carol))
	assert.Equal(t, 2, l.NotificationCount())

	// Frozen check precedes the balance check.
	err := l.Transfer(ctx, bob, carol, 99999)
	assert.ErrorIs(t, err, token.ErrAccountFrozen)
}

func TestTransferToFrozenAccountAllowed(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))

	require.NoError(t, l.Transfer(ctx, alice, bob, 10))
	assert.Equal(t, types.Amount(10), l.BalanceOf(bob))
}

func TestFreezeAccount(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))
	before := l.Snapshot()
	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))
	after := l.Snapshot()

	assert.True(t, l.FrozenAccount(bob))
	assert.Equal(t, before.TotalSupply, after.TotalSupply)
	assert.Equal(t, len(before.Accounts), len(after.Accounts))

	freezes := l.NotificationsByKind(notification.KindFrozenFunds, 0)
	require.Len(t, freezes, 2)
	for _, n := range freezes {
		assert.Equal(t, bob, n.Target)
		assert.True(t, n.Frozen)
	}

	require.NoError(t, l.FreezeAccount(ctx, alice, bob, false))
	assert.False(t, l.FrozenAccount(bob))
	assert.Equal(t, 3, l.NotificationCount())
}

func TestFreezeAccountUnauthorized(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	err := l.FreezeAccount(ctx, bob, alice, true)
	assert.ErrorIs(t, err, token.ErrUnauthorized)
	assert.True(t, token.IsAuthorizationError(err))
	assert.False(t, l.FrozenAccount(alice))
	assert.Zero(t, l.NotificationCount())
}

func TestMintToken(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.MintToken(ctx, alice, bob, 25000))

	assert.Equal(t, types.Amount(35000), l.TotalSupply())
	assert.Equal(t, types.Amount(25000), l.BalanceOf(bob))
	assert.Equal(t, types.Amount(10000), l.BalanceOf(alice))

	ns := l.Notifications(0)
	require.Len(t, ns, 2)
	assert.Equal(t, types.ZeroPrincipal, ns[0].From)
	assert.Equal(t, alice, ns[0].To)
	assert.Equal(t, types.Amount(25000), ns[0].Value)
	assert.True(t, ns[0].IsMint())
	assert.Equal(t, alice, ns[1].From)
	assert.Equal(t, bob, ns[1].To)
	assert.Equal(t, types.Amount(25000), ns[1].Value)
	assert.Less(t, ns[0].Seq, ns[1].Seq)
	requireConserved(t, l)
}

func TestMintTokenToOwner(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.MintToken(ctx, alice, alice, 500))

	assert.Equal(t, types.Amount(10500), l.BalanceOf(alice))
	assert.Equal(t, types.Amount(10500), l.TotalSupply())
	assert.Equal(t, 2, l.NotificationCount())
	requireConserved(t, l)
}

func TestMintTokenFrozenOwner(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.FreezeAccount(ctx, alice, alice, true))

	require.NoError(t, l.MintToken(ctx, alice, bob, 50))
	assert.Equal(t, types.Amount(50), l.BalanceOf(bob))
}

func TestMintTokenUnauthorized(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	err := l.MintToken(ctx, bob, bob, 100)
	assert.ErrorIs(t, err, token.ErrUnauthorized)
	assert.Equal(t, types.Amount(10000), l.TotalSupply())
	assert.Zero(t, l.BalanceOf(bob))
	assert.Zero(t, l.NotificationCount())
}

func TestMintTokenOverflow(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	err := l.MintToken(ctx, alice, bob, types.Amount(^uint64(0)))
	assert.ErrorIs(t, err, token.ErrOverflow)
	assert.True(t, token.IsTransferError(err))
	assert.Equal(t, types.Amount(10000), l.TotalSupply())
	assert.Zero(t, l.BalanceOf(bob))
	assert.Zero(t, l.NotificationCount())
}

func TestSetPrices(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.SetPrices(ctx, alice, 3, 1))
	assert.Equal(t, types.Amount(3), l.SellPrice())
	assert.Equal(t, types.Amount(1), l.BuyPrice())
	assert.Zero(t, l.NotificationCount())

	err := l.SetPrices(ctx, bob, 9, 9)
	assert.ErrorIs(t, err, token.ErrUnauthorized)
	assert.Equal(t, types.Amount(3), l.SellPrice())
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	err := l.TransferOwnership(ctx, carol, carol)
	assert.ErrorIs(t, err, token.ErrUnauthorized)
	assert.Equal(t, alice, l.Owner())

	require.NoError(t, l.TransferOwnership(ctx, alice, bob))
	assert.Equal(t, bob, l.Owner())
	assert.Equal(t, types.Amount(10000), l.BalanceOf(alice))
	assert.Zero(t, l.NotificationCount())

	// The previous owner lost its privileges.
	assert.ErrorIs(t, l.SetPrices(ctx, alice, 1, 1), token.ErrUnauthorized)
	require.NoError(t, l.MintToken(ctx, bob, carol, 5))
	assert.Equal(t, types.Amount(5), l.BalanceOf(carol))
}

func TestAccountsAndSnapshot(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newLedger(t, token.WithClock(func() time.Time { return at }))

	require.NoError(t, l.Transfer(ctx, alice, carol, 10))
	require.NoError(t, l.Transfer(ctx, alice, bob, 20))

	accounts := l.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, []types.Principal{alice, bob, carol},
		[]types.Principal{accounts[0].Principal, accounts[1].Principal, accounts[2].Principal})

	acct, ok := l.Account(bob)
	require.True(t, ok)
	assert.Equal(t, types.Amount(20), acct.Balance)
	assert.Equal(t, at, acct.CreatedAt)

	_, ok = l.Account("0xNobody")
	assert.False(t, ok)

	snap := l.Snapshot()
	assert.Equal(t, l.ID().String(), snap.ID.String())
	assert.Equal(t, types.Amount(10000), snap.TotalSupply)
	assert.Equal(t, 2, snap.Notifications)
	assert.Equal(t, at, snap.TakenAt)
	assert.Equal(t, at, l.Notifications(0)[0].Timestamp)
}

func TestReadsDoNotCreateAccounts(t *testing.T) {
	l := newLedger(t)
	_ = l.BalanceOf(bob)
	_ = l.FrozenAccount(bob)
	_, _ = l.Account(bob)

	assert.Len(t, l.Accounts(), 1)
}

func TestNotificationOffsets(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	require.NoError(t, l.FreezeAccount(ctx, alice, carol, true))
	require.NoError(t, l.MintToken(ctx, alice, carol, 7))

	assert.Equal(t, 4, l.NotificationCount())
	tail := l.Notifications(2)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(3), tail[0].Seq)

	transfers := l.NotificationsByKind(notification.KindTransfer, 1)
	require.Len(t, transfers, 2)
	assert.True(t, transfers[0].IsMint())
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	principals := []types.Principal{alice, bob, carol, "0xD"}
	require.NoError(t, l.Transfer(ctx, alice, bob, 2500))
	require.NoError(t, l.Transfer(ctx, alice, carol, 2500))
	require.NoError(t, l.Transfer(ctx, alice, "0xD", 2500))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				from := principals[(w+i)%len(principals)]
				to := principals[(w+i+1)%len(principals)]
				_ = l.Transfer(ctx, from, to, types.Amount(i%50))
				if i%25 == 0 {
					_ = l.MintToken(ctx, alice, to, 1)
				}
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.NoError(t, l.Audit())
			}
		}()
	}
	wg.Wait()

	requireConserved(t, l)

	ns := l.Notifications(0)
	for i, n := range ns {
		assert.Equal(t, uint64(i+1), n.Seq)
		if n.IsMint() {
			require.Less(t, i+1, len(ns))
			assert.Equal(t, n.To, ns[i+1].From)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{token.ErrUnauthorized, "Unauthorized"},
		{&token.OperationError{Op: token.OpTransfer, Caller: bob, Err: token.ErrAccountFrozen}, "AccountFrozen"},
		{token.ErrInsufficientBalance, "InsufficientBalance"},
		{types.ErrOverflow, "Overflow"},
		{token.ErrInvariantViolated, "InvariantViolated"},
		{errors.New("other"), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, token.ErrorKind(tt.err))
	}
}

func TestOperationErrorMessage(t *testing.T) {
	err := &token.OperationError{Op: token.OpMint, Caller: bob, Err: token.ErrUnauthorized}
	assert.Equal(t, "mint by 0xB: token: unauthorized", err.Error())
}

// ──────────────────────────────────────────────────
// Plugins
// ──────────────────────────────────────────────────

type hookRecorder struct {
	mu        sync.Mutex
	transfers []notification.Notification
	freezes   []notification.Notification
	minted    []types.Amount
	prices    [][2]types.Amount
	owners    [][2]types.Principal
	rejected  []string
	flushed   int
	started   bool
	stopped   bool
}

func (h *hookRecorder) Name() string { return "hook-recorder" }

func (h *hookRecorder) OnInit(context.Context, interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = true
	return nil
}

func (h *hookRecorder) OnShutdown(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	return nil
}

func (h *hookRecorder) OnTransfer(_ context.Context, n notification.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transfers = append(h.transfers, n)
	return nil
}

func (h *hookRecorder) OnFrozenFunds(_ context.Context, n notification.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freezes = append(h.freezes, n)
	return nil
}

func (h *hookRecorder) OnMinted(_ context.Context, _ types.Principal, amount, _ types.Amount) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.minted = append(h.minted, amount)
	return nil
}

func (h *hookRecorder) OnPricesSet(_ context.Context, sell, buy types.Amount) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prices = append(h.prices, [2]types.Amount{sell, buy})
	return nil
}

func (h *hookRecorder) OnOwnershipTransferred(_ context.Context, prev, next types.Principal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.owners = append(h.owners, [2]types.Principal{prev, next})
	return nil
}

func (h *hookRecorder) OnOperationRejected(_ context.Context, op string, _ types.Principal, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected = append(h.rejected, op+":"+token.ErrorKind(err))
	return nil
}

func (h *hookRecorder) OnJournalFlushed(_ context.Context, count int, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushed += count
	return nil
}

func TestPluginHooks(t *testing.T) {
	ctx := context.Background()
	h := &hookRecorder{}
	l := newLedger(t, token.WithPlugin(h))

	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Transfer(ctx, alice, bob, 10))
	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))
	require.NoError(t, l.MintToken(ctx, alice, carol, 5))
	require.NoError(t, l.SetPrices(ctx, alice, 3, 1))
	require.NoError(t, l.TransferOwnership(ctx, alice, carol))

	require.Error(t, l.Transfer(ctx, bob, alice, 1))
	require.Error(t, l.SetPrices(ctx, alice, 1, 1))
	require.NoError(t, l.Stop())

	h.mu.Lock()
	defer h.mu.Unlock()

	assert.True(t, h.started)
	assert.True(t, h.stopped)
	require.Len(t, h.transfers, 3)
	assert.True(t, h.transfers[1].IsMint())
	assert.Len(t, h.freezes, 1)
	assert.Equal(t, []types.Amount{5}, h.minted)
	assert.Equal(t, [][2]types.Amount{{3, 1}}, h.prices)
	assert.Equal(t, [][2]types.Principal{{alice, carol}}, h.owners)
	assert.Equal(t, []string{"transfer:AccountFrozen", "set_prices:Unauthorized"}, h.rejected)
	assert.Zero(t, h.flushed)
}

func TestRegisterPluginDuplicate(t *testing.T) {
	l := newLedger(t, token.WithPlugin(&hookRecorder{}))
	assert.Error(t, l.RegisterPlugin(&hookRecorder{}))
	assert.Equal(t, 1, l.Plugins().Count())
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

func TestJournalFlush(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	h := &hookRecorder{}
	l := newLedger(t,
		token.WithStore(s),
		token.WithPlugin(h),
		token.WithJournalConfig(2, time.Hour),
	)
	require.NoError(t, l.Start(ctx))

	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	require.NoError(t, l.MintToken(ctx, alice, carol, 2))
	require.NoError(t, l.FreezeAccount(ctx, alice, bob, true))

	require.NoError(t, l.Flush(ctx))
	assert.Zero(t, l.PendingJournal())

	stored, err := s.ListNotifications(ctx, notification.ListOpts{LedgerID: l.ID()})
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for i, n := range stored {
		assert.Equal(t, uint64(i+1), n.Seq)
	}

	last, err := s.LastSequence(ctx, l.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), last)

	h.mu.Lock()
	assert.Equal(t, 4, h.flushed)
	h.mu.Unlock()

	require.NoError(t, l.Stop())
	assert.ErrorIs(t, s.Ping(ctx), token.ErrStoreClosed)
}

func TestJournalWorkerFlushesOnTick(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := newLedger(t,
		token.WithStore(s),
		token.WithJournalConfig(100, 10*time.Millisecond),
	)
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	require.NoError(t, l.Transfer(ctx, alice, bob, 1))

	assert.Eventually(t, func() bool {
		last, err := s.LastSequence(ctx, l.ID())
		return err == nil && last == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStopFlushesPending(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memory.New()}
	l := newLedger(t,
		token.WithStore(s),
		token.WithJournalConfig(100, time.Hour),
	)
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())

	assert.Equal(t, 1, s.appended)
}

type countingStore struct {
	*memory.Store
	appended int
	fail     bool
}

func (c *countingStore) AppendNotifications(ctx context.Context, ns []*notification.Notification) error {
	if c.fail {
		return errors.New("journal unavailable")
	}
	c.appended += len(ns)
	return c.Store.AppendNotifications(ctx, ns)
}

func TestJournalRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memory.New(), fail: true}
	l := newLedger(t, token.WithStore(s), token.WithJournalConfig(10, time.Hour))

	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	require.Error(t, l.Flush(ctx))
	assert.Equal(t, 1, l.PendingJournal())

	s.fail = false
	require.NoError(t, l.Flush(ctx))
	assert.Zero(t, l.PendingJournal())
	assert.Equal(t, 1, s.appended)
}

func TestWithoutStore(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	require.NoError(t, l.Flush(ctx))
	require.NoError(t, l.Ping(ctx))
	assert.Zero(t, l.PendingJournal())
	require.NoError(t, l.Stop())
}

type seqRecorder struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *seqRecorder) Name() string { return "seq-recorder" }

func (r *seqRecorder) OnTransfer(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, n.Seq)
	return nil
}

func (r *seqRecorder) OnFrozenFunds(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, n.Seq)
	return nil
}

func TestPluginsReceiveNotificationsInSeqOrder(t *testing.T) {
	ctx := context.Background()
	rec := &seqRecorder{}
	l := newLedger(t, token.WithPlugin(rec))

	const workers = 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				assert.NoError(t, l.MintToken(ctx, alice, carol, 1))
				return
			}
			assert.NoError(t, l.Transfer(ctx, alice, bob, 1))
		}(i)
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.seqs, l.NotificationCount())
	for i, seq := range rec.seqs {
		assert.Equal(t, uint64(i+1), seq, "delivery %d out of order", i)
	}
}

type flakyMigrateStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyMigrateStore) Migrate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("database unavailable")
	}
	return f.Store.Migrate(ctx)
}

func TestStartRetriesAfterMigrateFailure(t *testing.T) {
	ctx := context.Background()
	s := &flakyMigrateStore{Store: memory.New(), failures: 1}
	l := newLedger(t, token.WithStore(s), token.WithJournalConfig(100, 10*time.Millisecond))

	require.Error(t, l.Start(ctx))
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Start(ctx))
	assert.Equal(t, 2, s.calls)

	require.NoError(t, l.Transfer(ctx, alice, bob, 1))
	assert.Eventually(t, func() bool {
		last, err := s.LastSequence(ctx, l.ID())
		return err == nil && last == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Stop())
}
