package token

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/store"
	"github.com/xraph/token/types"
)

// Genesis describes the initial state of a ledger.
type Genesis struct {
	Name          string          `json:"name" yaml:"name"`
	Symbol        string          `json:"symbol" yaml:"symbol"`
	Decimals      uint8           `json:"decimals" yaml:"decimals"`
	InitialSupply types.Amount    `json:"initial_supply" yaml:"initial_supply"`
	Owner         types.Principal `json:"owner" yaml:"owner"`
}

// Account is a read-only view of one account record.
type Account struct {
	types.Entity
	Principal types.Principal `json:"principal"`
	Balance   types.Amount    `json:"balance"`
	Frozen    bool            `json:"frozen"`
}

// Snapshot is a consistent copy of the whole ledger state.
type Snapshot struct {
	ID            id.LedgerID     `json:"id"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	Decimals      uint8           `json:"decimals"`
	TotalSupply   types.Amount    `json:"total_supply"`
	Owner         types.Principal `json:"owner"`
	SellPrice     types.Amount    `json:"sell_price"`
	BuyPrice      types.Amount    `json:"buy_price"`
	Accounts      []Account       `json:"accounts"`
	Notifications int             `json:"notifications"`
	TakenAt       time.Time       `json:"taken_at"`
}

// Ledger is a single-asset token ledger. All methods are safe for concurrent
// use; every mutation is atomic with respect to every other call.
type Ledger struct {
	mu sync.RWMutex

	id          id.LedgerID
	name        string
	symbol      string
	decimals    uint8
	totalSupply types.Amount
	owner       types.Principal
	sellPrice   types.Amount
	buyPrice    types.Amount
	accounts    map[types.Principal]*Account
	log         *notification.Log

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Journal worker
	journalMu            sync.Mutex
	journalCursor        int
	dispatchMu           sync.Mutex
	dispatchCursor       int
	startMu              sync.Mutex
	started              bool
	journalSignal        chan struct{}
	stopChan             chan struct{}
	stopOnce             sync.Once
	wg                   sync.WaitGroup
	journalBatchSize     int
	journalFlushInterval time.Duration
}

// New creates a ledger from g. The owner receives the whole initial supply.
func New(g Genesis, opts ...Option) *Ledger {
	l := &Ledger{
		id:                   id.NewLedgerID(),
		accounts:             make(map[types.Principal]*Account),
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		clock:                time.Now,
		journalSignal:        make(chan struct{}, 1),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	if g.Decimals == 0 {
		g.Decimals = types.DefaultDecimals
	}

	l.name = g.Name
	l.symbol = g.Symbol
	l.decimals = g.Decimals
	l.owner = g.Owner
	l.totalSupply = g.InitialSupply
	l.log = notification.NewLog(l.id)

	owner := l.account(g.Owner, l.now())
	owner.Balance = g.InitialSupply

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithStore enables journaling of notifications to s.
func WithStore(s store.Store) Option {
	return func(l *Ledger) {
		l.store = s
	}
}

// WithJournalConfig configures journal batching. Non-positive values keep
// the defaults.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			l.journalFlushInterval = flushInterval
		}
	}
}

// WithClock sets the time source for notification and account timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// RegisterPlugin adds a plugin after construction.
func (l *Ledger) RegisterPlugin(p plugin.Plugin) error {
	return l.plugins.Register(p)
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Start migrates the journal store, initializes plugins and launches the
// journal worker. Without a store only the plugin hooks run. A failed Start
// may be retried; once it succeeds further calls are no-ops.
func (l *Ledger) Start(ctx context.Context) error {
	l.startMu.Lock()
	defer l.startMu.Unlock()
	if l.started {
		return nil
	}

	if l.store != nil {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("token: migrate journal store: %w", err)
		}

		l.wg.Add(1)
		go l.journalWorker(context.WithoutCancel(ctx))
	}
	l.started = true

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("token ledger started",
		"ledger_id", l.id.String(),
		"symbol", l.symbol,
		"journal", l.store != nil,
		"batch_size", l.journalBatchSize,
		"flush_interval", l.journalFlushInterval,
	)
	return nil
}

// Stop flushes the journal, shuts plugins down and closes the store.
func (l *Ledger) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()

		ctx := context.Background()
		if l.store != nil {
			if ferr := l.Flush(ctx); ferr != nil {
				l.logger.Error("final journal flush failed", "error", ferr)
			}
		}

		l.plugins.EmitShutdown(ctx)

		if l.store != nil {
			err = l.store.Close()
		}

		l.logger.Info("token ledger stopped", "ledger_id", l.id.String())
	})
	return err
}

// Ping checks the journal store, if any.
func (l *Ledger) Ping(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	return l.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Transfer moves amount from caller to to.
//
// It fails with ErrAccountFrozen when caller is frozen, with
// ErrInsufficientBalance when caller holds less than amount, and with
// ErrOverflow when the receiver balance would overflow. A zero amount
// succeeds and is still recorded.
func (l *Ledger) Transfer(ctx context.Context, caller, to types.Principal, amount types.Amount) error {
	l.mu.Lock()
	err := l.transferLocked(caller, to, amount)
	l.mu.Unlock()

	if err != nil {
		return l.reject(ctx, OpTransfer, caller, err)
	}

	l.commit(ctx)
	l.logger.Debug("transfer committed",
		"from", caller,
		"to", to,
		"value", amount.String(),
	)
	return nil
}

func (l *Ledger) transferLocked(caller, to types.Principal, amount types.Amount) error {
	from := l.accounts[caller]
	if from != nil && from.Frozen {
		return ErrAccountFrozen
	}

	var balance types.Amount
	if from != nil {
		balance = from.Balance
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	if caller != to {
		var received types.Amount
		if acct := l.accounts[to]; acct != nil {
			received = acct.Balance
		}
		if _, err := received.Add(amount); err != nil {
			return err
		}
	}

	now := l.now()
	l.move(caller, to, amount, now)

	l.log.Append(notification.NewTransfer(caller, to, amount, now))
	return nil
}

// move debits from and credits to. Preconditions are checked by the caller.
func (l *Ledger) move(from, to types.Principal, amount types.Amount, at time.Time) {
	src := l.account(from, at)
	dst := l.account(to, at)
	src.Balance -= amount
	dst.Balance += amount
	src.TouchAt(at)
	dst.TouchAt(at)
}

// SetPrices replaces both prices. Only the owner may call it.
func (l *Ledger) SetPrices(ctx context.Context, caller types.Principal, sellPrice, buyPrice types.Amount) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return l.reject(ctx, OpSetPrices, caller, ErrUnauthorized)
	}
	l.sellPrice = sellPrice
	l.buyPrice = buyPrice
	l.mu.Unlock()

	l.plugins.EmitPricesSet(ctx, sellPrice, buyPrice)
	l.logger.Debug("prices set",
		"sell", sellPrice.String(),
		"buy", buyPrice.String(),
	)
	return nil
}

// FreezeAccount sets the frozen flag of target. Only the owner may call it.
// Every successful call is recorded, even when the flag does not change.
func (l *Ledger) FreezeAccount(ctx context.Context, caller, target types.Principal, frozen bool) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return l.reject(ctx, OpFreeze, caller, ErrUnauthorized)
	}

	now := l.now()
	acct := l.account(target, now)
	acct.Frozen = frozen
	acct.TouchAt(now)
	l.log.Append(notification.NewFrozenFunds(target, frozen, now))
	l.mu.Unlock()

	l.commit(ctx)
	l.logger.Debug("account freeze updated",
		"target", target,
		"frozen", frozen,
	)
	return nil
}

// MintToken creates amount new units and delivers them to target through the
// owner. Only the owner may call it. Two Transfer records are emitted: one
// from the zero principal to the owner, one from the owner to target.
func (l *Ledger) MintToken(ctx context.Context, caller, target types.Principal, amount types.Amount) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return l.reject(ctx, OpMint, caller, ErrUnauthorized)
	}

	// Every balance is bounded by the supply, so this also covers them.
	supply, err := l.totalSupply.Add(amount)
	if err != nil {
		l.mu.Unlock()
		return l.reject(ctx, OpMint, caller, err)
	}

	now := l.now()
	owner := l.owner

	ownerAcct := l.account(owner, now)
	ownerAcct.Balance += amount
	ownerAcct.TouchAt(now)
	l.totalSupply = supply

	// The owner is exempt from the frozen check here.
	l.move(owner, target, amount, now)

	l.log.Append(
		notification.NewTransfer(types.ZeroPrincipal, owner, amount, now),
		notification.NewTransfer(owner, target, amount, now),
	)
	l.mu.Unlock()

	l.commit(ctx)
	l.plugins.EmitMinted(ctx, target, amount, supply)
	l.logger.Debug("tokens minted",
		"target", target,
		"value", amount.String(),
		"total_supply", supply.String(),
	)
	return nil
}

// TransferOwnership hands the owner role to newOwner. Only the owner may call
// it. The previous owner keeps its balance.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner types.Principal) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return l.reject(ctx, OpTransferOwnership, caller, ErrUnauthorized)
	}
	prev := l.owner
	l.owner = newOwner
	l.mu.Unlock()

	l.plugins.EmitOwnershipTransferred(ctx, prev, newOwner)
	l.logger.Debug("ownership transferred",
		"from", prev,
		"to", newOwner,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// ID returns the ledger identifier.
func (l *Ledger) ID() id.LedgerID { return l.id }

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the display precision.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// TotalSupply returns the number of units in existence.
func (l *Ledger) TotalSupply() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

// Owner returns the current owner.
func (l *Ledger) Owner() types.Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}

// SellPrice returns the configured sell price.
func (l *Ledger) SellPrice() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sellPrice
}

// BuyPrice returns the configured buy price.
func (l *Ledger) BuyPrice() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buyPrice
}

// BalanceOf returns the balance of p, zero for unknown principals.
func (l *Ledger) BalanceOf(p types.Principal) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct := l.accounts[p]; acct != nil {
		return acct.Balance
	}
	return 0
}

// FrozenAccount reports whether p is frozen, false for unknown principals.
func (l *Ledger) FrozenAccount(p types.Principal) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct := l.accounts[p]; acct != nil {
		return acct.Frozen
	}
	return false
}

// Account returns a copy of the account record of p. The second result is
// false when no operation has touched p yet.
func (l *Ledger) Account(p types.Principal) (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct := l.accounts[p]; acct != nil {
		return *acct, true
	}
	return Account{Principal: p}, false
}

// Accounts returns copies of every known account sorted by principal.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountsLocked()
}

func (l *Ledger) accountsLocked() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Principal < out[j].Principal
	})
	return out
}

// Snapshot returns a consistent copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Snapshot{
		ID:            l.id,
		Name:          l.name,
		Symbol:        l.symbol,
		Decimals:      l.decimals,
		TotalSupply:   l.totalSupply,
		Owner:         l.owner,
		SellPrice:     l.sellPrice,
		BuyPrice:      l.buyPrice,
		Accounts:      l.accountsLocked(),
		Notifications: l.log.Len(),
		TakenAt:       l.now(),
	}
}

// Audit recomputes the sum of all balances and compares it with the total
// supply.
func (l *Ledger) Audit() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balances := make([]types.Amount, 0, len(l.accounts))
	for _, acct := range l.accounts {
		balances = append(balances, acct.Balance)
	}

	sum, err := types.Sum(balances...)
	if err != nil {
		return fmt.Errorf("%w: balances overflow", ErrInvariantViolated)
	}
	if sum != l.totalSupply {
		return fmt.Errorf("%w: balances sum to %s, total supply is %s",
			ErrInvariantViolated, sum, l.totalSupply)
	}
	return nil
}

// Notifications returns every notification after offset, in emission order.
func (l *Ledger) Notifications(offset int) []notification.Notification {
	return l.log.Since(offset)
}

// NotificationsByKind returns notifications of kind after offset, where offset
// counts records of that kind only.
func (l *Ledger) NotificationsByKind(kind notification.Kind, offset int) []notification.Notification {
	return l.log.SinceKind(kind, offset)
}

// NotificationCount returns the number of notifications emitted so far.
func (l *Ledger) NotificationCount() int {
	return l.log.Len()
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

// PendingJournal returns the number of notifications not yet persisted.
func (l *Ledger) PendingJournal() int {
	if l.store == nil {
		return 0
	}
	l.journalMu.Lock()
	defer l.journalMu.Unlock()
	return l.log.Len() - l.journalCursor
}

// Flush persists every pending notification to the journal store. It is a
// no-op without a store.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	l.journalMu.Lock()
	defer l.journalMu.Unlock()

	for {
		batch := l.log.Range(l.journalCursor, l.journalBatchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := l.flushBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// journalWorker persists notifications to the store.
func (l *Ledger) journalWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			// Stop performs the final flush.
			return

		case <-l.journalSignal:
			if l.PendingJournal() >= l.journalBatchSize {
				l.flushLogged(ctx)
			}

		case <-ticker.C:
			l.flushLogged(ctx)
		}
	}
}

func (l *Ledger) flushLogged(ctx context.Context) {
	if err := l.Flush(ctx); err != nil {
		l.logger.Error("failed to flush journal batch",
			"error", err,
			"pending", l.PendingJournal(),
		)
	}
}

// flushBatch must be called with journalMu held.
func (l *Ledger) flushBatch(ctx context.Context, batch []notification.Notification) error {
	start := time.Now()

	records := make([]*notification.Notification, len(batch))
	for i := range batch {
		records[i] = &batch[i]
	}

	if err := l.store.AppendNotifications(ctx, records); err != nil {
		return fmt.Errorf("token: append journal batch: %w", err)
	}
	l.journalCursor += len(batch)

	elapsed := time.Since(start)
	l.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	l.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// account returns the record of p, creating it on first use. Callers must
// hold the write lock.
func (l *Ledger) account(p types.Principal, at time.Time) *Account {
	acct := l.accounts[p]
	if acct == nil {
		acct = &Account{Entity: types.EntityAt(at), Principal: p}
		l.accounts[p] = acct
	}
	return acct
}

func (l *Ledger) now() time.Time { return l.clock().UTC() }

// commit signals the journal worker and delivers pending notifications to
// plugins. Callers must not hold the ledger lock.
func (l *Ledger) commit(ctx context.Context) {
	if l.store != nil {
		select {
		case l.journalSignal <- struct{}{}:
		default:
		}
	}
	l.dispatch(ctx)
}

// dispatch hands every log record past the dispatch cursor to plugins. The
// cursor and the delivery share dispatchMu, so plugins observe records in
// Seq order across concurrent committers.
func (l *Ledger) dispatch(ctx context.Context) {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()

	pending := l.log.Since(l.dispatchCursor)
	if len(pending) == 0 {
		return
	}
	l.dispatchCursor += len(pending)
	l.plugins.EmitNotifications(ctx, pending)
}

func (l *Ledger) reject(ctx context.Context, op string, caller types.Principal, err error) error {
	opErr := &OperationError{Op: op, Caller: caller, Err: err}
	l.plugins.EmitOperationRejected(ctx, op, caller, opErr)
	l.logger.Debug("operation rejected",
		"op", op,
		"caller", caller,
		"error", err,
	)
	return opErr
}
