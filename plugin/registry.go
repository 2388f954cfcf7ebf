package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emission never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTransfer             []OnTransfer
	onFrozenFunds          []OnFrozenFunds
	onMinted               []OnMinted
	onPricesSet            []OnPricesSet
	onOwnershipTransferred []OnOwnershipTransferred
	onOperationRejected    []OnOperationRejected
	onJournalFlushed       []OnJournalFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnFrozenFunds); ok {
		r.onFrozenFunds = append(r.onFrozenFunds, v)
	}
	if v, ok := p.(OnMinted); ok {
		r.onMinted = append(r.onMinted, v)
	}
	if v, ok := p.(OnPricesSet); ok {
		r.onPricesSet = append(r.onPricesSet, v)
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnTransfer)(nil)).Elem(), "OnTransfer"},
	{reflect.TypeOf((*OnFrozenFunds)(nil)).Elem(), "OnFrozenFunds"},
	{reflect.TypeOf((*OnMinted)(nil)).Elem(), "OnMinted"},
	{reflect.TypeOf((*OnPricesSet)(nil)).Elem(), "OnPricesSet"},
	{reflect.TypeOf((*OnOwnershipTransferred)(nil)).Elem(), "OnOwnershipTransferred"},
	{reflect.TypeOf((*OnOperationRejected)(nil)).Elem(), "OnOperationRejected"},
	{reflect.TypeOf((*OnJournalFlushed)(nil)).Elem(), "OnJournalFlushed"},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.warn("OnInit", p.Name(), err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.warn("OnShutdown", p.Name(), err)
		}
	}
}

// EmitNotifications routes each committed notification to OnTransfer or
// OnFrozenFunds, preserving log order.
func (r *Registry) EmitNotifications(ctx context.Context, ns []notification.Notification) {
	if len(ns) == 0 {
		return
	}

	r.mu.RLock()
	transfers := r.onTransfer
	freezes := r.onFrozenFunds
	r.mu.RUnlock()

	for _, n := range ns {
		switch n.Kind {
		case notification.KindTransfer:
			for _, p := range transfers {
				if err := r.callWithTimeout(ctx, p.Name(), func() error {
					return p.OnTransfer(ctx, n)
				}); err != nil {
					r.warn("OnTransfer", p.Name(), err)
				}
			}
		case notification.KindFrozenFunds:
			for _, p := range freezes {
				if err := r.callWithTimeout(ctx, p.Name(), func() error {
					return p.OnFrozenFunds(ctx, n)
				}); err != nil {
					r.warn("OnFrozenFunds", p.Name(), err)
				}
			}
		}
	}
}

// EmitMinted emits a minted event.
func (r *Registry) EmitMinted(ctx context.Context, target types.Principal, amount, totalSupply types.Amount) {
	r.mu.RLock()
	plugins := r.onMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMinted(ctx, target, amount, totalSupply)
		}); err != nil {
			r.warn("OnMinted", p.Name(), err)
		}
	}
}

// EmitPricesSet emits a prices set event.
func (r *Registry) EmitPricesSet(ctx context.Context, sell, buy types.Amount) {
	r.mu.RLock()
	plugins := r.onPricesSet
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPricesSet(ctx, sell, buy)
		}); err != nil {
			r.warn("OnPricesSet", p.Name(), err)
		}
	}
}

// EmitOwnershipTransferred emits an ownership transferred event.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, prev, next types.Principal) {
	r.mu.RLock()
	plugins := r.onOwnershipTransferred
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOwnershipTransferred(ctx, prev, next)
		}); err != nil {
			r.warn("OnOwnershipTransferred", p.Name(), err)
		}
	}
}

// EmitOperationRejected emits an operation rejected event.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller types.Principal, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOperationRejected(ctx, op, caller, opErr)
		}); err != nil {
			r.warn("OnOperationRejected", p.Name(), err)
		}
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		}); err != nil {
			r.warn("OnJournalFlushed", p.Name(), err)
		}
	}
}

func (r *Registry) warn(hook, pluginName string, err error) {
	r.logger.Warn("plugin "+hook+" failed",
		"plugin", pluginName,
		"error", err,
	)
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
