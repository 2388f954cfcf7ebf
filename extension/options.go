package extension

import (
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/store"
)

// Option configures the token Forge extension.
type Option func(*Extension)

// WithStore sets the journal store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a token.Option through to the underlying ledger.
func WithLedgerOption(opt token.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, token.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithGenesis sets the genesis fields of the configuration.
func WithGenesis(g token.Genesis) Option {
	return func(e *Extension) {
		e.config.Name = g.Name
		e.config.Symbol = g.Symbol
		e.config.Decimals = g.Decimals
		e.config.InitialSupply = uint64(g.InitialSupply)
		e.config.Owner = string(g.Owner)
	}
}

// WithDisableJournal runs the ledger without a journal store.
func WithDisableJournal() Option {
	return func(e *Extension) { e.config.DisableJournal = true }
}

// WithRequireConfig requires config to be present in YAML files.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of notifications written per store call.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
