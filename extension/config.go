package extension

import (
	"time"

	"github.com/xraph/token"
	"github.com/xraph/token/types"
)

// Config holds the token extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.token" or "token" keys).
type Config struct {
	// Name is the token display name.
	Name string `json:"name" mapstructure:"name" yaml:"name"`

	// Symbol is the token ticker.
	Symbol string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`

	// Decimals is the display precision (default: 18).
	Decimals uint8 `json:"decimals" mapstructure:"decimals" yaml:"decimals"`

	// InitialSupply is credited to Owner at construction, in smallest units.
	InitialSupply uint64 `json:"initial_supply" mapstructure:"initial_supply" yaml:"initial_supply"`

	// Owner is the initial owner principal.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// DisableJournal runs the ledger without a journal store.
	DisableJournal bool `json:"disable_journal" mapstructure:"disable_journal" yaml:"disable_journal"`

	// JournalBatchSize is the number of notifications written per store call
	// (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently pending notifications are
	// flushed to the store (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// PluginTimeout bounds every plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Decimals:             types.DefaultDecimals,
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
		PluginTimeout:        5 * time.Second,
	}
}

// Genesis converts the config into ledger genesis parameters.
func (c Config) Genesis() token.Genesis {
	return token.Genesis{
		Name:          c.Name,
		Symbol:        c.Symbol,
		Decimals:      c.Decimals,
		InitialSupply: types.Amount(c.InitialSupply),
		Owner:         types.Principal(c.Owner),
	}
}
