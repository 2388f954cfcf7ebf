// Package extension provides the Forge extension adapter for the token ledger.
//
// It implements the forge.Extension interface to integrate a token.Ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.token" or "token" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/token"
	"github.com/xraph/token/observability"
	"github.com/xraph/token/store"
	"github.com/xraph/token/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "token"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Single-asset token ledger with auditable notifications"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts a token.Ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *token.Ledger
	store      store.Store
	ledgerOpts []token.Option
}

// New creates a new token Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *token.Ledger { return e.ledger }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger, and registers it in the DI container. Ledger metrics
// are recorded on the app's metrics collector.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if m := fapp.Metrics(); m != nil {
		e.ledgerOpts = append(e.ledgerOpts, token.WithPlugin(
			observability.NewMetricsExtension(observability.NewGoUtilsFactory(m)),
		))
	}

	if err := e.build(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*token.Ledger, error) {
		return e.ledger, nil
	})
}

// build constructs the ledger from the resolved config.
func (e *Extension) build() error {
	if e.config.Owner == "" {
		return errors.New("token: extension config requires an owner")
	}

	if e.store == nil && !e.config.DisableJournal {
		e.store = memory.New()
	}

	e.ledger = token.New(e.config.Genesis(), e.buildLedgerOpts()...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("token: extension not initialized")
	}

	if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.Logger().Info("token: ledger started",
		forge.F("ledger_id", e.ledger.ID().String()),
		forge.F("symbol", e.ledger.Symbol()),
	)

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. It pings the journal store and
// verifies the supply invariant.
func (e *Extension) Health(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("token: ledger not initialized")
	}
	if err := e.ledger.Ping(ctx); err != nil {
		return err
	}
	return e.ledger.Audit()
}

// buildLedgerOpts constructs token.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []token.Option {
	opts := make([]token.Option, 0, len(e.ledgerOpts)+3)

	if e.store != nil && !e.config.DisableJournal {
		opts = append(opts,
			token.WithStore(e.store),
			token.WithJournalConfig(e.config.JournalBatchSize, e.config.JournalFlushInterval),
		)
	}

	if e.config.PluginTimeout > 0 {
		opts = append(opts, token.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Pass-through options last so they win.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("token: configuration is required but not found in config files; " +
				"ensure 'extensions.token' or 'token' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("token: configuration loaded",
		forge.F("name", e.config.Name),
		forge.F("symbol", e.config.Symbol),
		forge.F("decimals", e.config.Decimals),
		forge.F("owner", e.config.Owner),
		forge.F("disable_journal", e.config.DisableJournal),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.token", "token"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("token: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("token: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Decimals == 0 {
		cfg.Decimals = defaults.Decimals
	}
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableJournal {
		yamlConfig.DisableJournal = true
	}

	if yamlConfig.Name == "" {
		yamlConfig.Name = programmaticConfig.Name
	}
	if yamlConfig.Symbol == "" {
		yamlConfig.Symbol = programmaticConfig.Symbol
	}
	if yamlConfig.Owner == "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.Decimals == 0 {
		yamlConfig.Decimals = programmaticConfig.Decimals
	}
	if yamlConfig.InitialSupply == 0 {
		yamlConfig.InitialSupply = programmaticConfig.InitialSupply
	}
	if yamlConfig.JournalBatchSize == 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
