package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/ibclight/libs/log"
	ibcmath "github.com/tendermint/ibclight/libs/math"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = log.LogFormatPlain
	// LogFormatJSON is a format for json output
	LogFormatJSON = log.LogFormatJSON
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultIBCLightDir = ".ibclight"
	defaultDataDir     = "data"

	defaultConfigFileName = "config.toml"
)

// Config defines the top level configuration of the ibclight tool.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Tendermint      *TendermintConfig      `mapstructure:"tendermint"`
	Relay           *RelayConfig           `mapstructure:"relay"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Tendermint:      DefaultTendermintConfig(),
		Relay:           DefaultRelayConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Tendermint:      TestTendermintConfig(),
		Relay:           TestRelayConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Tendermint.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [tendermint] section: %w", err)
	}
	if err := cfg.Relay.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [relay] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration of the tool.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		DBBackend: string(dbm.GoLevelDBBackend),
		DBPath:    defaultDataDir,
		LogLevel:  log.LogLevelInfo,
		LogFormat: LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = string(dbm.MemDBBackend)
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	switch dbm.BackendType(cfg.DBBackend) {
	case dbm.GoLevelDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("unsupported db-backend %q (must be %q or %q)",
			cfg.DBBackend, dbm.GoLevelDBBackend, dbm.MemDBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------
// TendermintConfig

// TendermintConfig defines the parameters of tendermint clients created by
// the tool.
type TendermintConfig struct {
	// Fraction of the trusted validator set power that must sign a
	// non-adjacent header, e.g. "1/3".
	TrustLevel string `mapstructure:"trust-level"`

	// Time a consensus state can be trusted for. Should be significantly less
	// than the unbonding period.
	TrustingPeriod time.Duration `mapstructure:"trusting-period"`

	// Unbonding period of the tracked chain.
	UnbondingPeriod time.Duration `mapstructure:"unbonding-period"`

	// Tolerated clock drift between the tool and the tracked chain.
	MaxClockDrift time.Duration `mapstructure:"max-clock-drift"`
}

// DefaultTendermintConfig returns a default configuration for tendermint
// clients.
func DefaultTendermintConfig() *TendermintConfig {
	return &TendermintConfig{
		TrustLevel:      "1/3",
		TrustingPeriod:  14 * 24 * time.Hour,
		UnbondingPeriod: 21 * 24 * time.Hour,
		MaxClockDrift:   10 * time.Second,
	}
}

// TestTendermintConfig returns a configuration for testing.
func TestTendermintConfig() *TendermintConfig {
	cfg := DefaultTendermintConfig()
	cfg.TrustingPeriod = 3 * time.Hour
	cfg.UnbondingPeriod = 4 * time.Hour
	return cfg
}

// ParseTrustLevel returns the trust level as a fraction.
func (cfg *TendermintConfig) ParseTrustLevel() (ibcmath.Fraction, error) {
	return ibcmath.ParseFraction(cfg.TrustLevel)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *TendermintConfig) ValidateBasic() error {
	lvl, err := cfg.ParseTrustLevel()
	if err != nil {
		return fmt.Errorf("trust-level: %w", err)
	}
	if err := lvl.ValidateTrustLevel(); err != nil {
		return fmt.Errorf("trust-level: %w", err)
	}
	if cfg.TrustingPeriod <= 0 {
		return errors.New("trusting-period must be positive")
	}
	if cfg.TrustingPeriod >= cfg.UnbondingPeriod {
		return errors.New("trusting-period must be less than unbonding-period")
	}
	if cfg.MaxClockDrift < 0 {
		return errors.New("max-clock-drift can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// RelayConfig

// RelayConfig defines the chain parameters used to resolve proof heights and
// connection delays.
type RelayConfig struct {
	// Expected block time of the source chain.
	SourceBlockTime time.Duration `mapstructure:"source-block-time"`

	// Expected block time of the sink chain.
	SinkBlockTime time.Duration `mapstructure:"sink-block-time"`

	// Delay period of the connection between the chains.
	ConnectionDelay time.Duration `mapstructure:"connection-delay"`
}

// DefaultRelayConfig returns a default relay configuration.
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		SourceBlockTime: 6 * time.Second,
		SinkBlockTime:   6 * time.Second,
	}
}

// TestRelayConfig returns a relay configuration for testing.
func TestRelayConfig() *RelayConfig {
	cfg := DefaultRelayConfig()
	cfg.SourceBlockTime = 10 * time.Second
	cfg.SinkBlockTime = 10 * time.Second
	cfg.ConnectionDelay = time.Minute
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *RelayConfig) ValidateBasic() error {
	if cfg.SourceBlockTime <= 0 {
		return errors.New("source-block-time must be positive")
	}
	if cfg.SinkBlockTime <= 0 {
		return errors.New("sink-block-time must be positive")
	}
	if cfg.ConnectionDelay < 0 {
		return errors.New("connection-delay can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "ibclight",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Namespace == "" {
		return errors.New("namespace can't be empty")
	}
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus-listen-addr can't be empty with prometheus enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
