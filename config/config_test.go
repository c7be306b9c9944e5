package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	ibcmath "github.com/tendermint/ibclight/libs/math"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Tendermint)
	assert.NotNil(cfg.Relay)
	assert.NotNil(cfg.Instrumentation)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	assert.Equal("/foo/data", cfg.DBDir())

	cfg.DBPath = "/opt/data"
	assert.Equal("/opt/data", cfg.DBDir())
}

func TestConfigValidateBasic(t *testing.T) {
	assert.NoError(t, DefaultConfig().ValidateBasic())
	assert.NoError(t, TestConfig().ValidateBasic())

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"log format", func(cfg *Config) { cfg.LogFormat = "xml" }},
		{"db backend", func(cfg *Config) { cfg.DBBackend = "cleveldb" }},
		{"trust level syntax", func(cfg *Config) { cfg.Tendermint.TrustLevel = "0.5" }},
		{"trust level too low", func(cfg *Config) { cfg.Tendermint.TrustLevel = "1/4" }},
		{"trust level above one", func(cfg *Config) { cfg.Tendermint.TrustLevel = "4/3" }},
		{"trusting period", func(cfg *Config) { cfg.Tendermint.TrustingPeriod = 0 }},
		{"trusting above unbonding", func(cfg *Config) {
			cfg.Tendermint.TrustingPeriod = cfg.Tendermint.UnbondingPeriod
		}},
		{"clock drift", func(cfg *Config) { cfg.Tendermint.MaxClockDrift = -time.Second }},
		{"source block time", func(cfg *Config) { cfg.Relay.SourceBlockTime = 0 }},
		{"sink block time", func(cfg *Config) { cfg.Relay.SinkBlockTime = -time.Second }},
		{"connection delay", func(cfg *Config) { cfg.Relay.ConnectionDelay = -time.Second }},
		{"namespace", func(cfg *Config) { cfg.Instrumentation.Namespace = "" }},
		{"listen addr", func(cfg *Config) {
			cfg.Instrumentation.Prometheus = true
			cfg.Instrumentation.PrometheusListenAddr = ""
		}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			assert.Error(t, cfg.ValidateBasic())
		})
	}
}

func TestParseTrustLevel(t *testing.T) {
	lvl, err := DefaultTendermintConfig().ParseTrustLevel()
	require.NoError(t, err)
	assert.Equal(t, ibcmath.Fraction{Numerator: 1, Denominator: 3}, lvl)
}

func TestDefaultDBProvider(t *testing.T) {
	cfg := TestConfig()
	cfg.SetRoot(t.TempDir())

	db, err := DefaultDBProvider(&DBContext{ID: "clients", Config: cfg})
	require.NoError(t, err)
	defer db.Close()

	_, ok := db.(*dbm.MemDB)
	assert.True(t, ok)
}
