package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, EnsureRoot(tmpDir))

	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFileName))
	require.NoError(t, err)
	checkConfig(t, string(data))

	ensureFiles(t, tmpDir, "data")

	// an existing file is kept
	require.NoError(t, os.WriteFile(ConfigFile(tmpDir), []byte("log-level = \"error\"\n"), 0600))
	require.NoError(t, EnsureRoot(tmpDir))
	data, err = os.ReadFile(ConfigFile(tmpDir))
	require.NoError(t, err)
	assert.Equal(t, "log-level = \"error\"\n", string(data))
}

func checkConfig(t *testing.T, configFile string) {
	t.Helper()

	// list of words we expect in the config
	var elems = []string{
		"db-backend",
		"db-dir",
		"log-level",
		"log-format",
		"[tendermint]",
		"trust-level",
		"trusting-period",
		"[relay]",
		"connection-delay",
		"[instrumentation]",
		"namespace",
	}
	for _, e := range elems {
		if !strings.Contains(configFile, e) {
			t.Errorf("config file was expected to contain %s but did not", e)
		}
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	want := TestConfig()
	want.Tendermint.TrustLevel = "2/3"
	want.Instrumentation.Prometheus = true
	require.NoError(t, WriteConfigFile(tmpDir, want))

	var doc struct {
		Tendermint struct {
			TrustLevel     string `toml:"trust-level"`
			TrustingPeriod string `toml:"trusting-period"`
		} `toml:"tendermint"`
		Instrumentation struct {
			Prometheus bool `toml:"prometheus"`
		} `toml:"instrumentation"`
	}
	_, err := toml.DecodeFile(ConfigFile(tmpDir), &doc)
	require.NoError(t, err)
	assert.Equal(t, "2/3", doc.Tendermint.TrustLevel)
	assert.Equal(t, "3h0m0s", doc.Tendermint.TrustingPeriod)
	assert.True(t, doc.Instrumentation.Prometheus)

	v := viper.New()
	v.SetConfigFile(ConfigFile(tmpDir))
	require.NoError(t, v.ReadInConfig())

	got := DefaultConfig()
	require.NoError(t, v.Unmarshal(got))
	assert.Equal(t, want, got)
	assert.NoError(t, got.ValidateBasic())
}

func TestWriteConfigFileRejectsInvalidToml(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tendermint.TrustLevel = "1/3\"\nbroken"
	require.Error(t, WriteConfigFile(t.TempDir(), cfg))
}
