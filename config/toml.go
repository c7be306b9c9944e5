package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	tmos "github.com/tendermint/ibclight/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root and data directories if they don't exist and
// writes the default config file if there is none.
func EnsureRoot(rootDir string) error {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		return err
	}
	return writeDefaultConfigFileIfNone(rootDir)
}

// ConfigFile returns the path of the config file in rootDir.
func ConfigFile(rootDir string) string {
	return filepath.Join(rootDir, defaultConfigFileName)
}

// WriteConfigFile renders config using the template and writes it to the
// config file in rootDir.
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(ConfigFile(rootDir))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	bz, err := cfg.renderTemplate()
	if err != nil {
		return err
	}
	return tmos.WriteFile(path, bz, 0644)
}

func (cfg *Config) renderTemplate() ([]byte, error) {
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return nil, err
	}
	// catch values that break the document, e.g. unescaped quotes
	var doc map[string]interface{}
	if _, err := toml.Decode(buffer.String(), &doc); err != nil {
		return nil, fmt.Errorf("rendered config is not valid toml: %w", err)
	}
	return buffer.Bytes(), nil
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	if !tmos.FileExists(ConfigFile(rootDir)) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/ibclight/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.ibclight" by default, but could be changed via $IBCLIGHT_HOME env
# variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# Database backend: goleveldb | memdb
# * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
#   - pure go
#   - stable
# * memdb
#   - nothing is persisted, for tests and one-off checks
db-backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db-dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging: debug | info | warn | error
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

#######################################################################
###                 Tendermint Client Configuration                 ###
#######################################################################
[tendermint]

# Fraction of the trusted validator set power that must have signed a
# non-adjacent header. Must be within [1/3, 1].
trust-level = "{{ .Tendermint.TrustLevel }}"

# Time a consensus state can be trusted for. Should be significantly less
# than the unbonding period.
trusting-period = "{{ .Tendermint.TrustingPeriod }}"

# Unbonding period of the tracked chain.
unbonding-period = "{{ .Tendermint.UnbondingPeriod }}"

# Tolerated clock drift between this tool and the tracked chain.
max-clock-drift = "{{ .Tendermint.MaxClockDrift }}"

#######################################################################
###                      Relay Configuration                        ###
#######################################################################
[relay]

# Expected block time of the source chain.
source-block-time = "{{ .Relay.SourceBlockTime }}"

# Expected block time of the sink chain.
sink-block-time = "{{ .Relay.SinkBlockTime }}"

# Delay period of the connection between the chains.
connection-delay = "{{ .Relay.ConnectionDelay }}"

#######################################################################
###                 Instrumentation Configuration                   ###
#######################################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`
