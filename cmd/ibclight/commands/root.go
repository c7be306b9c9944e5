package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/ibclight/config"
	"github.com/tendermint/ibclight/libs/cli"
	"github.com/tendermint/ibclight/libs/log"
	"github.com/tendermint/ibclight/light"
	"github.com/tendermint/ibclight/light/store"
)

const (
	// EnvPrefix is the prefix of the environment variables read by the tool.
	EnvPrefix = "IBCLIGHT"

	clientsDBName = "clients"
	ctxTimeout    = 4 * time.Second
)

// Env is shared by all commands. It is filled in by the root command before
// a subcommand runs.
type Env struct {
	Config *config.Config
	Logger log.Logger

	metrics       *light.Metrics
	metricsServer *http.Server
	dbProvider    config.DBProvider
}

// NewEnv returns an Env with conf as the starting configuration.
func NewEnv(conf *config.Config) *Env {
	return &Env{
		Config:     conf,
		Logger:     log.NewNopLogger(),
		metrics:    light.NopMetrics(),
		dbProvider: config.DefaultDBProvider,
	}
}

// ParseConfig retrieves the default environment configuration,
// sets up the root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point of the tool.
func RootCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ibclight",
		Short: "Verify IBC light client updates of Tendermint and BEEFY chains offline",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			conf, err := ParseConfig(env.Config)
			if err != nil {
				return err
			}
			env.Config = conf

			logger, err := log.NewDefaultLoggerWithWriter(cmd.ErrOrStderr(), conf.LogFormat, conf.LogLevel)
			if err != nil {
				return err
			}
			env.Logger = logger.With("module", "main")

			return env.startMetrics()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.stopMetrics()
		},
	}
	cmd.PersistentFlags().String("log-level", env.Config.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", env.Config.LogFormat, "log format: plain or json")
	cmd.PersistentFlags().String("db-backend", env.Config.DBBackend, "database backend: goleveldb or memdb")
	return cmd
}

// NewRootCmd returns the root command with every subcommand attached and the
// home and trace flags bound.
func NewRootCmd(env *Env, defaultHome string) *cobra.Command {
	root := RootCommand(env)
	root.AddCommand(
		NewInitCmd(env),
		NewCreateClientCmd(env),
		NewUpdateClientCmd(env),
		NewShowClientCmd(env),
		NewVerifyParachainsCmd(env),
		NewCheckMisbehaviourCmd(env),
		NewDecodeCommitmentCmd(env),
		NewDelayCmd(env),
		VersionCmd,
	)
	return cli.PrepareBaseCmd(root, EnvPrefix, defaultHome)
}

// startMetrics serves Prometheus metrics if enabled. Metrics are registered
// once per process.
func (env *Env) startMetrics() error {
	instr := env.Config.Instrumentation
	if !instr.Prometheus || env.metricsServer != nil {
		return nil
	}

	env.metrics = light.PrometheusMetrics(instr.Namespace)
	env.metricsServer = &http.Server{
		Addr:              instr.PrometheusListenAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: ctxTimeout,
	}
	go func(srv *http.Server, logger log.Logger) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}(env.metricsServer, env.Logger)
	return nil
}

func (env *Env) stopMetrics() error {
	if env.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()
	return env.metricsServer.Shutdown(ctx)
}

// openVerifier opens the client database and returns a verifier of its
// clients. The returned function closes the database.
func (env *Env) openVerifier() (*light.Verifier, *store.Store, func() error, error) {
	db, err := env.dbProvider(&config.DBContext{ID: clientsDBName, Config: env.Config})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open client db: %w", err)
	}

	s := store.New(db)
	v := light.NewVerifier(store.NewArena(s),
		light.Logger(env.Logger.With("module", "light")),
		light.WithMetrics(env.metrics),
	)
	return v, s, db.Close, nil
}
