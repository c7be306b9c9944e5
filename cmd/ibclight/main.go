package main

import (
	"context"
	"os"
	"path/filepath"

	cmd "github.com/tendermint/ibclight/cmd/ibclight/commands"
	"github.com/tendermint/ibclight/config"
	"github.com/tendermint/ibclight/libs/cli"
	"github.com/tendermint/ibclight/libs/log"
	tmos "github.com/tendermint/ibclight/libs/os"
)

func main() {
	ctx, stop := tmos.TrapSignal(context.Background(), log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo))
	defer stop()

	env := cmd.NewEnv(config.DefaultConfig())
	rootCmd := cmd.NewRootCmd(env, os.ExpandEnv(filepath.Join("$HOME", config.DefaultIBCLightDir)))
	cli.Execute(ctx, rootCmd)
}
