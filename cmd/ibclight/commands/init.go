package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/ibclight/config"
)

// NewInitCmd returns the command that creates the home directory with a
// default config file.
func NewInitCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the home directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.EnsureRoot(env.Config.RootDir); err != nil {
				return err
			}
			env.Logger.Info("initialized home directory", "home", env.Config.RootDir,
				"config", config.ConfigFile(env.Config.RootDir))
			return nil
		},
	}
}
