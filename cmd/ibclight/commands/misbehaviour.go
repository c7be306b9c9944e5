package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	tmos "github.com/tendermint/ibclight/libs/os"
	"github.com/tendermint/ibclight/light/tendermint"
)

// NewCheckMisbehaviourCmd returns the command that checks a tendermint client
// message against the consensus states trusted by a client, without
// verifying signatures or changing the client.
func NewCheckMisbehaviourCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "check-misbehaviour [client-id] [message-file]",
		Short: "Check a tendermint header or misbehaviour for conflicts with a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := tmos.ReadFile(args[1])
			if err != nil {
				return err
			}
			msg, err := tendermint.DecodeClientMessage(bz)
			if err != nil {
				return err
			}

			v, _, closeDB, err := env.openVerifier()
			if err != nil {
				return err
			}
			defer closeDB()

			if _, err := v.ClientState(args[0]); err != nil {
				return err
			}
			found, err := v.CheckForMisbehaviour(args[0], msg)
			switch {
			case found:
				env.Logger.Info("misbehaviour found", "client", args[0], "err", err)
				_, perr := fmt.Fprintf(cmd.OutOrStdout(), "misbehaviour: %v\n", err)
				return perr
			case err != nil:
				return err
			default:
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no misbehaviour")
				return err
			}
		},
	}
}
