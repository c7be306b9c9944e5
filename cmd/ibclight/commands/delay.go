package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendermint/ibclight/relay"
	"github.com/tendermint/ibclight/types"
)

type delayResult struct {
	On          string        `json:"on"`
	Delay       time.Duration `json:"delay"`
	BlockDelay  uint64        `json:"block_delay"`
	EarliestAt  time.Time     `json:"earliest_time"`
	Elapsed     bool          `json:"elapsed"`
	UpdateAt    types.Height  `json:"update_height"`
	CurrentAt   types.Height  `json:"current_height"`
	CurrentTime time.Time     `json:"current_time"`
}

// NewDelayCmd returns the command that checks whether the connection delay
// passed since a client update.
func NewDelayCmd(env *Env) *cobra.Command {
	var (
		updateTime, now             string
		updateHeight, currentHeight string
		on                          string
	)

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Check whether the connection delay passed since a client update",
		Long: `Check whether the connection delay passed since a client update.

Both the time delay and the block delay must pass. The block delay is the
connection delay divided by the expected block time of the chain hosting the
client, rounded up. The delay and block times are read from the [relay]
section of the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				relayConf = env.Config.Relay
				blockTime time.Duration
				res       = delayResult{On: on, Delay: relayConf.ConnectionDelay}
				err       error
			)
			switch on {
			case relay.VerifyDelayOnSource.String():
				blockTime = relayConf.SourceBlockTime
			case relay.VerifyDelayOnSink.String():
				blockTime = relayConf.SinkBlockTime
			default:
				return fmt.Errorf("--on must be %q or %q, got %q",
					relay.VerifyDelayOnSource, relay.VerifyDelayOnSink, on)
			}

			updatedAt, err := time.Parse(time.RFC3339Nano, updateTime)
			if err != nil {
				return fmt.Errorf("--update-time: %w", err)
			}
			res.CurrentTime = time.Now().UTC()
			if now != "" {
				if res.CurrentTime, err = time.Parse(time.RFC3339Nano, now); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			if res.UpdateAt, err = types.ParseHeight(updateHeight); err != nil {
				return fmt.Errorf("--update-height: %w", err)
			}
			if res.CurrentAt, err = types.ParseHeight(currentHeight); err != nil {
				return fmt.Errorf("--current-height: %w", err)
			}

			res.BlockDelay = relay.CalculateBlockDelay(relayConf.ConnectionDelay, blockTime)
			res.EarliestAt = updatedAt.Add(relayConf.ConnectionDelay)
			res.Elapsed = relay.HasDelayElapsed(res.CurrentTime, res.CurrentAt, updatedAt, res.UpdateAt,
				relayConf.ConnectionDelay, res.BlockDelay)

			env.Logger.Debug("checked connection delay", "on", on, "elapsed", res.Elapsed,
				"block_delay", res.BlockDelay)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&updateTime, "update-time", "", "time the client was updated (RFC3339)")
	cmd.Flags().StringVar(&updateHeight, "update-height", "", "host height the client was updated at ({revision}-{height})")
	cmd.Flags().StringVar(&currentHeight, "current-height", "", "current host height ({revision}-{height})")
	cmd.Flags().StringVar(&now, "now", "", "current host time (RFC3339), defaults to the local time")
	cmd.Flags().StringVar(&on, "on", relay.VerifyDelayOnSink.String(), "chain hosting the client: source or sink")
	for _, name := range []string{"update-time", "update-height", "current-height"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}
