package commands

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/ibclight/config"
	tmos "github.com/tendermint/ibclight/libs/os"
	"github.com/tendermint/ibclight/light"
	"github.com/tendermint/ibclight/light/beefy"
	"github.com/tendermint/ibclight/light/store"
	"github.com/tendermint/ibclight/light/tendermint"
	"github.com/tendermint/ibclight/types"
)

// NewCreateClientCmd returns the command that creates clients from trusted
// genesis data.
func NewCreateClientCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-client",
		Short: "Create a light client from trusted data",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "tendermint [client-id] [header-file]",
			Short: "Create a tendermint client trusting a header",
			Long: `Create a tendermint client trusting a header.

The header file holds a google.protobuf.Any wrapping an
ibc.lightclients.tendermint.v1.Header. The header must be signed by more than
2/3 of its own validator set. Trust parameters are taken from the [tendermint]
section of the config.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				bz, err := tmos.ReadFile(args[1])
				if err != nil {
					return err
				}
				msg, err := tendermint.DecodeClientMessage(bz)
				if err != nil {
					return err
				}
				h, ok := msg.(*tendermint.Header)
				if !ok {
					return fmt.Errorf("%w: expected a header, got %T", light.ErrUnexpectedMessage, msg)
				}
				cs, consensus, err := tendermintGenesis(env.Config.Tendermint, h)
				if err != nil {
					return err
				}
				return createClient(cmd, env, args[0], cs, consensus)
			},
		},
		&cobra.Command{
			Use:   "beefy [client-id] [state-file]",
			Short: "Create a BEEFY client from a JSON client state",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var cs beefy.ClientState
				if err := readJSON(args[1], &cs); err != nil {
					return err
				}
				return createClient(cmd, env, args[0], cs)
			},
		},
	)
	return cmd
}

func createClient(cmd *cobra.Command, env *Env, clientID string, cs light.ClientState,
	consensus ...store.ConsensusEntry) error {
	v, _, closeDB, err := env.openVerifier()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := v.CreateClient(clientID, cs, consensus...); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), cs)
}

// tendermintGenesis returns the client state and consensus state trusting
// h. h must be signed by more than 2/3 of its validators.
func tendermintGenesis(conf *config.TendermintConfig, h *tendermint.Header) (tendermint.ClientState,
	store.ConsensusEntry, error) {
	sh := h.SignedHeader
	if err := sh.ValidateBasic(sh.ChainID); err != nil {
		return tendermint.ClientState{}, store.ConsensusEntry{}, tendermint.ErrInvalidHeader{Reason: err}
	}
	if !bytes.Equal(h.ValidatorSet.Hash(), sh.ValidatorsHash) {
		return tendermint.ClientState{}, store.ConsensusEntry{}, tendermint.ErrInvalidHeader{
			Reason: fmt.Errorf("validators hash %X does not match the validator set %X",
				sh.ValidatorsHash, h.ValidatorSet.Hash()),
		}
	}
	if err := tendermint.VerifyCommit(sh.ChainID, h.ValidatorSet, sh.Commit.BlockID, sh.Height, sh.Commit); err != nil {
		return tendermint.ClientState{}, store.ConsensusEntry{}, err
	}

	trustLevel, err := conf.ParseTrustLevel()
	if err != nil {
		return tendermint.ClientState{}, store.ConsensusEntry{}, err
	}
	cs := tendermint.ClientState{
		ChainID:         sh.ChainID,
		TrustLevel:      trustLevel,
		TrustingPeriod:  conf.TrustingPeriod,
		UnbondingPeriod: conf.UnbondingPeriod,
		MaxClockDrift:   conf.MaxClockDrift,
		LatestHeight:    h.Height(),
	}
	return cs, store.ConsensusEntry{Height: h.Height(), State: h.ConsensusState()}, nil
}

// NewUpdateClientCmd returns the command that verifies client messages and
// stores the resulting client state.
func NewUpdateClientCmd(env *Env) *cobra.Command {
	var skipOutdated bool

	cmd := &cobra.Command{
		Use:   "update [client-id] [message-file...]",
		Short: "Verify client messages and update the client",
		Long: `Verify client messages in order and update the client.

Tendermint clients take files holding a google.protobuf.Any wrapping an
ibc.lightclients.tendermint.v1.Header or Misbehaviour. BEEFY clients take JSON
MMR update proofs.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, closeDB, err := env.openVerifier()
			if err != nil {
				return err
			}
			defer closeDB()

			clientID := args[0]
			cs, err := v.ClientState(clientID)
			if err != nil {
				return err
			}

			for _, file := range args[1:] {
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				msg, err := readClientMessage(cs.ClientType(), file)
				if err != nil {
					return err
				}
				if skipOutdated && outdated(cs, msg) {
					env.Logger.Info("skipping outdated commitment", "client", clientID, "file", file)
					continue
				}

				next, err := v.UpdateClient(cmd.Context(), clientID, msg)
				var misbehaviour light.ErrMisbehaviour
				if errors.As(err, &misbehaviour) {
					if perr := printJSON(cmd.OutOrStdout(), next); perr != nil {
						return perr
					}
					return err
				}
				if err != nil {
					return fmt.Errorf("%s: %w (%v)", file, err, light.Classify(err))
				}
				cs = next
			}
			return printJSON(cmd.OutOrStdout(), cs)
		},
	}
	cmd.Flags().BoolVar(&skipOutdated, "skip-outdated", false,
		"skip BEEFY commitments the client is already past instead of failing")
	return cmd
}

func readClientMessage(clientType types.ClientType, file string) (light.ClientMessage, error) {
	switch clientType {
	case types.Tendermint:
		bz, err := tmos.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return tendermint.DecodeClientMessage(bz)
	case types.Beefy:
		update := new(beefy.MmrUpdateProof)
		if err := readJSON(file, update); err != nil {
			return nil, err
		}
		return update, nil
	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownClientType, clientType)
	}
}

func outdated(cs light.ClientState, msg light.ClientMessage) bool {
	state, ok := cs.(beefy.ClientState)
	if !ok {
		return false
	}
	update, ok := msg.(*beefy.MmrUpdateProof)
	return ok && beefy.IsOutdated(state, update.SignedCommitment.Commitment)
}

type clientInfo struct {
	ClientID         string            `json:"client_id"`
	ClientType       types.ClientType  `json:"client_type"`
	ClientState      light.ClientState `json:"client_state"`
	Frozen           bool              `json:"frozen"`
	ConsensusHeights []types.Height    `json:"consensus_heights,omitempty"`
}

// NewShowClientCmd returns the command that prints a stored client.
func NewShowClientCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [client-id]",
		Short: "Show the state of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, s, closeDB, err := env.openVerifier()
			if err != nil {
				return err
			}
			defer closeDB()

			cs, err := v.ClientState(args[0])
			if err != nil {
				return err
			}
			heights, err := s.ConsensusHeights(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), clientInfo{
				ClientID:         args[0],
				ClientType:       cs.ClientType(),
				ClientState:      cs,
				Frozen:           cs.IsFrozen(),
				ConsensusHeights: heights,
			})
		},
	}
}
