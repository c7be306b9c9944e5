package commands

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	tmos "github.com/tendermint/ibclight/libs/os"
	"github.com/tendermint/ibclight/light/beefy"
)

type verifiedHeader struct {
	Hash   string `json:"hash"`
	ParaID uint32 `json:"para_id"`
	Header string `json:"header"`
}

// NewVerifyParachainsCmd returns the command that verifies a batch of
// parachain headers against the MMR root of a BEEFY client.
func NewVerifyParachainsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-parachains [client-id] [proof-file]",
		Short: "Verify parachain headers against a BEEFY client",
		Long: `Verify a JSON batch of parachain headers against the MMR root of a BEEFY
client and print the verified headers by hash. The client is not changed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proof := new(beefy.ParachainsUpdateProof)
			if err := readJSON(args[1], proof); err != nil {
				return err
			}

			v, _, closeDB, err := env.openVerifier()
			if err != nil {
				return err
			}
			defer closeDB()

			headers, err := v.VerifyParachainHeaders(cmd.Context(), args[0], proof)
			if err != nil {
				return err
			}

			res := make([]verifiedHeader, 0, len(headers))
			for hash, h := range headers {
				res = append(res, verifiedHeader{
					Hash:   hash.String(),
					ParaID: h.ParaID,
					Header: hex.EncodeToString(h.Header),
				})
			}
			sort.Slice(res, func(i, j int) bool { return res[i].Hash < res[j].Hash })
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

type decodedCommitment struct {
	beefy.SignedCommitment
	Outdated *bool `json:"outdated,omitempty"`
}

// NewDecodeCommitmentCmd returns the command that decodes a SCALE encoded
// signed commitment from a BEEFY justification.
func NewDecodeCommitmentCmd(env *Env) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "decode-commitment [file]",
		Short: "Decode a SCALE encoded BEEFY signed commitment",
		Long: `Decode a SCALE encoded BEEFY signed commitment, given as raw bytes or hex,
and print it as JSON. With --client the commitment is also checked for being
outdated against the BEEFY client.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := tmos.ReadFile(args[0])
			if err != nil {
				return err
			}
			if raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(bz)), "0x")); err == nil {
				bz = raw
			}

			sc, err := beefy.DecodeSignedCommitment(bz)
			if err != nil {
				return err
			}
			res := decodedCommitment{SignedCommitment: sc}

			if clientID != "" {
				v, _, closeDB, err := env.openVerifier()
				if err != nil {
					return err
				}
				defer closeDB()

				cs, err := v.ClientState(clientID)
				if err != nil {
					return err
				}
				state, ok := cs.(beefy.ClientState)
				if !ok {
					return errNotBeefy(clientID, cs)
				}
				outdated := beefy.IsOutdated(state, sc.Commitment)
				res.Outdated = &outdated
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "BEEFY client to check the commitment against")
	return cmd
}
