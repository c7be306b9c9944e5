package commands

import (
	"encoding/json"
	"fmt"
	"io"

	tmos "github.com/tendermint/ibclight/libs/os"
	"github.com/tendermint/ibclight/light"
)

func readJSON(path string, v interface{}) error {
	bz, err := tmos.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bz, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bz))
	return err
}

func errNotBeefy(clientID string, cs light.ClientState) error {
	return fmt.Errorf("%w: %s is a %s client", light.ErrUnexpectedMessage, clientID, cs.ClientType())
}
