package types

// ClientType discriminates the light client variants.
type ClientType string

const (
	Tendermint ClientType = "07-tendermint"
	Beefy      ClientType = "11-beefy"
)

func (t ClientType) String() string {
	return string(t)
}

// Valid reports whether t is a known client type.
func (t ClientType) Valid() bool {
	switch t {
	case Tendermint, Beefy:
		return true
	}
	return false
}
