package relay

import (
	"fmt"
	"time"

	"github.com/tendermint/ibclight/types"
)

// Packet is an IBC packet together with the source height it was sent at.
type Packet struct {
	Sequence           uint64       `json:"sequence"`
	SourcePort         string       `json:"source_port"`
	SourceChannel      string       `json:"source_channel"`
	DestinationPort    string       `json:"destination_port"`
	DestinationChannel string       `json:"destination_channel"`
	Data               []byte       `json:"data"`
	TimeoutHeight      types.Height `json:"timeout_height"`
	// TimeoutTimestamp is in nanoseconds since the epoch; zero disables it.
	TimeoutTimestamp uint64 `json:"timeout_timestamp"`
	// CreationHeight is the source height the packet was sent at.
	CreationHeight uint64 `json:"creation_height"`
}

func (p Packet) String() string {
	return fmt.Sprintf("Packet{%d %s/%s -> %s/%s}", p.Sequence,
		p.SourcePort, p.SourceChannel, p.DestinationPort, p.DestinationChannel)
}

// TimeoutTime returns the timeout timestamp as a time.
func (p Packet) TimeoutTime() time.Time {
	return time.Unix(0, int64(p.TimeoutTimestamp)).UTC()
}

// TimeoutVariant says which of the packet timeouts elapsed on the sink.
type TimeoutVariant uint8

const (
	TimeoutHeight TimeoutVariant = iota + 1
	TimeoutTimestamp
	TimeoutBoth
)

func (v TimeoutVariant) String() string {
	switch v {
	case TimeoutHeight:
		return "height"
	case TimeoutTimestamp:
		return "timestamp"
	case TimeoutBoth:
		return "both"
	default:
		return "unknown"
	}
}

// TimeoutVariant returns which timeouts of p elapsed given the latest sink
// timestamp and height. A timestamp timeout elapses once the sink time reaches
// it.
func (p Packet) TimeoutVariant(sinkTimestamp time.Time, sinkHeight types.Height) (TimeoutVariant, error) {
	heightTimeout := !p.TimeoutHeight.IsZero() && p.TimeoutHeight.LTE(sinkHeight)
	timestampTimeout := p.TimeoutTimestamp != 0 && !sinkTimestamp.Before(p.TimeoutTime())

	switch {
	case heightTimeout && timestampTimeout:
		return TimeoutBoth, nil
	case heightTimeout:
		return TimeoutHeight, nil
	case timestampTimeout:
		return TimeoutTimestamp, nil
	default:
		return 0, fmt.Errorf("%w: %v at sink height %v and time %v", ErrPacketNotTimedOut, p, sinkHeight, sinkTimestamp)
	}
}
