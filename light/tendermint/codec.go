package tendermint

import (
	"fmt"

	cmtproto "github.com/cometbft/cometbft/api/cometbft/types/v1"
	cmttypes "github.com/cometbft/cometbft/types"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tendermint/ibclight/types"
)

const (
	HeaderTypeURL       = "/ibc.lightclients.tendermint.v1.Header"
	MisbehaviourTypeURL = "/ibc.lightclients.tendermint.v1.Misbehaviour"
)

// ClientMessage is a Header or a Misbehaviour.
type ClientMessage interface {
	ClientType() types.ClientType
}

// field numbers of the ibc-go tendermint client messages
const (
	headerSignedHeader      protowire.Number = 1
	headerValidatorSet      protowire.Number = 2
	headerTrustedHeight     protowire.Number = 3
	headerTrustedValidators protowire.Number = 4

	heightRevisionNumber protowire.Number = 1
	heightRevisionHeight protowire.Number = 2

	misbehaviourClientID protowire.Number = 1
	misbehaviourHeader1  protowire.Number = 2
	misbehaviourHeader2  protowire.Number = 3

	anyTypeURL protowire.Number = 1
	anyValue   protowire.Number = 2
)

type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

// parseFields splits a protobuf message into its fields. Unknown wire types
// are skipped.
func parseFields(bz []byte) ([]field, error) {
	var fields []field
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrDecode, protowire.ParseError(n))
		}
		bz = bz[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(bz)
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(bz)
		default:
			n = protowire.ConsumeFieldValue(num, typ, bz)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
		}
		bz = bz[n:]
		fields = append(fields, f)
	}
	return fields, nil
}

func expectBytes(f field) error {
	if f.typ != protowire.BytesType {
		return fmt.Errorf("%w: field %d has wire type %d, expected bytes", ErrDecode, f.num, f.typ)
	}
	return nil
}

// EncodeHeader marshals the header as ibc.lightclients.tendermint.v1.Header.
func EncodeHeader(h *Header) ([]byte, error) {
	if err := h.ValidateBasic(); err != nil {
		return nil, err
	}

	shBz, err := h.SignedHeader.ToProto().Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal signed header: %w", err)
	}
	valsBz, err := marshalValidatorSet(h.ValidatorSet)
	if err != nil {
		return nil, fmt.Errorf("marshal validator set: %w", err)
	}
	trustedBz, err := marshalValidatorSet(h.TrustedValidators)
	if err != nil {
		return nil, fmt.Errorf("marshal trusted validators: %w", err)
	}

	var heightBz []byte
	heightBz = protowire.AppendTag(heightBz, heightRevisionNumber, protowire.VarintType)
	heightBz = protowire.AppendVarint(heightBz, h.TrustedHeight.RevisionNumber)
	heightBz = protowire.AppendTag(heightBz, heightRevisionHeight, protowire.VarintType)
	heightBz = protowire.AppendVarint(heightBz, h.TrustedHeight.RevisionHeight)

	var bz []byte
	bz = appendBytesField(bz, headerSignedHeader, shBz)
	bz = appendBytesField(bz, headerValidatorSet, valsBz)
	bz = appendBytesField(bz, headerTrustedHeight, heightBz)
	bz = appendBytesField(bz, headerTrustedValidators, trustedBz)
	return bz, nil
}

// DecodeHeader unmarshals an ibc.lightclients.tendermint.v1.Header.
func DecodeHeader(bz []byte) (*Header, error) {
	fields, err := parseFields(bz)
	if err != nil {
		return nil, err
	}

	h := &Header{}
	for _, f := range fields {
		switch f.num {
		case headerSignedHeader:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			var pb cmtproto.SignedHeader
			if err := pb.Unmarshal(f.bytes); err != nil {
				return nil, fmt.Errorf("%w: signed header: %v", ErrDecode, err)
			}
			if h.SignedHeader, err = cmttypes.SignedHeaderFromProto(&pb); err != nil {
				return nil, fmt.Errorf("%w: signed header: %v", ErrDecode, err)
			}
		case headerValidatorSet:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			if h.ValidatorSet, err = unmarshalValidatorSet(f.bytes); err != nil {
				return nil, err
			}
		case headerTrustedHeight:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			if h.TrustedHeight, err = decodeHeight(f.bytes); err != nil {
				return nil, err
			}
		case headerTrustedValidators:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			if h.TrustedValidators, err = unmarshalValidatorSet(f.bytes); err != nil {
				return nil, err
			}
		}
	}

	if err := h.ValidateBasic(); err != nil {
		return nil, err
	}
	return h, nil
}

// EncodeMisbehaviour marshals m as ibc.lightclients.tendermint.v1.Misbehaviour.
func EncodeMisbehaviour(m *Misbehaviour) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: misbehaviour", ErrMissingHeaderField)
	}
	h1, err := EncodeHeader(m.Header1)
	if err != nil {
		return nil, fmt.Errorf("header 1: %w", err)
	}
	h2, err := EncodeHeader(m.Header2)
	if err != nil {
		return nil, fmt.Errorf("header 2: %w", err)
	}

	var bz []byte
	if m.ClientID != "" {
		bz = protowire.AppendTag(bz, misbehaviourClientID, protowire.BytesType)
		bz = protowire.AppendString(bz, m.ClientID)
	}
	bz = appendBytesField(bz, misbehaviourHeader1, h1)
	bz = appendBytesField(bz, misbehaviourHeader2, h2)
	return bz, nil
}

// DecodeMisbehaviour unmarshals an ibc.lightclients.tendermint.v1.Misbehaviour.
func DecodeMisbehaviour(bz []byte) (*Misbehaviour, error) {
	fields, err := parseFields(bz)
	if err != nil {
		return nil, err
	}

	m := &Misbehaviour{}
	for _, f := range fields {
		if f.num < misbehaviourClientID || f.num > misbehaviourHeader2 {
			continue
		}
		if err := expectBytes(f); err != nil {
			return nil, err
		}
		switch f.num {
		case misbehaviourClientID:
			m.ClientID = string(f.bytes)
		case misbehaviourHeader1:
			if m.Header1, err = DecodeHeader(f.bytes); err != nil {
				return nil, fmt.Errorf("header 1: %w", err)
			}
		case misbehaviourHeader2:
			if m.Header2, err = DecodeHeader(f.bytes); err != nil {
				return nil, fmt.Errorf("header 2: %w", err)
			}
		}
	}

	if m.Header1 == nil {
		return nil, fmt.Errorf("%w: header 1", ErrMissingHeaderField)
	}
	if m.Header2 == nil {
		return nil, fmt.Errorf("%w: header 2", ErrMissingHeaderField)
	}
	return m, nil
}

// EncodeClientMessage wraps a Header or Misbehaviour in a google.protobuf.Any.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	var (
		typeURL string
		value   []byte
		err     error
	)
	switch msg := msg.(type) {
	case *Header:
		typeURL = HeaderTypeURL
		value, err = EncodeHeader(msg)
	case *Misbehaviour:
		typeURL = MisbehaviourTypeURL
		value, err = EncodeMisbehaviour(msg)
	default:
		return nil, fmt.Errorf("unexpected client message %T", msg)
	}
	if err != nil {
		return nil, err
	}

	var bz []byte
	bz = protowire.AppendTag(bz, anyTypeURL, protowire.BytesType)
	bz = protowire.AppendString(bz, typeURL)
	bz = appendBytesField(bz, anyValue, value)
	return bz, nil
}

// DecodeClientMessage decodes a google.protobuf.Any holding a Header or a
// Misbehaviour.
func DecodeClientMessage(bz []byte) (ClientMessage, error) {
	fields, err := parseFields(bz)
	if err != nil {
		return nil, err
	}

	var (
		typeURL string
		value   []byte
	)
	for _, f := range fields {
		switch f.num {
		case anyTypeURL:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			typeURL = string(f.bytes)
		case anyValue:
			if err := expectBytes(f); err != nil {
				return nil, err
			}
			value = f.bytes
		}
	}

	switch typeURL {
	case HeaderTypeURL:
		return DecodeHeader(value)
	case MisbehaviourTypeURL:
		return DecodeMisbehaviour(value)
	default:
		return nil, fmt.Errorf("%w: unknown client message type %q", ErrDecode, typeURL)
	}
}

func appendBytesField(bz []byte, num protowire.Number, value []byte) []byte {
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendBytes(bz, value)
}

func marshalValidatorSet(vals *cmttypes.ValidatorSet) ([]byte, error) {
	pb, err := vals.ToProto()
	if err != nil {
		return nil, err
	}
	return pb.Marshal()
}

func unmarshalValidatorSet(bz []byte) (*cmttypes.ValidatorSet, error) {
	var pb cmtproto.ValidatorSet
	if err := pb.Unmarshal(bz); err != nil {
		return nil, fmt.Errorf("%w: validator set: %v", ErrDecode, err)
	}
	vals, err := cmttypes.ValidatorSetFromProto(&pb)
	if err != nil {
		return nil, fmt.Errorf("%w: validator set: %v", ErrDecode, err)
	}
	return vals, nil
}

func decodeHeight(bz []byte) (types.Height, error) {
	fields, err := parseFields(bz)
	if err != nil {
		return types.Height{}, err
	}
	var h types.Height
	for _, f := range fields {
		if f.num != heightRevisionNumber && f.num != heightRevisionHeight {
			continue
		}
		if f.typ != protowire.VarintType {
			return types.Height{}, fmt.Errorf("%w: height field %d has wire type %d", ErrDecode, f.num, f.typ)
		}
		if f.num == heightRevisionNumber {
			h.RevisionNumber = f.varint
		} else {
			h.RevisionHeight = f.varint
		}
	}
	return h, nil
}
