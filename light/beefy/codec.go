package beefy

import (
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"

	"github.com/tendermint/ibclight/crypto"
	"github.com/tendermint/ibclight/crypto/sigverify"
)

// signedCommitment is the SCALE layout of a signed commitment: one optional
// signature per authority.
type signedCommitment struct {
	Commitment Commitment
	Signatures []*[sigverify.RecoverableSignatureSize]byte
}

// paraHead is the SCALE layout of a parachain heads merkle leaf.
type paraHead struct {
	ParaID uint32
	Head   []byte
}

// EncodeCommitment returns the SCALE encoding of c.
func EncodeCommitment(c Commitment) ([]byte, error) {
	bz, err := scale.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode commitment: %w", err)
	}
	return bz, nil
}

// CommitmentHash returns the keccak-256 hash of the SCALE encoded commitment,
// the digest signed by authorities.
func CommitmentHash(c Commitment) (crypto.Hash, error) {
	bz, err := EncodeCommitment(c)
	if err != nil {
		return crypto.Hash{}, err
	}
	return crypto.Keccak256(bz), nil
}

// EncodeMmrLeaf returns the SCALE encoding of leaf.
func EncodeMmrLeaf(leaf MmrLeaf) ([]byte, error) {
	bz, err := scale.Marshal(leaf)
	if err != nil {
		return nil, fmt.Errorf("encode mmr leaf: %w", err)
	}
	return bz, nil
}

// LeafHash returns the keccak-256 hash of the SCALE encoded leaf.
func LeafHash(leaf MmrLeaf) (crypto.Hash, error) {
	bz, err := EncodeMmrLeaf(leaf)
	if err != nil {
		return crypto.Hash{}, err
	}
	return crypto.Keccak256(bz), nil
}

// EncodeParaHead returns the parachain heads merkle leaf of a parachain.
func EncodeParaHead(paraID uint32, header []byte) ([]byte, error) {
	bz, err := scale.Marshal(paraHead{ParaID: paraID, Head: header})
	if err != nil {
		return nil, fmt.Errorf("encode para head: %w", err)
	}
	return bz, nil
}

// EncodeSignedCommitment returns the SCALE encoding of sc for an authority
// set of setLen authorities.
func EncodeSignedCommitment(sc SignedCommitment, setLen uint32) ([]byte, error) {
	raw := signedCommitment{
		Commitment: sc.Commitment,
		Signatures: make([]*[sigverify.RecoverableSignatureSize]byte, setLen),
	}
	for _, sig := range sc.Signatures {
		if sig.AuthorityIndex >= setLen {
			return nil, fmt.Errorf("%w: authority index %d out of range %d", ErrInvalidMmrUpdate, sig.AuthorityIndex, setLen)
		}
		if len(sig.Signature) != sigverify.RecoverableSignatureSize {
			return nil, fmt.Errorf("%w: signature of authority %d has %d bytes",
				ErrInvalidMmrUpdate, sig.AuthorityIndex, len(sig.Signature))
		}
		var s [sigverify.RecoverableSignatureSize]byte
		copy(s[:], sig.Signature)
		raw.Signatures[sig.AuthorityIndex] = &s
	}

	bz, err := scale.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode signed commitment: %w", err)
	}
	return bz, nil
}

// DecodeSignedCommitment decodes a SCALE encoded signed commitment, as found
// in BEEFY justifications. Absent signatures are dropped.
func DecodeSignedCommitment(bz []byte) (SignedCommitment, error) {
	var raw signedCommitment
	if err := scale.Unmarshal(bz, &raw); err != nil {
		return SignedCommitment{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	sc := SignedCommitment{Commitment: raw.Commitment}
	for i, sig := range raw.Signatures {
		if sig == nil {
			continue
		}
		sc.Signatures = append(sc.Signatures, CommitmentSignature{
			AuthorityIndex: uint32(i),
			Signature:      append([]byte(nil), sig[:]...),
		})
	}
	return sc, nil
}
