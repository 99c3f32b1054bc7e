// Package proof verifies attestation proofs and decodes their public
// inputs back into the commitments they bind.
package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	gnarkwitness "github.com/consensys/gnark/backend/witness"

	"github.com/zkattest/zkattest/witness"
)

var (
	ErrInvalidProof              = errors.New("invalid proof")
	ErrInvalidPublicInputsLength = errors.New("invalid public inputs length")
	ErrPublicInputOutOfRange     = errors.New("public input out of range")
	ErrUnsupportedLayout         = errors.New("unsupported public inputs layout")
)

// Layout names a public-input encoding. The packed form is canonical;
// the byte-per-element form exists only so inputs produced for it are
// rejected by count instead of being misread as packed words.
type Layout int

const (
	// LayoutPackedV1 packs the commitments into five field elements:
	// artifact digest high and low halves, repo digest halves, commit.
	LayoutPackedV1 Layout = iota
	// LayoutBytesV1 is the one-byte-per-element encoding, 84 elements.
	LayoutBytesV1
)

// Size returns the number of field elements the layout occupies.
func (l Layout) Size() int {
	switch l {
	case LayoutPackedV1:
		return witness.PublicWordCount
	case LayoutBytesV1:
		return 84
	default:
		return 0
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutPackedV1:
		return "packed-v1"
	case LayoutBytesV1:
		return "bytes-v1"
	default:
		return fmt.Sprintf("layout-%d", int(l))
	}
}

// DecodedAttestation is what a verified proof attests to.
type DecodedAttestation struct {
	ArtifactHash [32]byte
	RepoHash     [32]byte
	CommitSHA    [20]byte
}

// Adapter verifies proofs against one verifying key and one public-input
// layout. The two never mix: inputs whose element count does not match
// the adapter's layout are rejected, not reinterpreted.
type Adapter struct {
	vk     groth16.VerifyingKey
	layout Layout
}

// NewAdapter returns an adapter for the packed layout. The byte layout
// has no decoder; asking for it is a configuration error.
func NewAdapter(vk groth16.VerifyingKey, layout Layout) (*Adapter, error) {
	if layout != LayoutPackedV1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, layout)
	}
	return &Adapter{vk: vk, layout: layout}, nil
}

// PublicInputs returns the witness's commitments in the adapter's layout.
func PublicInputs(w *witness.Witness) []*big.Int {
	words := w.PublicWords()
	return words[:]
}

// Verify checks the proof against the public inputs.
func (a *Adapter) Verify(p groth16.Proof, inputs []*big.Int) error {
	if len(inputs) != a.layout.Size() {
		return fmt.Errorf("%w: got %d elements, layout %s wants %d",
			ErrInvalidPublicInputsLength, len(inputs), a.layout, a.layout.Size())
	}

	pub, err := gnarkwitness.New(ecc.BN254.ScalarField())
	if err != nil {
		return err
	}
	values := make(chan any, len(inputs))
	for _, v := range inputs {
		values <- v
	}
	close(values)
	if err := pub.Fill(len(inputs), 0, values); err != nil {
		return err
	}

	if err := groth16.Verify(p, a.vk, pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

// VerifyAndDecode verifies the proof and returns the attested values.
func (a *Adapter) VerifyAndDecode(p groth16.Proof, inputs []*big.Int) (*DecodedAttestation, error) {
	if err := a.Verify(p, inputs); err != nil {
		return nil, err
	}
	return a.DecodePublicInputs(inputs)
}

// DecodePublicInputs unpacks the commitment words without verifying
// anything. The element count must match the adapter's layout exactly.
func (a *Adapter) DecodePublicInputs(inputs []*big.Int) (*DecodedAttestation, error) {
	if len(inputs) != a.layout.Size() {
		return nil, fmt.Errorf("%w: got %d elements, layout %s wants %d",
			ErrInvalidPublicInputsLength, len(inputs), a.layout, a.layout.Size())
	}

	for i, bits := range []int{128, 128, 128, 128, 160} {
		if inputs[i].Sign() < 0 || inputs[i].BitLen() > bits {
			return nil, fmt.Errorf("%w: element %d", ErrPublicInputOutOfRange, i)
		}
	}

	var decoded DecodedAttestation
	inputs[0].FillBytes(decoded.ArtifactHash[:16])
	inputs[1].FillBytes(decoded.ArtifactHash[16:])
	inputs[2].FillBytes(decoded.RepoHash[:16])
	inputs[3].FillBytes(decoded.RepoHash[16:])
	inputs[4].FillBytes(decoded.CommitSHA[:])
	return &decoded, nil
}
