// Package attest defines the proving circuit over one attestation
// witness: both ECDSA signatures are verified in-circuit and the claim
// bytes the commitments are built from are re-read from the signed
// buffers at the offsets the witness supplies.
package attest

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/uints"

	"github.com/zkattest/zkattest/common"
	"github.com/zkattest/zkattest/witness"
)

// Circuit proves that a signed envelope and its signing certificate are
// valid under the baked-in trust anchor and that the public commitments
// are exactly the artifact digest, repository digest and commit the
// signed bytes carry. Buffer sizes are fixed at construction, one
// compiled circuit per witness shape.
type Circuit struct {
	// ===== PRIVATE INPUTS =====
	Envelope   []uints.U8 `gnark:",secret"`
	SignedBody []uints.U8 `gnark:",secret"`
	RepoName   []uints.U8 `gnark:",secret"`

	LeafSigR emulated.Element[emulated.P256Fr] `gnark:",secret"`
	LeafSigS emulated.Element[emulated.P256Fr] `gnark:",secret"`
	PubKeyX  emulated.Element[emulated.P256Fp] `gnark:",secret"`
	PubKeyY  emulated.Element[emulated.P256Fp] `gnark:",secret"`

	IssuerSigR emulated.Element[emulated.P384Fr] `gnark:",secret"`
	IssuerSigS emulated.Element[emulated.P384Fr] `gnark:",secret"`

	ArtifactOffset    frontend.Variable `gnark:",secret"`
	CommitClaimOffset frontend.Variable `gnark:",secret"`
	RepoClaimOffset   frontend.Variable `gnark:",secret"`

	// ===== PUBLIC INPUTS =====
	// Packed commitment words: artifact digest halves, repo digest
	// halves, commit.
	Commitments [witness.PublicWordCount]frontend.Variable `gnark:",public"`

	// Trust anchor coordinates, fixed as constants at compile time so
	// the verifying key itself binds the anchor.
	anchorX, anchorY *big.Int
}

// New returns a compile template sized for one witness shape.
func New(shape witness.Shape, anchor *ecdsa.PublicKey) *Circuit {
	return &Circuit{
		Envelope:   make([]uints.U8, shape.EnvelopeLen),
		SignedBody: make([]uints.U8, shape.SignedBodyLen),
		RepoName:   make([]uints.U8, shape.RepoNameLen),
		anchorX:    anchor.X,
		anchorY:    anchor.Y,
	}
}

// Assign builds the prover assignment for one witness. Padded buffers are
// cut back to their true lengths; the compiled circuit for the witness's
// shape expects exactly those sizes.
func Assign(w *witness.Witness) *Circuit {
	words := w.PublicWords()

	c := &Circuit{
		Envelope:          common.BytesToU8Array(w.Envelope[:w.EnvelopeLen]),
		SignedBody:        common.BytesToU8Array(w.SignedBody[:w.SignedBodyLen]),
		RepoName:          common.BytesToU8Array(w.RepoName[:w.RepoNameLen]),
		LeafSigR:          emulated.ValueOf[emulated.P256Fr](new(big.Int).SetBytes(w.LeafSigR)),
		LeafSigS:          emulated.ValueOf[emulated.P256Fr](new(big.Int).SetBytes(w.LeafSigS)),
		PubKeyX:           emulated.ValueOf[emulated.P256Fp](new(big.Int).SetBytes(w.PubKeyX)),
		PubKeyY:           emulated.ValueOf[emulated.P256Fp](new(big.Int).SetBytes(w.PubKeyY)),
		IssuerSigR:        emulated.ValueOf[emulated.P384Fr](new(big.Int).SetBytes(w.IssuerSigR)),
		IssuerSigS:        emulated.ValueOf[emulated.P384Fr](new(big.Int).SetBytes(w.IssuerSigS)),
		ArtifactOffset:    w.ArtifactOffset,
		CommitClaimOffset: w.CommitClaimOffset,
		RepoClaimOffset:   w.RepoClaimOffset,
	}
	for i, word := range words {
		c.Commitments[i] = word
	}
	return c
}

// Define implements the circuit logic.
func (c *Circuit) Define(api frontend.API) error {
	uapi, err := uints.New[uints.U32](api)
	if err != nil {
		return err
	}

	if err := c.verifyEnvelope(api); err != nil {
		return err
	}
	if err := c.verifyIssuer(api); err != nil {
		return err
	}
	if err := c.verifySubjectKey(api); err != nil {
		return err
	}
	if err := c.checkClaims(api, uapi); err != nil {
		return err
	}
	return nil
}
