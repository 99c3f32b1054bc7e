package proof_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"

	"github.com/zkattest/zkattest/proof"
	"github.com/zkattest/zkattest/witness"
)

func testWitness() *witness.Witness {
	w := &witness.Witness{}
	for i := range w.ArtifactDigest {
		w.ArtifactDigest[i] = byte(i)
	}
	w.RepoDigest = sha256.Sum256([]byte("acme/widget"))
	for i := range w.Commit {
		w.Commit[i] = byte(0xA0 + i)
	}
	return w
}

func TestLayoutSize(t *testing.T) {
	if proof.LayoutPackedV1.Size() != 5 {
		t.Fatalf("packed size = %d", proof.LayoutPackedV1.Size())
	}
	if proof.LayoutBytesV1.Size() != 84 {
		t.Fatalf("bytes size = %d", proof.LayoutBytesV1.Size())
	}
}

func TestNewAdapterRejectsByteLayout(t *testing.T) {
	if _, err := proof.NewAdapter(nil, proof.LayoutBytesV1); !errors.Is(err, proof.ErrUnsupportedLayout) {
		t.Fatalf("err = %v, want ErrUnsupportedLayout", err)
	}
}

func TestDecodePublicInputs(t *testing.T) {
	w := testWitness()
	adapter, err := proof.NewAdapter(nil, proof.LayoutPackedV1)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	decoded, err := adapter.DecodePublicInputs(proof.PublicInputs(w))
	if err != nil {
		t.Fatalf("DecodePublicInputs: %v", err)
	}
	if decoded.ArtifactHash != w.ArtifactDigest {
		t.Fatal("artifact hash did not round-trip")
	}
	if decoded.RepoHash != w.RepoDigest {
		t.Fatal("repo hash did not round-trip")
	}
	if decoded.CommitSHA != w.Commit {
		t.Fatal("commit did not round-trip")
	}
}

func TestDecodeRejectsByteLayoutInputCount(t *testing.T) {
	adapter, err := proof.NewAdapter(nil, proof.LayoutPackedV1)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	// Inputs shaped for the byte layout must never decode as packed words
	inputs := make([]*big.Int, proof.LayoutBytesV1.Size())
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i % 256))
	}
	if _, err := adapter.DecodePublicInputs(inputs); !errors.Is(err, proof.ErrInvalidPublicInputsLength) {
		t.Fatalf("err = %v, want ErrInvalidPublicInputsLength", err)
	}
	if err := adapter.Verify(nil, inputs); !errors.Is(err, proof.ErrInvalidPublicInputsLength) {
		t.Fatalf("Verify err = %v, want ErrInvalidPublicInputsLength", err)
	}
}

func TestDecodeRejectsOversizedElement(t *testing.T) {
	adapter, err := proof.NewAdapter(nil, proof.LayoutPackedV1)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	inputs := proof.PublicInputs(testWitness())
	inputs[0] = new(big.Int).Lsh(big.NewInt(1), 200)
	if _, err := adapter.DecodePublicInputs(inputs); !errors.Is(err, proof.ErrPublicInputOutOfRange) {
		t.Fatalf("err = %v, want ErrPublicInputOutOfRange", err)
	}
}

func TestPublicInputsLeadingZeros(t *testing.T) {
	w := testWitness()
	// A digest half that starts with zero bytes still decodes to 16 bytes
	w.ArtifactDigest[0] = 0
	w.ArtifactDigest[1] = 0

	adapter, _ := proof.NewAdapter(nil, proof.LayoutPackedV1)
	decoded, err := adapter.DecodePublicInputs(proof.PublicInputs(w))
	if err != nil {
		t.Fatalf("DecodePublicInputs: %v", err)
	}
	if !bytes.Equal(decoded.ArtifactHash[:], w.ArtifactDigest[:]) {
		t.Fatal("leading zeros lost in round trip")
	}
}
