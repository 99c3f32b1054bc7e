package sigcodec_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"math/big"
	"testing"

	"github.com/zkattest/zkattest/sigcodec"
)

func derSignature(t *testing.T, r, s *big.Int) []byte {
	t.Helper()
	sig, err := asn1.Marshal(struct {
		R, S *big.Int
	}{r, s})
	if err != nil {
		t.Fatalf("marshal signature: %v", err)
	}
	return sig
}

func TestDecodeP256RoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := sha256.Sum256([]byte("payload"))
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rOut, sOut, err := sigcodec.Decode(derSignature(t, r, s), sigcodec.P256)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rOut) != 32 || len(sOut) != 32 {
		t.Fatalf("component widths = %d, %d, want 32", len(rOut), len(sOut))
	}
	if new(big.Int).SetBytes(rOut).Cmp(r) != 0 {
		t.Fatal("r mismatch")
	}

	want := sigcodec.NormalizeS(s, sigcodec.P256)
	if new(big.Int).SetBytes(sOut).Cmp(want) != 0 {
		t.Fatal("s not in low form")
	}
}

func TestDecodeHighSIsFlipped(t *testing.T) {
	curve := sigcodec.P256
	// Construct s deliberately above order/2
	s := new(big.Int).Add(curve.HalfOrder(), big.NewInt(12345))
	r := big.NewInt(7)

	_, sOut, err := sigcodec.Decode(derSignature(t, r, s), curve)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := new(big.Int).Sub(curve.Order, s)
	if new(big.Int).SetBytes(sOut).Cmp(want) != 0 {
		t.Fatalf("s = %x, want order-s", sOut)
	}
}

func TestNormalizeSIdempotent(t *testing.T) {
	for _, curve := range []sigcodec.Curve{sigcodec.P256, sigcodec.P384} {
		s := new(big.Int).Add(curve.HalfOrder(), big.NewInt(99))

		once := sigcodec.NormalizeS(s, curve)
		twice := sigcodec.NormalizeS(once, curve)

		if once.Cmp(twice) != 0 {
			t.Fatalf("%s: normalization not idempotent", curve.Name)
		}
		if once.Cmp(curve.HalfOrder()) > 0 {
			t.Fatalf("%s: normalized s exceeds order/2", curve.Name)
		}
	}
}

func TestNormalizeSLowFormUnchanged(t *testing.T) {
	s := big.NewInt(42)
	if sigcodec.NormalizeS(s, sigcodec.P384).Cmp(s) != 0 {
		t.Fatal("low-form s should be unchanged")
	}
}

func TestDecodeP384Widths(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := sha256.Sum256([]byte("tbs"))
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rOut, sOut, err := sigcodec.Decode(derSignature(t, r, s), sigcodec.P384)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rOut) != 48 || len(sOut) != 48 {
		t.Fatalf("component widths = %d, %d, want 48", len(rOut), len(sOut))
	}
}

func TestDecodeRejectsOversizedComponent(t *testing.T) {
	// 33-byte r cannot fit a P-256 component
	r := new(big.Int).Lsh(big.NewInt(1), 260)
	s := big.NewInt(1)

	_, _, err := sigcodec.Decode(derSignature(t, r, s), sigcodec.P256)
	if !errors.Is(err, sigcodec.ErrInvalidSignatureEncoding) {
		t.Fatalf("err = %v, want ErrInvalidSignatureEncoding", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x30},
		{0x02, 0x01, 0x01},             // not a sequence
		{0x30, 0x03, 0x04, 0x01, 0x00}, // wrong inner tag
	}
	for _, sig := range cases {
		if _, _, err := sigcodec.Decode(sig, sigcodec.P256); !errors.Is(err, sigcodec.ErrInvalidSignatureEncoding) {
			t.Fatalf("sig %x: err = %v, want ErrInvalidSignatureEncoding", sig, err)
		}
	}
}
