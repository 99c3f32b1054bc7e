package attest_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/zkattest/zkattest/cert"
	attest "github.com/zkattest/zkattest/circuits/attestation"
	"github.com/zkattest/zkattest/common"
	"github.com/zkattest/zkattest/der"
	"github.com/zkattest/zkattest/dsse"
	"github.com/zkattest/zkattest/proof"
	"github.com/zkattest/zkattest/witness"
)

const (
	testRepo   = "acme/widget"
	testCommit = "0123456789abcdef0123456789abcdef01234567"
	testDigest = "4f2c3a9d1be0aa19f1e2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718"
)

func claimExt(t *testing.T, n int, value string) pkix.Extension {
	t.Helper()
	v, err := asn1.MarshalWithParams(value, "utf8")
	if err != nil {
		t.Fatalf("marshal claim value: %v", err)
	}
	return pkix.Extension{
		Id:    asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 57264, 1, n},
		Value: v,
	}
}

func makeBundle(t *testing.T) ([]byte, *ecdsa.PublicKey) {
	t.Helper()

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	issuerKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate issuer key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sigstore-intermediate"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(10 * time.Minute),
		// The proving profile fixes SHA-256 for the body digest
		SignatureAlgorithm: x509.ECDSAWithSHA256,
		ExtraExtensions: []pkix.Extension{
			claimExt(t, 3, testCommit),
			claimExt(t, 5, testRepo),
		},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &leafKey.PublicKey, issuerKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	payload := fmt.Appendf(nil, `{"subject":[{"digest":{"sha256":"%s"}}]}`, testDigest)
	pae := dsse.PAE(dsse.PayloadTypeInToto, payload)
	digest := sha256.Sum256(pae)
	sig, err := ecdsa.SignASN1(rand.Reader, leafKey, digest[:])
	if err != nil {
		t.Fatalf("sign envelope: %v", err)
	}

	bundle := dsse.Bundle{
		DSSEEnvelope: &dsse.Envelope{
			Payload:     base64.StdEncoding.EncodeToString(payload),
			PayloadType: dsse.PayloadTypeInToto,
			Signatures:  []dsse.Signature{{Sig: base64.StdEncoding.EncodeToString(sig)}},
		},
		VerificationMaterial: dsse.VerificationMaterial{
			Certificate: &dsse.RawCert{RawBytes: base64.StdEncoding.EncodeToString(certDER)},
		},
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	return raw, &issuerKey.PublicKey
}

func TestAssign(t *testing.T) {
	raw, anchor := makeBundle(t)
	w, err := witness.NewBuilder(anchor).Build(raw)
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}

	assignment := attest.Assign(w)
	shape := w.Shape()
	if len(assignment.Envelope) != shape.EnvelopeLen ||
		len(assignment.SignedBody) != shape.SignedBodyLen ||
		len(assignment.RepoName) != shape.RepoNameLen {
		t.Fatal("assignment buffers not cut to true lengths")
	}

	template := attest.New(shape, anchor)
	if len(template.Envelope) != len(assignment.Envelope) ||
		len(template.SignedBody) != len(assignment.SignedBody) ||
		len(template.RepoName) != len(assignment.RepoName) {
		t.Fatal("template and assignment sizes disagree")
	}

	words := w.PublicWords()
	for i, word := range words {
		got, ok := assignment.Commitments[i].(*big.Int)
		if !ok || got.Cmp(word) != 0 {
			t.Fatalf("commitment word %d not assigned from the witness", i)
		}
	}
}

// TestCircuitProveAndVerify runs the whole circuit: compile for the
// bundle's shape, prove the witness, verify through the adapter.
func TestCircuitProveAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("proving takes minutes")
	}

	raw, anchor := makeBundle(t)
	w, err := witness.NewBuilder(anchor).Build(raw)
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}

	shape := w.Shape()
	assets := common.ShapeAssets(t.TempDir(), shape.Key())
	cs, pk, vk, err := common.InitCircuit(assets, true, attest.New(shape, anchor))
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}

	full, err := frontend.NewWitness(attest.Assign(w), ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	p, err := groth16.Prove(cs, pk, full)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	public, err := full.Public()
	if err != nil {
		t.Fatalf("extract public witness: %v", err)
	}
	if err := groth16.Verify(p, vk, public); err != nil {
		t.Fatalf("verify: %v", err)
	}

	adapter, err := proof.NewAdapter(vk, proof.LayoutPackedV1)
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	decoded, err := adapter.VerifyAndDecode(p, proof.PublicInputs(w))
	if err != nil {
		t.Fatalf("adapter verify: %v", err)
	}
	wantRepo := sha256.Sum256([]byte(testRepo))
	if fmt.Sprintf("%x", decoded.ArtifactHash) != testDigest ||
		fmt.Sprintf("%x", decoded.CommitSHA) != testCommit ||
		decoded.RepoHash != wantRepo {
		t.Fatal("decoded commitments do not match the attested values")
	}
}

// TestClaimValueLayout pins the fixed byte distances the circuit reads a
// claim with: OID tag, OCTET STRING wrapper, UTF8String header, value.
func TestClaimValueLayout(t *testing.T) {
	raw, _ := makeBundle(t)
	var bundle dsse.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	certDER, err := bundle.DecodeCertificate()
	if err != nil {
		t.Fatalf("decode certificate: %v", err)
	}
	parsed, err := cert.Extract(certDER)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	for _, tc := range []struct {
		number byte
		value  string
	}{
		{cert.ClaimCommit, testCommit},
		{cert.ClaimRepository, testRepo},
	} {
		claim, ok := parsed.Claim(tc.number)
		if !ok {
			t.Fatalf("claim %d missing", tc.number)
		}
		tbs := parsed.TBS
		off := claim.Offset
		if tbs[off] != 0x06 || tbs[off+11] != tc.number {
			t.Fatalf("claim %d: OID bytes not at offset", tc.number)
		}
		if tbs[off+12] != 0x04 || tbs[off+14] != 0x0c {
			t.Fatalf("claim %d: wrapper tags not at fixed distances", tc.number)
		}
		if int(tbs[off+13]) != int(tbs[off+15])+2 {
			t.Fatalf("claim %d: wrapper lengths inconsistent", tc.number)
		}
		if got := string(tbs[off+16 : off+16+int(tbs[off+15])]); got != tc.value {
			t.Fatalf("claim %d: value at fixed distance = %q", tc.number, got)
		}
	}
}

// TestSubjectKeyNavigation checks that walking the body structure the way
// the circuit does lands on the subject key BIT STRING.
func TestSubjectKeyNavigation(t *testing.T) {
	raw, _ := makeBundle(t)
	var bundle dsse.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	certDER, err := bundle.DecodeCertificate()
	if err != nil {
		t.Fatalf("decode certificate: %v", err)
	}
	parsed, err := cert.Extract(certDER)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	tbs := parsed.TBS

	// Body header, optional version, serial, then four SEQUENCEs
	idx, err := der.Enter(tbs, 0)
	if err != nil {
		t.Fatalf("enter body: %v", err)
	}
	if tbs[idx] == 0xA0 {
		if idx, err = der.Skip(tbs, idx); err != nil {
			t.Fatalf("skip version: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		if idx, err = der.Skip(tbs, idx); err != nil {
			t.Fatalf("skip field %d: %v", i, err)
		}
	}
	// Enter SubjectPublicKeyInfo, skip AlgorithmIdentifier
	if idx, err = der.Enter(tbs, idx); err != nil {
		t.Fatalf("enter spki: %v", err)
	}
	if idx, err = der.Skip(tbs, idx); err != nil {
		t.Fatalf("skip algorithm: %v", err)
	}

	if !bytes.Equal(tbs[idx:idx+4], []byte{0x03, 0x42, 0x00, 0x04}) {
		t.Fatalf("navigation did not land on the key BIT STRING: % x", tbs[idx:idx+4])
	}
	if !bytes.Equal(tbs[idx+4:idx+36], parsed.PubKeyX) {
		t.Fatal("X coordinate at navigated position mismatch")
	}
}
