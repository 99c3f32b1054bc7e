package cert_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/zkattest/zkattest/cert"
	"github.com/zkattest/zkattest/sigcodec"
)

var claimOIDPrefix = []byte{0x06, 0x0a, 0x2b, 0x06, 0x01, 0x04, 0x01, 0x83, 0xbf, 0x30, 0x01}

func claimOID(n int) asn1.ObjectIdentifier {
	return asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 57264, 1, n}
}

func utf8Value(t *testing.T, s string) []byte {
	t.Helper()
	v, err := asn1.MarshalWithParams(s, "utf8")
	if err != nil {
		t.Fatalf("marshal utf8: %v", err)
	}
	return v
}

// issueTestCert builds a leaf certificate shaped like the CI provider's:
// P-256 subject key, P-384 issuer, claim extensions for commit and repo.
func issueTestCert(t *testing.T, commit, repo string, extraExts []pkix.Extension) ([]byte, *ecdsa.PrivateKey, *ecdsa.PrivateKey) {
	t.Helper()

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	issuerKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate issuer key: %v", err)
	}

	exts := []pkix.Extension{}
	if commit != "" {
		exts = append(exts, pkix.Extension{Id: claimOID(3), Value: utf8Value(t, commit)})
	}
	if repo != "" {
		exts = append(exts, pkix.Extension{Id: claimOID(5), Value: utf8Value(t, repo)})
	}
	exts = append(exts, extraExts...)

	template := &x509.Certificate{
		SerialNumber:    big.NewInt(1),
		Subject:         pkix.Name{CommonName: "sigstore-intermediate"},
		NotBefore:       time.Now(),
		NotAfter:        time.Now().Add(10 * time.Minute),
		KeyUsage:        x509.KeyUsageDigitalSignature,
		ExtraExtensions: exts,
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, template, &leafKey.PublicKey, issuerKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return raw, leafKey, issuerKey
}

const testCommit = "0123456789abcdef0123456789abcdef01234567"

// TestClaimOIDEncoding pins the byte pattern the extractor searches for to
// the DER encoding of the real claim OID arc (1.3.6.1.4.1.57264.1).
func TestClaimOIDEncoding(t *testing.T) {
	raw, err := asn1.Marshal(claimOID(3))
	if err != nil {
		t.Fatalf("marshal OID: %v", err)
	}
	want := append(append([]byte{}, claimOIDPrefix...), 0x03)
	if !bytes.Equal(raw, want) {
		t.Fatalf("claim OID encodes as % x, search pattern expects % x", raw, want)
	}
}

func TestExtract(t *testing.T) {
	raw, leafKey, _ := issueTestCert(t, testCommit, "org/repo", nil)

	parsed, err := cert.Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	ref, err := x509.ParseCertificate(raw)
	if err != nil {
		t.Fatalf("parse reference cert: %v", err)
	}
	if !bytes.Equal(parsed.TBS, ref.RawTBSCertificate) {
		t.Fatal("TBS range does not match RawTBSCertificate")
	}
	if parsed.Digest != crypto.SHA384 {
		t.Fatalf("Digest = %v, want SHA384", parsed.Digest)
	}

	if new(big.Int).SetBytes(parsed.PubKeyX).Cmp(leafKey.PublicKey.X) != 0 ||
		new(big.Int).SetBytes(parsed.PubKeyY).Cmp(leafKey.PublicKey.Y) != 0 {
		t.Fatal("subject key coordinates mismatch")
	}

	// Issuer signature matches the certificate's, in low form
	var refSig struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(ref.Signature, &refSig); err != nil {
		t.Fatalf("unmarshal reference signature: %v", err)
	}
	if new(big.Int).SetBytes(parsed.IssuerSigR).Cmp(refSig.R) != 0 {
		t.Fatal("issuer r mismatch")
	}
	wantS := sigcodec.NormalizeS(refSig.S, sigcodec.P384)
	if new(big.Int).SetBytes(parsed.IssuerSigS).Cmp(wantS) != 0 {
		t.Fatal("issuer s not in low form")
	}
}

func TestExtractClaimValuesAndOffsets(t *testing.T) {
	raw, _, _ := issueTestCert(t, testCommit, "org/repo", nil)

	parsed, err := cert.Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	commit, ok := parsed.Claim(cert.ClaimCommit)
	if !ok || commit.Value != testCommit {
		t.Fatalf("commit claim = %+v", commit)
	}
	repo, ok := parsed.Claim(cert.ClaimRepository)
	if !ok || repo.Value != "org/repo" {
		t.Fatalf("repository claim = %+v", repo)
	}

	// Each offset points at the claim's OID encoding, not its value
	for _, c := range []cert.Claim{commit, repo} {
		at := parsed.TBS[c.Offset : c.Offset+len(claimOIDPrefix)]
		if !bytes.Equal(at, claimOIDPrefix) {
			t.Fatalf("offset %d does not point at claim OID prefix", c.Offset)
		}
		if parsed.TBS[c.Offset+len(claimOIDPrefix)] != c.Number {
			t.Fatalf("claim number byte mismatch at offset %d", c.Offset)
		}
	}
}

func TestExtractLegacyRawClaimValue(t *testing.T) {
	// Older provider certificates carry the claim string without a DER
	// string wrapper inside the extension value.
	raw, _, _ := issueTestCert(t, testCommit, "org/repo", []pkix.Extension{
		{Id: claimOID(1), Value: []byte("https://token.actions.example.com")},
	})

	parsed, err := cert.Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	issuer, ok := parsed.Claim(cert.ClaimOIDCIssuer)
	if !ok || issuer.Value != "https://token.actions.example.com" {
		t.Fatalf("issuer claim = %+v", issuer)
	}
}

func TestExtractCriticalClaimRejected(t *testing.T) {
	// A critical flag shifts the extension value past the position the
	// prover re-reads it from, so the claim is treated as unreadable.
	raw, _, _ := issueTestCert(t, "", "org/repo", []pkix.Extension{
		{Id: claimOID(3), Critical: true, Value: utf8Value(t, testCommit)},
	})

	_, err := cert.Extract(raw)
	var required *cert.RequiredClaimError
	if !errors.As(err, &required) || required.Claim != cert.ClaimCommit {
		t.Fatalf("err = %v, want RequiredClaimError{commit}", err)
	}
}

func TestExtractMissingRepositoryClaim(t *testing.T) {
	raw, _, _ := issueTestCert(t, testCommit, "", nil)

	_, err := cert.Extract(raw)
	var required *cert.RequiredClaimError
	if !errors.As(err, &required) {
		t.Fatalf("err = %v, want RequiredClaimError", err)
	}
	if required.Claim != cert.ClaimRepository {
		t.Fatalf("missing claim = %d, want repository", required.Claim)
	}
}

func TestExtractMissingCommitClaim(t *testing.T) {
	raw, _, _ := issueTestCert(t, "", "org/repo", nil)

	_, err := cert.Extract(raw)
	var required *cert.RequiredClaimError
	if !errors.As(err, &required) {
		t.Fatalf("err = %v, want RequiredClaimError", err)
	}
	if required.Claim != cert.ClaimCommit {
		t.Fatalf("missing claim = %d, want commit", required.Claim)
	}
}

func TestExtractNoP256Key(t *testing.T) {
	// A P-384 subject key does not carry the P-256 SPKI pattern
	leafKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuerKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate issuer key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "wrong-curve"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(10 * time.Minute),
	}
	raw, err := x509.CreateCertificate(rand.Reader, template, template, &leafKey.PublicKey, issuerKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	_, err = cert.Extract(raw)
	if !errors.Is(err, cert.ErrPublicKeyNotFound) {
		t.Fatalf("err = %v, want ErrPublicKeyNotFound", err)
	}
}

func TestExtractGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, {0x00}, {0x30, 0x02, 0x01}} {
		if _, err := cert.Extract(raw); err == nil {
			t.Fatalf("expected error for %x", raw)
		}
	}
}

func TestExtractBase64(t *testing.T) {
	if _, err := cert.ExtractBase64("!!!"); !errors.Is(err, cert.ErrMalformedCert) {
		t.Fatal("expected ErrMalformedCert for invalid base64")
	}
}
