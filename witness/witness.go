// Package witness turns a parsed attestation bundle into the fixed-shape
// input the proving circuit consumes: padded byte buffers with true
// lengths, the offsets of every value the circuit re-reads, and the three
// public commitments. Build also renders the cryptographic validity
// judgment itself; a bundle whose signatures do not verify never becomes
// a witness.
package witness

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	_ "crypto/sha512" // registers SHA-384 for crypto.Hash.New
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/zkattest/zkattest/cert"
	"github.com/zkattest/zkattest/dsse"
	"github.com/zkattest/zkattest/sigcodec"
)

var (
	ErrArtifactMarkerNotFound = errors.New("artifact marker not found in envelope")
	ErrLeafSignatureInvalid   = errors.New("leaf signature invalid")
	ErrIssuerSignatureInvalid = errors.New("issuer signature invalid")
	ErrNoTrustAnchor          = errors.New("no trust anchor configured")
	ErrClaimMismatch          = errors.New("statement and certificate claims disagree")
)

// CapacityError reports an input that does not fit its padded buffer.
type CapacityError struct {
	Field string
	Len   int
	Cap   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s is %d bytes, capacity %d", e.Field, e.Len, e.Cap)
}

// Capacities are the padded buffer sizes. The circuit is compiled against
// the true lengths, so capacities only bound what a bundle may carry.
type Capacities struct {
	Envelope   int
	SignedBody int
	RepoName   int
}

// DefaultCapacities fits every bundle the CI provider currently issues.
var DefaultCapacities = Capacities{
	Envelope:   2560,
	SignedBody: 2048,
	RepoName:   64,
}

// Witness is the full circuit input for one attestation bundle. Buffers
// are padded to their capacity with the true length carried alongside.
type Witness struct {
	// Envelope is the pre-authentication encoding the leaf signature covers.
	Envelope    []byte
	EnvelopeLen int

	// SignedBody is the certificate's to-be-signed range.
	SignedBody    []byte
	SignedBodyLen int

	RepoName    []byte
	RepoNameLen int

	// Leaf signature over SHA-256(Envelope), 32-byte low-form components.
	LeafSigR []byte
	LeafSigS []byte

	// Issuer signature over the signed body digest, 48-byte low-form.
	IssuerSigR []byte
	IssuerSigS []byte

	// Leaf public key coordinates, 32 bytes each.
	PubKeyX []byte
	PubKeyY []byte

	// ArtifactOffset locates the hex artifact digest text inside Envelope.
	ArtifactOffset int
	// CommitClaimOffset and RepoClaimOffset locate the claim OID encodings
	// inside SignedBody.
	CommitClaimOffset int
	RepoClaimOffset   int

	// Public commitments.
	ArtifactDigest [32]byte
	RepoDigest     [32]byte
	Commit         [20]byte
}

// Shape is the true-length profile a circuit is compiled against.
type Shape struct {
	EnvelopeLen   int
	SignedBodyLen int
	RepoNameLen   int
}

// Key returns a stable identifier for the shape, usable as a file or
// registry name.
func (s Shape) Key() string {
	return fmt.Sprintf("e%d-b%d-r%d", s.EnvelopeLen, s.SignedBodyLen, s.RepoNameLen)
}

// Shape returns the witness's true-length profile.
func (w *Witness) Shape() Shape {
	return Shape{
		EnvelopeLen:   w.EnvelopeLen,
		SignedBodyLen: w.SignedBodyLen,
		RepoNameLen:   w.RepoNameLen,
	}
}

// Builder builds witnesses against one trust anchor.
type Builder struct {
	// Anchor is the intermediate's P-384 public key. Required.
	Anchor *ecdsa.PublicKey
	Caps   Capacities
}

// NewBuilder returns a Builder with the default capacities.
func NewBuilder(anchor *ecdsa.PublicKey) *Builder {
	return &Builder{Anchor: anchor, Caps: DefaultCapacities}
}

// Build parses the bundle JSON, verifies both signatures and emits the
// circuit witness.
func (b *Builder) Build(raw []byte) (*Witness, error) {
	bundle, err := dsse.ParseBundle(raw)
	if err != nil {
		return nil, err
	}
	return b.BuildFromBundle(bundle)
}

// BuildFromBundle is Build for an already-parsed bundle.
func (b *Builder) BuildFromBundle(bundle *dsse.Bundle) (*Witness, error) {
	if b.Anchor == nil {
		return nil, ErrNoTrustAnchor
	}

	payload, err := bundle.DecodePayload()
	if err != nil {
		return nil, err
	}
	sigDER, err := bundle.DecodeSignature()
	if err != nil {
		return nil, err
	}
	certDER, err := bundle.DecodeCertificate()
	if err != nil {
		return nil, err
	}

	parsed, err := cert.Extract(certDER)
	if err != nil {
		return nil, err
	}
	if err := verifyIssuer(b.Anchor, parsed); err != nil {
		return nil, err
	}

	pae := dsse.PAE(bundle.DSSEEnvelope.PayloadType, payload)
	leafR, leafS, err := sigcodec.Decode(sigDER, sigcodec.P256)
	if err != nil {
		return nil, err
	}
	paeDigest := sha256.Sum256(pae)
	if !ecdsa.Verify(parsed.PublicKey(), paeDigest[:],
		new(big.Int).SetBytes(leafR), new(big.Int).SetBytes(leafS)) {
		return nil, ErrLeafSignatureInvalid
	}

	stmt, err := dsse.ParseStatement(payload)
	if err != nil {
		return nil, err
	}
	claims, err := stmt.Claims()
	if err != nil {
		return nil, err
	}

	commitClaim, _ := parsed.Claim(cert.ClaimCommit)
	repoClaim, _ := parsed.Claim(cert.ClaimRepository)
	if claims.Repository != "" && claims.Repository != repoClaim.Value {
		return nil, fmt.Errorf("%w: repository %q vs %q",
			ErrClaimMismatch, claims.Repository, repoClaim.Value)
	}
	if claims.Commit != "" && claims.Commit != commitClaim.Value {
		return nil, fmt.Errorf("%w: commit %q vs %q",
			ErrClaimMismatch, claims.Commit, commitClaim.Value)
	}

	artifact, err := decodeLowerHex(claims.ArtifactDigest)
	if err != nil || len(artifact) != sha256.Size {
		return nil, fmt.Errorf("malformed subject digest %q", claims.ArtifactDigest)
	}
	commit, err := decodeLowerHex(commitClaim.Value)
	if err != nil || len(commit) != 20 {
		return nil, fmt.Errorf("malformed commit claim %q", commitClaim.Value)
	}

	// The circuit proves the digest text is inside the signed envelope,
	// so the offset must come from the same buffer it will read.
	artifactOff := bytes.Index(pae, []byte(claims.ArtifactDigest))
	if artifactOff < 0 {
		return nil, ErrArtifactMarkerNotFound
	}

	repoName := []byte(repoClaim.Value)

	envelope, err := pad(pae, b.Caps.Envelope, "envelope")
	if err != nil {
		return nil, err
	}
	signedBody, err := pad(parsed.TBS, b.Caps.SignedBody, "signedBody")
	if err != nil {
		return nil, err
	}
	repoBuf, err := pad(repoName, b.Caps.RepoName, "repoName")
	if err != nil {
		return nil, err
	}

	w := &Witness{
		Envelope:          envelope,
		EnvelopeLen:       len(pae),
		SignedBody:        signedBody,
		SignedBodyLen:     len(parsed.TBS),
		RepoName:          repoBuf,
		RepoNameLen:       len(repoName),
		LeafSigR:          leafR,
		LeafSigS:          leafS,
		IssuerSigR:        parsed.IssuerSigR,
		IssuerSigS:        parsed.IssuerSigS,
		PubKeyX:           parsed.PubKeyX,
		PubKeyY:           parsed.PubKeyY,
		ArtifactOffset:    artifactOff,
		CommitClaimOffset: commitClaim.Offset,
		RepoClaimOffset:   repoClaim.Offset,
	}
	copy(w.ArtifactDigest[:], artifact)
	w.RepoDigest = sha256.Sum256(repoName)
	copy(w.Commit[:], commit)
	return w, nil
}

// verifyIssuer checks the intermediate's signature over the certificate
// body, using the digest the certificate's algorithm declares.
func verifyIssuer(anchor *ecdsa.PublicKey, parsed *cert.ParsedCertificate) error {
	h := parsed.Digest.New()
	h.Write(parsed.TBS)
	digest := h.Sum(nil)

	if !ecdsa.Verify(anchor, digest,
		new(big.Int).SetBytes(parsed.IssuerSigR), new(big.Int).SetBytes(parsed.IssuerSigS)) {
		return ErrIssuerSignatureInvalid
	}
	return nil
}

// decodeLowerHex decodes hex in the one form the circuit re-decodes:
// lowercase digits only. An uppercase digest would build a witness that
// can never be proven.
func decodeLowerHex(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return nil, fmt.Errorf("not lowercase hex")
		}
	}
	return hex.DecodeString(s)
}

func pad(data []byte, capacity int, field string) ([]byte, error) {
	if len(data) > capacity {
		return nil, &CapacityError{Field: field, Len: len(data), Cap: capacity}
	}
	out := make([]byte, capacity)
	copy(out, data)
	return out, nil
}
