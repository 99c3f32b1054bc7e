// Package cert walks a DER-encoded CI signing certificate and pulls out
// exactly what the witness pipeline needs: the signed body, the issuer
// signature over it, the subject public key, and the provider claim
// extensions together with their byte offsets inside the signed body.
package cert

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/zkattest/zkattest/der"
	"github.com/zkattest/zkattest/sigcodec"
)

// Provider claim extension numbers, the trailing arc of the claim OID.
const (
	ClaimOIDCIssuer      byte = 1
	ClaimWorkflowTrigger byte = 2
	ClaimCommit          byte = 3
	ClaimWorkflowName    byte = 4
	ClaimRepository      byte = 5
	ClaimWorkflowRef     byte = 6
)

var (
	ErrPublicKeyNotFound = errors.New("public key not found")
	ErrMalformedCert     = errors.New("malformed certificate")

	// The P-256 SubjectPublicKeyInfo AlgorithmIdentifier:
	// SEQUENCE { OID ecPublicKey, OID prime256v1 }
	p256AlgorithmID = []byte{
		0x30, 0x13,
		0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01,
		0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07,
	}

	// Uncompressed P-256 point inside a BIT STRING: tag, length 0x42,
	// zero unused bits, uncompressed marker.
	p256PointHeader = []byte{0x03, 0x42, 0x00, 0x04}

	// DER prefix shared by every provider claim OID (1.3.6.1.4.1.57264.1);
	// the byte that follows it is the claim number.
	claimOIDPrefix = []byte{0x06, 0x0a, 0x2b, 0x06, 0x01, 0x04, 0x01, 0x83, 0xbf, 0x30, 0x01}
)

// RequiredClaimError reports a claim extension the certificate must carry
// but does not.
type RequiredClaimError struct {
	Claim byte
}

func (e *RequiredClaimError) Error() string {
	return fmt.Sprintf("required claim not found: %s", claimName(e.Claim))
}

func claimName(n byte) string {
	switch n {
	case ClaimOIDCIssuer:
		return "oidc-issuer"
	case ClaimWorkflowTrigger:
		return "workflow-trigger"
	case ClaimCommit:
		return "commit"
	case ClaimWorkflowName:
		return "workflow-name"
	case ClaimRepository:
		return "repository"
	case ClaimWorkflowRef:
		return "workflow-ref"
	default:
		return fmt.Sprintf("claim-%d", n)
	}
}

// Claim is one provider claim extension found inside the signed body.
type Claim struct {
	Number byte
	Value  string
	// Offset of the claim OID encoding within the signed body. The
	// consuming circuit re-reads the value from this position, so the
	// offset points at the OID tag, never at the value.
	Offset int
}

// ParsedCertificate is the derived view over one leaf certificate.
// Immutable after Extract returns.
type ParsedCertificate struct {
	Raw []byte
	// TBS is the contiguous signed-body range of Raw, header included.
	TBS []byte

	// Issuer signature over TBS, 48-byte low-form components.
	IssuerSigR []byte
	IssuerSigS []byte

	// Subject public key coordinates, 32 bytes each.
	PubKeyX []byte
	PubKeyY []byte

	// Digest declared by the certificate's signature algorithm.
	Digest crypto.Hash

	Claims map[byte]Claim
}

// PublicKey returns the subject key as a crypto/ecdsa key.
func (p *ParsedCertificate) PublicKey() *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(p.PubKeyX),
		Y:     new(big.Int).SetBytes(p.PubKeyY),
	}
}

// Claim returns the claim with the given number.
func (p *ParsedCertificate) Claim(n byte) (Claim, bool) {
	c, ok := p.Claims[n]
	return c, ok
}

// ExtractBase64 decodes a base64 certificate and extracts it.
func ExtractBase64(b64 string) (*ParsedCertificate, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCert, err)
	}
	return Extract(raw)
}

// Extract walks the certificate and locates every element the witness
// pipeline consumes. The commit and repository claims are required;
// a certificate missing either cannot produce a valid witness.
func Extract(raw []byte) (*ParsedCertificate, error) {
	if len(raw) == 0 || raw[0] != 0x30 {
		return nil, ErrMalformedCert
	}

	// Outer SEQUENCE; first child is the signed body
	tbsStart, err := der.Enter(raw, 0)
	if err != nil || tbsStart >= len(raw) || raw[tbsStart] != 0x30 {
		return nil, ErrMalformedCert
	}
	tbsEnd, err := der.Skip(raw, tbsStart)
	if err != nil {
		return nil, ErrMalformedCert
	}
	tbs := raw[tbsStart:tbsEnd]

	// AlgorithmIdentifier follows the body; its OID tells us the digest
	digest, err := signatureDigest(raw, tbsEnd)
	if err != nil {
		return nil, err
	}
	sigOff, err := der.Skip(raw, tbsEnd)
	if err != nil {
		return nil, ErrMalformedCert
	}

	// BIT STRING with the issuer signature; one unused-bits byte first
	if sigOff >= len(raw) || raw[sigOff] != 0x03 {
		return nil, ErrMalformedCert
	}
	sigBits, err := der.Content(raw, sigOff)
	if err != nil || len(sigBits) < 2 || sigBits[0] != 0x00 {
		return nil, ErrMalformedCert
	}
	issuerR, issuerS, err := sigcodec.Decode(sigBits[1:], sigcodec.P384)
	if err != nil {
		return nil, err
	}

	pubX, pubY, err := findSubjectKey(tbs)
	if err != nil {
		return nil, err
	}

	claims, err := findClaims(tbs)
	if err != nil {
		return nil, err
	}
	for _, required := range []byte{ClaimCommit, ClaimRepository} {
		if _, ok := claims[required]; !ok {
			return nil, &RequiredClaimError{Claim: required}
		}
	}

	return &ParsedCertificate{
		Raw:        raw,
		TBS:        tbs,
		IssuerSigR: issuerR,
		IssuerSigS: issuerS,
		PubKeyX:    pubX,
		PubKeyY:    pubY,
		Digest:     digest,
		Claims:     claims,
	}, nil
}

// signatureDigest maps the certificate's signature AlgorithmIdentifier to
// the digest the issuer used. Only the two ECDSA algorithms the provider
// issues with are accepted.
func signatureDigest(raw []byte, algOff int) (crypto.Hash, error) {
	content, err := der.Content(raw, algOff)
	if err != nil || len(content) < 10 || content[0] != 0x06 {
		return 0, ErrMalformedCert
	}
	oid, err := der.Content(content, 0)
	if err != nil {
		return 0, ErrMalformedCert
	}
	// ecdsa-with-SHA256 / ecdsa-with-SHA384: 1.2.840.10045.4.3.{2,3}
	ecdsaPrefix := []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x03}
	if len(oid) != 8 || !bytes.Equal(oid[:7], ecdsaPrefix) {
		return 0, fmt.Errorf("%w: unsupported signature algorithm", ErrMalformedCert)
	}
	switch oid[7] {
	case 0x02:
		return crypto.SHA256, nil
	case 0x03:
		return crypto.SHA384, nil
	}
	return 0, fmt.Errorf("%w: unsupported signature algorithm", ErrMalformedCert)
}

// findSubjectKey locates the P-256 key by its AlgorithmIdentifier byte
// pattern, then reads the fixed point encoding that follows. The pattern
// must occur exactly once; a second occurrence means the search is no
// longer unambiguous and the certificate is rejected.
func findSubjectKey(tbs []byte) (x, y []byte, err error) {
	idx := bytes.Index(tbs, p256AlgorithmID)
	if idx < 0 {
		return nil, nil, ErrPublicKeyNotFound
	}
	if bytes.Index(tbs[idx+1:], p256AlgorithmID) >= 0 {
		return nil, nil, fmt.Errorf("%w: pattern not unique", ErrPublicKeyNotFound)
	}

	// The BIT STRING point encoding starts right after the algorithm
	after := idx + len(p256AlgorithmID)
	if after+len(p256PointHeader)+64 > len(tbs) {
		return nil, nil, ErrPublicKeyNotFound
	}
	if !bytes.Equal(tbs[after:after+len(p256PointHeader)], p256PointHeader) {
		return nil, nil, ErrPublicKeyNotFound
	}

	keyStart := after + len(p256PointHeader)
	x = tbs[keyStart : keyStart+32]
	y = tbs[keyStart+32 : keyStart+64]
	return x, y, nil
}

// findClaims scans the signed body for every provider claim extension.
// Each claim number may appear at most once.
func findClaims(tbs []byte) (map[byte]Claim, error) {
	claims := make(map[byte]Claim)

	for search := 0; ; {
		rel := bytes.Index(tbs[search:], claimOIDPrefix)
		if rel < 0 {
			break
		}
		off := search + rel
		search = off + len(claimOIDPrefix)

		numIdx := off + len(claimOIDPrefix)
		if numIdx >= len(tbs) {
			break
		}
		number := tbs[numIdx]

		value, err := readClaimValue(tbs, numIdx+1)
		if err != nil {
			// Claims this parser cannot read are treated as absent; a
			// missing required claim is reported by the caller.
			continue
		}

		if _, dup := claims[number]; dup {
			return nil, fmt.Errorf("%w: duplicate claim %s", ErrMalformedCert, claimName(number))
		}
		claims[number] = Claim{Number: number, Value: value, Offset: off}
	}

	return claims, nil
}

// readClaimValue reads the extension value that follows a claim OID. The
// provider marks claim extensions non-critical, so the OCTET STRING
// wrapper sits immediately after the OID; a critical flag would shift the
// value past where the prover re-reads it, so that layout is rejected.
// Inside the wrapper the first recognizable string tag carries the value.
// Older provider extensions store the raw string without a DER string
// wrapper, which is also accepted.
func readClaimValue(tbs []byte, from int) (string, error) {
	if from >= len(tbs) || tbs[from] != 0x04 {
		return "", ErrMalformedCert
	}

	inner, err := der.Content(tbs, from)
	if err != nil {
		return "", err
	}
	if len(inner) == 0 {
		return "", ErrMalformedCert
	}

	switch inner[0] {
	case 0x0c, 0x13, 0x16: // UTF8String, PrintableString, IA5String
		value, err := der.Content(inner, 0)
		if err != nil {
			return "", err
		}
		return string(value), nil
	default:
		// Raw-value legacy encoding
		return string(inner), nil
	}
}
