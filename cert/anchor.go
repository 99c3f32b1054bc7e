package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var ErrBadAnchor = errors.New("invalid trust anchor")

// LoadAnchorPEM reads the intermediate's P-384 public key from a PEM
// file. Both a bare PUBLIC KEY block and a CERTIFICATE block carrying the
// key are accepted.
func LoadAnchorPEM(path string) (*ecdsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read anchor file: %w", err)
	}
	return ParseAnchorPEM(raw)
}

// ParseAnchorPEM parses anchor PEM bytes.
func ParseAnchorPEM(raw []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrBadAnchor)
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAnchor, err)
		}
		return checkAnchorKey(key)
	case "CERTIFICATE":
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAnchor, err)
		}
		return checkAnchorKey(c.PublicKey)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrBadAnchor, block.Type)
	}
}

func checkAnchorKey(key any) (*ecdsa.PublicKey, error) {
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrBadAnchor)
	}
	if ecKey.Curve != elliptic.P384() {
		return nil, fmt.Errorf("%w: anchor must be a P-384 key", ErrBadAnchor)
	}
	return ecKey, nil
}
