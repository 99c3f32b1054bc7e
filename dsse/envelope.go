// Package dsse handles the signed-envelope side of an attestation bundle:
// bundle JSON parsing, payload and signature decoding, and the exact
// pre-authentication encoding the leaf signature covers.
package dsse

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNoEnvelope   = errors.New("bundle has no dsse envelope")
	ErrNoSignatures = errors.New("envelope has no signatures")
	ErrNoPayload    = errors.New("envelope has no payload")
	ErrNoCert       = errors.New("bundle has no certificate")
)

// Signature is one envelope signature.
type Signature struct {
	Sig   string `json:"sig"`
	KeyID string `json:"keyid,omitempty"`
}

// Envelope is a DSSE envelope: base64 payload, type string, signatures.
type Envelope struct {
	Payload     string      `json:"payload"`
	PayloadType string      `json:"payloadType"`
	Signatures  []Signature `json:"signatures"`
}

// RawCert holds base64 DER certificate bytes.
type RawCert struct {
	RawBytes string `json:"rawBytes"`
}

// CertChain is the x509CertificateChain variant of verification material.
type CertChain struct {
	Certificates []RawCert `json:"certificates"`
}

// VerificationMaterial carries the leaf certificate in either of the two
// shapes bundles use.
type VerificationMaterial struct {
	Certificate *RawCert   `json:"certificate,omitempty"`
	Chain       *CertChain `json:"x509CertificateChain,omitempty"`
}

// Bundle is one attestation bundle: an envelope plus its certificate.
type Bundle struct {
	MediaType            string               `json:"mediaType,omitempty"`
	DSSEEnvelope         *Envelope            `json:"dsseEnvelope"`
	VerificationMaterial VerificationMaterial `json:"verificationMaterial"`
}

// attestationsWrapper is the shape the provider API returns: the bundle
// nested under attestations[0].bundle.
type attestationsWrapper struct {
	Attestations []struct {
		Bundle *Bundle `json:"bundle"`
	} `json:"attestations"`
}

// ParseBundle decodes bundle JSON, accepting both a bare bundle and the
// attestations[0].bundle nesting, and validates the envelope shape.
func ParseBundle(raw []byte) (*Bundle, error) {
	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	if bundle.DSSEEnvelope == nil {
		var wrapper attestationsWrapper
		if err := json.Unmarshal(raw, &wrapper); err == nil &&
			len(wrapper.Attestations) > 0 && wrapper.Attestations[0].Bundle != nil {
			bundle = *wrapper.Attestations[0].Bundle
		}
	}

	if bundle.DSSEEnvelope == nil {
		return nil, ErrNoEnvelope
	}
	if bundle.DSSEEnvelope.Payload == "" {
		return nil, ErrNoPayload
	}
	if len(bundle.DSSEEnvelope.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	return &bundle, nil
}

// DecodePayload returns the envelope's raw payload bytes.
func (b *Bundle) DecodePayload() ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(b.DSSEEnvelope.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

// DecodeSignature returns the first signature's raw bytes.
func (b *Bundle) DecodeSignature() ([]byte, error) {
	if len(b.DSSEEnvelope.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	sig, err := base64.StdEncoding.DecodeString(b.DSSEEnvelope.Signatures[0].Sig)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}
	return sig, nil
}

// DecodeCertificate returns the leaf certificate's DER bytes.
func (b *Bundle) DecodeCertificate() ([]byte, error) {
	b64 := ""
	switch {
	case b.VerificationMaterial.Certificate != nil:
		b64 = b.VerificationMaterial.Certificate.RawBytes
	case b.VerificationMaterial.Chain != nil && len(b.VerificationMaterial.Chain.Certificates) > 0:
		b64 = b.VerificationMaterial.Chain.Certificates[0].RawBytes
	}
	if b64 == "" {
		return nil, ErrNoCert
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate: %w", err)
	}
	return raw, nil
}

// PAE computes the DSSE pre-authentication encoding: the byte sequence the
// envelope signature actually covers. Length prefixes are decimal ASCII.
func PAE(payloadType string, payload []byte) []byte {
	return fmt.Appendf(nil, "DSSEv1 %d %s %d %s",
		len(payloadType), payloadType, len(payload), payload)
}
