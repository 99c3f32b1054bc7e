package witness

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// document is the flat on-disk form of a witness: every integer a decimal
// string, every byte buffer an array of decimal strings. The format is
// what downstream witness tooling consumes, so field order and shape are
// fixed.
type document struct {
	Envelope    []string `json:"envelope"`
	EnvelopeLen string   `json:"envelopeLen"`

	SignedBody    []string `json:"signedBody"`
	SignedBodyLen string   `json:"signedBodyLen"`

	RepoName    []string `json:"repoName"`
	RepoNameLen string   `json:"repoNameLen"`

	LeafSigR []string `json:"leafSigR"`
	LeafSigS []string `json:"leafSigS"`

	IssuerSigR []string `json:"issuerSigR"`
	IssuerSigS []string `json:"issuerSigS"`

	PubKeyX []string `json:"pubKeyX"`
	PubKeyY []string `json:"pubKeyY"`

	ArtifactOffset    string `json:"artifactOffset"`
	CommitClaimOffset string `json:"commitClaimOffset"`
	RepoClaimOffset   string `json:"repoClaimOffset"`

	ArtifactDigest []string `json:"artifactDigest"`
	RepoDigest     []string `json:"repoDigest"`
	Commit         []string `json:"commit"`
}

// MarshalDocument renders the witness in the flat decimal-string form.
func (w *Witness) MarshalDocument() ([]byte, error) {
	doc := document{
		Envelope:          decStrings(w.Envelope),
		EnvelopeLen:       strconv.Itoa(w.EnvelopeLen),
		SignedBody:        decStrings(w.SignedBody),
		SignedBodyLen:     strconv.Itoa(w.SignedBodyLen),
		RepoName:          decStrings(w.RepoName),
		RepoNameLen:       strconv.Itoa(w.RepoNameLen),
		LeafSigR:          decStrings(w.LeafSigR),
		LeafSigS:          decStrings(w.LeafSigS),
		IssuerSigR:        decStrings(w.IssuerSigR),
		IssuerSigS:        decStrings(w.IssuerSigS),
		PubKeyX:           decStrings(w.PubKeyX),
		PubKeyY:           decStrings(w.PubKeyY),
		ArtifactOffset:    strconv.Itoa(w.ArtifactOffset),
		CommitClaimOffset: strconv.Itoa(w.CommitClaimOffset),
		RepoClaimOffset:   strconv.Itoa(w.RepoClaimOffset),
		ArtifactDigest:    decStrings(w.ArtifactDigest[:]),
		RepoDigest:        decStrings(w.RepoDigest[:]),
		Commit:            decStrings(w.Commit[:]),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument parses a witness back from its flat form.
func UnmarshalDocument(raw []byte) (*Witness, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse witness document: %w", err)
	}

	w := &Witness{}
	var err error
	read := func(dst *[]byte, field []string, name string) {
		if err != nil {
			return
		}
		*dst, err = decBytes(field, name)
	}
	readInt := func(dst *int, field, name string) {
		if err != nil {
			return
		}
		*dst, err = strconv.Atoi(field)
		if err != nil {
			err = fmt.Errorf("witness document: bad %s: %w", name, err)
		}
	}

	read(&w.Envelope, doc.Envelope, "envelope")
	readInt(&w.EnvelopeLen, doc.EnvelopeLen, "envelopeLen")
	read(&w.SignedBody, doc.SignedBody, "signedBody")
	readInt(&w.SignedBodyLen, doc.SignedBodyLen, "signedBodyLen")
	read(&w.RepoName, doc.RepoName, "repoName")
	readInt(&w.RepoNameLen, doc.RepoNameLen, "repoNameLen")
	read(&w.LeafSigR, doc.LeafSigR, "leafSigR")
	read(&w.LeafSigS, doc.LeafSigS, "leafSigS")
	read(&w.IssuerSigR, doc.IssuerSigR, "issuerSigR")
	read(&w.IssuerSigS, doc.IssuerSigS, "issuerSigS")
	read(&w.PubKeyX, doc.PubKeyX, "pubKeyX")
	read(&w.PubKeyY, doc.PubKeyY, "pubKeyY")
	readInt(&w.ArtifactOffset, doc.ArtifactOffset, "artifactOffset")
	readInt(&w.CommitClaimOffset, doc.CommitClaimOffset, "commitClaimOffset")
	readInt(&w.RepoClaimOffset, doc.RepoClaimOffset, "repoClaimOffset")
	if err != nil {
		return nil, err
	}

	if err := copyFixed(w.ArtifactDigest[:], doc.ArtifactDigest, "artifactDigest"); err != nil {
		return nil, err
	}
	if err := copyFixed(w.RepoDigest[:], doc.RepoDigest, "repoDigest"); err != nil {
		return nil, err
	}
	if err := copyFixed(w.Commit[:], doc.Commit, "commit"); err != nil {
		return nil, err
	}
	return w, nil
}

func decStrings(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = strconv.Itoa(int(b))
	}
	return out
}

func decBytes(field []string, name string) ([]byte, error) {
	out := make([]byte, len(field))
	for i, s := range field {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 255 {
			return nil, fmt.Errorf("witness document: bad byte %q in %s", s, name)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func copyFixed(dst []byte, field []string, name string) error {
	raw, err := decBytes(field, name)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("witness document: %s has %d bytes, want %d", name, len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}
