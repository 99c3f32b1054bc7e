// Package attest implements the attestation subcommands: witness
// construction, circuit compilation, proving, verification and bundle
// inspection.
package attest

import (
	"fmt"
	"os"

	"github.com/zkattest/zkattest/cert"
	"github.com/zkattest/zkattest/witness"
)

// builderFromFlags loads the trust anchor and applies capacity overrides.
func builderFromFlags(anchorPath string, envelopeCap, bodyCap, repoCap int) (*witness.Builder, error) {
	anchor, err := cert.LoadAnchorPEM(anchorPath)
	if err != nil {
		return nil, err
	}
	builder := witness.NewBuilder(anchor)
	if envelopeCap > 0 {
		builder.Caps.Envelope = envelopeCap
	}
	if bodyCap > 0 {
		builder.Caps.SignedBody = bodyCap
	}
	if repoCap > 0 {
		builder.Caps.RepoName = repoCap
	}
	return builder, nil
}

// buildWitnessFile reads the bundle and builds its witness.
func buildWitnessFile(bundlePath string, builder *witness.Builder) (*witness.Witness, error) {
	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	w, err := builder.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to build witness: %w", err)
	}
	return w, nil
}
