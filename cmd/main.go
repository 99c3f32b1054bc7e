package main

import (
	"fmt"
	"os"
)

// zkattest - CLI tool and API service for turning CI attestation bundles
// into zero-knowledge proofs of build provenance
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
