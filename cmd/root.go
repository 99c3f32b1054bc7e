package main

import (
	"github.com/spf13/cobra"

	"github.com/zkattest/zkattest/cmd/attest"
)

// Init the cmd
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zkattest",
		Short: "Attestation bundle proving toolkit",
		Long:  `Tools and APIs for converting signed CI attestation bundles into zero-knowledge proofs of build provenance`,
	}

	rootCmd.AddCommand(
		attest.NewWitnessCmd(),
		attest.NewCompileCmd(),
		attest.NewProveCmd(),
		attest.NewVerifyCmd(),
		attest.NewInspectCmd(),
		attest.NewServeCmd(),
		NewVersionCmd(),
	)

	return rootCmd
}
