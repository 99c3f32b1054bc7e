package attest

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type witnessConfig struct {
	bundlePath string
	anchorPath string
	outPath    string

	envelopeCap int
	bodyCap     int
	repoCap     int
}

func NewWitnessCmd() *cobra.Command {
	cfg := &witnessConfig{}

	cmd := &cobra.Command{
		Use:   "witness",
		Short: "Build a circuit witness from an attestation bundle",
		Long: `Verify an attestation bundle classically and emit the circuit witness
document. The bundle's envelope and certificate signatures are checked
against the trust anchor before anything is written; an invalid bundle
produces no witness.`,
		Example: `  # Build a witness
  zkattest witness -b bundle.json --anchor intermediate.pem -o witness.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWitness(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.bundlePath, "bundle", "b", "", "Attestation bundle JSON file")
	cmd.Flags().StringVar(&cfg.anchorPath, "anchor", "", "Trust anchor PEM file (intermediate P-384 public key)")
	cmd.Flags().StringVarP(&cfg.outPath, "output", "o", "witness.json", "Witness document output path")
	cmd.Flags().IntVar(&cfg.envelopeCap, "envelope-cap", 0, "Envelope buffer capacity override")
	cmd.Flags().IntVar(&cfg.bodyCap, "body-cap", 0, "Certificate body buffer capacity override")
	cmd.Flags().IntVar(&cfg.repoCap, "repo-cap", 0, "Repository name buffer capacity override")
	cmd.MarkFlagRequired("bundle")
	cmd.MarkFlagRequired("anchor")

	return cmd
}

func runWitness(cfg *witnessConfig) error {
	builder, err := builderFromFlags(cfg.anchorPath, cfg.envelopeCap, cfg.bodyCap, cfg.repoCap)
	if err != nil {
		return err
	}

	w, err := buildWitnessFile(cfg.bundlePath, builder)
	if err != nil {
		return err
	}

	doc, err := w.MarshalDocument()
	if err != nil {
		return fmt.Errorf("failed to encode witness: %w", err)
	}
	if err := os.WriteFile(cfg.outPath, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write witness: %w", err)
	}

	fmt.Printf("witness written to %s (shape %s)\n", cfg.outPath, w.Shape().Key())
	return nil
}
