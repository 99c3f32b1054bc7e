package attest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/spf13/cobra"

	attest "github.com/zkattest/zkattest/circuits/attestation"
	"github.com/zkattest/zkattest/common"
	"github.com/zkattest/zkattest/proof"
)

type proveConfig struct {
	bundlePath string
	anchorPath string
	assetsDir  string
	proofPath  string
	inputsPath string
	compile    bool

	envelopeCap int
	bodyCap     int
	repoCap     int
}

func NewProveCmd() *cobra.Command {
	cfg := &proveConfig{}

	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Generate a proof for an attestation bundle",
		Long: `Build the witness for a bundle and prove it with the circuit compiled
for its shape. The proof and its public inputs are written to separate
files; together with the verification key they are all a verifier needs.`,
		Example: `  # Prove using pre-compiled assets
  zkattest prove -b bundle.json --anchor intermediate.pem -d ./setup

  # Compile on the fly when the shape is missing
  zkattest prove -b bundle.json --anchor intermediate.pem -d ./setup --compile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProve(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.bundlePath, "bundle", "b", "", "Attestation bundle JSON file")
	cmd.Flags().StringVar(&cfg.anchorPath, "anchor", "", "Trust anchor PEM file")
	cmd.Flags().StringVarP(&cfg.assetsDir, "assets-dir", "d", "./setup", "Directory with compiled circuits")
	cmd.Flags().StringVarP(&cfg.proofPath, "output", "o", "proof.bin", "Proof output path")
	cmd.Flags().StringVar(&cfg.inputsPath, "public-output", "public.json", "Public inputs output path")
	cmd.Flags().BoolVar(&cfg.compile, "compile", false, "Compile the shape when no assets exist")
	cmd.Flags().IntVar(&cfg.envelopeCap, "envelope-cap", 0, "Envelope buffer capacity override")
	cmd.Flags().IntVar(&cfg.bodyCap, "body-cap", 0, "Certificate body buffer capacity override")
	cmd.Flags().IntVar(&cfg.repoCap, "repo-cap", 0, "Repository name buffer capacity override")
	cmd.MarkFlagRequired("bundle")
	cmd.MarkFlagRequired("anchor")

	return cmd
}

func runProve(cfg *proveConfig) error {
	builder, err := builderFromFlags(cfg.anchorPath, cfg.envelopeCap, cfg.bodyCap, cfg.repoCap)
	if err != nil {
		return err
	}
	w, err := buildWitnessFile(cfg.bundlePath, builder)
	if err != nil {
		return err
	}

	shape := w.Shape()
	assets := common.ShapeAssets(cfg.assetsDir, shape.Key())
	if !assets.Exist() && !cfg.compile {
		return fmt.Errorf("shape %s not compiled in %s; run compile or pass --compile",
			shape.Key(), cfg.assetsDir)
	}

	cs, pk, _, err := common.InitCircuit(assets, false, attest.New(shape, builder.Anchor))
	if err != nil {
		return err
	}

	assignment, err := frontend.NewWitness(attest.Assign(w), ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("witness creation failed: %w", err)
	}
	p, err := groth16.Prove(cs, pk, assignment)
	if err != nil {
		return fmt.Errorf("proof creation failed: %w", err)
	}

	if err := common.SaveProof(p, cfg.proofPath); err != nil {
		return err
	}

	inputs := proof.PublicInputs(w)
	inputStrings := make([]string, len(inputs))
	for i, v := range inputs {
		inputStrings[i] = v.String()
	}
	raw, err := json.MarshalIndent(map[string]any{
		"shape":         shape.Key(),
		"public_inputs": inputStrings,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.inputsPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write public inputs: %w", err)
	}

	fmt.Printf("proof written to %s, public inputs to %s (shape %s)\n",
		cfg.proofPath, cfg.inputsPath, shape.Key())
	return nil
}
