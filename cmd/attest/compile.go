package attest

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	attest "github.com/zkattest/zkattest/circuits/attestation"
	"github.com/zkattest/zkattest/common"
)

type compileConfig struct {
	bundlePath string
	anchorPath string
	outputDir  string
	force      bool

	envelopeCap int
	bodyCap     int
	repoCap     int
}

func NewCompileCmd() *cobra.Command {
	cfg := &compileConfig{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the circuit for a bundle's witness shape",
		Long: `Compile the attestation circuit and generate the constraint system,
proving key and verification key for the witness shape of one bundle.
The trust anchor is fixed into the circuit; proofs only verify against
keys compiled for the same anchor. Compilation can take several minutes.`,
		Example: `  # Compile for a bundle's shape
  zkattest compile -b bundle.json --anchor intermediate.pem -o ./setup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.bundlePath, "bundle", "b", "", "Attestation bundle JSON file")
	cmd.Flags().StringVar(&cfg.anchorPath, "anchor", "", "Trust anchor PEM file")
	cmd.Flags().StringVarP(&cfg.outputDir, "output", "o", "./setup", "Output directory for compiled circuits")
	cmd.Flags().BoolVarP(&cfg.force, "force", "f", false, "Overwrite existing files")
	cmd.Flags().IntVar(&cfg.envelopeCap, "envelope-cap", 0, "Envelope buffer capacity override")
	cmd.Flags().IntVar(&cfg.bodyCap, "body-cap", 0, "Certificate body buffer capacity override")
	cmd.Flags().IntVar(&cfg.repoCap, "repo-cap", 0, "Repository name buffer capacity override")
	cmd.MarkFlagRequired("bundle")
	cmd.MarkFlagRequired("anchor")

	return cmd
}

func runCompile(cfg *compileConfig) error {
	if err := os.MkdirAll(cfg.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	builder, err := builderFromFlags(cfg.anchorPath, cfg.envelopeCap, cfg.bodyCap, cfg.repoCap)
	if err != nil {
		return err
	}
	w, err := buildWitnessFile(cfg.bundlePath, builder)
	if err != nil {
		return err
	}

	shape := w.Shape()
	assets := common.ShapeAssets(cfg.outputDir, shape.Key())
	if assets.Exist() && !cfg.force {
		fmt.Printf("shape %s already compiled, skipping (use --force to overwrite)\n", shape.Key())
		return nil
	}

	fmt.Printf("compiling shape %s...\n", shape.Key())
	start := time.Now()
	if err := common.SetupAndSave(attest.New(shape, builder.Anchor), assets); err != nil {
		return fmt.Errorf("failed to compile shape %s: %w", shape.Key(), err)
	}
	fmt.Printf("compiled shape %s in %s\n", shape.Key(), time.Since(start).Round(time.Second))
	return nil
}
