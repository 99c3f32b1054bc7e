package attest

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zkattest/zkattest/cert"
	"github.com/zkattest/zkattest/der"
	"github.com/zkattest/zkattest/dsse"
)

type inspectConfig struct {
	bundlePath string
	dumpDER    bool
}

func NewInspectCmd() *cobra.Command {
	cfg := &inspectConfig{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect an attestation bundle's certificate",
		Long: `Print the claims carried by a bundle's signing certificate. With
--der the raw certificate structure is dumped as an annotated tree.`,
		Example: `  zkattest inspect -b bundle.json
  zkattest inspect -b bundle.json --der`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.bundlePath, "bundle", "b", "", "Attestation bundle JSON file")
	cmd.Flags().BoolVar(&cfg.dumpDER, "der", false, "Dump the certificate DER structure")
	cmd.MarkFlagRequired("bundle")

	return cmd
}

func runInspect(cfg *inspectConfig) error {
	raw, err := os.ReadFile(cfg.bundlePath)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	bundle, err := dsse.ParseBundle(raw)
	if err != nil {
		return err
	}
	certDER, err := bundle.DecodeCertificate()
	if err != nil {
		return err
	}

	if cfg.dumpDER {
		return der.Dump(os.Stdout, certDER)
	}

	parsed, err := cert.Extract(certDER)
	if err != nil {
		return err
	}

	fmt.Printf("certificate: %d bytes, signed body %d bytes\n", len(parsed.Raw), len(parsed.TBS))
	fmt.Printf("signature digest: %v\n", parsed.Digest)
	for _, claim := range parsed.Claims {
		fmt.Printf("  claim %d @ %4d: %s\n", claim.Number, claim.Offset, claim.Value)
	}
	return nil
}
