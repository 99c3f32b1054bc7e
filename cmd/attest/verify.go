package attest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/zkattest/zkattest/common"
	"github.com/zkattest/zkattest/proof"
)

type verifyConfig struct {
	proofPath  string
	inputsPath string
	assetsDir  string
	vkPath     string
}

// publicInputsFile is the document the prove command writes.
type publicInputsFile struct {
	Shape        string   `json:"shape"`
	PublicInputs []string `json:"public_inputs"`
}

func NewVerifyCmd() *cobra.Command {
	cfg := &verifyConfig{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a proof and decode what it attests to",
		Long: `Verify a proof against its public inputs and print the attested
artifact hash, repository hash and commit. The verification key is taken
from the assets directory by shape, or from an explicit file.`,
		Example: `  # Verify with assets directory
  zkattest verify -p proof.bin -i public.json -d ./setup

  # Verify with an explicit verification key
  zkattest verify -p proof.bin -i public.json --vk shape.vk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.proofPath, "proof", "p", "proof.bin", "Proof file")
	cmd.Flags().StringVarP(&cfg.inputsPath, "inputs", "i", "public.json", "Public inputs file")
	cmd.Flags().StringVarP(&cfg.assetsDir, "assets-dir", "d", "./setup", "Directory with compiled circuits")
	cmd.Flags().StringVar(&cfg.vkPath, "vk", "", "Verification key file (overrides assets directory lookup)")

	return cmd
}

func runVerify(cfg *verifyConfig) error {
	raw, err := os.ReadFile(cfg.inputsPath)
	if err != nil {
		return fmt.Errorf("failed to read public inputs: %w", err)
	}
	var doc publicInputsFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse public inputs: %w", err)
	}

	vkPath := cfg.vkPath
	if vkPath == "" {
		if doc.Shape == "" {
			return fmt.Errorf("public inputs file has no shape; pass --vk explicitly")
		}
		vkPath = common.ShapeAssets(cfg.assetsDir, doc.Shape).VerifyingKey
	}
	vk, err := common.LoadVerifyingKey(vkPath)
	if err != nil {
		return err
	}

	adapter, err := proof.NewAdapter(vk, proof.LayoutPackedV1)
	if err != nil {
		return err
	}

	p, err := common.LoadProof(cfg.proofPath)
	if err != nil {
		return err
	}

	inputs := make([]*big.Int, len(doc.PublicInputs))
	for i, str := range doc.PublicInputs {
		v, ok := new(big.Int).SetString(str, 10)
		if !ok {
			return fmt.Errorf("public input %d is not a decimal integer", i)
		}
		inputs[i] = v
	}

	decoded, err := adapter.VerifyAndDecode(p, inputs)
	if err != nil {
		return err
	}

	fmt.Println("proof is valid")
	fmt.Printf("  artifact sha256: %s\n", hex.EncodeToString(decoded.ArtifactHash[:]))
	fmt.Printf("  repository hash: %s\n", hex.EncodeToString(decoded.RepoHash[:]))
	fmt.Printf("  commit:          %s\n", hex.EncodeToString(decoded.CommitSHA[:]))
	return nil
}
