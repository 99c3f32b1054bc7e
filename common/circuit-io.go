// Package common holds the gnark plumbing shared by the CLI and the
// server: compiled-circuit file IO and byte-array helpers.
package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Assets names the three compiled-circuit files for one witness shape.
type Assets struct {
	CCS          string
	ProvingKey   string
	VerifyingKey string
}

// ShapeAssets returns the asset paths for a shape key inside dir.
func ShapeAssets(dir, key string) Assets {
	return Assets{
		CCS:          filepath.Join(dir, key+".ccs"),
		ProvingKey:   filepath.Join(dir, key+".pk"),
		VerifyingKey: filepath.Join(dir, key+".vk"),
	}
}

// Exist reports whether all three asset files are present.
func (a Assets) Exist() bool {
	return fileExists(a.CCS) && fileExists(a.ProvingKey) && fileExists(a.VerifyingKey)
}

// SetupAndSave compiles the circuit template, runs the trusted setup and
// writes all three assets.
func SetupAndSave(template frontend.Circuit, a Assets) error {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, template)
	if err != nil {
		return fmt.Errorf("failed to compile circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	if err := writeTo(a.CCS, ccs); err != nil {
		return err
	}
	if err := writeTo(a.ProvingKey, pk); err != nil {
		return err
	}
	return writeTo(a.VerifyingKey, vk)
}

// LoadSetup reads all three assets back.
func LoadSetup(a Assets) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if err := readFrom(a.CCS, ccs); err != nil {
		return nil, nil, nil, err
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readFrom(a.ProvingKey, pk); err != nil {
		return nil, nil, nil, err
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readFrom(a.VerifyingKey, vk); err != nil {
		return nil, nil, nil, err
	}
	return ccs, pk, vk, nil
}

// LoadVerifyingKey reads just the verifying key; verification does not
// need the other assets.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readFrom(path, vk); err != nil {
		return nil, err
	}
	return vk, nil
}

// InitCircuit loads the assets when they exist, otherwise compiles and
// saves them first. forceCompile discards any existing assets.
func InitCircuit(a Assets, forceCompile bool, template frontend.Circuit) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	for _, path := range []string{a.CCS, a.ProvingKey, a.VerifyingKey} {
		if err := validatePath(path); err != nil {
			return nil, nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create directories: %w", err)
		}
		if forceCompile {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, nil, nil, fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}

	if !a.Exist() {
		if err := SetupAndSave(template, a); err != nil {
			return nil, nil, nil, err
		}
	}
	return LoadSetup(a)
}

// SaveProof writes a proof to disk.
func SaveProof(p groth16.Proof, path string) error {
	return writeTo(path, p)
}

// LoadProof reads a proof back.
func LoadProof(path string) (groth16.Proof, error) {
	p := groth16.NewProof(ecc.BN254)
	if err := readFrom(path, p); err != nil {
		return nil, err
	}
	return p, nil
}

func writeTo(path string, v io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := v.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readFrom(path string, v io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := v.ReadFrom(f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// validatePath rejects relative paths that escape the working directory.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) && (clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))) {
		return fmt.Errorf("path escapes working directory: %s", path)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
