package api

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	attest "github.com/zkattest/zkattest/circuits/attestation"
	"github.com/zkattest/zkattest/common"
	"github.com/zkattest/zkattest/proof"
	"github.com/zkattest/zkattest/witness"
)

// Server handles the HTTP attestation operations.
type Server struct {
	builder  *witness.Builder
	registry *Registry

	// assetsDir holds the per-shape compiled circuits.
	assetsDir string
	// compileMissing compiles a shape on first use instead of failing.
	compileMissing bool
}

// NewServer creates the HTTP handler set.
func NewServer(builder *witness.Builder, registry *Registry, assetsDir string, compileMissing bool) *Server {
	return &Server{
		builder:        builder,
		registry:       registry,
		assetsDir:      assetsDir,
		compileMissing: compileMissing,
	}
}

// ==== Request/Response Types ====

// ProveResponse carries a generated proof and everything needed to verify
// it later.
type ProveResponse struct {
	Proof        string    `json:"proof"` // base64 encoded
	Shape        string    `json:"shape"`
	PublicInputs []string  `json:"public_inputs"` // decimal strings
	Timestamp    time.Time `json:"timestamp"`
}

// VerifyRequest carries a proof and its public inputs.
type VerifyRequest struct {
	Shape        string   `json:"shape"`
	Proof        string   `json:"proof"` // base64 encoded
	PublicInputs []string `json:"public_inputs"`
}

// VerifyResponse reports the verification outcome and, when valid, the
// decoded commitments.
type VerifyResponse struct {
	Valid     bool            `json:"valid"`
	Message   string          `json:"message,omitempty"`
	Attested  *AttestedValues `json:"attested,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AttestedValues are the decoded public commitments, hex encoded.
type AttestedValues struct {
	ArtifactHash string `json:"artifact_hash"`
	RepoHash     string `json:"repo_hash"`
	CommitSHA    string `json:"commit_sha"`
}

// ShapesResponse lists circuit shapes.
type ShapesResponse struct {
	Loaded   []string `json:"loaded"`
	Compiled []string `json:"compiled"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ==== Handlers ====

// HandleHealth handles health check requests.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// HandleListShapes lists loaded and on-disk circuit shapes.
func (s *Server) HandleListShapes(w http.ResponseWriter, r *http.Request) {
	compiled, err := CompiledShapes(s.assetsDir)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "shape_listing_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ShapesResponse{
		Loaded:   s.registry.Keys(),
		Compiled: compiled,
	})
}

// HandleWitness builds a witness document from a bundle. The bundle is
// fully verified; an invalid bundle never produces a witness.
func (s *Server) HandleWitness(w http.ResponseWriter, r *http.Request) {
	wit, ok := s.buildWitness(w, r)
	if !ok {
		return
	}

	doc, err := wit.MarshalDocument()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "witness_encoding_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// HandleProve builds a witness from a bundle and proves it.
func (s *Server) HandleProve(w http.ResponseWriter, r *http.Request) {
	wit, ok := s.buildWitness(w, r)
	if !ok {
		return
	}

	shape := wit.Shape()
	circuit, err := s.circuitFor(shape)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "circuit_not_loaded", err.Error())
		return
	}

	proofBytes, err := circuit.Prove(attest.Assign(wit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "proof_generation_failed", err.Error())
		return
	}

	inputs := proof.PublicInputs(wit)
	inputStrings := make([]string, len(inputs))
	for i, v := range inputs {
		inputStrings[i] = v.String()
	}

	respondJSON(w, http.StatusOK, ProveResponse{
		Proof:        base64.StdEncoding.EncodeToString(proofBytes),
		Shape:        shape.Key(),
		PublicInputs: inputStrings,
		Timestamp:    time.Now(),
	})
}

// HandleVerify verifies a proof against its public inputs.
func (s *Server) HandleVerify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req VerifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Shape == "" || req.Proof == "" || len(req.PublicInputs) == 0 {
		respondError(w, http.StatusBadRequest, "missing_input",
			"shape, proof and public_inputs are required")
		return
	}

	vk, err := s.verifyingKeyFor(req.Shape)
	if err != nil {
		respondError(w, http.StatusNotFound, "shape_not_found", err.Error())
		return
	}
	adapter, err := proof.NewAdapter(vk, proof.LayoutPackedV1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "adapter_setup_failed", err.Error())
		return
	}

	proofBytes, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_proof_encoding", err.Error())
		return
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_proof_encoding", err.Error())
		return
	}

	inputs := make([]*big.Int, len(req.PublicInputs))
	for i, str := range req.PublicInputs {
		v, ok := new(big.Int).SetString(str, 10)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_public_input",
				fmt.Sprintf("element %d is not a decimal integer", i))
			return
		}
		inputs[i] = v
	}

	decoded, err := adapter.VerifyAndDecode(p, inputs)
	resp := VerifyResponse{Valid: err == nil, Timestamp: time.Now()}
	switch {
	case err == nil:
		resp.Message = "proof is valid"
		resp.Attested = &AttestedValues{
			ArtifactHash: hex.EncodeToString(decoded.ArtifactHash[:]),
			RepoHash:     hex.EncodeToString(decoded.RepoHash[:]),
			CommitSHA:    hex.EncodeToString(decoded.CommitSHA[:]),
		}
	case errors.Is(err, proof.ErrInvalidPublicInputsLength):
		respondError(w, http.StatusBadRequest, "invalid_public_inputs_length", err.Error())
		return
	default:
		resp.Message = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// ==== Helpers ====

// buildWitness reads a bundle from the request and turns it into a
// witness, mapping pipeline failures to error responses.
func (s *Server) buildWitness(w http.ResponseWriter, r *http.Request) (*witness.Witness, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return nil, false
	}
	defer r.Body.Close()

	wit, err := s.builder.Build(body)
	if err != nil {
		var capErr *witness.CapacityError
		switch {
		case errors.As(err, &capErr):
			respondError(w, http.StatusUnprocessableEntity, "capacity_exceeded", err.Error())
		case errors.Is(err, witness.ErrLeafSignatureInvalid),
			errors.Is(err, witness.ErrIssuerSignatureInvalid):
			respondError(w, http.StatusUnprocessableEntity, "signature_invalid", err.Error())
		default:
			respondError(w, http.StatusUnprocessableEntity, "invalid_bundle", err.Error())
		}
		return nil, false
	}
	return wit, true
}

// circuitFor returns the circuit for a shape, loading or compiling it on
// demand.
func (s *Server) circuitFor(shape witness.Shape) (*Circuit, error) {
	key := shape.Key()
	if c, err := s.registry.Get(key); err == nil {
		return c, nil
	}

	assets := common.ShapeAssets(s.assetsDir, key)
	if assets.Exist() {
		return s.registry.LoadShape(s.assetsDir, key)
	}
	if !s.compileMissing {
		return nil, fmt.Errorf("shape %s not compiled; run the compile command first", key)
	}

	cs, pk, vk, err := common.InitCircuit(assets, false, attest.New(shape, s.builder.Anchor))
	if err != nil {
		return nil, fmt.Errorf("failed to compile shape %s: %w", key, err)
	}
	c := &Circuit{CS: cs, ProvingKey: pk, VerifyingKey: vk}
	s.registry.Register(key, c)
	return c, nil
}

// verifyingKeyFor returns the verifying key for a shape without loading
// the proving material.
func (s *Server) verifyingKeyFor(key string) (groth16.VerifyingKey, error) {
	if c, err := s.registry.Get(key); err == nil {
		return c.VerifyingKey, nil
	}
	return common.LoadVerifyingKey(common.ShapeAssets(s.assetsDir, key).VerifyingKey)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	})
}
