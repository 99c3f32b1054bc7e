package dsse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PayloadTypeInToto is the payload type every attestation statement uses.
const PayloadTypeInToto = "application/vnd.in-toto+json"

var (
	ErrNoSubjectDigest = errors.New("statement has no sha256 subject digest")
)

// Subject is one statement subject with its digest set.
type Subject struct {
	Name   string            `json:"name"`
	Digest map[string]string `json:"digest"`
}

// Statement is the in-toto statement carried in the envelope payload.
type Statement struct {
	Type          string          `json:"_type"`
	PredicateType string          `json:"predicateType"`
	Subject       []Subject       `json:"subject"`
	Predicate     json.RawMessage `json:"predicate"`
}

// Claims are the statement fields the witness pipeline consumes,
// independent of what the certificate asserts.
type Claims struct {
	// ArtifactDigest is the hex SHA-256 of the attested artifact.
	ArtifactDigest string
	Repository     string
	Commit         string
	WorkflowPath   string
}

// ParseStatement decodes the envelope payload as an in-toto statement.
func ParseStatement(payload []byte) (*Statement, error) {
	var stmt Statement
	if err := json.Unmarshal(payload, &stmt); err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	return &stmt, nil
}

// provenancePredicate is the subset of the SLSA v1 build provenance
// predicate the claims extraction reads.
type provenancePredicate struct {
	BuildDefinition struct {
		ExternalParameters struct {
			Workflow struct {
				Ref        string `json:"ref"`
				Repository string `json:"repository"`
				Path       string `json:"path"`
			} `json:"workflow"`
		} `json:"externalParameters"`
		ResolvedDependencies []struct {
			URI    string            `json:"uri"`
			Digest map[string]string `json:"digest"`
		} `json:"resolvedDependencies"`
	} `json:"buildDefinition"`
}

// Claims extracts the artifact digest and the declared repository, commit
// and workflow path from the statement.
func (s *Statement) Claims() (*Claims, error) {
	digest := ""
	for _, subject := range s.Subject {
		if d, ok := subject.Digest["sha256"]; ok {
			digest = d
			break
		}
	}
	if digest == "" {
		return nil, ErrNoSubjectDigest
	}

	claims := &Claims{ArtifactDigest: digest}

	if len(s.Predicate) > 0 {
		var pred provenancePredicate
		if err := json.Unmarshal(s.Predicate, &pred); err == nil {
			workflow := pred.BuildDefinition.ExternalParameters.Workflow
			claims.Repository = repoSlug(workflow.Repository)
			claims.WorkflowPath = workflow.Path
			for _, dep := range pred.BuildDefinition.ResolvedDependencies {
				if commit, ok := dep.Digest["gitCommit"]; ok {
					claims.Commit = commit
					break
				}
			}
		}
	}

	return claims, nil
}

// repoSlug reduces a repository URL to its org/repo form; a value already
// in that form passes through.
func repoSlug(repository string) string {
	for _, prefix := range []string{"https://github.com/", "http://github.com/"} {
		if rest, ok := strings.CutPrefix(repository, prefix); ok {
			return rest
		}
	}
	return repository
}
