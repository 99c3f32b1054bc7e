package dsse_test

import (
	"errors"
	"testing"

	"github.com/zkattest/zkattest/dsse"
)

const provenanceStatement = `{
  "_type": "https://in-toto.io/Statement/v1",
  "predicateType": "https://slsa.dev/provenance/v1",
  "subject": [
    {"name": "dist.tar.gz", "digest": {"sha256": "4f2c3a9d1be0aa19f1e2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718"}}
  ],
  "predicate": {
    "buildDefinition": {
      "externalParameters": {
        "workflow": {
          "ref": "refs/heads/main",
          "repository": "https://github.com/acme/widget",
          "path": ".github/workflows/release.yml"
        }
      },
      "resolvedDependencies": [
        {
          "uri": "git+https://github.com/acme/widget@refs/heads/main",
          "digest": {"gitCommit": "0123456789abcdef0123456789abcdef01234567"}
        }
      ]
    }
  }
}`

func TestStatementClaims(t *testing.T) {
	stmt, err := dsse.ParseStatement([]byte(provenanceStatement))
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}

	claims, err := stmt.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims.ArtifactDigest != "4f2c3a9d1be0aa19f1e2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718" {
		t.Fatalf("artifact digest = %q", claims.ArtifactDigest)
	}
	if claims.Repository != "acme/widget" {
		t.Fatalf("repository = %q, want slug form", claims.Repository)
	}
	if claims.Commit != "0123456789abcdef0123456789abcdef01234567" {
		t.Fatalf("commit = %q", claims.Commit)
	}
	if claims.WorkflowPath != ".github/workflows/release.yml" {
		t.Fatalf("workflow path = %q", claims.WorkflowPath)
	}
}

func TestStatementClaimsNoDigest(t *testing.T) {
	stmt, err := dsse.ParseStatement([]byte(`{"_type":"t","subject":[{"name":"a","digest":{"sha512":"ab"}}]}`))
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	if _, err := stmt.Claims(); !errors.Is(err, dsse.ErrNoSubjectDigest) {
		t.Fatalf("err = %v, want ErrNoSubjectDigest", err)
	}
}

func TestStatementClaimsSlugRepository(t *testing.T) {
	stmt, err := dsse.ParseStatement([]byte(`{
	  "subject": [{"digest": {"sha256": "ab"}}],
	  "predicate": {"buildDefinition": {"externalParameters": {"workflow": {"repository": "acme/widget"}}}}
	}`))
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	claims, err := stmt.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims.Repository != "acme/widget" {
		t.Fatalf("repository = %q", claims.Repository)
	}
}

func TestParseStatementInvalid(t *testing.T) {
	if _, err := dsse.ParseStatement([]byte(`not json`)); err == nil {
		t.Fatal("expected error")
	}
}
