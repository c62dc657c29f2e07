// Package testutils provides shared fixtures for the test suites: a small
// legal ontology snapshot and a config wired to temp directories.
package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/folio"
)

// ontologyFixture mirrors the on-disk snapshot layout.
type ontologyFixture struct {
	Classes          []map[string]any `json:"classes"`
	ObjectProperties []map[string]any `json:"object_properties"`
}

// testOntologyFixture is a minimal taxonomy: two branches with a handful of
// concepts each, plus two object properties.
func testOntologyFixture() ontologyFixture {
	return ontologyFixture{
		Classes: []map[string]any{
			{
				"iri":   "https://folio.openlegalstandard.org/R8pNPutX0TN6DlEqkyZuxSw",
				"label": "Area of Law",
			},
			{
				"iri":          "https://folio.openlegalstandard.org/RBGPkZ1Mw4bUOGrvoWRWMLq",
				"label":        "Contract Law",
				"sub_class_of": []string{"https://folio.openlegalstandard.org/R8pNPutX0TN6DlEqkyZuxSw"},
			},
			{
				"iri":                "https://folio.openlegalstandard.org/R7L3xlqLLvIHv8NiBvBzJWg",
				"label":              "Breach of Contract",
				"alternative_labels": []string{"contractual breach"},
				"definition":         "Failure to perform a contractual obligation.",
				"sub_class_of":       []string{"https://folio.openlegalstandard.org/RBGPkZ1Mw4bUOGrvoWRWMLq"},
			},
			{
				"iri":          "https://folio.openlegalstandard.org/R9eK2vBn4QpWmXjTzHsLdCa",
				"label":        "Lease Agreement",
				"definition":   "A contract granting use of property for a term.",
				"sub_class_of": []string{"https://folio.openlegalstandard.org/RBGPkZ1Mw4bUOGrvoWRWMLq"},
			},
			{
				"iri":   "https://folio.openlegalstandard.org/R8QxMy3fT2pKvNcWzJaUbEd",
				"label": "Governmental Body",
			},
			{
				"iri":                "https://folio.openlegalstandard.org/R5cVbN8mK3qPwXzTjLsHdGf",
				"label":              "Court",
				"alternative_labels": []string{"tribunal"},
				"definition":         "A governmental body that adjudicates legal disputes.",
				"sub_class_of":       []string{"https://folio.openlegalstandard.org/R8QxMy3fT2pKvNcWzJaUbEd"},
			},
		},
		ObjectProperties: []map[string]any{
			{
				"iri":                "https://folio.openlegalstandard.org/RPfK8wC2qLmNxVzTbJsHdYe",
				"label":              "breaches (contract)",
				"alternative_labels": []string{"violates"},
			},
			{
				"iri":   "https://folio.openlegalstandard.org/RQgL9xD3rMnOyWaUcKtIeZf",
				"label": "file (pleading)",
			},
		},
	}
}

// Concept IRIs from the fixture, for assertions.
const (
	BreachIRI = "https://folio.openlegalstandard.org/R7L3xlqLLvIHv8NiBvBzJWg"
	LeaseIRI  = "https://folio.openlegalstandard.org/R9eK2vBn4QpWmXjTzHsLdCa"
	CourtIRI  = "https://folio.openlegalstandard.org/R5cVbN8mK3qPwXzTjLsHdGf"
)

// WriteOntology writes the fixture snapshot to a temp file and returns its
// path.
func WriteOntology(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(testOntologyFixture())
	if err != nil {
		t.Fatalf("failed to marshal ontology fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ontology.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write ontology fixture: %v", err)
	}
	return path
}

// TestOntology loads the fixture taxonomy.
func TestOntology(t *testing.T) *folio.Ontology {
	t.Helper()
	onto, err := folio.Load(WriteOntology(t))
	if err != nil {
		t.Fatalf("failed to load ontology fixture: %v", err)
	}
	return onto
}

// TestConfig returns defaults pointed at temp storage, with no LLM tasks
// configured so pipelines run their deterministic stages only.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Storage.JobsDir = filepath.Join(dir, "jobs")
	cfg.Storage.FeedbackDir = filepath.Join(dir, "feedback")
	cfg.Ontology.Path = WriteOntology(t)
	return cfg
}

// SampleComplaint is a small filing that exercises citations, ontology
// labels, and properties.
const SampleComplaint = "IN THE UNITED STATES DISTRICT COURT FOR THE DISTRICT OF DELAWARE. " +
	"Plaintiff Acme Corp. brings this action against Beta LLC for breach of contract. " +
	"The lease agreement dated January 5, 2023 required monthly payments of $12,000. " +
	"Defendant violates the lease agreement by withholding rent. " +
	"This court has jurisdiction under 28 U.S.C. § 1332. See Smith v. Jones, 550 U.S. 544 (2007)."
