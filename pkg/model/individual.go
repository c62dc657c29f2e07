package model

import "github.com/google/uuid"

// Individual types.
const (
	IndividualLegalCitation = "legal_citation"
	IndividualNamedEntity   = "named_entity"
)

// Individual sources, in dedup priority order (see individual.Deduplicate).
const (
	IndSourceEyecite  = "eyecite"
	IndSourceCiteURL  = "citeurl"
	IndSourceRegex    = "regex"
	IndSourceSpacyNER = "spacy_ner"
	IndSourceLLM      = "llm"
	IndSourceHybrid   = "hybrid"
)

// ClassLink ties an individual to a class annotation or a class label.
type ClassLink struct {
	AnnotationID string  `json:"annotation_id,omitempty"`
	FolioLabel   string  `json:"folio_label,omitempty"`
	FolioIRI     string  `json:"folio_iri,omitempty"`
	Relationship string  `json:"relationship"` // instance_of
	Confidence   float64 `json:"confidence"`
}

// Individual is a named instance of an ontology class found in the document.
type Individual struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	MentionText    string       `json:"mention_text"`
	IndividualType string       `json:"individual_type"`
	Span           Span         `json:"span"`
	ClassLinks     []ClassLink  `json:"class_links,omitempty"`
	Confidence     float64      `json:"confidence"`
	Source         string       `json:"source"`
	NormalizedForm string       `json:"normalized_form,omitempty"`
	URL            string       `json:"url,omitempty"`
	Lineage        []StageEvent `json:"lineage,omitempty"`
}

// NewIndividual creates an individual with a fresh id.
func NewIndividual(name, mention, indType string, span Span) *Individual {
	return &Individual{
		ID:             uuid.NewString(),
		Name:           name,
		MentionText:    mention,
		IndividualType: indType,
		Span:           span,
	}
}

// PropertyAnnotation is an ontology object-property (verb/relation) mention.
type PropertyAnnotation struct {
	ID              string       `json:"id"`
	PropertyText    string       `json:"property_text"`
	FolioIRI        string       `json:"folio_iri,omitempty"`
	FolioLabel      string       `json:"folio_label,omitempty"`
	FolioDefinition string       `json:"folio_definition,omitempty"`
	FolioExamples   []string     `json:"folio_examples,omitempty"`
	FolioAltLabels  []string     `json:"folio_alt_labels,omitempty"`
	DomainIRIs      []string     `json:"domain_iris,omitempty"`
	RangeIRIs       []string     `json:"range_iris,omitempty"`
	InverseOfIRI    string       `json:"inverse_of_iri,omitempty"`
	Span            Span         `json:"span"`
	Confidence      float64      `json:"confidence"`
	Source          string       `json:"source"` // aho_corasick or llm
	MatchType       string       `json:"match_type,omitempty"`
	Lineage         []StageEvent `json:"lineage,omitempty"`
}
