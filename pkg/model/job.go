package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks pipeline progress. It advances monotonically and is used
// by clients to render progress, not to gate correctness.
type JobStatus string

const (
	StatusPending               JobStatus = "pending"
	StatusIngesting             JobStatus = "ingesting"
	StatusNormalizing           JobStatus = "normalizing"
	StatusEnriching             JobStatus = "enriching"
	StatusIdentifying           JobStatus = "identifying"
	StatusResolving             JobStatus = "resolving"
	StatusMatching              JobStatus = "matching"
	StatusJudging               JobStatus = "judging"
	StatusExtractingIndividuals JobStatus = "extracting_individuals"
	StatusExtractingProperties  JobStatus = "extracting_properties"
	StatusExporting             JobStatus = "exporting"
	StatusCompleted             JobStatus = "completed"
	StatusFailed                JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReconciledConcept is a reconciliation output: a concept plus its category.
type ReconciledConcept struct {
	Concept  ConceptMatch `json:"concept"`
	Category string       `json:"category"` // both_agree, ruler_only, llm_only, conflict_resolved
}

// Reconciliation categories.
const (
	CategoryBothAgree        = "both_agree"
	CategoryRulerOnly        = "ruler_only"
	CategoryLLMOnly          = "llm_only"
	CategoryConflictResolved = "conflict_resolved"
)

// ResolvedConcept is a concept mapped to a full ontology entry.
type ResolvedConcept struct {
	ConceptText   string            `json:"concept_text"`
	IRI           string            `json:"folio_iri"`
	IRIHash       string            `json:"iri_hash,omitempty"`
	Label         string            `json:"folio_label"`
	Definition    string            `json:"folio_definition,omitempty"`
	Synonyms      []string          `json:"synonyms,omitempty"`
	HiddenLabels  []string          `json:"hidden_labels,omitempty"`
	Branch        string            `json:"branch,omitempty"`
	BranchColor   string            `json:"branch_color,omitempty"`
	HierarchyPath []string          `json:"hierarchy_path,omitempty"`
	ChildrenCount int               `json:"children_count,omitempty"`
	Examples      []string          `json:"examples,omitempty"`
	Notes         []string          `json:"notes,omitempty"`
	SeeAlso       []string          `json:"see_also,omitempty"`
	Translations  map[string]string `json:"translations,omitempty"`
	Confidence    float64           `json:"confidence"`
	Source        string            `json:"source"`
	MatchType     string            `json:"match_type,omitempty"`
}

// SPOTriple is a subject-verb-object relation found by the dependency stage.
type SPOTriple struct {
	Subject      string `json:"subject"`
	Verb         string `json:"verb"`
	Object       string `json:"object"`
	Sentence     string `json:"sentence,omitempty"`
	SubjectIndID string `json:"subject_individual_id,omitempty"`
	ObjectIndID  string `json:"object_individual_id,omitempty"`
	PropertyID   string `json:"property_id,omitempty"`
}

// AreaOfLaw is one practice-area classification.
type AreaOfLaw struct {
	Area       string  `json:"area"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ActivityEntry is a user-visible pipeline progress message.
type ActivityEntry struct {
	TS    string `json:"ts"`
	Stage string `json:"stage"`
	Msg   string `json:"msg"`
}

// DocumentFields are the structured fields extracted by the metadata stage.
type DocumentFields struct {
	Court        string   `json:"court,omitempty"`
	Judge        string   `json:"judge,omitempty"`
	CaseNumber   string   `json:"case_number,omitempty"`
	Parties      []string `json:"parties,omitempty"`
	DateFiled    string   `json:"date_filed,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	GoverningLaw string   `json:"governing_law,omitempty"`
	ClaimTypes   []string `json:"claim_types,omitempty"`
	Author       string   `json:"author,omitempty"`
	Recipient    string   `json:"recipient,omitempty"`
	Addresses    []string `json:"addresses,omitempty"`
}

// Scratch carries transient inter-stage state. It is never serialized; a
// pipeline restart loses it by design (the equivalent of the original's
// underscore-prefixed metadata keys).
type Scratch struct {
	RawText  string
	Elements []TextElement
	// LLMConcepts as identified per chunk, before flattening.
	LLMConceptsByChunk map[int][]ConceptMatch
}

// Metadata is the typed inter-stage scratchpad persisted with the job.
// Unknown keys from older snapshots are dropped on decode.
type Metadata struct {
	RulerConcepts          []ConceptMatch      `json:"ruler_concepts,omitempty"`
	LLMConcepts            []ConceptMatch      `json:"llm_concepts,omitempty"`
	ReconciledConcepts     []ReconciledConcept `json:"reconciled_concepts,omitempty"`
	ResolvedConcepts       []ResolvedConcept   `json:"resolved_concepts,omitempty"`
	SPOTriples             []SPOTriple         `json:"spo_triples,omitempty"`
	AreasOfLaw             []AreaOfLaw         `json:"areas_of_law,omitempty"`
	SelfIdentifiedType     string              `json:"self_identified_type,omitempty"`
	DocumentType           string              `json:"document_type,omitempty"`
	DocumentTypeConfidence float64             `json:"document_type_confidence,omitempty"`
	ExtractedFields        *DocumentFields     `json:"extracted_fields,omitempty"`
	ActivityLog            []ActivityEntry     `json:"activity_log,omitempty"`
	QualitySignals         []string            `json:"quality_signals,omitempty"`
	PageCount              int                 `json:"page_count,omitempty"`
	SourceFormat           string              `json:"source_format,omitempty"`

	Scratch *Scratch `json:"-"`
}

// EnsureScratch returns the scratch area, allocating it on first use.
func (m *Metadata) EnsureScratch() *Scratch {
	if m.Scratch == nil {
		m.Scratch = &Scratch{}
	}
	return m.Scratch
}

// JobResult accumulates everything the pipeline produces.
type JobResult struct {
	CanonicalText *CanonicalText        `json:"canonical_text,omitempty"`
	Annotations   []*Annotation         `json:"annotations"`
	Individuals   []*Individual         `json:"individuals"`
	Properties    []*PropertyAnnotation `json:"properties"`
	Metadata      Metadata              `json:"metadata"`
}

// Job is the unit of work flowing through the pipeline. It is owned by the
// store and mutated in memory by exactly one running pipeline at a time.
type Job struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Input     *DocumentInput `json:"input,omitempty"`
	Result    JobResult      `json:"result"`
	Error     string         `json:"error,omitempty"`
}

// NewJob creates a pending job for the given input.
func NewJob(input *DocumentInput) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Input:     input,
		Result: JobResult{
			Annotations: []*Annotation{},
			Individuals: []*Individual{},
			Properties:  []*PropertyAnnotation{},
		},
	}
}

// LogActivity appends a user-visible activity entry.
func (j *Job) LogActivity(stage, msg string) {
	j.Result.Metadata.ActivityLog = append(j.Result.Metadata.ActivityLog, ActivityEntry{
		TS:    time.Now().UTC().Format(time.RFC3339Nano),
		Stage: stage,
		Msg:   msg,
	})
}
