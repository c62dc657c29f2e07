package model

import (
	"time"

	"github.com/google/uuid"
)

// Annotation lifecycle states.
const (
	StatePreliminary = "preliminary"
	StateConfirmed   = "confirmed"
	StateRejected    = "rejected"
	StateBackup      = "backup"
)

// Concept sources.
const (
	SourceEntityRuler   = "entity_ruler"
	SourceLLM           = "llm"
	SourceReconciled    = "reconciled"
	SourceMatched       = "matched"
	SourceSemanticRuler = "semantic_ruler"
)

// Match types for label-derived concepts.
const (
	MatchPreferred   = "preferred"
	MatchAlternative = "alternative"
	MatchLemma       = "lemma"
)

// Span locates a mention in the canonical full text.
// Invariant: 0 <= Start < End <= len(full_text) and full_text[Start:End] == Text.
type Span struct {
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Text         string `json:"text"`
	SentenceText string `json:"sentence_text,omitempty"`
}

// Overlaps reports whether two spans intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// StageEvent is one entry in an annotation's append-only lineage.
type StageEvent struct {
	Stage      string   `json:"stage"`
	Action     string   `json:"action"` // created, confirmed, rejected, enriched, branch_assigned, merged, ...
	Detail     string   `json:"detail,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// NewStageEvent builds a timestamped lineage entry.
func NewStageEvent(stage, action, detail string) StageEvent {
	return StageEvent{
		Stage:     stage,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// WithConfidence attaches a confidence to the event.
func (e StageEvent) WithConfidence(c float64) StageEvent {
	e.Confidence = &c
	return e
}

// FeedbackItem is user feedback on an annotation or one of its stage events.
type FeedbackItem struct {
	ID        string `json:"id"`
	Rating    string `json:"rating"` // up or down
	Stage     string `json:"stage,omitempty"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ConceptMatch is a candidate ontology linkage proposed by a stage.
type ConceptMatch struct {
	ConceptText     string            `json:"concept_text"`
	FolioIRI        string            `json:"folio_iri,omitempty"`
	FolioLabel      string            `json:"folio_label,omitempty"`
	FolioDefinition string            `json:"folio_definition,omitempty"`
	Branches        []string          `json:"branches,omitempty"`
	BranchColor     string            `json:"branch_color,omitempty"`
	Confidence      float64           `json:"confidence"`
	Source          string            `json:"source"`
	MatchType       string            `json:"match_type,omitempty"`
	State           string            `json:"state"`
	HierarchyPath   []string          `json:"hierarchy_path,omitempty"`
	IRIHash         string            `json:"iri_hash,omitempty"`
	ChildrenCount   int               `json:"children_count,omitempty"`
	Translations    map[string]string `json:"translations,omitempty"`
	FolioExamples   []string          `json:"folio_examples,omitempty"`
	FolioNotes      []string          `json:"folio_notes,omitempty"`
	FolioSeeAlso    []string          `json:"folio_see_also,omitempty"`
	FolioAltLabels  []string          `json:"folio_alt_labels,omitempty"`
	FolioSource     string            `json:"folio_source,omitempty"`
	BranchHint      string            `json:"branch_hint,omitempty"`
}

// Annotation is a stable-identified span linked to one or more concepts.
// Concepts[0] is the primary linkage; the rest are backup candidates.
// Once an ID has been emitted to a client, later stages update the
// annotation in place rather than re-creating it.
type Annotation struct {
	ID          string         `json:"id"`
	Span        Span           `json:"span"`
	Concepts    []ConceptMatch `json:"concepts"`
	State       string         `json:"state"`
	DismissedAt string         `json:"dismissed_at,omitempty"`
	Lineage     []StageEvent   `json:"lineage,omitempty"`
	Feedback    []FeedbackItem `json:"feedback,omitempty"`
}

// NewAnnotation creates a preliminary annotation with a fresh id.
func NewAnnotation(span Span, concepts ...ConceptMatch) *Annotation {
	return &Annotation{
		ID:       uuid.NewString(),
		Span:     span,
		Concepts: concepts,
		State:    StatePreliminary,
	}
}

// Primary returns the primary concept, or nil when the annotation carries none.
func (a *Annotation) Primary() *ConceptMatch {
	if len(a.Concepts) == 0 {
		return nil
	}
	return &a.Concepts[0]
}

// AddLineage appends a stage event to the annotation's lineage.
func (a *Annotation) AddLineage(ev StageEvent) {
	a.Lineage = append(a.Lineage, ev)
}
