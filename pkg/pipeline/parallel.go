package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/lexigraph/lexigraph/pkg/concept"
	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/docmeta"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/individual"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
	"github.com/lexigraph/lexigraph/pkg/property"
	"github.com/lexigraph/lexigraph/pkg/ruler"
)

// Parallel stages compute on a shared job snapshot and apply their results
// under mu. Each writes a disjoint slice of the job.

// rulerStage runs the deterministic label matcher over the full text. The
// automaton is built once on first use and shared across jobs.
type rulerStage struct {
	mu   *sync.Mutex
	onto *folio.Ontology

	once  sync.Once
	ruler *ruler.Ruler
}

func (s *rulerStage) Name() string { return "entity_ruler" }

func (s *rulerStage) Execute(ctx context.Context, job *model.Job) error {
	if job.Result.CanonicalText == nil {
		return nil
	}
	s.once.Do(func() { s.ruler = ruler.New(s.onto) })

	concepts := s.ruler.FindConcepts(job.Result.CanonicalText.FullText)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Metadata.RulerConcepts = concepts
	job.LogActivity(s.Name(), fmt.Sprintf("Label matcher found %d concepts (%d patterns)",
		len(concepts), s.ruler.PatternCount()))
	return nil
}

// llmConceptStage identifies concepts per chunk and materializes the
// preliminary annotations the event stream paints first.
type llmConceptStage struct {
	mu         *sync.Mutex
	identifier *concept.Identifier
}

func (s *llmConceptStage) Name() string { return "llm_concept_identification" }

func (s *llmConceptStage) Execute(ctx context.Context, job *model.Job) error {
	if s.identifier == nil || job.Result.CanonicalText == nil {
		return nil
	}
	fullText := job.Result.CanonicalText.FullText
	sentences := normalize.NewSentenceIndex(fullText)

	byChunk := s.identifier.IdentifyAll(ctx, job.Result.CanonicalText.Chunks)
	var flat []model.ConceptMatch
	for _, concepts := range byChunk {
		flat = append(flat, concepts...)
	}
	annotations := concept.BuildPreliminaryAnnotations(fullText, sentences, byChunk)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Metadata.EnsureScratch().LLMConceptsByChunk = byChunk
	job.Result.Metadata.LLMConcepts = flat
	job.Result.Annotations = append(job.Result.Annotations, annotations...)
	job.LogActivity(s.Name(), fmt.Sprintf("LLM identified %d concepts across %d chunks",
		len(flat), len(job.Result.CanonicalText.Chunks)))
	return nil
}

// earlyIndividualStage runs the no-LLM extraction passes: citations, then
// the regex and NER extractors, collapsed by source priority.
type earlyIndividualStage struct {
	mu        *sync.Mutex
	citations *individual.CitationExtractor
	runner    *individual.Runner
}

func (s *earlyIndividualStage) Name() string { return "early_individual_extraction" }

func (s *earlyIndividualStage) Execute(ctx context.Context, job *model.Job) error {
	if job.Result.CanonicalText == nil {
		return nil
	}
	fullText := job.Result.CanonicalText.FullText

	citations := s.citations.Extract(fullText)
	entities := s.runner.Extract(fullText)
	deduped := individual.Deduplicate(append(citations, entities...))

	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Individuals = deduped
	job.LogActivity(s.Name(), fmt.Sprintf("Pass 1 (citations): %d found", len(citations)))
	job.LogActivity(s.Name(), fmt.Sprintf("Pass 2 (regex/NER): %d found", len(entities)))
	return nil
}

// earlyPropertyStage scans for ontology object-property labels. The pattern
// automaton is built once on first use.
type earlyPropertyStage struct {
	mu   *sync.Mutex
	onto *folio.Ontology
	cfg  config.PipelineConfig

	once    sync.Once
	matcher *property.Matcher
}

func (s *earlyPropertyStage) Name() string { return "early_property_extraction" }

func (s *earlyPropertyStage) Execute(ctx context.Context, job *model.Job) error {
	if job.Result.CanonicalText == nil {
		return nil
	}
	s.once.Do(func() { s.matcher = property.NewMatcher(s.onto, s.cfg) })

	properties := property.Deduplicate(s.matcher.Match(job.Result.CanonicalText.FullText))

	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Properties = properties
	job.LogActivity(s.Name(), fmt.Sprintf("Property matching: %d found (%d patterns)",
		len(properties), s.matcher.PatternCount()))
	return nil
}

// docTypeStage asks what the document calls itself, early, so downstream
// LLM stages can condition on it.
type docTypeStage struct {
	mu         *sync.Mutex
	classifier *docmeta.Classifier
}

func (s *docTypeStage) Name() string { return "document_type_classification" }

func (s *docTypeStage) Execute(ctx context.Context, job *model.Job) error {
	if s.classifier == nil || job.Result.CanonicalText == nil {
		return nil
	}
	fullText := job.Result.CanonicalText.FullText
	if fullText == "" {
		return nil
	}

	ident, ok := s.classifier.SelfIdentify(ctx, fullText)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job.Result.Metadata.SelfIdentifiedType = ident.SelfIdentifiedType
	job.Result.Metadata.DocumentType = ident.SelfIdentifiedType
	job.Result.Metadata.DocumentTypeConfidence = ident.Confidence
	job.LogActivity(s.Name(), fmt.Sprintf("Document self-identifies as: %s (%.0f%% confidence)",
		ident.SelfIdentifiedType, ident.Confidence*100))
	return nil
}
