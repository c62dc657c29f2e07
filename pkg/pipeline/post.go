package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/concept"
	"github.com/lexigraph/lexigraph/pkg/dependency"
	"github.com/lexigraph/lexigraph/pkg/docmeta"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/individual"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
	"github.com/lexigraph/lexigraph/pkg/property"
)

// reconcileStage joins ruler and LLM concepts case-insensitively on concept
// text and syncs preliminary annotation states against the outcome.
type reconcileStage struct {
	reconciler *concept.Reconciler
	onto       *folio.Ontology
}

func (s *reconcileStage) Name() string { return "reconciliation" }

func (s *reconcileStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusIdentifying

	rulerConcepts := job.Result.Metadata.RulerConcepts
	llmConcepts := s.dropPropertyVerbs(job.Result.Metadata.LLMConcepts)

	results := s.reconciler.Reconcile(ctx, rulerConcepts, llmConcepts)
	job.Result.Metadata.ReconciledConcepts = results
	concept.SyncAnnotations(job.Result.Annotations, results)

	job.LogActivity(s.Name(), fmt.Sprintf("Reconciled %d ruler + %d LLM concepts into %d",
		len(rulerConcepts), len(llmConcepts), len(results)))
	return nil
}

// dropPropertyVerbs suppresses LLM concepts whose text is a known object
// property label: those are verbs, not classes.
func (s *reconcileStage) dropPropertyVerbs(concepts []model.ConceptMatch) []model.ConceptMatch {
	propertyLabels := s.onto.AllPropertyLabels()
	out := make([]model.ConceptMatch, 0, len(concepts))
	for _, c := range concepts {
		if _, isProperty := propertyLabels[strings.ToLower(c.ConceptText)]; isProperty {
			continue
		}
		out = append(out, c)
	}
	return out
}

// resolveStage maps every reconciled concept to a full ontology entry.
type resolveStage struct {
	resolver *folio.Resolver
}

func (s *resolveStage) Name() string { return "resolution" }

func (s *resolveStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusResolving

	var resolved []model.ResolvedConcept
	for _, rc := range job.Result.Metadata.ReconciledConcepts {
		c := rc.Concept
		r := s.resolver.Resolve(c.ConceptText, c.BranchHint, c.Confidence, c.Source, c.FolioIRI)
		if r != nil {
			r.MatchType = c.MatchType
			resolved = append(resolved, *r)
		}
	}
	job.Result.Metadata.ResolvedConcepts = resolved

	job.LogActivity(s.Name(), fmt.Sprintf("Resolved %d of %d concepts against the ontology",
		len(resolved), len(job.Result.Metadata.ReconciledConcepts)))
	return nil
}

// rerankStage re-blends resolved concept confidences against the document
// context.
type rerankStage struct {
	reranker *concept.Reranker
}

func (s *rerankStage) Name() string { return "contextual_rerank" }

func (s *rerankStage) Execute(ctx context.Context, job *model.Job) error {
	if s.reranker == nil || job.Result.CanonicalText == nil {
		return nil
	}
	n := s.reranker.Rerank(ctx, job.Result.CanonicalText.FullText, job.Result.Metadata.ResolvedConcepts)
	if n > 0 {
		job.LogActivity(s.Name(), fmt.Sprintf("Contextually rescored %d concepts", n))
	}
	return nil
}

// judgeStage disambiguates resolved concepts that carry no branch. A judged
// concept with an empty branch is dropped; otherwise confidence re-blends
// 70/30 pipeline/judge.
type judgeStage struct {
	judge    *concept.BranchJudge
	resolver *folio.Resolver
}

func (s *judgeStage) Name() string { return "branch_judging" }

func (s *judgeStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusJudging
	if s.judge == nil || job.Result.CanonicalText == nil {
		return nil
	}
	resolved := job.Result.Metadata.ResolvedConcepts
	sentences := normalize.NewSentenceIndex(job.Result.CanonicalText.FullText)
	fullText := job.Result.CanonicalText.FullText

	var items []concept.JudgeItem
	var idxs []int
	for i, rc := range resolved {
		if rc.Branch != "" {
			continue
		}
		var candidates []string
		for _, hit := range s.resolver.Candidates(rc.ConceptText, "", 5) {
			candidates = append(candidates, hit.Label)
		}
		items = append(items, concept.JudgeItem{
			ConceptText: rc.ConceptText,
			Sentence:    sentenceFor(sentences, fullText, rc.ConceptText),
			Candidates:  candidates,
		})
		idxs = append(idxs, i)
	}
	if len(items) == 0 {
		return nil
	}

	judgments := s.judge.JudgeBatch(ctx, items)
	rejected := 0
	kept := resolved[:0]
	judged := make(map[int]concept.Judgment, len(idxs))
	for n, i := range idxs {
		judged[i] = judgments[n]
	}
	for i := range resolved {
		j, wasJudged := judged[i]
		if !wasJudged {
			kept = append(kept, resolved[i])
			continue
		}
		if j.Branch == "" {
			rejected++
			continue
		}
		rc := resolved[i]
		rc.Branch = j.Branch
		rc.BranchColor = folio.BranchColor(j.Branch)
		rc.Confidence = 0.7*rc.Confidence + 0.3*j.Confidence
		kept = append(kept, rc)
	}
	job.Result.Metadata.ResolvedConcepts = kept

	job.LogActivity(s.Name(), fmt.Sprintf("Branch judge assigned %d branches, rejected %d",
		len(items)-rejected, rejected))
	return nil
}

// sentenceFor locates the sentence containing the first occurrence of the
// concept text.
func sentenceFor(sentences *normalize.SentenceIndex, fullText, conceptText string) string {
	pos := strings.Index(strings.ToLower(fullText), strings.ToLower(conceptText))
	if pos < 0 {
		return ""
	}
	return sentences.SentenceAt(pos)
}

// llmIndividualStage links individuals to class annotations and discovers
// new ones, chunk by chunk.
type llmIndividualStage struct {
	identifier *individual.LLMIdentifier
}

func (s *llmIndividualStage) Name() string { return "llm_individual_linking" }

func (s *llmIndividualStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusExtractingIndividuals
	if s.identifier == nil || job.Result.CanonicalText == nil {
		return nil
	}

	existing := job.Result.Individuals
	llmNew := s.identifier.IdentifyBatch(ctx, job.Result.CanonicalText.Chunks,
		job.Result.Annotations, existing)
	job.Result.Individuals = individual.Deduplicate(append(existing, llmNew...))

	job.LogActivity(s.Name(), fmt.Sprintf("Individual linking complete: %d individuals (%d LLM-discovered, %d from early extraction)",
		len(job.Result.Individuals), len(llmNew), len(existing)))
	return nil
}

// llmPropertyStage discovers additional object properties and links
// domain/range classes.
type llmPropertyStage struct {
	identifier *property.LLMIdentifier
}

func (s *llmPropertyStage) Name() string { return "llm_property_linking" }

func (s *llmPropertyStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusExtractingProperties
	if s.identifier == nil || job.Result.CanonicalText == nil {
		return nil
	}

	existing := job.Result.Properties
	llmNew := s.identifier.IdentifyBatch(ctx, job.Result.CanonicalText.Chunks,
		job.Result.Annotations, existing)
	job.Result.Properties = property.Deduplicate(append(existing, llmNew...))

	job.LogActivity(s.Name(), fmt.Sprintf("Property linking complete: %d properties (%d LLM-discovered, %d from early extraction)",
		len(job.Result.Properties), len(llmNew), len(existing)))
	return nil
}

// dependencyStage extracts subject-verb-object triples between concept
// mentions and cross-links them to extracted properties.
type dependencyStage struct {
	parser *dependency.Parser
}

func (s *dependencyStage) Name() string { return "dependency_parsing" }

func (s *dependencyStage) Execute(ctx context.Context, job *model.Job) error {
	if job.Result.CanonicalText == nil || len(job.Result.Annotations) == 0 {
		return nil
	}
	sentences := normalize.NewSentenceIndex(job.Result.CanonicalText.FullText)

	var spans []dependency.ConceptSpan
	for _, ann := range job.Result.Annotations {
		primary := ann.Primary()
		if primary == nil || ann.State == model.StateRejected {
			continue
		}
		spans = append(spans, dependency.ConceptSpan{
			Text:  ann.Span.Text,
			Start: ann.Span.Start,
			End:   ann.Span.End,
			IRI:   primary.FolioIRI,
			RefID: ann.ID,
		})
	}

	triples := s.parser.Extract(sentences, spans)
	dependency.CrossLink(triples, job.Result.Properties)
	job.Result.Metadata.SPOTriples = triples

	job.LogActivity(s.Name(), fmt.Sprintf("Extracted %d subject-verb-object triples", len(triples)))
	return nil
}

// metadataStage classifies the document (when the early pass did not),
// extracts structured fields from the accumulated context, and promotes
// role-hinted annotations into unset fields.
type metadataStage struct {
	classifier *docmeta.Classifier
	extractor  *docmeta.Extractor
}

func (s *metadataStage) Name() string { return "metadata_extraction" }

func (s *metadataStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusExporting
	if job.Result.CanonicalText == nil {
		return nil
	}
	fullText := job.Result.CanonicalText.FullText
	meta := &job.Result.Metadata

	if meta.DocumentType == "" && s.classifier != nil {
		classification := s.classifier.Classify(ctx, fullText)
		meta.DocumentType = classification.DocumentType
		meta.DocumentTypeConfidence = classification.Confidence
		job.LogActivity(s.Name(), fmt.Sprintf("Classified as %s (%.0f%% confidence)",
			classification.DocumentType, classification.Confidence*100))
	}

	if s.extractor != nil {
		sentences := normalize.NewSentenceIndex(fullText)
		contextBlock := docmeta.BuildContext(job, sentences)
		fields := s.extractor.Extract(ctx, contextBlock, meta.DocumentType)
		docmeta.Promote(job.Result.Annotations, fullText, fields)
		meta.ExtractedFields = fields
		job.LogActivity(s.Name(), "Structured metadata fields extracted")
	}
	return nil
}
