package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/store"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.JobStore) {
	t.Helper()
	cfg := testutils.TestConfig(t)
	onto := testutils.TestOntology(t)
	jobs, err := store.NewJobStore(cfg.Storage.JobsDir)
	require.NoError(t, err)
	// No LLM tasks configured: only the deterministic stages run.
	return Build(cfg, onto, jobs, nil, nil), jobs
}

func annotationLabels(job *model.Job) []string {
	var labels []string
	for _, ann := range job.Result.Annotations {
		if primary := ann.Primary(); primary != nil {
			labels = append(labels, primary.FolioLabel)
		}
	}
	return labels
}

func TestRunDeterministicPipeline(t *testing.T) {
	orch, jobs := newTestOrchestrator(t)

	job := model.NewJob(&model.DocumentInput{
		Content: testutils.SampleComplaint, Format: model.FormatPlainText, Filename: "complaint.txt",
	})
	require.NoError(t, orch.Run(context.Background(), job))

	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.Result.CanonicalText)
	assert.NotEmpty(t, job.Result.CanonicalText.Chunks)

	labels := annotationLabels(job)
	assert.Contains(t, labels, "Breach of Contract")
	assert.Contains(t, labels, "Lease Agreement")
	assert.Contains(t, labels, "Court")

	for _, ann := range job.Result.Annotations {
		assert.Equal(t, model.StateConfirmed, ann.State)
		assert.Equal(t, job.Result.CanonicalText.FullText[ann.Span.Start:ann.Span.End], ann.Span.Text)
		assert.NotEmpty(t, ann.Span.SentenceText)
	}

	// "lease agreement" appears twice; both spans survive under one IRI.
	leaseSpans := 0
	for _, ann := range job.Result.Annotations {
		if primary := ann.Primary(); primary != nil && primary.FolioIRI == testutils.LeaseIRI {
			leaseSpans++
		}
	}
	assert.Equal(t, 2, leaseSpans)

	var citations []*model.Individual
	for _, ind := range job.Result.Individuals {
		if ind.IndividualType == model.IndividualLegalCitation {
			citations = append(citations, ind)
		}
	}
	require.NotEmpty(t, citations, "statute and case citations extracted without an LLM")

	require.Len(t, job.Result.Properties, 1)
	assert.Equal(t, "violates", job.Result.Properties[0].PropertyText)

	assert.NotEmpty(t, job.Result.Metadata.ActivityLog)
	assert.Equal(t, "plain_text", job.Result.Metadata.SourceFormat)

	persisted, err := jobs.Load(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, persisted.Status)
	assert.Len(t, persisted.Result.Annotations, len(job.Result.Annotations))
	assert.Nil(t, persisted.Result.Metadata.Scratch)
}

func TestRunMultiChunkDocumentKeepsOffsets(t *testing.T) {
	cfg := testutils.TestConfig(t)
	cfg.Pipeline.MaxChunkChars = 200
	cfg.Pipeline.ChunkOverlapChars = 80
	jobs, err := store.NewJobStore(cfg.Storage.JobsDir)
	require.NoError(t, err)
	orch := Build(cfg, testutils.TestOntology(t), jobs, nil, nil)

	content := strings.Join([]string{
		"The lease agreement was executed by both parties.",
		"Plaintiff alleges breach of contract in count one.",
		"The court set a scheduling conference for discovery.",
		"Defendant violates the lease agreement by withholding rent.",
		"Judgment on the breach of contract claim is reserved.",
	}, "\n\n")

	job := model.NewJob(&model.DocumentInput{Content: content, Format: model.FormatPlainText})
	require.NoError(t, orch.Run(context.Background(), job))
	require.Equal(t, model.StatusCompleted, job.Status)

	canonical := job.Result.CanonicalText
	require.NotNil(t, canonical)
	require.Greater(t, len(canonical.Chunks), 1)

	// Paragraph breaks survive normalization; chunk and annotation offsets
	// must index the full text regardless.
	assert.Contains(t, canonical.FullText, "\n\n")
	for _, chunk := range canonical.Chunks {
		assert.Equal(t, canonical.FullText[chunk.StartOffset:chunk.EndOffset], chunk.Text,
			"chunk %d offsets must slice back to the chunk text", chunk.ChunkIndex)
	}

	require.NotEmpty(t, job.Result.Annotations)
	for _, ann := range job.Result.Annotations {
		assert.Equal(t, canonical.FullText[ann.Span.Start:ann.Span.End], ann.Span.Text)
	}
}

func TestRunEmptyDocumentFails(t *testing.T) {
	orch, jobs := newTestOrchestrator(t)

	job := model.NewJob(&model.DocumentInput{Content: "", Format: model.FormatPlainText})
	require.NoError(t, orch.Run(context.Background(), job), "stage failures are recorded on the job, not returned")

	assert.Equal(t, model.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)

	persisted, err := jobs.Load(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, persisted.Status)
}

func TestRunMissingInputFails(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	job := model.NewJob(nil)
	require.NoError(t, orch.Run(context.Background(), job))
	assert.Equal(t, model.StatusFailed, job.Status)
}

func TestStringMatchUpgradesPreliminaryInPlace(t *testing.T) {
	job := model.NewJob(nil)
	text := "The breach of contract claim."
	job.Result.CanonicalText = &model.CanonicalText{FullText: text}

	prelim := model.NewAnnotation(model.Span{Start: 4, End: 22, Text: "breach of contract"},
		model.ConceptMatch{ConceptText: "breach of contract", Confidence: 0.6, Source: model.SourceLLM})
	job.Result.Annotations = append(job.Result.Annotations, prelim)

	job.Result.Metadata.ResolvedConcepts = []model.ResolvedConcept{{
		ConceptText: "breach of contract",
		IRI:         testutils.BreachIRI,
		Label:       "Breach of Contract",
		Branch:      "Area of Law",
		Confidence:  0.9,
		Source:      model.SourceReconciled,
	}}

	stage := &stringMatchStage{}
	require.NoError(t, stage.Execute(context.Background(), job))

	require.Len(t, job.Result.Annotations, 1)
	ann := job.Result.Annotations[0]
	assert.Equal(t, prelim.ID, ann.ID, "the event stream sees an update, not a removal")
	assert.Equal(t, model.StateConfirmed, ann.State)
	require.NotNil(t, ann.Primary())
	assert.Equal(t, testutils.BreachIRI, ann.Primary().FolioIRI)
	assert.NotEmpty(t, ann.Span.SentenceText)
}

func TestStringMatchSkipsShortAndStopwordLabels(t *testing.T) {
	job := model.NewJob(nil)
	job.Result.CanonicalText = &model.CanonicalText{
		FullText: "The will and the act were both executed.",
	}
	job.Result.Metadata.ResolvedConcepts = []model.ResolvedConcept{
		{ConceptText: "will", IRI: "iri-will", Label: "Will", Confidence: 0.9},
		{ConceptText: "act", IRI: "iri-act", Label: "Act", Confidence: 0.9},
	}

	stage := &stringMatchStage{}
	require.NoError(t, stage.Execute(context.Background(), job))
	assert.Empty(t, job.Result.Annotations,
		"stop words and labels of three characters or fewer never match")
}

func TestDedupeSameIRIPartialOverlapKeepsLonger(t *testing.T) {
	long := model.NewAnnotation(model.Span{Start: 10, End: 28, Text: "breach of contract"},
		model.ConceptMatch{ConceptText: "breach of contract", FolioIRI: "iri-1"})
	short := model.NewAnnotation(model.Span{Start: 20, End: 32, Text: "contract law"},
		model.ConceptMatch{ConceptText: "contract law", FolioIRI: "iri-1"})

	kept := dedupeSameIRI([]*model.Annotation{short, long})
	require.Len(t, kept, 1)
	assert.Equal(t, 10, kept[0].Span.Start)
	assert.Equal(t, 28, kept[0].Span.End)
}

func TestDedupeSameIRIContainmentKeepsBoth(t *testing.T) {
	outer := model.NewAnnotation(model.Span{Start: 0, End: 18, Text: "breach of contract"},
		model.ConceptMatch{ConceptText: "breach of contract", FolioIRI: "iri-1"})
	inner := model.NewAnnotation(model.Span{Start: 0, End: 6, Text: "breach"},
		model.ConceptMatch{ConceptText: "breach", FolioIRI: "iri-1"})

	kept := dedupeSameIRI([]*model.Annotation{inner, outer})
	assert.Len(t, kept, 2)
}

func TestDedupeDifferentIRIsUntouched(t *testing.T) {
	a := model.NewAnnotation(model.Span{Start: 0, End: 5, Text: "lease"},
		model.ConceptMatch{ConceptText: "lease", FolioIRI: "iri-1"})
	b := model.NewAnnotation(model.Span{Start: 0, End: 5, Text: "lease"},
		model.ConceptMatch{ConceptText: "lease", FolioIRI: "iri-2"})

	kept := dedupeSameIRI([]*model.Annotation{a, b})
	assert.Len(t, kept, 2)
}
