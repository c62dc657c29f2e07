package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func newStream() *Stream {
	return NewStream(nil, "job-1", 0)
}

func typesOf(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestDiffEmitsStatusOnce(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)
	job.Status = model.StatusIngesting

	first := s.Diff(job)
	require.Equal(t, []string{TypeStatus}, typesOf(first))

	// Unchanged snapshot yields nothing.
	assert.Empty(t, s.Diff(job))

	job.Status = model.StatusEnriching
	assert.Equal(t, []string{TypeStatus}, typesOf(s.Diff(job)))
}

func TestDiffCanonicalTextRidesFirstStatusCarryingIt(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)
	job.Status = model.StatusIngesting
	s.Diff(job)

	job.Status = model.StatusNormalizing
	job.Result.CanonicalText = &model.CanonicalText{FullText: "text"}
	events := s.Diff(job)
	require.Len(t, events, 1)
	payload := events[0].Data.(StatusPayload)
	require.NotNil(t, payload.CanonicalText)

	// Subsequent statuses never repeat it.
	job.Status = model.StatusEnriching
	events = s.Diff(job)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Data.(StatusPayload).CanonicalText)
}

func TestDiffAnnotationLifecycle(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)
	job.Status = model.StatusEnriching

	ann := model.NewAnnotation(model.Span{Start: 0, End: 6, Text: "breach"},
		model.ConceptMatch{ConceptText: "breach"})
	job.Result.Annotations = append(job.Result.Annotations, ann)

	events := s.Diff(job)
	assert.Equal(t, []string{TypeStatus, TypePreliminary}, typesOf(events))

	// Same id, state change: update, not a new add.
	ann.State = model.StateConfirmed
	events = s.Diff(job)
	require.Equal(t, []string{TypeAnnotationUpdate}, typesOf(events))
	assert.Same(t, ann, events[0].Data)

	// Disappearance: removal by id.
	job.Result.Annotations = nil
	events = s.Diff(job)
	require.Equal(t, []string{TypeAnnotationRemoved}, typesOf(events))
	assert.Equal(t, map[string]string{"id": ann.ID}, events[0].Data)
}

func TestDiffNonPreliminaryAdditionIsAnnotation(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)

	ann := model.NewAnnotation(model.Span{Start: 0, End: 5, Text: "lease"},
		model.ConceptMatch{ConceptText: "lease"})
	ann.State = model.StateConfirmed
	job.Result.Annotations = append(job.Result.Annotations, ann)

	events := s.Diff(job)
	assert.Contains(t, typesOf(events), TypeAnnotation)
	assert.NotContains(t, typesOf(events), TypePreliminary)
}

func TestDiffIndividualsPropertiesAndActivity(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)
	s.Diff(job)

	ind := model.NewIndividual("Acme Corp", "Acme Corp", model.IndividualNamedEntity,
		model.Span{Start: 0, End: 9, Text: "Acme Corp"})
	job.Result.Individuals = append(job.Result.Individuals, ind)
	job.Result.Properties = append(job.Result.Properties, &model.PropertyAnnotation{ID: "p1"})
	job.LogActivity("test", "first message")

	events := s.Diff(job)
	assert.Equal(t, []string{TypeIndividualAdded, TypePropertyAdded, TypeActivity}, typesOf(events))

	// Replays nothing; only new activity entries appear.
	job.LogActivity("test", "second message")
	events = s.Diff(job)
	require.Equal(t, []string{TypeActivity}, typesOf(events))
	entry := events[0].Data.(model.ActivityEntry)
	assert.Equal(t, "second message", entry.Msg)
}

func TestDiffDocumentTypeOnce(t *testing.T) {
	s := newStream()
	job := model.NewJob(nil)
	s.Diff(job)

	job.Result.Metadata.DocumentType = "Complaint"
	job.Result.Metadata.DocumentTypeConfidence = 0.9

	events := s.Diff(job)
	require.Equal(t, []string{TypeDocumentType}, typesOf(events))
	payload := events[0].Data.(DocumentTypePayload)
	assert.Equal(t, "Complaint", payload.DocumentType)

	assert.Empty(t, s.Diff(job))
}
