// Package events derives a progressive event sequence from persisted job
// snapshots. Diffing is strictly by id; each stream keeps its own seen
// sets, so reconnects replay everything.
package events

import (
	"context"
	"time"

	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// Event types emitted over the stream.
const (
	TypeStatus            = "status"
	TypePreliminary       = "preliminary_annotation"
	TypeAnnotation        = "annotation"
	TypeAnnotationUpdate  = "annotation_update"
	TypeAnnotationRemoved = "annotation_removed"
	TypeIndividualAdded   = "individual_added"
	TypePropertyAdded     = "property_added"
	TypeDocumentType      = "document_type"
	TypeActivity          = "activity"
	TypeError             = "error"
	TypeComplete          = "complete"
)

// Event is one stream element; Data marshals to the SSE payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusPayload accompanies status transitions. CanonicalText rides along
// exactly once, on the first snapshot that has it.
type StatusPayload struct {
	JobID         string               `json:"job_id"`
	Status        model.JobStatus      `json:"status"`
	CanonicalText *model.CanonicalText `json:"canonical_text,omitempty"`
}

// DocumentTypePayload is sent the first time a classification appears.
type DocumentTypePayload struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
}

// CompletePayload closes the stream with aggregate counts.
type CompletePayload struct {
	JobID           string          `json:"job_id"`
	Status          model.JobStatus `json:"status"`
	AnnotationCount int             `json:"annotation_count"`
	IndividualCount int             `json:"individual_count"`
	PropertyCount   int             `json:"property_count"`
	Error           string          `json:"error,omitempty"`
}

// ErrorPayload reports a job that cannot be loaded.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Stream polls one job and diffs consecutive snapshots.
type Stream struct {
	jobs     *store.JobStore
	jobID    string
	interval time.Duration

	sentCanonical bool
	sentDocType   bool
	lastStatus    model.JobStatus
	seenStates    map[string]string // annotation id -> last state
	seenInds      map[string]bool
	seenProps     map[string]bool
	activityCount int
}

// NewStream builds a stream for one job.
func NewStream(jobs *store.JobStore, jobID string, interval time.Duration) *Stream {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Stream{
		jobs:       jobs,
		jobID:      jobID,
		interval:   interval,
		seenStates: make(map[string]string),
		seenInds:   make(map[string]bool),
		seenProps:  make(map[string]bool),
	}
}

// Run polls until the job terminates or ctx is done, sending events to
// emit in order. emit returning false aborts the stream (client gone).
func (s *Stream) Run(ctx context.Context, emit func(Event) bool) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		job, err := s.jobs.Load(s.jobID)
		if err != nil {
			emit(Event{Type: TypeError, Data: ErrorPayload{Error: "job not found: " + s.jobID}})
			return
		}

		for _, ev := range s.Diff(job) {
			if !emit(ev) {
				return
			}
		}

		if job.Status.Terminal() {
			emit(Event{Type: TypeComplete, Data: CompletePayload{
				JobID:           job.ID,
				Status:          job.Status,
				AnnotationCount: len(job.Result.Annotations),
				IndividualCount: len(job.Result.Individuals),
				PropertyCount:   len(job.Result.Properties),
				Error:           job.Error,
			}})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Diff compares a snapshot against stream state and returns the new events.
// Exported for direct use in tests and non-SSE observers.
func (s *Stream) Diff(job *model.Job) []Event {
	var out []Event

	if job.Status != s.lastStatus || (!s.sentCanonical && job.Result.CanonicalText != nil) {
		payload := StatusPayload{JobID: job.ID, Status: job.Status}
		if !s.sentCanonical && job.Result.CanonicalText != nil {
			payload.CanonicalText = job.Result.CanonicalText
			s.sentCanonical = true
		}
		s.lastStatus = job.Status
		out = append(out, Event{Type: TypeStatus, Data: payload})
	}

	current := make(map[string]bool, len(job.Result.Annotations))
	for _, ann := range job.Result.Annotations {
		current[ann.ID] = true
		lastState, seen := s.seenStates[ann.ID]
		switch {
		case !seen && ann.State == model.StatePreliminary:
			out = append(out, Event{Type: TypePreliminary, Data: ann})
		case !seen:
			out = append(out, Event{Type: TypeAnnotation, Data: ann})
		case lastState != ann.State:
			out = append(out, Event{Type: TypeAnnotationUpdate, Data: ann})
		}
		s.seenStates[ann.ID] = ann.State
	}
	for id := range s.seenStates {
		if !current[id] {
			delete(s.seenStates, id)
			out = append(out, Event{Type: TypeAnnotationRemoved, Data: map[string]string{"id": id}})
		}
	}

	for _, ind := range job.Result.Individuals {
		if !s.seenInds[ind.ID] {
			s.seenInds[ind.ID] = true
			out = append(out, Event{Type: TypeIndividualAdded, Data: ind})
		}
	}
	for _, prop := range job.Result.Properties {
		if !s.seenProps[prop.ID] {
			s.seenProps[prop.ID] = true
			out = append(out, Event{Type: TypePropertyAdded, Data: prop})
		}
	}

	if !s.sentDocType && job.Result.Metadata.DocumentType != "" {
		s.sentDocType = true
		out = append(out, Event{Type: TypeDocumentType, Data: DocumentTypePayload{
			DocumentType: job.Result.Metadata.DocumentType,
			Confidence:   job.Result.Metadata.DocumentTypeConfidence,
		}})
	}

	if log := job.Result.Metadata.ActivityLog; len(log) > s.activityCount {
		for _, entry := range log[s.activityCount:] {
			out = append(out, Event{Type: TypeActivity, Data: entry})
		}
		s.activityCount = len(log)
	}

	return out
}
