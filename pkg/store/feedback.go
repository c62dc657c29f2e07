package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeedbackEntry is one user verdict on an annotation or a whole job.
type FeedbackEntry struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id"`
	AnnotationID string `json:"annotation_id,omitempty"`
	Rating       string `json:"rating"` // up, down, dismissed
	Stage        string `json:"stage,omitempty"`
	Comment      string `json:"comment,omitempty"`
	FolioLabel   string `json:"folio_label,omitempty"`
	FolioIRI     string `json:"folio_iri,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// NewFeedbackEntry stamps id and timestamp.
func NewFeedbackEntry(jobID, annotationID, rating string) *FeedbackEntry {
	return &FeedbackEntry{
		ID:           uuid.NewString(),
		JobID:        jobID,
		AnnotationID: annotationID,
		Rating:       rating,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// StageCounts tallies ratings for one stage.
type StageCounts struct {
	Up        int `json:"up"`
	Down      int `json:"down"`
	Dismissed int `json:"dismissed"`
}

// ConceptVotes is one concept's negative-signal tally.
type ConceptVotes struct {
	FolioLabel string `json:"folio_label"`
	FolioIRI   string `json:"folio_iri,omitempty"`
	Count      int    `json:"count"`
}

// Insights aggregates feedback across a job or the whole store.
type Insights struct {
	ThumbsUp      int                    `json:"thumbs_up"`
	ThumbsDown    int                    `json:"thumbs_down"`
	Dismissed     int                    `json:"dismissed"`
	ByStage       map[string]StageCounts `json:"by_stage"`
	MostDownvoted []ConceptVotes         `json:"most_downvoted"`
	MostDismissed []ConceptVotes         `json:"most_dismissed"`
}

// FeedbackStore keeps one JSON file per feedback entry, same atomic write
// discipline as the job store.
type FeedbackStore struct {
	dir string
}

// NewFeedbackStore creates the directory if needed.
func NewFeedbackStore(dir string) (*FeedbackStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create feedback store directory: %w", err)
	}
	return &FeedbackStore{dir: dir}, nil
}

func (s *FeedbackStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save atomically writes one entry.
func (s *FeedbackStore) Save(entry *FeedbackEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize feedback %s: %w", entry.ID, err)
	}
	tmp, err := os.CreateTemp(s.dir, entry.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write feedback %s: %w", entry.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(entry.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename feedback file: %w", err)
	}
	return nil
}

// Load reads one entry, nil when absent.
func (s *FeedbackStore) Load(id string) (*FeedbackEntry, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read feedback %s: %w", id, err)
	}
	var entry FeedbackEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode feedback %s: %w", id, err)
	}
	return &entry, nil
}

// ListAll returns every entry, unreadable files skipped.
func (s *FeedbackStore) ListAll() ([]*FeedbackEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback store: %w", err)
	}
	var entries []*FeedbackEntry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		entry, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt < entries[j].CreatedAt
	})
	return entries, nil
}

// ListByJob filters entries for one job.
func (s *FeedbackStore) ListByJob(jobID string) ([]*FeedbackEntry, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var out []*FeedbackEntry
	for _, e := range all {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindByAnnotation returns the single entry for one annotation, nil when
// none exists.
func (s *FeedbackStore) FindByAnnotation(jobID, annotationID string) (*FeedbackEntry, error) {
	entries, err := s.ListByJob(jobID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.AnnotationID == annotationID {
			return e, nil
		}
	}
	return nil, nil
}

// Delete removes one entry.
func (s *FeedbackStore) Delete(id string) bool {
	return os.Remove(s.path(id)) == nil
}

// Insights aggregates ratings; empty jobID means the whole store.
func (s *FeedbackStore) Insights(jobID string) (*Insights, error) {
	var entries []*FeedbackEntry
	var err error
	if jobID != "" {
		entries, err = s.ListByJob(jobID)
	} else {
		entries, err = s.ListAll()
	}
	if err != nil {
		return nil, err
	}

	insights := &Insights{ByStage: make(map[string]StageCounts)}
	downVotes := make(map[string]*ConceptVotes)
	dismissVotes := make(map[string]*ConceptVotes)

	for _, e := range entries {
		stage := e.Stage
		if stage == "" {
			stage = "overall"
		}
		counts := insights.ByStage[stage]
		switch e.Rating {
		case "up":
			insights.ThumbsUp++
			counts.Up++
		case "down":
			insights.ThumbsDown++
			counts.Down++
			if e.FolioLabel != "" {
				tallyVote(downVotes, e)
			}
		case "dismissed":
			insights.Dismissed++
			counts.Dismissed++
			if e.FolioLabel != "" {
				tallyVote(dismissVotes, e)
			}
		}
		insights.ByStage[stage] = counts
	}

	insights.MostDownvoted = topVotes(downVotes, 10)
	insights.MostDismissed = topVotes(dismissVotes, 10)
	return insights, nil
}

func tallyVote(votes map[string]*ConceptVotes, e *FeedbackEntry) {
	if v, ok := votes[e.FolioLabel]; ok {
		v.Count++
		return
	}
	votes[e.FolioLabel] = &ConceptVotes{FolioLabel: e.FolioLabel, FolioIRI: e.FolioIRI, Count: 1}
}

func topVotes(votes map[string]*ConceptVotes, limit int) []ConceptVotes {
	out := make([]ConceptVotes, 0, len(votes))
	for _, v := range votes {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FolioLabel < out[j].FolioLabel
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
