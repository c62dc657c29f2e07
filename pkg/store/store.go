// Package store persists jobs as one JSON file each, written atomically so
// the event stream can read any snapshot mid-pipeline.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// ErrNotFound reports a missing job.
var ErrNotFound = errors.New("job not found")

// JobStore keeps one JSON file per job under a directory. Writes go through
// a temp file and rename for crash safety; readers never observe a torn
// file.
type JobStore struct {
	dir string
}

// NewJobStore creates the directory if needed.
func NewJobStore(dir string) (*JobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job store directory: %w", err)
	}
	return &JobStore{dir: dir}, nil
}

func (s *JobStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save serializes the job and atomically replaces its file.
func (s *JobStore) Save(job *model.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, job.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(job.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename job file: %w", err)
	}
	return nil
}

// Load reads one job. Returns ErrNotFound when no file exists.
func (s *JobStore) Load(id string) (*model.Job, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

// List returns all stored jobs, newest first.
func (s *JobStore) List() ([]*model.Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list job store: %w", err)
	}

	var jobs []*model.Job
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		job, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			logger.GetLogger().Warn("skipping unreadable job file", "file", name, "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// Delete removes a job file. Reports whether anything was deleted.
func (s *JobStore) Delete(id string) bool {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		logger.GetLogger().Warn("failed to delete job file", "job", id, "error", err)
	}
	return err == nil
}

// CountActive counts jobs currently running: neither pending nor terminal.
func (s *JobStore) CountActive() int {
	jobs, err := s.List()
	if err != nil {
		return 0
	}
	count := 0
	for _, job := range jobs {
		if job.Status != model.StatusPending && !job.Status.Terminal() {
			count++
		}
	}
	return count
}

// CleanupExpired deletes jobs not updated within the retention window.
// Returns the number removed.
func (s *JobStore) CleanupExpired(retentionDays int) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	jobs, err := s.List()
	if err != nil {
		return 0
	}
	removed := 0
	for _, job := range jobs {
		if job.UpdatedAt.Before(cutoff) && s.Delete(job.ID) {
			removed++
		}
	}
	if removed > 0 {
		logger.GetLogger().Info("expired jobs cleaned up", "removed", removed)
	}
	return removed
}
