package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func newJobStore(t *testing.T) *JobStore {
	t.Helper()
	s, err := NewJobStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestJobRoundtrip(t *testing.T) {
	s := newJobStore(t)

	job := model.NewJob(&model.DocumentInput{
		Content: "The lease agreement.", Format: model.FormatPlainText, Filename: "lease.txt",
	})
	job.Status = model.StatusEnriching
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 4, End: 19, Text: "lease agreement"},
			model.ConceptMatch{ConceptText: "lease agreement", Confidence: 0.95}))
	job.LogActivity("test", "one entry")

	require.NoError(t, s.Save(job))

	loaded, err := s.Load(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, loaded.ID)
	assert.Equal(t, model.StatusEnriching, loaded.Status)
	assert.Equal(t, "lease.txt", loaded.Input.Filename)
	require.Len(t, loaded.Result.Annotations, 1)
	assert.Equal(t, "lease agreement", loaded.Result.Annotations[0].Span.Text)
	assert.Len(t, loaded.Result.Metadata.ActivityLog, 1)
}

func TestScratchNeverPersisted(t *testing.T) {
	s := newJobStore(t)

	job := model.NewJob(nil)
	job.Result.Metadata.EnsureScratch().RawText = "transient"
	require.NoError(t, s.Save(job))

	loaded, err := s.Load(job.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Result.Metadata.Scratch)
}

func TestLoadMissingJob(t *testing.T) {
	s := newJobStore(t)
	_, err := s.Load("no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJobStore(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		job := model.NewJob(nil)
		require.NoError(t, s.Save(job))
		require.NoError(t, s.Save(job)) // overwrite path
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Regexp(t, `\.json$`, e.Name())
	}
	assert.Len(t, entries, 5)
}

func TestCountActive(t *testing.T) {
	s := newJobStore(t)

	for _, status := range []model.JobStatus{
		model.StatusPending, model.StatusEnriching, model.StatusMatching,
		model.StatusCompleted, model.StatusFailed,
	} {
		job := model.NewJob(nil)
		job.Status = status
		require.NoError(t, s.Save(job))
	}

	assert.Equal(t, 2, s.CountActive(), "pending and terminal jobs are not active")
}

func TestCleanupExpired(t *testing.T) {
	s := newJobStore(t)

	old := model.NewJob(nil)
	old.UpdatedAt = time.Now().UTC().AddDate(0, 0, -40)
	require.NoError(t, s.Save(old))

	fresh := model.NewJob(nil)
	require.NoError(t, s.Save(fresh))

	assert.Equal(t, 1, s.CleanupExpired(30))

	_, err := s.Load(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(fresh.ID)
	assert.NoError(t, err)
}

func TestListNewestFirst(t *testing.T) {
	s := newJobStore(t)

	first := model.NewJob(nil)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := model.NewJob(nil)
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	jobs, err := s.List()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
}

func TestFeedbackInsights(t *testing.T) {
	fs, err := NewFeedbackStore(t.TempDir())
	require.NoError(t, err)

	save := func(jobID, rating, stage, label string) {
		entry := NewFeedbackEntry(jobID, "", rating)
		entry.Stage = stage
		entry.FolioLabel = label
		require.NoError(t, fs.Save(entry))
	}

	save("job-1", "up", "reconciliation", "")
	save("job-1", "down", "reconciliation", "Trust")
	save("job-1", "down", "", "Trust")
	save("job-2", "dismissed", "", "Will")

	all, err := fs.Insights("")
	require.NoError(t, err)
	assert.Equal(t, 1, all.ThumbsUp)
	assert.Equal(t, 2, all.ThumbsDown)
	assert.Equal(t, 1, all.Dismissed)
	require.NotEmpty(t, all.MostDownvoted)
	assert.Equal(t, "Trust", all.MostDownvoted[0].FolioLabel)
	assert.Equal(t, 2, all.MostDownvoted[0].Count)
	assert.Equal(t, 1, all.ByStage["reconciliation"].Down)
	assert.Equal(t, 1, all.ByStage["overall"].Down)

	scoped, err := fs.Insights("job-2")
	require.NoError(t, err)
	assert.Equal(t, 0, scoped.ThumbsDown)
	assert.Equal(t, 1, scoped.Dismissed)
	require.Len(t, scoped.MostDismissed, 1)
	assert.Equal(t, "Will", scoped.MostDismissed[0].FolioLabel)
}

func TestFeedbackDelete(t *testing.T) {
	fs, err := NewFeedbackStore(t.TempDir())
	require.NoError(t, err)

	entry := NewFeedbackEntry("job-1", "ann-1", "up")
	require.NoError(t, fs.Save(entry))
	assert.True(t, fs.Delete(entry.ID))
	assert.False(t, fs.Delete(entry.ID))
}
