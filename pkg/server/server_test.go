package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/pipeline"
	"github.com/lexigraph/lexigraph/pkg/store"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

type testEnv struct {
	srv    *Server
	router http.Handler
	jobs   *store.JobStore
	cfg    *config.Config
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testutils.TestConfig(t)
	// Generous default so only the dedicated test exercises throttling.
	cfg.Server.RateLimitPerSecond = 1000
	cfg.Server.RateLimitBurst = 1000
	if mutate != nil {
		mutate(cfg)
	}

	onto, err := folio.Load(cfg.Ontology.Path)
	require.NoError(t, err)
	jobs, err := store.NewJobStore(cfg.Storage.JobsDir)
	require.NoError(t, err)
	feedback, err := store.NewFeedbackStore(cfg.Storage.FeedbackDir)
	require.NoError(t, err)

	srv := New(cfg, jobs, feedback, onto, pipeline.Build(cfg, onto, jobs, nil, nil))
	return &testEnv{srv: srv, router: srv.Router(), jobs: jobs, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/health/detail", "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Ontology struct {
			Concepts   int `json:"concepts"`
			Properties int `json:"properties"`
		} `json:"ontology"`
	}
	decodeBody(t, w, &detail)
	assert.Equal(t, 6, detail.Ontology.Concepts)
	assert.Equal(t, 2, detail.Ontology.Properties)
}

func TestCreateJobRunsPipeline(t *testing.T) {
	env := newTestEnv(t, nil)

	body, err := json.Marshal(map[string]string{
		"content": testutils.SampleComplaint, "format": "plain_text", "filename": "complaint.txt",
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/enrich", string(body))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decodeBody(t, w, &resp)
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, "pending", resp.Status)

	require.Eventually(t, func() bool {
		job, err := env.jobs.Load(resp.JobID)
		return err == nil && job.Status.Terminal()
	}, 15*time.Second, 25*time.Millisecond)

	job, err := env.jobs.Load(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.NotEmpty(t, job.Result.Annotations)
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/enrich", `{"content": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/enrich", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateJobBackpressure(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Server.MaxActiveJobs = 2 })

	for i := 0; i < 2; i++ {
		job := model.NewJob(&model.DocumentInput{Content: "x"})
		job.Status = model.StatusEnriching
		require.NoError(t, env.jobs.Save(job))
	}

	w := env.do(t, http.MethodPost, "/enrich", `{"content": "some text"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

func TestGetAndDeleteJob(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/enrich/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	job := model.NewJob(&model.DocumentInput{Content: "x", Filename: "a.txt"})
	job.Status = model.StatusCompleted
	require.NoError(t, env.jobs.Save(job))

	w = env.do(t, http.MethodGet, "/enrich/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var loaded model.Job
	decodeBody(t, w, &loaded)
	assert.Equal(t, job.ID, loaded.ID)

	w = env.do(t, http.MethodGet, "/enrich", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	decodeBody(t, w, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a.txt", summaries[0].Filename)

	w = env.do(t, http.MethodDelete, "/enrich/"+job.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/enrich/"+job.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportFormats(t *testing.T) {
	env := newTestEnv(t, nil)

	job := model.NewJob(&model.DocumentInput{Content: "x"})
	job.Status = model.StatusCompleted
	job.Result.CanonicalText = &model.CanonicalText{FullText: "The breach of contract claim."}
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 4, End: 22, Text: "breach of contract"},
			model.ConceptMatch{ConceptText: "breach of contract", FolioIRI: testutils.BreachIRI,
				FolioLabel: "Breach of Contract", Confidence: 0.95}))
	require.NoError(t, env.jobs.Save(job))

	w := env.do(t, http.MethodGet, "/enrich/"+job.ID+"/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodGet, "/enrich/"+job.ID+"/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Breach of Contract")

	w = env.do(t, http.MethodGet, "/enrich/"+job.ID+"/export?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitFeedback(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/feedback", `{"job_id": "j", "rating": "meh"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, "/feedback", `{"rating": "up"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	job := model.NewJob(&model.DocumentInput{Content: "x"})
	ann := model.NewAnnotation(model.Span{Start: 0, End: 5, Text: "lease"},
		model.ConceptMatch{ConceptText: "lease", FolioIRI: testutils.LeaseIRI, FolioLabel: "Lease Agreement"})
	job.Result.Annotations = append(job.Result.Annotations, ann)
	require.NoError(t, env.jobs.Save(job))

	body, err := json.Marshal(map[string]string{
		"job_id": job.ID, "annotation_id": ann.ID, "rating": "down", "stage": "reconciliation",
	})
	require.NoError(t, err)
	w = env.do(t, http.MethodPost, "/feedback", string(body))
	require.Equal(t, http.StatusCreated, w.Code)

	var entry store.FeedbackEntry
	decodeBody(t, w, &entry)
	assert.Equal(t, "Lease Agreement", entry.FolioLabel, "the concept rides along for insights")
	assert.Equal(t, testutils.LeaseIRI, entry.FolioIRI)

	w = env.do(t, http.MethodGet, "/feedback/insights", "")
	require.Equal(t, http.StatusOK, w.Code)
	var insights store.Insights
	decodeBody(t, w, &insights)
	assert.Equal(t, 1, insights.ThumbsDown)

	w = env.do(t, http.MethodDelete, "/feedback/"+entry.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/feedback/"+entry.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConceptSearch(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/concepts/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/concepts/search?q=tribunal", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hits []struct {
		IRI    string `json:"iri"`
		Label  string `json:"label"`
		Branch string `json:"branch"`
	}
	decodeBody(t, w, &hits)
	require.NotEmpty(t, hits)
	assert.Equal(t, testutils.CourtIRI, hits[0].IRI)
	assert.Equal(t, "Court", hits[0].Label)
	assert.Equal(t, "Governmental Body", hits[0].Branch)
}

func TestConceptDetail(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/concepts/"+folio.IRIHash(testutils.BreachIRI), "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		IRI           string   `json:"iri"`
		Label         string   `json:"label"`
		Branch        string   `json:"branch"`
		HierarchyPath []string `json:"hierarchy_path"`
	}
	decodeBody(t, w, &detail)
	assert.Equal(t, testutils.BreachIRI, detail.IRI)
	assert.Equal(t, "Breach of Contract", detail.Label)
	assert.Equal(t, []string{"Area of Law", "Contract Law", "Breach of Contract"}, detail.HierarchyPath)

	w = env.do(t, http.MethodGet, "/concepts/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamCompletedJob(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/enrich/missing/stream", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	job := model.NewJob(&model.DocumentInput{Content: "x"})
	job.Status = model.StatusCompleted
	job.Result.Annotations = append(job.Result.Annotations,
		model.NewAnnotation(model.Span{Start: 0, End: 5, Text: "lease"},
			model.ConceptMatch{ConceptText: "lease"}))
	require.NoError(t, env.jobs.Save(job))

	w = env.do(t, http.MethodGet, "/enrich/"+job.ID+"/stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: status\n")
	assert.Contains(t, body, "event: complete\n")
	assert.Contains(t, body, `"annotation_count":1`)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.RateLimitPerSecond = 0.001
		cfg.Server.RateLimitBurst = 2
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "").Code)

	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
