package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backend": map[string]string{"status": "ok"},
		"ontology": map[string]any{
			"status":     "ready",
			"concepts":   len(s.onto.Classes()),
			"properties": len(s.onto.Properties()),
		},
		"jobs": map[string]any{
			"active": s.jobs.CountActive(),
		},
	})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var doc model.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if doc.Content == "" {
		writeError(w, http.StatusBadRequest, "document content is required")
		return
	}

	if active := s.jobs.CountActive(); active >= s.cfg.MaxActiveJobs {
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many active jobs (%d), retry later", active))
		return
	}

	job := model.NewJob(&doc)
	if err := s.jobs.Save(job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist job")
		return
	}

	go func() {
		if err := s.orchestrator.Run(context.Background(), job); err != nil {
			logger.GetLogger().Error("pipeline run failed", "job", job.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// jobSummary is the list-view projection of a job.
type jobSummary struct {
	ID          string          `json:"id"`
	Status      model.JobStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Filename    string          `json:"filename,omitempty"`
	Annotations int             `json:"annotation_count"`
	Individuals int             `json:"individual_count"`
	Properties  int             `json:"property_count"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summary := jobSummary{
			ID:          job.ID,
			Status:      job.Status,
			CreatedAt:   job.CreatedAt,
			UpdatedAt:   job.UpdatedAt,
			Annotations: len(job.Result.Annotations),
			Individuals: len(job.Result.Individuals),
			Properties:  len(job.Result.Properties),
		}
		if job.Input != nil {
			summary.Filename = job.Input.Filename
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if !s.jobs.Delete(id) {
		writeError(w, http.StatusNotFound, "job not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := s.exporters.Get(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, err := exporter.Export(job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// feedbackRequest is one user verdict submission.
type feedbackRequest struct {
	JobID        string `json:"job_id"`
	AnnotationID string `json:"annotation_id,omitempty"`
	Rating       string `json:"rating"`
	Stage        string `json:"stage,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Rating != "up" && req.Rating != "down" && req.Rating != "dismissed" {
		writeError(w, http.StatusUnprocessableEntity, "rating must be up, down, or dismissed")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	entry := store.NewFeedbackEntry(req.JobID, req.AnnotationID, req.Rating)
	entry.Stage = req.Stage
	entry.Comment = req.Comment

	// Attach the annotation's concept so insights can aggregate per label.
	if req.AnnotationID != "" {
		if job, err := s.jobs.Load(req.JobID); err == nil {
			for _, ann := range job.Result.Annotations {
				if ann.ID != req.AnnotationID {
					continue
				}
				if primary := ann.Primary(); primary != nil {
					entry.FolioLabel = primary.FolioLabel
					entry.FolioIRI = primary.FolioIRI
				}
				break
			}
		}
	}

	if err := s.feedback.Save(entry); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.feedback.Insights(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate feedback")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "feedbackID")
	if !s.feedback.Delete(id) {
		writeError(w, http.StatusNotFound, "feedback not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleConceptSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	hits := s.onto.SearchByLabel(query, limit)
	out := make([]map[string]any, 0, len(hits))
	for _, c := range hits {
		out = append(out, map[string]any{
			"iri":        c.IRI,
			"iri_hash":   folio.IRIHash(c.IRI),
			"label":      c.DisplayLabel(),
			"definition": c.Definition,
			"branch":     s.onto.BranchFor(c.IRI),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConceptDetail(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "iriHash")
	c := s.onto.ConceptByHash(hash)
	if c == nil {
		writeError(w, http.StatusNotFound, "concept not found: "+hash)
		return
	}
	branch := s.onto.BranchFor(c.IRI)
	writeJSON(w, http.StatusOK, map[string]any{
		"iri":                c.IRI,
		"iri_hash":           hash,
		"label":              c.DisplayLabel(),
		"alternative_labels": c.AlternativeLabels,
		"definition":         c.Definition,
		"examples":           c.Examples,
		"see_also":           c.SeeAlso,
		"branch":             branch,
		"branch_color":       folio.BranchColor(branch),
		"hierarchy_path":     s.onto.HierarchyPath(c.IRI),
		"children_count":     s.onto.ChildrenCount(c.IRI),
	})
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	id := chi.URLParam(r, "jobID")
	job, err := s.jobs.Load(id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "job not found: "+id)
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load job")
		}
		return nil, false
	}
	return job, true
}
