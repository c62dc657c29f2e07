// Package pipeline runs the staged enrichment flow over a job: a sequential
// pre-parallel phase (ingestion, normalization), a five-way parallel phase
// (ruler, LLM concepts, early individuals, early properties, document type),
// and a sequential post-parallel phase (reconciliation through metadata).
//
// Contract per stage: mutate the supplied job in place. After each stage the
// orchestrator stamps updated_at and persists the job so the event stream
// can pick up the snapshot. A pre- or post-parallel failure marks the job
// failed and stops; a parallel-phase failure is logged and the pipeline
// continues with that stage's output absent.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexigraph/lexigraph/pkg/concept"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/quality"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// Stage is one unit of pipeline work.
type Stage interface {
	Name() string
	Execute(ctx context.Context, job *model.Job) error
}

// Phases declares the three-phase pipeline layout. Parallel stages receive
// the same job and must confine writes to disjoint fields, applied under
// the shared mutex.
type Phases struct {
	PreParallel  []Stage
	Parallel     []Stage
	PostParallel []Stage
}

// Orchestrator drives a job through the declared phases.
type Orchestrator struct {
	jobs   *store.JobStore
	phases Phases

	// mu serializes job mutation and persistence during the parallel
	// phase. Parallel stages hold it while applying their results.
	mu *sync.Mutex

	// Post-completion assessors; either may be nil when no provider is
	// configured for the task.
	areas   *concept.AreaAssessor
	checker *quality.Checker
}

// NewOrchestrator wires an orchestrator over the given phases. mu must be
// the same mutex handed to the parallel stages.
func NewOrchestrator(jobs *store.JobStore, phases Phases, mu *sync.Mutex, areas *concept.AreaAssessor, checker *quality.Checker) *Orchestrator {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Orchestrator{jobs: jobs, phases: phases, mu: mu, areas: areas, checker: checker}
}

// Run executes the pipeline for one job. The returned error reflects the
// terminal persistence state, not stage outcomes: stage failures are
// recorded on the job itself.
func (o *Orchestrator) Run(ctx context.Context, job *model.Job) error {
	log := logger.GetLogger()

	for _, stage := range o.phases.PreParallel {
		log.Info("running stage", "stage", stage.Name(), "job", job.ID)
		if err := stage.Execute(ctx, job); err != nil {
			return o.fail(job, stage.Name(), err)
		}
		o.persist(job)
	}

	job.LogActivity("orchestrator", "Ingestion and normalization complete")
	job.Status = model.StatusEnriching
	o.persist(job)
	job.LogActivity("orchestrator", "Running ruler, LLM concepts, early individuals, early properties, and document type in parallel")

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range o.phases.Parallel {
		stage := stage
		g.Go(func() error {
			log.Info("running stage", "stage", stage.Name(), "job", job.ID, "phase", "parallel")
			if err := stage.Execute(gctx, job); err != nil {
				log.Warn("parallel stage failed, continuing", "stage", stage.Name(), "job", job.ID, "error", err)
				return nil
			}
			o.mu.Lock()
			job.UpdatedAt = time.Now().UTC()
			if err := o.jobs.Save(job); err != nil {
				log.Warn("failed to persist job after parallel stage", "stage", stage.Name(), "error", err)
			}
			o.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	job.LogActivity("orchestrator", "Parallel enrichment complete")
	o.persist(job)

	for _, stage := range o.phases.PostParallel {
		log.Info("running stage", "stage", stage.Name(), "job", job.ID)
		if err := stage.Execute(ctx, job); err != nil {
			return o.fail(job, stage.Name(), err)
		}
		o.persist(job)
	}

	job.LogActivity("orchestrator", fmt.Sprintf("Pipeline complete: %d annotations, %d individuals, %d properties",
		len(job.Result.Annotations), len(job.Result.Individuals), len(job.Result.Properties)))
	job.Status = model.StatusCompleted
	o.persist(job)

	o.assessAreas(ctx, job)
	o.checkQuality(ctx, job)
	return nil
}

// persist stamps updated_at and saves; persistence failures are logged, not
// fatal, so a transient disk error does not kill an otherwise healthy run.
func (o *Orchestrator) persist(job *model.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job.UpdatedAt = time.Now().UTC()
	if err := o.jobs.Save(job); err != nil {
		logger.GetLogger().Warn("failed to persist job", "job", job.ID, "error", err)
	}
}

func (o *Orchestrator) fail(job *model.Job, stage string, err error) error {
	logger.GetLogger().Error("pipeline failed", "job", job.ID, "stage", stage, "error", err)
	job.LogActivity("orchestrator", fmt.Sprintf("Pipeline failed in %s: %v", stage, err))
	job.Status = model.StatusFailed
	job.Error = err.Error()
	o.persist(job)
	return nil
}

// assessAreas runs the post-completion area-of-law classification. Failures
// are logged; the job stays completed.
func (o *Orchestrator) assessAreas(ctx context.Context, job *model.Job) {
	if o.areas == nil {
		return
	}
	areas, err := o.areas.Assess(ctx, &job.Result.Metadata)
	if err != nil {
		logger.GetLogger().Warn("area of law assessment failed", "job", job.ID, "error", err)
		return
	}
	if len(areas) == 0 {
		return
	}
	job.Result.Metadata.AreasOfLaw = areas
	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Area
	}
	job.LogActivity("area_of_law", "Classified: "+strings.Join(names, ", "))
	o.persist(job)
}

// checkQuality cross-checks the self-identified document type against the
// pipeline findings.
func (o *Orchestrator) checkQuality(ctx context.Context, job *model.Job) {
	if o.checker == nil {
		return
	}
	signals := o.checker.Check(ctx, job)
	if len(signals) == 0 {
		return
	}
	rendered := make([]string, len(signals))
	for i, s := range signals {
		rendered[i] = fmt.Sprintf("[%s] %s: %s", s.Severity, s.Signal, s.Details)
	}
	job.Result.Metadata.QualitySignals = rendered
	job.LogActivity("quality_check", fmt.Sprintf("Document type cross-check: %d signal(s)", len(signals)))
	o.persist(job)
}
