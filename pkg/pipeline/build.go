package pipeline

import (
	"sync"

	"github.com/lexigraph/lexigraph/pkg/concept"
	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/dependency"
	"github.com/lexigraph/lexigraph/pkg/docmeta"
	"github.com/lexigraph/lexigraph/pkg/embedding"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/individual"
	"github.com/lexigraph/lexigraph/pkg/ingest"
	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/property"
	"github.com/lexigraph/lexigraph/pkg/quality"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// Build wires the standard three-phase pipeline. LLM-dependent stages are
// skipped when no provider can be constructed for their task; the rest of
// the pipeline still runs. embed may be nil.
func Build(cfg *config.Config, onto *folio.Ontology, jobs *store.JobStore, tasks *llms.TaskSet, embed *embedding.Index) *Orchestrator {
	mu := &sync.Mutex{}

	var sim concept.EmbeddingSimilarity
	if embed != nil {
		sim = embed
	}

	resolver := folio.NewResolver(onto, cfg.Pipeline.ResolverCacheSize,
		cfg.Pipeline.ResolverCacheTTL, cfg.Pipeline.ResolverThreshold)

	phases := Phases{
		PreParallel: []Stage{
			&ingestStage{registry: ingest.NewRegistry()},
			&normalizeStage{cfg: cfg.Pipeline},
		},
		Parallel: []Stage{
			&rulerStage{mu: mu, onto: onto},
			&earlyIndividualStage{
				mu:        mu,
				citations: individual.NewCitationExtractor(),
				runner:    individual.NewRunner(individual.DefaultExtractors()),
			},
			&earlyPropertyStage{mu: mu, onto: onto, cfg: cfg.Pipeline},
		},
		PostParallel: []Stage{
			&reconcileStage{
				reconciler: concept.NewReconciler(cfg.Pipeline.RulerOnlyMinConfidence, sim),
				onto:       onto,
			},
			&resolveStage{resolver: resolver},
		},
	}

	if llm := providerFor(tasks, "concept"); llm != nil {
		phases.Parallel = append(phases.Parallel, &llmConceptStage{
			mu:         mu,
			identifier: concept.NewIdentifier(llm, onto.BranchNames()),
		})
		phases.PostParallel = append(phases.PostParallel, &rerankStage{
			reranker: concept.NewReranker(llm, cfg.Pipeline.RerankContextChars),
		})
	}
	if llm := providerFor(tasks, "document_type"); llm != nil {
		phases.Parallel = append(phases.Parallel, &docTypeStage{
			mu:         mu,
			classifier: docmeta.NewClassifier(llm),
		})
	}

	phases.PostParallel = append(phases.PostParallel, &stringMatchStage{})

	if llm := providerFor(tasks, "branch_judge"); llm != nil {
		phases.PostParallel = append(phases.PostParallel, &judgeStage{
			judge:    concept.NewBranchJudge(llm, onto.BranchNames()),
			resolver: resolver,
		})
	}
	if llm := providerFor(tasks, "individual"); llm != nil {
		phases.PostParallel = append(phases.PostParallel, &llmIndividualStage{
			identifier: individual.NewLLMIdentifier(llm),
		})
	}
	if llm := providerFor(tasks, "property"); llm != nil {
		phases.PostParallel = append(phases.PostParallel, &llmPropertyStage{
			identifier: property.NewLLMIdentifier(llm, onto),
		})
	}

	phases.PostParallel = append(phases.PostParallel, &dependencyStage{parser: dependency.NewParser()})

	meta := &metadataStage{}
	if llm := providerFor(tasks, "classifier"); llm != nil {
		meta.classifier = docmeta.NewClassifier(llm)
	}
	if llm := providerFor(tasks, "extractor"); llm != nil {
		meta.extractor = docmeta.NewExtractor(llm)
	}
	phases.PostParallel = append(phases.PostParallel, meta)

	var areas *concept.AreaAssessor
	if llm := providerFor(tasks, "area_of_law"); llm != nil {
		areas = concept.NewAreaAssessor(llm)
	}
	var checker *quality.Checker
	if llm := providerFor(tasks, "document_type"); llm != nil {
		checker = quality.NewChecker(llm)
	}

	return NewOrchestrator(jobs, phases, mu, areas, checker)
}

func providerFor(tasks *llms.TaskSet, task string) llms.Provider {
	if tasks == nil {
		return nil
	}
	p, err := tasks.ForTask(task)
	if err != nil {
		logger.GetLogger().Warn("no llm provider for task, stage disabled", "task", task, "error", err)
		return nil
	}
	return p
}
