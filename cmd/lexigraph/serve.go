package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/embedding"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/pipeline"
	"github.com/lexigraph/lexigraph/pkg/server"
	"github.com/lexigraph/lexigraph/pkg/store"
)

// ServeCmd starts the enrichment HTTP server.
type ServeCmd struct {
	Port     int    `help:"Port to listen on (overrides config)."`
	Ontology string `help:"Ontology JSON path (overrides config)." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.GetLogger().Info("shutting down")
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Ontology != "" {
		cfg.Ontology.Path = c.Ontology
	}

	onto, jobs, feedback, tasks, embed, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}

	orchestrator := pipeline.Build(cfg, onto, jobs, tasks, embed)
	srv := server.New(cfg, jobs, feedback, onto, orchestrator)

	go retentionLoop(ctx, jobs, cfg.Storage.JobRetentionDays)

	fmt.Printf("lexigraph listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	return srv.ListenAndServe(ctx)
}

// buildDependencies loads the ontology and wires the shared stores and LLM
// task set. The embedding index is optional and indexed in the background so
// startup stays fast.
func buildDependencies(ctx context.Context, cfg *config.Config) (*folio.Ontology, *store.JobStore, *store.FeedbackStore, *llms.TaskSet, *embedding.Index, error) {
	log := logger.GetLogger()

	onto, err := folio.Load(cfg.Ontology.Path)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to load ontology: %w", err)
	}
	log.Info("ontology loaded",
		"classes", len(onto.Classes()), "properties", len(onto.Properties()))

	jobs, err := store.NewJobStore(cfg.Storage.JobsDir)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	feedback, err := store.NewFeedbackStore(cfg.Storage.FeedbackDir)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	tasks := llms.NewTaskSet(cfg.LLM)

	embed, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Warn("embedding index disabled", "error", err)
		embed = nil
	}
	if embed != nil {
		go func() {
			if err := embed.IndexConcepts(ctx, onto); err != nil {
				log.Warn("failed to index ontology embeddings", "error", err)
				return
			}
			log.Info("ontology embeddings indexed", "size", embed.IndexSize())
		}()
	}

	return onto, jobs, feedback, tasks, embed, nil
}

// retentionLoop prunes expired jobs once a day.
func retentionLoop(ctx context.Context, jobs *store.JobStore, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if n := jobs.CleanupExpired(retentionDays); n > 0 {
			logger.GetLogger().Info("expired jobs removed", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
