package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lexigraph/lexigraph/pkg/export"
	"github.com/lexigraph/lexigraph/pkg/ingest"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/pipeline"
)

// EnrichCmd runs the pipeline once over a local file and prints the export.
type EnrichCmd struct {
	File   string `arg:"" help:"Document to enrich." type:"path"`
	Format string `help:"Export format (json, jsonl, csv, html)." default:"json"`
	Output string `short:"o" help:"Write export here instead of stdout." type:"path"`
}

func (c *EnrichCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	exporter, err := export.NewRegistry().Get(c.Format)
	if err != nil {
		return err
	}

	doc, err := readDocument(c.File)
	if err != nil {
		return err
	}

	// One-shot runs persist into a throwaway store; the export is the
	// only artifact that survives.
	tmpDir, err := os.MkdirTemp("", "lexigraph-enrich-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)
	cfg.Storage.JobsDir = filepath.Join(tmpDir, "jobs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onto, jobs, _, tasks, embed, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	if embed != nil {
		// One-shot reconciliation needs the index before the pipeline
		// starts, not eventually.
		if err := embed.IndexConcepts(ctx, onto); err != nil {
			return fmt.Errorf("failed to index ontology embeddings: %w", err)
		}
	}

	orchestrator := pipeline.Build(cfg, onto, jobs, tasks, embed)

	job := model.NewJob(doc)
	if err := jobs.Save(job); err != nil {
		return err
	}
	if err := orchestrator.Run(ctx, job); err != nil {
		return err
	}
	if job.Status == model.StatusFailed {
		return fmt.Errorf("enrichment failed: %s", job.Error)
	}

	content, err := exporter.Export(job)
	if err != nil {
		return err
	}
	if c.Output != "" {
		return os.WriteFile(c.Output, content, 0o644)
	}
	_, err = os.Stdout.Write(content)
	return err
}

// readDocument loads a file as a pipeline input, base64-encoding the binary
// formats.
func readDocument(path string) (*model.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	name := filepath.Base(path)
	format := ingest.DetectFormat(name, string(data))

	content := string(data)
	switch format {
	case model.FormatPDF, model.FormatWord:
		content = base64.StdEncoding.EncodeToString(data)
	}
	return &model.DocumentInput{Content: content, Format: format, Filename: name}, nil
}
