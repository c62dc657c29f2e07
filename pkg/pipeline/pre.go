package pipeline

import (
	"context"
	"fmt"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/ingest"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/normalize"
)

// ingestStage converts the raw document into plain text via the
// format-indexed ingester registry.
type ingestStage struct {
	registry *ingest.Registry
}

func (s *ingestStage) Name() string { return "ingestion" }

func (s *ingestStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusIngesting
	if job.Input == nil {
		return fmt.Errorf("job has no input document")
	}
	if job.Input.Format == "" {
		job.Input.Format = ingest.DetectFormat(job.Input.Filename, job.Input.Content)
	}

	rawText, elements, err := s.registry.Ingest(job.Input)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if rawText == "" {
		return fmt.Errorf("no text extracted from %s document", job.Input.Format)
	}

	scratch := job.Result.Metadata.EnsureScratch()
	scratch.RawText = rawText
	scratch.Elements = elements

	job.Result.Metadata.SourceFormat = string(job.Input.Format)
	pages := 0
	for _, el := range elements {
		if el.Page > pages {
			pages = el.Page
		}
	}
	job.Result.Metadata.PageCount = pages

	job.LogActivity(s.Name(), fmt.Sprintf("Extracted %d characters from %s input", len(rawText), job.Input.Format))
	return nil
}

// normalizeStage canonicalizes whitespace and chunks the text with
// sentence-aware boundaries.
type normalizeStage struct {
	cfg config.PipelineConfig
}

func (s *normalizeStage) Name() string { return "normalization" }

func (s *normalizeStage) Execute(ctx context.Context, job *model.Job) error {
	job.Status = model.StatusNormalizing
	scratch := job.Result.Metadata.EnsureScratch()
	if scratch.RawText == "" {
		return fmt.Errorf("no raw text to normalize")
	}

	canonical := normalize.Canonicalize(scratch.RawText, job.Input.Format,
		s.cfg.MaxChunkChars, s.cfg.ChunkOverlapChars)
	canonical.Elements = scratch.Elements
	job.Result.CanonicalText = canonical

	job.LogActivity(s.Name(), fmt.Sprintf("Normalized to %d characters in %d chunks",
		len(canonical.FullText), len(canonical.Chunks)))
	return nil
}
