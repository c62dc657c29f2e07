// Package embedding provides an optional vector index over ontology concept
// labels, used to triage IRI conflicts during reconciliation.
package embedding

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/lexigraph/lexigraph/pkg/config"
	"github.com/lexigraph/lexigraph/pkg/folio"
	"github.com/lexigraph/lexigraph/pkg/logger"
)

const collectionName = "concept-labels"

// Index embeds texts through an OpenAI-compatible endpoint and holds a
// chromem collection of concept labels. Constructed only when embeddings
// are enabled in config; a nil *Index is a valid "disabled" value for
// callers that accept the interface.
type Index struct {
	db    *chromem.DB
	col   *chromem.Collection
	embed chromem.EmbeddingFunc

	mu    sync.Mutex
	cache map[string][]float32
}

// New builds an index from config. Returns nil when embeddings are disabled.
func New(cfg config.EmbeddingConfig) (*Index, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	model := cfg.Model
	if model == "" {
		model = string(chromem.EmbeddingModelOpenAI3Small)
	}

	var embed chromem.EmbeddingFunc
	if cfg.BaseURL != "" {
		embed = chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, model, nil)
	} else {
		embed = chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(model))
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding collection: %w", err)
	}

	return &Index{
		db:    db,
		col:   col,
		embed: embed,
		cache: make(map[string][]float32),
	}, nil
}

// IndexConcepts embeds every non-deprecated concept's display label and
// definition. Expensive; run once at startup.
func (idx *Index) IndexConcepts(ctx context.Context, onto *folio.Ontology) error {
	if idx == nil {
		return nil
	}

	var docs []chromem.Document
	seen := make(map[string]bool)
	for _, info := range onto.AllLabels() {
		c := info.Concept
		if c == nil || info.LabelType != folio.LabelPreferred || seen[c.IRI] {
			continue
		}
		seen[c.IRI] = true
		content := c.DisplayLabel()
		if c.Definition != "" {
			content += ": " + c.Definition
		}
		docs = append(docs, chromem.Document{ID: c.IRI, Content: content})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := idx.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index concept labels: %w", err)
	}
	logger.GetLogger().Info("embedding index built", "concepts", len(docs))
	return nil
}

// IndexSize reports the number of indexed concepts. Zero disables triage.
func (idx *Index) IndexSize() int {
	if idx == nil || idx.col == nil {
		return 0
	}
	return idx.col.Count()
}

// SimilarityBatch returns the cosine similarity for each (mention, label)
// pair. Embeddings from the OpenAI endpoints are unit-normalized, so the
// dot product is the cosine.
func (idx *Index) SimilarityBatch(ctx context.Context, pairs [][2]string) ([]float64, error) {
	if idx == nil {
		return nil, fmt.Errorf("embedding index not configured")
	}

	sims := make([]float64, len(pairs))
	for i, pair := range pairs {
		a, err := idx.embedCached(ctx, pair[0])
		if err != nil {
			return nil, err
		}
		b, err := idx.embedCached(ctx, pair[1])
		if err != nil {
			return nil, err
		}
		sims[i] = dot(a, b)
	}
	return sims, nil
}

func (idx *Index) embedCached(ctx context.Context, text string) ([]float32, error) {
	idx.mu.Lock()
	vec, ok := idx.cache[text]
	idx.mu.Unlock()
	if ok {
		return vec, nil
	}

	vec, err := idx.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %q: %w", text, err)
	}

	idx.mu.Lock()
	idx.cache[text] = vec
	idx.mu.Unlock()
	return vec, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
