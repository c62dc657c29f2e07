package folio

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

// Resolver maps concept text to full ontology entries, caching results so a
// concept is resolved once and reused across stages (including negative
// lookups).
type Resolver struct {
	onto      *Ontology
	cache     *expirable.LRU[string, *model.ResolvedConcept]
	threshold float64
	topN      int
}

// NewResolver builds a resolver with an LRU-TTL cache.
func NewResolver(onto *Ontology, cacheSize int, ttl time.Duration, threshold float64) *Resolver {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	return &Resolver{
		onto:      onto,
		cache:     expirable.NewLRU[string, *model.ResolvedConcept](cacheSize, nil, ttl),
		threshold: threshold,
		topN:      5,
	}
}

func cacheKey(text, branch string) string {
	return strings.ToLower(text) + "|" + strings.ToLower(branch)
}

// Resolve maps concept text to an ontology entry. When an IRI is supplied
// the lookup is direct and the caller's confidence is trusted; otherwise the
// multi-strategy search runs and the best branch-compatible hit wins. Returns
// nil when nothing clears the threshold.
func (r *Resolver) Resolve(conceptText, branch string, confidence float64, source, folioIRI string) *model.ResolvedConcept {
	key := cacheKey(conceptText, branch)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	resolved := r.resolveUncached(conceptText, branch, confidence, source, folioIRI)
	r.cache.Add(key, resolved)
	return resolved
}

func (r *Resolver) resolveUncached(conceptText, branch string, confidence float64, source, folioIRI string) *model.ResolvedConcept {
	if folioIRI != "" {
		if c := r.onto.Concept(folioIRI); c != nil {
			return r.buildResolved(c, conceptText, confidence, source)
		}
		logger.GetLogger().Warn("iri lookup failed, falling back to search", "iri", folioIRI)
	}

	hits := r.onto.MultiStrategySearch(conceptText, branch, r.topN, r.threshold)
	if len(hits) == 0 {
		return nil
	}

	best := hits[0]
	c := r.onto.ConceptByHash(best.IRIHash)
	if c == nil {
		return nil
	}

	resolved := r.buildResolved(c, conceptText, confidence, source)
	if score := best.Score / 100; score > resolved.Confidence {
		resolved.Confidence = score
	}
	return resolved
}

// Candidates exposes the raw search hits, used by the branch judge to show
// the model its options.
func (r *Resolver) Candidates(conceptText, branch string, topN int) []SearchResult {
	return r.onto.MultiStrategySearch(conceptText, branch, topN, r.threshold)
}

// CacheSize returns the number of cached resolutions (including negatives).
func (r *Resolver) CacheSize() int {
	return r.cache.Len()
}

func (r *Resolver) buildResolved(c *Concept, conceptText string, confidence float64, source string) *model.ResolvedConcept {
	branchName := r.onto.BranchFor(c.IRI)
	return &model.ResolvedConcept{
		ConceptText:   conceptText,
		IRI:           c.IRI,
		IRIHash:       IRIHash(c.IRI),
		Label:         c.DisplayLabel(),
		Definition:    c.Definition,
		Synonyms:      c.AlternativeLabels,
		HiddenLabels:  c.HiddenLabels,
		Branch:        branchName,
		BranchColor:   BranchColor(branchName),
		HierarchyPath: r.onto.HierarchyPath(c.IRI),
		ChildrenCount: r.onto.ChildrenCount(c.IRI),
		Examples:      c.Examples,
		Notes:         c.Notes,
		SeeAlso:       c.SeeAlso,
		Translations:  c.Translations,
		Confidence:    confidence,
		Source:        source,
	}
}
