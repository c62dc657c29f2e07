package folio

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// SearchStopwords are words too common to drive individual-word search or
// overlap scoring.
var SearchStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"in": true, "for": true, "to": true, "with": true, "by": true, "on": true,
	"at": true, "is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "not": true, "no": true, "has": true,
	"have": true, "had": true, "do": true, "does": true, "did": true,
	"this": true, "that": true, "it": true, "its": true, "their": true,
	"other": true, "such": true, "than": true,
	"law": true, "legal": true, "type": true, "types": true, "general": true,
}

// legalTermExpansions maps common legal content words to taxonomy-friendly
// label suffixes used to widen the candidate net.
var legalTermExpansions = map[string][]string{
	"litigation":    {"practice", "service"},
	"transactional": {"practice", "service"},
	"transaction":   {"practice", "service"},
	"transactions":  {"practice", "service"},
	"regulatory":    {"practice", "compliance"},
	"compliance":    {"practice", "service"},
	"advisory":      {"practice", "service"},
	"dispute":       {"service", "resolution"},
	"disputes":      {"service", "resolution"},
	"mediation":     {"service"},
	"arbitration":   {"service"},
	"negotiation":   {"service"},
	"settlement":    {"service", "practice"},
	"appellate":     {"practice", "service"},
	"trial":         {"practice", "service"},
	"appeals":       {"practice", "service"},
	"prosecution":   {"service"},
	"enforcement":   {"service", "action"},
	"investigation": {"service"},
	"corporate":      {"practice", "service", "law"},
	"employment":     {"practice", "service", "law"},
	"intellectual":   {"property", "practice"},
	"bankruptcy":     {"practice", "service", "law"},
	"family":         {"practice", "law"},
	"immigration":    {"practice", "service", "law"},
	"environmental":  {"practice", "law", "compliance"},
	"antitrust":      {"practice", "law", "compliance"},
	"tax":            {"practice", "service", "law"},
	"real":           {"estate", "property"},
	"estate":         {"planning", "practice", "law"},
	"counsel":        {"service", "practice"},
	"counseling":     {"service", "practice"},
	"consulting":     {"service", "practice"},
	"collection":     {"service", "practice"},
	"recovery":       {"service", "practice"},
	"foreclosure":    {"service", "practice"},
	"discovery":      {"service", "practice"},
	"diligence":      {"service", "practice"},
	"audit":          {"service", "practice"},
	"drafting":       {"service", "practice"},
	"documentation":  {"service", "practice"},
	"filing":         {"service", "practice"},
	"strategy":       {"service", "practice"},
	"planning":       {"service", "practice"},
	"risk":           {"service", "management"},
	"structuring":    {"service", "practice"},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// Tokenize splits text into lowercase alphabetic tokens of 2+ characters.
func Tokenize(text string) []string {
	raw := wordPattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		if len(w) >= 2 {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

// ContentWords extracts the non-stopword tokens from text.
func ContentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range Tokenize(text) {
		if !SearchStopwords[w] {
			words[w] = true
		}
	}
	return words
}

// WordOverlap scores the similarity of two content-word sets in [0,1].
// Forward direction credits each query word with its best target match
// (exact 1.0, prefix relation 0.8, shared 4+ char stem 0.7); the reverse
// direction is weighted 0.75 and only applies to multi-word targets.
func WordOverlap(query, target map[string]bool) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}
	forward := directionalOverlap(query, target)
	reverse := 0.0
	if len(target) >= 2 {
		reverse = directionalOverlap(target, query) * 0.75
	}
	return math.Max(forward, reverse)
}

func directionalOverlap(source, dest map[string]bool) float64 {
	matched := 0.0
	for sw := range source {
		best := 0.0
		for dw := range dest {
			if sw == dw {
				best = 1.0
				break
			}
			if len(sw) >= 3 && len(dw) >= 3 {
				if strings.HasPrefix(sw, dw) || strings.HasPrefix(dw, sw) {
					if best < 0.8 {
						best = 0.8
					}
				} else if len(sw) >= 5 && len(dw) >= 5 {
					pfx := sharedPrefixLen(sw, dw)
					shorter := len(sw)
					if len(dw) < shorter {
						shorter = len(dw)
					}
					if pfx >= 4 && float64(pfx)/float64(shorter) >= 0.7 && best < 0.7 {
						best = 0.7
					}
				}
			}
		}
		matched += best
	}
	return matched / float64(len(source))
}

func sharedPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// RelevanceScore rates a candidate 0-100 against the query.
func RelevanceScore(queryContent map[string]bool, queryFull, label, definition string, synonyms []string) float64 {
	if label == "" {
		return 0
	}
	queryLower := strings.ToLower(strings.TrimSpace(queryFull))
	labelLower := strings.ToLower(label)

	if queryLower == labelLower {
		return 99.0
	}

	labelContent := ContentWords(label)

	labelScore := 0.0
	if len(queryLower) >= 4 && strings.Contains(labelLower, queryLower) {
		labelScore = 92.0
	} else if len(labelLower) >= 4 && strings.Contains(queryLower, labelLower) &&
		float64(len(labelLower))/float64(len(queryLower)) > 0.3 {
		labelScore = 88.0
	}
	if overlap := WordOverlap(queryContent, labelContent); overlap > 0 {
		labelScore = math.Max(labelScore, overlap*88)
	}

	synScore := 0.0
	for _, syn := range synonyms {
		if overlap := WordOverlap(queryContent, ContentWords(syn)); overlap > 0 {
			synScore = math.Max(synScore, overlap*82)
		}
	}

	defScore := 0.0
	if definition != "" {
		defLower := strings.ToLower(definition)
		if strings.Contains(defLower, queryLower) {
			defScore = 60.0
		}
		if overlap := WordOverlap(queryContent, ContentWords(definition)); overlap > 0 {
			defScore = math.Max(defScore, overlap*55)
		}
	}

	primary := math.Max(labelScore, synScore)
	final := defScore
	if primary > 0 {
		final = primary + math.Min(defScore*0.12, 8)
	}
	return math.Round(math.Min(final, 99.0)*10) / 10
}

// GenerateSearchTerms expands a query into the full phrase, windowed
// sub-phrases, individual content words, and domain-aware expansions.
func GenerateSearchTerms(term string) []string {
	words := Tokenize(term)
	content := ContentWords(term)

	terms := []string{term}

	if len(words) >= 3 {
		for n := len(words) - 1; n >= 2; n-- {
			for i := 0; i+n <= len(words); i++ {
				sub := strings.Join(words[i:i+n], " ")
				if len(ContentWords(sub)) > 0 {
					terms = append(terms, sub)
				}
			}
		}
	}

	// Individual content words, longest first.
	sorted := make([]string, 0, len(content))
	for w := range content {
		if len(w) >= 3 {
			sorted = append(sorted, w)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	terms = append(terms, sorted...)

	for w := range content {
		for _, suffix := range legalTermExpansions[w] {
			terms = append(terms, w+" "+suffix)
		}
	}

	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		key := strings.ToLower(t)
		if !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

// SearchResult is one scored ontology candidate.
type SearchResult struct {
	Label       string
	IRI         string
	IRIHash     string
	Definition  string
	Synonyms    []string
	Branch      string
	BranchColor string
	Score       float64
}

// MultiStrategySearch finds ontology concepts for free text. Candidates are
// gathered by label, prefix, stem-prefix, and definition search over the
// expanded term set, then re-scored by word overlap. Hits scoring 50+
// surface up to 3 ancestor hops at a 0.6 decay per hop.
func (o *Ontology) MultiStrategySearch(text, branch string, topN int, threshold float64) []SearchResult {
	contentWords := ContentWords(text)
	if len(contentWords) == 0 {
		contentWords = make(map[string]bool)
		for _, w := range Tokenize(text) {
			contentWords[w] = true
		}
	}

	searchTerms := GenerateSearchTerms(text)

	raw := make(map[string]*Concept)
	gather := func(concepts []*Concept) {
		for _, c := range concepts {
			h := IRIHash(c.IRI)
			if _, ok := raw[h]; !ok {
				raw[h] = c
			}
		}
	}

	for _, st := range searchTerms {
		gather(o.SearchByLabel(st, 25))
		if len(st) >= 3 {
			gather(o.SearchByPrefix(st, 50))
		}
	}

	// Stem prefix: long content words searched with a 2-char-shorter stem.
	for cw := range contentWords {
		if len(cw) >= 6 {
			gather(o.SearchByPrefix(cw[:len(cw)-2], 50))
		}
	}

	defTerms := []string{text}
	cwSorted := make([]string, 0, len(contentWords))
	for w := range contentWords {
		cwSorted = append(cwSorted, w)
	}
	sort.Strings(cwSorted)
	if phrase := strings.Join(cwSorted, " "); !strings.EqualFold(phrase, text) {
		defTerms = append(defTerms, phrase)
	}
	for _, st := range defTerms {
		if len(st) >= 3 {
			gather(o.SearchByDefinition(st, 20))
		}
	}

	// Re-score every candidate against the original query.
	type scoredHit struct {
		hash    string
		concept *Concept
		score   float64
	}
	scoredMap := make(map[string]scoredHit)
	for hash, c := range raw {
		score := RelevanceScore(contentWords, text, c.DisplayLabel(), c.Definition, c.AlternativeLabels)
		if score >= threshold {
			scoredMap[hash] = scoredHit{hash, c, score}
		}
	}

	// Expansion queries can outrank the raw query for practice-area phrasing.
	for w := range contentWords {
		for _, suffix := range legalTermExpansions[w] {
			eq := w + " " + suffix
			eqContent := ContentWords(eq)
			for hash, c := range raw {
				score := RelevanceScore(eqContent, eq, c.DisplayLabel(), c.Definition, c.AlternativeLabels)
				if score < threshold {
					continue
				}
				if existing, ok := scoredMap[hash]; !ok || score > existing.score {
					scoredMap[hash] = scoredHit{hash, c, score}
				}
			}
		}
	}

	// Ancestor surfacing for strong hits.
	ancestorScores := make(map[string]float64)
	for _, hit := range scoredMap {
		if hit.score < 50 {
			continue
		}
		current := hit.concept
		decayed := hit.score
		for depth := 1; depth <= 3; depth++ {
			if current == nil || len(current.SubClassOf) == 0 {
				break
			}
			parentIRI := current.SubClassOf[0]
			if isRootIRI(parentIRI) {
				break
			}
			parentHash := IRIHash(parentIRI)
			decayed = hit.score * math.Pow(0.6, float64(depth))
			if _, inRaw := raw[parentHash]; !inRaw && decayed >= threshold {
				if decayed > ancestorScores[parentHash] {
					ancestorScores[parentHash] = decayed
				}
			}
			current = o.byHash[parentHash]
		}
	}
	for hash, score := range ancestorScores {
		if _, ok := scoredMap[hash]; ok {
			continue
		}
		if parent := o.byHash[hash]; parent != nil {
			scoredMap[hash] = scoredHit{hash, parent, math.Round(score*10) / 10}
		}
	}

	scored := make([]scoredHit, 0, len(scoredMap))
	for _, hit := range scoredMap {
		scored = append(scored, hit)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].hash < scored[j].hash
	})

	var results []SearchResult
	var offBranch []SearchResult
	for _, hit := range scored {
		branchName := o.BranchFor(hit.concept.IRI)
		if ExcludedBranches[branchName] {
			continue
		}
		r := SearchResult{
			Label:       hit.concept.DisplayLabel(),
			IRI:         hit.concept.IRI,
			IRIHash:     hit.hash,
			Definition:  hit.concept.Definition,
			Synonyms:    hit.concept.AlternativeLabels,
			Branch:      branchName,
			BranchColor: BranchColor(branchName),
			Score:       hit.score,
		}
		// Branch hint re-ranks matching candidates first.
		if branch != "" && branchName != "" &&
			!strings.Contains(strings.ToLower(branchName), strings.ToLower(branch)) {
			offBranch = append(offBranch, r)
		} else {
			results = append(results, r)
		}
		if len(results) >= topN {
			break
		}
	}
	for _, r := range offBranch {
		if len(results) >= topN {
			break
		}
		results = append(results, r)
	}
	return results
}
