package match

import (
	"sort"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Match is one accepted pattern occurrence.
type Match struct {
	Pattern string // lowercased pattern text
	Start   int
	End     int // exclusive
	Value   any  // metadata attached when the pattern was added
}

// Len returns the span length.
func (m Match) Len() int { return m.End - m.Start }

// Matcher is a multi-pattern string matcher over an Aho-Corasick automaton.
// Patterns are matched case-insensitively at word boundaries; overlapping
// raw matches are resolved with containment awareness.
type Matcher struct {
	values   map[string]any
	patterns []string
	ac       *ahocorasick.AhoCorasick
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{values: make(map[string]any)}
}

// AddPattern registers a pattern with attached metadata. Re-adding the same
// pattern (case-insensitively) replaces its metadata.
func (m *Matcher) AddPattern(pattern string, value any) {
	key := strings.ToLower(pattern)
	if _, exists := m.values[key]; !exists {
		m.patterns = append(m.patterns, key)
	}
	m.values[key] = value
	m.ac = nil
}

// HasPattern reports whether the pattern is already registered.
func (m *Matcher) HasPattern(pattern string) bool {
	_, ok := m.values[strings.ToLower(pattern)]
	return ok
}

// PatternCount returns the number of registered patterns.
func (m *Matcher) PatternCount() int { return len(m.patterns) }

// Build compiles the automaton. Called implicitly by Search when needed.
func (m *Matcher) Build() {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.StandardMatch,
	})
	ac := builder.Build(m.patterns)
	m.ac = &ac
}

// Search finds all pattern occurrences in text that sit on word boundaries,
// then resolves overlaps. Results are sorted by start, longer spans first.
func (m *Matcher) Search(text string) []Match {
	if len(m.patterns) == 0 {
		return nil
	}
	if m.ac == nil {
		m.Build()
	}

	lowered := strings.ToLower(text)
	var raw []Match

	iter := m.ac.IterOverlapping(lowered)
	for next := iter.Next(); next != nil; next = iter.Next() {
		start, end := next.Start(), next.End()
		if !isWordBoundary(lowered, start-1) || !isWordBoundary(lowered, end) {
			continue
		}
		pattern := m.patterns[next.Pattern()]
		raw = append(raw, Match{
			Pattern: pattern,
			Start:   start,
			End:     end,
			Value:   m.values[pattern],
		})
	}

	return ResolveOverlaps(raw)
}

// isWordBoundary reports whether the character at pos does not continue a
// word. Positions outside the text are boundaries.
func isWordBoundary(text string, pos int) bool {
	if pos < 0 || pos >= len(text) {
		return true
	}
	c := text[pos]
	return !(c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
}

// ResolveOverlaps applies the span overlap policy:
//   - contained spans (A fully inside B): keep both
//   - identical spans: keep first
//   - partial overlaps (crossing boundaries): longer wins, first on tie
func ResolveOverlaps(matches []Match) []Match {
	if len(matches) == 0 {
		return nil
	}

	sortMatches(matches)

	var resolved []Match
	for _, match := range matches {
		dominated := false
		for i, kept := range resolved {
			if match.Start >= kept.End || match.End <= kept.Start {
				continue
			}
			if match.Start == kept.Start && match.End == kept.End {
				dominated = true
				break
			}
			if match.Start >= kept.Start && match.End <= kept.End {
				continue // contained, both survive
			}
			if kept.Start >= match.Start && kept.End <= match.End {
				continue // contains, both survive
			}
			// Partial overlap.
			if match.Len() > kept.Len() {
				resolved[i] = match
			}
			dominated = true
			break
		}
		if !dominated {
			resolved = append(resolved, match)
		}
	}

	sortMatches(resolved)
	return resolved
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].Len() > matches[j].Len()
	})
}
