package normalize

import (
	"strings"
	"unicode"
)

// Abbreviations that end with a period but do not terminate a sentence.
// Covers the citation forms that trip naive splitters, e.g.
// "42 U.S.C. § 1983" and "No. 12-345".
var legalAbbreviations = map[string]bool{
	"no": true, "nos": true, "v": true, "vs": true, "etc": true,
	"inc": true, "corp": true, "co": true, "ltd": true, "llc": true, "llp": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "jr": true, "sr": true,
	"hon": true, "esq": true, "prof": true, "st": true,
	"fed": true, "civ": true, "crim": true, "proc": true, "evid": true,
	"stat": true, "rev": true, "reg": true, "sec": true, "art": true,
	"cl": true, "para": true, "ch": true, "pt": true, "supp": true,
	"cir": true, "dist": true, "div": true, "dep": true, "dept": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true,
}

// SplitSentences splits text into sentences without breaking at
// abbreviation periods inside legal citations.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}

		// Require whitespace then an uppercase letter to treat this as a
		// sentence boundary.
		j := i + 1
		for j < len(text) && (text[j] == ' ' || text[j] == '\n' || text[j] == '\t') {
			j++
		}
		if j == i+1 || j >= len(text) {
			continue
		}
		next := rune(text[j])
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) {
			continue
		}

		if c == '.' && isAbbreviationEnd(text, i) {
			continue
		}

		sentence := strings.TrimSpace(text[start : i+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = j
		i = j - 1
	}

	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// isAbbreviationEnd reports whether the period at idx ends an abbreviation
// rather than a sentence.
func isAbbreviationEnd(text string, idx int) bool {
	// Collect the word immediately before the period.
	end := idx
	start := end
	for start > 0 {
		c := text[start-1]
		if isWordByte(c) || c == '.' {
			start--
		} else {
			break
		}
	}
	word := text[start:end]
	if word == "" {
		return false
	}

	// Dotted abbreviations like "U.S.C" or initials like "J".
	if strings.Contains(word, ".") {
		return true
	}
	if len(word) == 1 && word[0] >= 'A' && word[0] <= 'Z' {
		return true
	}
	return legalAbbreviations[strings.ToLower(word)]
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// SentenceIndex locates the sentence containing any byte offset in the full
// text. Built once per document and shared by the stages that attach
// sentence context to spans.
type SentenceIndex struct {
	starts    []int
	ends      []int
	sentences []string
}

// NewSentenceIndex splits the text and records each sentence's offsets.
func NewSentenceIndex(fullText string) *SentenceIndex {
	idx := &SentenceIndex{}
	position := 0
	for _, sentence := range SplitSentences(fullText) {
		start := strings.Index(fullText[position:], sentence)
		if start == -1 {
			start = position
		} else {
			start += position
		}
		end := start + len(sentence)
		idx.starts = append(idx.starts, start)
		idx.ends = append(idx.ends, end)
		idx.sentences = append(idx.sentences, sentence)
		position = end
	}
	return idx
}

// SentenceSpan is one sentence with its offsets in the full text.
type SentenceSpan struct {
	Start int
	End   int
	Text  string
}

// Spans returns every sentence with offsets, in document order.
func (idx *SentenceIndex) Spans() []SentenceSpan {
	out := make([]SentenceSpan, len(idx.sentences))
	for i := range idx.sentences {
		out[i] = SentenceSpan{Start: idx.starts[i], End: idx.ends[i], Text: idx.sentences[i]}
	}
	return out
}

// SentenceAt returns the sentence covering the given offset, or the nearest
// preceding sentence when the offset falls in inter-sentence whitespace.
func (idx *SentenceIndex) SentenceAt(offset int) string {
	lo, hi := 0, len(idx.starts)-1
	best := ""
	for lo <= hi {
		mid := (lo + hi) / 2
		if idx.starts[mid] <= offset {
			best = idx.sentences[mid]
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}
