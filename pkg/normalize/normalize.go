package normalize

import (
	"regexp"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

var (
	nonNewlineWS = regexp.MustCompile(`[^\S\n]+`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	spacedNewline = regexp.MustCompile(` *\n *`)
)

// Whitespace collapses runs of non-newline whitespace to a single space,
// collapses 3+ newlines to 2, strips spaces around newlines, and trims.
// The operation is idempotent.
func Whitespace(text string) string {
	text = nonNewlineWS.ReplaceAllString(text, " ")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = spacedNewline.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// ChunkText slices text into sentence-bounded chunks of roughly maxChars,
// seeding each subsequent chunk with the previous chunk's tail sentences up
// to the overlap budget. Every chunk is an exact substring of text, so
// text[StartOffset:EndOffset] == Text holds even across the newlines the
// whitespace pass preserves.
func ChunkText(text string, maxChars, overlap int) []model.TextChunk {
	wholeText := []model.TextChunk{{
		Text:        text,
		StartOffset: 0,
		EndOffset:   len(text),
		ChunkIndex:  0,
	}}
	if len(text) <= maxChars {
		return wholeText
	}

	spans := NewSentenceIndex(text).Spans()
	if len(spans) == 0 {
		return wholeText
	}

	var chunks []model.TextChunk
	emit := func(start, end int) {
		chunks = append(chunks, model.TextChunk{
			Text:        text[start:end],
			StartOffset: start,
			EndOffset:   end,
			ChunkIndex:  len(chunks),
		})
	}

	first := 0
	for i := 1; i < len(spans); i++ {
		if spans[i].End-spans[first].Start <= maxChars {
			continue
		}
		end := spans[i-1].End
		emit(spans[first].Start, end)

		// Seed the next chunk with the trailing sentences that fit the
		// overlap budget. The seed excludes the chunk's first sentence,
		// so every chunk starts strictly after the previous one.
		next := i
		for j := i - 1; j > first; j-- {
			if end-spans[j].Start > overlap {
				break
			}
			next = j
		}
		first = next
	}
	emit(spans[first].Start, spans[len(spans)-1].End)

	return chunks
}

// Canonicalize normalizes raw text and chunks it, recording per-chunk
// sentence boundaries.
func Canonicalize(rawText string, sourceFormat model.DocumentFormat, maxChars, overlap int) *model.CanonicalText {
	normalized := Whitespace(rawText)
	chunks := ChunkText(normalized, maxChars, overlap)
	for i := range chunks {
		chunks[i].Sentences = SplitSentences(chunks[i].Text)
	}
	return &model.CanonicalText{
		FullText:     normalized,
		Chunks:       chunks,
		SourceFormat: sourceFormat,
	}
}
