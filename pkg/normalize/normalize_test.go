package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func TestWhitespaceCollapsing(t *testing.T) {
	in := "This   Agreement\t\tis entered.\n\n\n\nNext   paragraph. \n Trailing.  "
	out := Whitespace(in)
	assert.Equal(t, "This Agreement is entered.\n\nNext paragraph.\nTrailing.", out)
}

func TestWhitespaceIdempotent(t *testing.T) {
	in := "A  B.\n\n\n\nC    D.\t E."
	once := Whitespace(in)
	assert.Equal(t, once, Whitespace(once))
}

func TestSplitSentencesLegalAbbreviations(t *testing.T) {
	text := "Plaintiff brings this action under 42 U.S.C. § 1983. " +
		"See Smith v. Jones, No. 12-345. The court agrees."
	sentences := SplitSentences(text)
	require.Len(t, sentences, 3)
	assert.Contains(t, sentences[0], "42 U.S.C. § 1983")
	assert.Contains(t, sentences[1], "No. 12-345")
	assert.Equal(t, "The court agrees.", sentences[2])
}

func TestSplitSentencesNoBreakBeforeLowercase(t *testing.T) {
	text := "The contract was signed. it was later amended."
	sentences := SplitSentences(text)
	// Lowercase continuation never starts a new sentence.
	require.Len(t, sentences, 1)
}

func TestChunkTextSingleChunk(t *testing.T) {
	text := "Short document."
	chunks := ChunkText(text, 8000, 400)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(text), chunks[0].EndOffset)
}

func TestChunkTextOffsetsIndexFullText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("The lessee shall pay rent on the first day of each month. ")
	}
	canonical := Canonicalize(b.String(), model.FormatPlainText, 500, 100)

	require.Greater(t, len(canonical.Chunks), 1)
	for _, chunk := range canonical.Chunks {
		assert.Equal(t, chunk.Text,
			canonical.FullText[chunk.StartOffset:chunk.EndOffset],
			"chunk %d offsets must slice back to the chunk text", chunk.ChunkIndex)
		assert.LessOrEqual(t, len(chunk.Text), 500+100)
		assert.NotEmpty(t, chunk.Sentences)
	}
	for i := 1; i < len(canonical.Chunks); i++ {
		prev, cur := canonical.Chunks[i-1], canonical.Chunks[i]
		assert.Equal(t, i, cur.ChunkIndex)
		// Consecutive chunks share an overlap region, never leave a gap.
		assert.LessOrEqual(t, cur.StartOffset, prev.EndOffset)
		assert.Greater(t, cur.EndOffset, prev.EndOffset)
	}
}

func TestChunkTextParagraphBreaksKeepOffsets(t *testing.T) {
	paragraphs := []string{
		"The lessor owns the premises. The lease term began on June 1.",
		"Rent is due on the first of each month. Late payment accrues interest.",
		"The lessee breached the covenant of quiet enjoyment. Notice was served.",
		"The lessor filed a complaint. The court set a hearing date.",
		"Damages were assessed at trial. The award included court costs.",
		"Judgment was entered for the lessor. The appeal was denied.",
	}
	canonical := Canonicalize(strings.Join(paragraphs, "\n\n"),
		model.FormatPlainText, 120, 60)

	// Paragraph breaks survive normalization, so chunk slices cross newlines.
	assert.Contains(t, canonical.FullText, "\n\n")
	require.Greater(t, len(canonical.Chunks), 1)

	for _, chunk := range canonical.Chunks {
		require.Equal(t, chunk.Text,
			canonical.FullText[chunk.StartOffset:chunk.EndOffset],
			"chunk %d offsets must slice back to the chunk text", chunk.ChunkIndex)
	}
	for i := 1; i < len(canonical.Chunks); i++ {
		prev, cur := canonical.Chunks[i-1], canonical.Chunks[i]
		assert.LessOrEqual(t, cur.StartOffset, prev.EndOffset)
		assert.Greater(t, cur.EndOffset, prev.EndOffset)
	}
}

func TestSentenceIndexLookup(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one ends."
	idx := NewSentenceIndex(text)

	spans := idx.Spans()
	require.Len(t, spans, 3)
	for _, span := range spans {
		assert.Equal(t, span.Text, text[span.Start:span.End])
	}

	assert.Equal(t, "First sentence here.", idx.SentenceAt(0))
	assert.Equal(t, "First sentence here.", idx.SentenceAt(10))
	assert.Equal(t, "Second sentence follows.", idx.SentenceAt(spans[1].Start+3))
	assert.Equal(t, "Third one ends.", idx.SentenceAt(len(text)-1))
}
