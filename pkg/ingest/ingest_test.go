package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/model"
)

func TestDetectFormatByExtension(t *testing.T) {
	cases := map[string]model.DocumentFormat{
		"complaint.txt": model.FormatPlainText,
		"brief.md":      model.FormatMarkdown,
		"opinion.HTML":  model.FormatHTML,
		"filing.pdf":    model.FormatPDF,
		"contract.docx": model.FormatWord,
		"notice.rtf":    model.FormatRTF,
		"message.eml":   model.FormatEmail,
	}
	for filename, want := range cases {
		assert.Equal(t, want, DetectFormat(filename, ""), filename)
	}

	// The extension wins over content sniffing.
	assert.Equal(t, model.FormatPlainText, DetectFormat("page.txt", "<!DOCTYPE html>"))
}

func TestDetectFormatByContent(t *testing.T) {
	assert.Equal(t, model.FormatHTML, DetectFormat("", "<!DOCTYPE html><html></html>"))
	assert.Equal(t, model.FormatHTML, DetectFormat("", "<html><body>hi</body></html>"))
	assert.Equal(t, model.FormatRTF, DetectFormat("", `{\rtf1\ansi Hello}`))
	assert.Equal(t, model.FormatMarkdown, DetectFormat("", "# Complaint\n\nBody."))
	assert.Equal(t, model.FormatPlainText, DetectFormat("", "Just a plain filing."))
}

func TestRegistryUnknownFormat(t *testing.T) {
	_, _, err := NewRegistry().Ingest(&model.DocumentInput{Format: "fax"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ingester registered")
}

func TestPlainTextPassthrough(t *testing.T) {
	text, elements, err := (&PlainTextIngester{}).Ingest(&model.DocumentInput{Content: "as is\n"})
	require.NoError(t, err)
	assert.Equal(t, "as is\n", text)
	assert.Nil(t, elements)
}

func TestMarkdownStripsFormattingAndReportsHeadings(t *testing.T) {
	src := "# Complaint\n\n## Jurisdiction\n\nThe **plaintiff** filed under [section 1983](https://example.com).\n\n- breach of contract\n"
	text, elements, err := (&MarkdownIngester{}).Ingest(&model.DocumentInput{Content: src})
	require.NoError(t, err)

	assert.Contains(t, text, "The plaintiff filed under section 1983.")
	assert.Contains(t, text, "breach of contract")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "](")
	assert.NotContains(t, text, "# ")

	require.Len(t, elements, 2)
	assert.Equal(t, "Complaint", elements[0].Text)
	assert.Equal(t, 1, elements[0].Level)
	assert.Equal(t, "Jurisdiction", elements[1].Text)
	assert.Equal(t, []string{"Complaint", "Jurisdiction"}, elements[1].SectionPath)
}

func TestRTFStripsControlWords(t *testing.T) {
	src := `{\rtf1\ansi{\fonttbl{\f0 Times New Roman;}}\f0\fs24 Breach of contract.\par Second paragraph.}`
	text, _, err := (&RTFIngester{}).Ingest(&model.DocumentInput{Content: src})
	require.NoError(t, err)
	assert.Equal(t, "Breach of contract.\nSecond paragraph.", text)
}

func TestRTFHexAndUnicodeEscapes(t *testing.T) {
	assert.Equal(t, "caf\xe9 naïve", stripRTF(`{\rtf1 caf\'e9 na\u239?ve}`))
}

func TestEmailHeadersAndPlainBody(t *testing.T) {
	raw := "From: counsel@example.com\r\n" +
		"To: clerk@example.com\r\n" +
		"Subject: Notice of breach\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"The lease agreement was violated.\r\n"
	text, _, err := (&EmailIngester{}).Ingest(&model.DocumentInput{Content: raw})
	require.NoError(t, err)

	assert.Contains(t, text, "From: counsel@example.com")
	assert.Contains(t, text, "Subject: Notice of breach")
	assert.Contains(t, text, "The lease agreement was violated.")
}

func TestEmailMultipartPrefersPlain(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--XYZ--\r\n"
	text, _, err := (&EmailIngester{}).Ingest(&model.DocumentInput{Content: raw})
	require.NoError(t, err)
	assert.Contains(t, text, "plain body")
	assert.NotContains(t, text, "html body")
}
