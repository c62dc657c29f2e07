package ingest

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// EmailIngester parses RFC 2822 (.eml) messages: routing headers first,
// then the best available body part (plain preferred over html).
type EmailIngester struct{}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func (i *EmailIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	content := doc.Content
	if !strings.Contains(content, "\n") {
		// Single-line content is assumed to be base64-encoded raw bytes.
		if raw, err := base64.StdEncoding.DecodeString(content); err == nil {
			content = string(raw)
		}
	}

	msg, err := mail.ReadMessage(strings.NewReader(content))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse email: %w", err)
	}

	var parts []string
	for _, header := range []string{"From", "To", "Subject", "Date"} {
		if value := msg.Header.Get(header); value != "" {
			parts = append(parts, header+": "+value)
		}
	}
	if len(parts) > 0 {
		parts = append(parts, "")
	}

	body, err := extractEmailBody(msg)
	if err != nil {
		return "", nil, err
	}
	parts = append(parts, body)

	return strings.Join(parts, "\n"), nil, nil
}

func extractEmailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	data, err := decodeTransferEncoding(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return stripHTMLTags(data), nil
	}
	return data, nil
}

func extractMultipartBody(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		data, err := io.ReadAll(body)
		return string(data), err
	}

	reader := multipart.NewReader(body, boundary)
	var plain, html string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		data, err := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}
		switch partType {
		case "text/plain":
			if plain == "" {
				plain = data
			}
		case "text/html":
			if html == "" {
				html = data
			}
		}
	}

	if plain != "" {
		return plain, nil
	}
	return stripHTMLTags(html), nil
}

func decodeTransferEncoding(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func stripHTMLTags(s string) string {
	text := htmlTagPattern.ReplaceAllString(s, "")
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}
