package ingest

import (
	"encoding/base64"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// RTFIngester strips RTF control words and groups, leaving the plain text.
// Content may be the RTF source directly or base64-encoded bytes.
type RTFIngester struct{}

func (i *RTFIngester) Ingest(doc *model.DocumentInput) (string, []model.TextElement, error) {
	content := doc.Content
	if !strings.HasPrefix(strings.TrimSpace(content), "{\\rtf") {
		if raw, err := base64.StdEncoding.DecodeString(content); err == nil {
			if decoded := string(raw); strings.HasPrefix(strings.TrimSpace(decoded), "{\\rtf") {
				content = decoded
			}
		}
	}
	return stripRTF(content), nil, nil
}

// Destination groups whose content is metadata, not document text.
var rtfSkipGroups = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "field": true,
	"generator": true, "themedata": true, "listtable": true,
	"listoverridetable": true, "latentstyles": true, "datastore": true,
}

func stripRTF(src string) string {
	var out strings.Builder
	skipDepth := 0 // depth inside a skipped destination group, 0 = not skipping
	depth := 0

	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '{':
			depth++
			i++
			// A group opening with \* or a known destination is skipped whole.
			rest := src[i:]
			name, star := rtfGroupName(rest)
			if skipDepth == 0 && (star || rtfSkipGroups[name]) {
				skipDepth = depth
			}
		case '}':
			if skipDepth != 0 && depth == skipDepth {
				skipDepth = 0
			}
			depth--
			i++
		case '\\':
			word, param, consumed := rtfControl(src[i:])
			i += consumed
			if skipDepth != 0 {
				continue
			}
			switch word {
			case "par", "line", "sect", "page":
				out.WriteByte('\n')
			case "tab", "cell":
				out.WriteByte('\t')
			case "emdash", "endash":
				out.WriteByte('-')
			case "lquote", "rquote":
				out.WriteByte('\'')
			case "ldblquote", "rdblquote":
				out.WriteByte('"')
			case "'":
				// Hex-escaped byte.
				if b, ok := parseHexByte(param); ok {
					out.WriteByte(b)
				}
			case "u":
				if r, ok := parseUnicodeParam(param); ok {
					out.WriteRune(r)
					// A substitution character follows; swallow it.
					if i < len(src) && src[i] != '\\' && src[i] != '{' && src[i] != '}' {
						i++
					}
				}
			case "\\", "{", "}":
				out.WriteString(word)
			}
		case '\r', '\n':
			i++
		default:
			if skipDepth == 0 {
				out.WriteByte(c)
			}
			i++
		}
	}

	// Collapse runs of blank lines left by paragraph formatting codes.
	lines := strings.Split(out.String(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" || (len(cleaned) > 0 && cleaned[len(cleaned)-1] != "") {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// rtfGroupName peeks at the control word that opens a group, reporting the
// destination name and whether the group uses the \* ignorable marker.
func rtfGroupName(rest string) (string, bool) {
	if len(rest) < 2 || rest[0] != '\\' {
		return "", false
	}
	if rest[1] == '*' {
		return "", true
	}
	j := 1
	for j < len(rest) && isASCIILetter(rest[j]) {
		j++
	}
	return rest[1:j], false
}

// rtfControl parses a control word or symbol starting at a backslash,
// returning the word, its parameter text, and the bytes consumed.
func rtfControl(src string) (word, param string, consumed int) {
	if len(src) < 2 {
		return "", "", len(src)
	}
	j := 1
	c := src[j]

	// Control symbol: single non-letter character.
	if !isASCIILetter(c) {
		if c == '\'' && len(src) >= 4 {
			return "'", src[2:4], 4
		}
		return string(c), "", 2
	}

	for j < len(src) && isASCIILetter(src[j]) {
		j++
	}
	word = src[1:j]

	start := j
	if j < len(src) && (src[j] == '-' || (src[j] >= '0' && src[j] <= '9')) {
		j++
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
	}
	param = src[start:j]

	// A single trailing space is part of the control word.
	if j < len(src) && src[j] == ' ' {
		j++
	}
	return word, param, j
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	var v byte
	for i := 0; i < 2; i++ {
		v <<= 4
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			v |= c - '0'
		case c >= 'a' && c <= 'f':
			v |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v |= c - 'A' + 10
		default:
			return 0, false
		}
	}
	return v, true
}

func parseUnicodeParam(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		// RTF encodes values above 32767 as negatives.
		n = 65536 - n
	}
	return rune(n), true
}
