package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// strictPolicy strips all markup; message bodies are stored and streamed as
// plain text only.
var strictPolicy = bluemonday.StrictPolicy()

// StripHTML removes all HTML tags from content
func StripHTML(raw string) string {
	return strictPolicy.Sanitize(raw)
}

// HTMLToText reduces an HTML body to readable plain text: tags removed,
// entities unescaped, whitespace collapsed.
func HTMLToText(raw string) string {
	raw = strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "\n", "</div>", "\n",
	).Replace(raw)

	text := strictPolicy.Sanitize(raw)
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// Preview trims text to a short single-line preview for cards.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	if idx := strings.LastIndex(text[:max], " "); idx > 0 {
		return text[:idx] + "..."
	}
	return text[:max] + "..."
}

// NormalizeSubject normalizes a subject line for threading
func NormalizeSubject(subject string) string {
	subject = strings.ToLower(strings.TrimSpace(subject))

	prefixes := []string{"re:", "fwd:", "fw:", "aw:", "wg:"}
	for {
		trimmed := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(subject, prefix) {
				subject = strings.TrimSpace(strings.TrimPrefix(subject, prefix))
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}

	return subject
}

// GenerateThreadID generates a stable thread ID from the normalized subject
func GenerateThreadID(normalizedSubject string) string {
	hash := sha256.Sum256([]byte(normalizedSubject))
	return fmt.Sprintf("%x", hash[:16])
}
