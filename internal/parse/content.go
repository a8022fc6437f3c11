package parse

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// previewLen bounds content previews and display text.
const previewLen = 200

// planPreamble marks user messages injected by plan-mode; they are never
// usable as display text.
const planPreamble = "Implement the following plan:"

var tagRe = regexp.MustCompile(`<[^>]+>`)

// systemPrefixes identify command wrappers, environment-context blocks and
// other machinery that should never surface as a session's display text.
var systemPrefixes = []string{
	"<local-command-",
	"<command-name>",
	"<environment_context>",
	"<cwd>",
	"<system-reminder>",
	"# AGENTS.md instructions",
}

// StripTags removes angle-bracket markup tags from text.
func StripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

// IsSystemMessage reports whether text looks like a system or environment
// message rather than something the user typed.
func IsSystemMessage(s string) bool {
	stripped := strings.TrimSpace(s)
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(stripped, prefix) {
			return true
		}
	}
	return false
}

// Preview returns the first previewLen characters of s, with an ellipsis
// marker when truncated. Limits count runes, never bytes, so multibyte text
// is not split mid-character.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen]) + "..."
}

// truncate bounds display text to n runes without the ellipsis marker.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageEnvelope struct {
	Content json.RawMessage `json:"content"`
}

// ExtractText pulls plain text out of a nested message payload. The payload
// may be a bare string, an object whose content is a string, or an object
// whose content is a list of typed blocks. When no typed text is found the
// whole payload is returned serialized.
func ExtractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var env messageEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Content) > 0 {
		if err := json.Unmarshal(env.Content, &s); err == nil {
			return s
		}
		var blocks []contentBlock
		if err := json.Unmarshal(env.Content, &blocks); err == nil {
			var parts []string
			for _, b := range blocks {
				if b.Type == "text" && b.Text != "" {
					parts = append(parts, b.Text)
				}
			}
			return strings.Join(parts, " ")
		}
	}

	return string(raw)
}
