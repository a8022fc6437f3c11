package parse

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Fix the bug", "Fix the bug"},
		{"single tag pair", "<system-reminder>note</system-reminder>", "note"},
		{"tag with attrs", `<cmd name="ls">run</cmd>`, "run"},
		{"surrounding whitespace", "  <b>hi</b>  ", "hi"},
		{"no closing bracket left alone", "a < b", "a < b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripTags(tt.in))
		})
	}
}

func TestIsSystemMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"system reminder", "<system-reminder>be careful</system-reminder>", true},
		{"command name", "<command-name>/clear</command-name>", true},
		{"local command", "<local-command-stdout>ok</local-command-stdout>", true},
		{"environment context", "<environment_context>...</environment_context>", true},
		{"cwd block", "<cwd>/home/me</cwd>", true},
		{"agents instructions", "# AGENTS.md instructions for this repo", true},
		{"leading whitespace", "  <system-reminder>x</system-reminder>", true},
		{"real message", "Fix the bug", false},
		{"tag mid-text", "please read <system-reminder>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsSystemMessage(tt.in))
		})
	}
}

func TestPreview(t *testing.T) {
	short := "hello"
	require.Equal(t, short, Preview(short))

	exact := strings.Repeat("a", previewLen)
	require.Equal(t, exact, Preview(exact))

	long := strings.Repeat("b", previewLen+1)
	got := Preview(long)
	require.Len(t, got, previewLen+3)
	require.True(t, strings.HasSuffix(got, "..."))
	require.Equal(t, long[:previewLen], got[:previewLen])
}

func TestPreviewMultibyteBoundary(t *testing.T) {
	// a multibyte rune straddling the limit must not be split
	s := strings.Repeat("a", previewLen-1) + "éé"
	got := Preview(s)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", previewLen-1)+"é...", got)

	allMulti := strings.Repeat("日", previewLen+5)
	got = Preview(allMulti)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, previewLen+3, utf8.RuneCountInString(got))
}

func TestTruncateCountsRunes(t *testing.T) {
	require.Equal(t, "ééé", truncate("ééé", 5))
	require.Equal(t, "éé", truncate("ééééé", 2))

	mixed := strings.Repeat("a", previewLen-1) + "éé"
	got := truncate(mixed, previewLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", previewLen-1)+"é", got)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare string", `"just text"`, "just text"},
		{"string content", `{"role":"user","content":"hello"}`, "hello"},
		{
			"typed blocks",
			`{"role":"assistant","content":[{"type":"text","text":"one"},{"type":"tool_use","id":"x"},{"type":"text","text":"two"}]}`,
			"one two",
		},
		{"blocks without text", `{"content":[{"type":"tool_use","id":"x"}]}`, ""},
		{"empty payload", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractText(json.RawMessage(tt.in)))
		})
	}
}

func TestExtractTextFallsBackToSerialized(t *testing.T) {
	raw := json.RawMessage(`{"id":"msg_1","stop_reason":"end_turn"}`)
	require.Equal(t, string(raw), ExtractText(raw))
}
