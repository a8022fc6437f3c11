package scan

import (
	"path/filepath"
	"strings"
)

// DecodeProjectPath decodes a Claude project directory name back into an
// absolute path: "-Users-kerrj-dev-researcher" -> "/Users/kerrj/dev/researcher".
// The encoding is lossy: dashes that were part of a real path segment decode
// as separators.
func DecodeProjectPath(encoded string) string {
	if encoded == "" {
		return ""
	}
	encoded = strings.TrimPrefix(encoded, "-")
	decoded := strings.ReplaceAll(encoded, "-", "/")
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	return decoded
}

// ProjectFromPath derives the project path for a session file. The working
// directory recorded inside the transcript is preferred; decoding the project
// directory name is only a fallback because of its lossy encoding.
func ProjectFromPath(filePath, cwd string) string {
	if cwd != "" {
		return cwd
	}

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	for i, part := range parts {
		if part == "projects" && i+1 < len(parts)-1 {
			return DecodeProjectPath(parts[i+1])
		}
	}
	return ""
}
