package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var artifactExts = map[string]bool{
	".md":   true,
	".txt":  true,
	".log":  true,
	".json": true,
}

// artifactSubdirs are the conventional session subdirectories scanned for
// nested artifacts.
var artifactSubdirs = []string{"output", "artifacts", "docs"}

// FindAssociatedFiles locates side files tied to a session id: the fixed
// todo/plan/debug locations plus loose artifacts in the session's own
// directory. Keys are file-type categories; artifact keys encode the relative
// path so siblings in different subdirectories do not collide. Missing
// directories contribute nothing.
func FindAssociatedFiles(sessionID, claudeRoot string) map[string]string {
	files := make(map[string]string)

	for fileType, path := range map[string]string{
		"todo":  filepath.Join(claudeRoot, "todos", sessionID+".md"),
		"plan":  filepath.Join(claudeRoot, "plans", sessionID+".md"),
		"debug": filepath.Join(claudeRoot, "debug", sessionID+".log"),
	} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files[fileType] = path
		}
	}

	sessionDir := findSessionDir(sessionID, claudeRoot)
	if sessionDir == "" {
		return files
	}

	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return files
	}
	for _, e := range entries {
		if e.IsDir() || !artifactExts[filepath.Ext(e.Name())] {
			continue
		}
		// The main transcript is indexed separately, not as an artifact.
		if e.Name() == sessionID+".jsonl" {
			continue
		}
		files["artifact_"+e.Name()] = filepath.Join(sessionDir, e.Name())
	}

	for _, sub := range artifactSubdirs {
		subdir := filepath.Join(sessionDir, sub)
		_ = filepath.WalkDir(subdir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !artifactExts[filepath.Ext(path)] {
				return nil
			}
			rel, err := filepath.Rel(sessionDir, path)
			if err != nil {
				return nil
			}
			key := "artifact_" + strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
			files[key] = path
			return nil
		})
	}

	return files
}

// findSessionDir locates the session's own directory under the projects tree.
// The session could belong to any project directory.
func findSessionDir(sessionID, claudeRoot string) string {
	projectsDir := filepath.Join(claudeRoot, "projects")
	projects, err := os.ReadDir(projectsDir)
	if err != nil {
		return ""
	}
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		dir := filepath.Join(projectsDir, p.Name(), sessionID)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
