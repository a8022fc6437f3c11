// Package scan enumerates candidate transcript files by walking the on-disk
// conventions of the two supported tools. Scanners never open the files.
package scan

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ClaudeSessions yields the main session transcripts under
// root/projects/<project-dir>/<id>.jsonl. Only immediate children of each
// project directory count; subagent and tool-result transcripts live in
// per-session subdirectories and are discovered separately. A missing root
// yields an empty sequence.
func ClaudeSessions(root string, logger *zap.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		projectsDir := filepath.Join(root, "projects")
		projects, err := os.ReadDir(projectsDir)
		if err != nil {
			warnMissingRoot(logger, "claude", projectsDir, err)
			return
		}

		for _, project := range projects {
			if !project.IsDir() || strings.HasPrefix(project.Name(), ".") {
				continue
			}
			projectDir := filepath.Join(projectsDir, project.Name())
			entries, err := os.ReadDir(projectDir)
			if err != nil {
				logger.Warn("skipping unreadable project directory",
					zap.String("dir", projectDir), zap.Error(err))
				continue
			}
			for _, e := range entries {
				if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
					continue
				}
				if !yield(filepath.Join(projectDir, e.Name())) {
					return
				}
			}
		}
	}
}

// CodexSessions yields transcripts under root/sessions/<yyyy>/<mm>/<dd>/.
// Date segments must be purely numeric directories; anything else is skipped.
// A missing root yields an empty sequence.
func CodexSessions(root string, logger *zap.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		sessionsDir := filepath.Join(root, "sessions")
		years, err := os.ReadDir(sessionsDir)
		if err != nil {
			warnMissingRoot(logger, "codex", sessionsDir, err)
			return
		}

		for _, year := range years {
			if !numericDir(year) {
				continue
			}
			yearDir := filepath.Join(sessionsDir, year.Name())
			months, err := os.ReadDir(yearDir)
			if err != nil {
				continue
			}
			for _, month := range months {
				if !numericDir(month) {
					continue
				}
				monthDir := filepath.Join(yearDir, month.Name())
				days, err := os.ReadDir(monthDir)
				if err != nil {
					continue
				}
				for _, day := range days {
					if !numericDir(day) {
						continue
					}
					dayDir := filepath.Join(monthDir, day.Name())
					files, err := os.ReadDir(dayDir)
					if err != nil {
						continue
					}
					for _, f := range files {
						if f.IsDir() || filepath.Ext(f.Name()) != ".jsonl" {
							continue
						}
						if !yield(filepath.Join(dayDir, f.Name())) {
							return
						}
					}
				}
			}
		}
	}
}

// ClaudeSubagentFiles lists subagent transcripts for one session, found at
// <project-dir>/<session-id>/subagents/*.jsonl. Missing directories yield nil.
func ClaudeSubagentFiles(sessionID, projectDir string) []string {
	subagentDir := filepath.Join(projectDir, sessionID, "subagents")
	entries, err := os.ReadDir(subagentDir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		files = append(files, filepath.Join(subagentDir, e.Name()))
	}
	return files
}

func numericDir(e os.DirEntry) bool {
	if !e.IsDir() {
		return false
	}
	name := e.Name()
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func warnMissingRoot(logger *zap.Logger, source, dir string, err error) {
	if os.IsNotExist(err) {
		logger.Warn("sessions directory not found",
			zap.String("source", source), zap.String("dir", dir))
		return
	}
	logger.Warn("cannot read sessions directory",
		zap.String("source", source), zap.String("dir", dir), zap.Error(err))
}
