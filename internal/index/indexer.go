// Package index orchestrates scan -> parse -> dedup-check -> persist for both
// transcript formats. One file is one transaction: a bad file rolls back its
// own writes and the run continues.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pkerr/ai-session-index/internal/parse"
	"github.com/pkerr/ai-session-index/internal/scan"
	"github.com/pkerr/ai-session-index/internal/store"
)

// ErrAlreadyRunning is returned when a run is requested while another is in
// flight. The request performs no work; there is no queueing.
var ErrAlreadyRunning = errors.New("indexing already running")

// Stats aggregates one indexing run.
type Stats struct {
	ClaudeSessions int
	CodexSessions  int
	Messages       int
	Errors         int
}

func (s Stats) String() string {
	return fmt.Sprintf("claude=%d codex=%d messages=%d errors=%d",
		s.ClaudeSessions, s.CodexSessions, s.Messages, s.Errors)
}

// Indexer coordinates indexing runs and lazy subagent loads against one store.
type Indexer struct {
	store      *store.Store
	claudeRoot string
	codexRoot  string
	logger     *zap.Logger

	mu          sync.Mutex
	running     bool
	lastIndexed time.Time

	loads singleflight.Group
}

// New returns an Indexer over the given roots. claudeRoot and codexRoot are
// the tool home directories (the ones holding projects/ and sessions/).
func New(st *store.Store, claudeRoot, codexRoot string, logger *zap.Logger) *Indexer {
	return &Indexer{
		store:      st,
		claudeRoot: claudeRoot,
		codexRoot:  codexRoot,
		logger:     logger,
	}
}

// tryStart atomically flips idle -> running.
func (ix *Indexer) tryStart() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.running {
		return false
	}
	ix.running = true
	return true
}

func (ix *Indexer) finish() {
	ix.mu.Lock()
	ix.running = false
	ix.mu.Unlock()
}

// Running reports whether a run is in flight.
func (ix *Indexer) Running() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.running
}

// LastIndexed returns the completion time of the most recent run, if any.
func (ix *Indexer) LastIndexed() (time.Time, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.lastIndexed, !ix.lastIndexed.IsZero()
}

// Run indexes all sessions from both roots. Without force, files already
// represented by a session row (keyed by absolute path) are skipped. With
// force, every file is re-parsed and its previous rows replaced. Cancellation
// is honored at the per-file boundary.
func (ix *Indexer) Run(ctx context.Context, force bool) (Stats, error) {
	if !ix.tryStart() {
		return Stats{}, ErrAlreadyRunning
	}
	defer ix.finish()

	start := time.Now()
	ix.logger.Info("indexing started", zap.Bool("force", force))

	var stats Stats
	if err := ix.indexClaude(ctx, force, &stats); err != nil {
		return stats, err
	}
	if err := ix.indexCodex(ctx, force, &stats); err != nil {
		return stats, err
	}

	ix.mu.Lock()
	ix.lastIndexed = time.Now().UTC()
	ix.mu.Unlock()

	ix.logger.Info("indexing completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("claude_sessions", stats.ClaudeSessions),
		zap.Int("codex_sessions", stats.CodexSessions),
		zap.Int("messages", stats.Messages),
		zap.Int("errors", stats.Errors))

	return stats, nil
}

func (ix *Indexer) indexClaude(ctx context.Context, force bool, stats *Stats) error {
	for path := range scan.ClaudeSessions(ix.claudeRoot, ix.logger) {
		if err := ctx.Err(); err != nil {
			return err
		}
		indexed, messages, err := ix.indexClaudeFile(path, force)
		if err != nil {
			stats.Errors++
			ix.logger.Error("failed to index claude session",
				zap.String("file", path), zap.Error(err))
			continue
		}
		if indexed {
			stats.ClaudeSessions++
			stats.Messages += messages
		}
	}
	return nil
}

func (ix *Indexer) indexCodex(ctx context.Context, force bool, stats *Stats) error {
	for path := range scan.CodexSessions(ix.codexRoot, ix.logger) {
		if err := ctx.Err(); err != nil {
			return err
		}
		indexed, messages, err := ix.indexCodexFile(path, force)
		if err != nil {
			stats.Errors++
			ix.logger.Error("failed to index codex session",
				zap.String("file", path), zap.Error(err))
			continue
		}
		if indexed {
			stats.CodexSessions++
			stats.Messages += messages
		}
	}
	return nil
}

// indexClaudeFile indexes one transcript. It reports whether a session was
// persisted; already-indexed and content-free files are skipped silently.
func (ix *Indexer) indexClaudeFile(path string, force bool) (bool, int, error) {
	skip, err := ix.prepare(path, force)
	if err != nil || skip {
		return false, 0, err
	}

	result, err := parse.ParseClaude(path, ix.logger)
	if err != nil {
		return false, 0, err
	}
	if result == nil {
		return false, 0, nil
	}

	bundle := ix.bundle(result)

	// Subagent transcripts are referenced, not parsed; their messages
	// materialize on first access.
	projectDir := filepath.Dir(path)
	for _, f := range scan.ClaudeSubagentFiles(result.Session.ID, projectDir) {
		bundle.Subagents = append(bundle.Subagents, store.Subagent{
			SessionID: result.Session.ID,
			AgentID:   strings.TrimSuffix(filepath.Base(f), ".jsonl"),
			FilePath:  f,
		})
	}

	for fileType, filePath := range FindAssociatedFiles(result.Session.ID, ix.claudeRoot) {
		content, err := os.ReadFile(filePath)
		if err != nil {
			ix.logger.Warn("failed to read associated file",
				zap.String("file", filePath), zap.Error(err))
			continue
		}
		bundle.Files = append(bundle.Files, store.AssociatedFile{
			SessionID: result.Session.ID,
			FileType:  fileType,
			Content:   string(content),
			FilePath:  filePath,
		})
	}

	if err := ix.store.InsertSessionBundle(bundle); err != nil {
		return false, 0, err
	}
	return true, len(bundle.Messages), nil
}

func (ix *Indexer) indexCodexFile(path string, force bool) (bool, int, error) {
	skip, err := ix.prepare(path, force)
	if err != nil || skip {
		return false, 0, err
	}

	result, err := parse.ParseCodex(path, ix.logger)
	if err != nil {
		return false, 0, err
	}
	if result == nil {
		return false, 0, nil
	}

	bundle := ix.bundle(result)
	if err := ix.store.InsertSessionBundle(bundle); err != nil {
		return false, 0, err
	}
	return true, len(bundle.Messages), nil
}

// prepare applies the forced-vs-incremental policy for one file: incremental
// runs skip already-indexed paths. Forced runs just re-parse; the bundle
// insert replaces prior rows in the same transaction, so a failed parse
// leaves the existing session intact.
func (ix *Indexer) prepare(path string, force bool) (skip bool, err error) {
	if force {
		return false, nil
	}
	existing, err := ix.store.SessionByFilePath(path)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (ix *Indexer) bundle(result *parse.Result) *store.SessionBundle {
	sess := store.Session{
		ID:        result.Session.ID,
		Source:    result.Session.Source,
		Project:   project(result),
		Cwd:       result.Session.Cwd,
		Model:     result.Session.Model,
		Display:   result.Session.Display,
		CreatedAt: result.Session.CreatedAt,
		UpdatedAt: result.Session.UpdatedAt,
		FilePath:  result.Session.FilePath,
	}

	messages := make([]store.Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		messages = append(messages, store.Message{
			SessionID:      sess.ID,
			ParentUUID:     m.ParentUUID,
			Type:           m.Type,
			Content:        m.Content,
			ContentPreview: m.ContentPreview,
			Timestamp:      m.Timestamp,
			Sequence:       m.Sequence,
			Model:          m.Model,
			InputTokens:    m.InputTokens,
			OutputTokens:   m.OutputTokens,
		})
	}

	return &store.SessionBundle{Session: sess, Messages: messages}
}

func project(result *parse.Result) string {
	if result.Session.Source == parse.SourceCodex {
		// Codex has no project-directory encoding; cwd doubles as project.
		return result.Session.Cwd
	}
	return scan.ProjectFromPath(result.Session.FilePath, result.Session.Cwd)
}
