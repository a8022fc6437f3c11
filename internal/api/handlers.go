package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pkerr/ai-session-index/internal/index"
	"github.com/pkerr/ai-session-index/internal/store"
)

const defaultPageSize = 50

// SessionResponse is the wire shape of one indexed session.
type SessionResponse struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Project        string    `json:"project,omitempty"`
	Cwd            string    `json:"cwd,omitempty"`
	Model          string    `json:"model,omitempty"`
	Display        string    `json:"display"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
	SubagentCount  int       `json:"subagent_count"`
	HasToolResults bool      `json:"has_tool_results"`
}

// MessageResponse is the wire shape of one message.
type MessageResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	ContentPreview string    `json:"content_preview,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Sequence       int       `json:"sequence"`
	ParentUUID     string    `json:"parent_uuid,omitempty"`
	AgentID        string    `json:"agent_id,omitempty"`
	Model          string    `json:"model,omitempty"`
	InputTokens    *int64    `json:"usage_input_tokens,omitempty"`
	OutputTokens   *int64    `json:"usage_output_tokens,omitempty"`
}

// SubagentResponse is the wire shape of one subagent reference.
type SubagentResponse struct {
	AgentID      string `json:"agent_id"`
	MessageCount int    `json:"message_count"`
	FirstMessage string `json:"first_message,omitempty"`
}

// AssociatedFileResponse is the wire shape of one side file.
type AssociatedFileResponse struct {
	FileType string `json:"file_type"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
}

// IndexStatusResponse reports the coordinator's state and store counts.
type IndexStatusResponse struct {
	IsIndexing     bool       `json:"is_indexing"`
	LastIndexed    *time.Time `json:"last_indexed,omitempty"`
	TotalSessions  int        `json:"total_sessions"`
	ClaudeSessions int        `json:"claude_sessions"`
	CodexSessions  int        `json:"codex_sessions"`
}

// ProjectResponse is one project with its session count.
type ProjectResponse struct {
	Project  string `json:"project"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(c echo.Context) error {
	opts := store.ListOptions{
		Source:  c.QueryParam("source"),
		Project: c.QueryParam("project"),
		Query:   c.QueryParam("q"),
		Limit:   queryInt(c, "limit", defaultPageSize),
		Offset:  queryInt(c, "offset", 0),
	}

	sessions, err := s.store.ListSessions(opts)
	if err != nil {
		s.logger.Error("list sessions", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.store.SessionByID(c.Param("id"))
	if err != nil {
		s.logger.Error("get session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, toSessionResponse(*sess))
}

func (s *Server) handleSessionMessages(c echo.Context) error {
	sessionID := c.Param("id")
	sess, err := s.store.SessionByID(sessionID)
	if err != nil {
		s.logger.Error("get session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	messages, err := s.store.Messages(sessionID, "")
	if err != nil {
		s.logger.Error("load messages", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load messages")
	}
	return c.JSON(http.StatusOK, toMessageResponses(messages))
}

func (s *Server) handleSessionFiles(c echo.Context) error {
	files, err := s.store.AssociatedFiles(c.Param("id"))
	if err != nil {
		s.logger.Error("load associated files", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load files")
	}
	resp := make([]AssociatedFileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, AssociatedFileResponse{
			FileType: f.FileType,
			Content:  f.Content,
			FilePath: f.FilePath,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSessionSubagents(c echo.Context) error {
	sessionID := c.Param("id")
	sess, err := s.store.SessionByID(sessionID)
	if err != nil {
		s.logger.Error("get session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
	}
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	subagents, err := s.store.Subagents(sessionID)
	if err != nil {
		s.logger.Error("load subagents", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load subagents")
	}
	resp := make([]SubagentResponse, 0, len(subagents))
	for _, sub := range subagents {
		resp = append(resp, SubagentResponse{
			AgentID:      sub.AgentID,
			MessageCount: sub.MessageCount,
			FirstMessage: sub.FirstMessage,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSubagentMessages(c echo.Context) error {
	messages, err := s.indexer.SubagentMessages(
		c.Request().Context(), c.Param("id"), c.Param("agentID"))
	if err != nil {
		if errors.Is(err, index.ErrSubagentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subagent not found")
		}
		s.logger.Error("load subagent messages", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load subagent messages")
	}
	return c.JSON(http.StatusOK, toMessageResponses(messages))
}

func (s *Server) handleProjects(c echo.Context) error {
	projects, err := s.store.Projects()
	if err != nil {
		s.logger.Error("list projects", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list projects")
	}
	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, ProjectResponse{Project: p.Project, Sessions: p.Sessions})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIndexRefresh(c echo.Context) error {
	force := c.QueryParam("force") == "true"
	if s.indexer.Running() {
		return c.JSON(http.StatusConflict, map[string]string{"status": "already_running"})
	}

	go func() {
		stats, err := s.indexer.Run(context.Background(), force)
		if err != nil {
			// The run gate may have lost the race with another caller.
			s.logger.Warn("background indexing run failed", zap.Error(err))
			return
		}
		s.logger.Info("background indexing run finished", zap.String("stats", stats.String()))
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleIndexStatus(c echo.Context) error {
	total, err := s.store.SessionCount("")
	if err != nil {
		s.logger.Error("count sessions", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index status")
	}
	claude, err := s.store.SessionCount("claude")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index status")
	}
	codex, err := s.store.SessionCount("codex")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index status")
	}

	resp := IndexStatusResponse{
		IsIndexing:     s.indexer.Running(),
		TotalSessions:  total,
		ClaudeSessions: claude,
		CodexSessions:  codex,
	}
	if t, ok := s.indexer.LastIndexed(); ok {
		resp.LastIndexed = &t
	}
	return c.JSON(http.StatusOK, resp)
}

func toSessionResponse(sess store.Session) SessionResponse {
	return SessionResponse{
		ID:             sess.ID,
		Source:         sess.Source,
		Project:        sess.Project,
		Cwd:            sess.Cwd,
		Model:          sess.Model,
		Display:        sess.Display,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
		MessageCount:   sess.MessageCount,
		SubagentCount:  sess.SubagentCount,
		HasToolResults: sess.HasToolResults,
	}
}

func toMessageResponses(messages []store.Message) []MessageResponse {
	resp := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, MessageResponse{
			ID:             m.ID,
			Type:           m.Type,
			Content:        m.Content,
			ContentPreview: m.ContentPreview,
			Timestamp:      m.Timestamp,
			Sequence:       m.Sequence,
			ParentUUID:     m.ParentUUID,
			AgentID:        m.AgentID,
			Model:          m.Model,
			InputTokens:    m.InputTokens,
			OutputTokens:   m.OutputTokens,
		})
	}
	return resp
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
