package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".claude"), cfg.ClaudeRoot)
	require.Equal(t, filepath.Join(home, ".codex"), cfg.CodexRoot)
	require.Equal(t, filepath.Join(home, ".config", "sidx", "sidx.db"), cfg.DBPath)
	require.Equal(t, "127.0.0.1:8675", cfg.ListenAddr)
}

func TestLoadOverlay(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "sidx")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(
		"claude_root = \"~/claude-logs\"\nlisten_addr = \"0.0.0.0:9000\"\n",
	), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "claude-logs"), cfg.ClaudeRoot)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	// untouched keys keep their defaults
	require.Equal(t, filepath.Join(home, ".codex"), cfg.CodexRoot)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "sidx")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("claude_root = ["), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	require.Equal(t, "/home/me/x", expandHome("~/x", "/home/me"))
	require.Equal(t, "/abs/x", expandHome("/abs/x", "/home/me"))
	require.Equal(t, "~", expandHome("~", "/home/me"))
	require.Equal(t, "~weird", expandHome("~weird", "/home/me"))
}
