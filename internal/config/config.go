package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the tool roots, database location and HTTP listen address.
type Config struct {
	ClaudeRoot string `toml:"claude_root"`
	CodexRoot  string `toml:"codex_root"`
	DBPath     string `toml:"db_path"`
	ListenAddr string `toml:"listen_addr"`
}

// Load builds the default configuration and overlays
// ~/.config/sidx/config.toml when present.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ClaudeRoot: filepath.Join(home, ".claude"),
		CodexRoot:  filepath.Join(home, ".codex"),
		DBPath:     filepath.Join(home, ".config", "sidx", "sidx.db"),
		ListenAddr: "127.0.0.1:8675",
	}

	cfgPath := filepath.Join(home, ".config", "sidx", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.ClaudeRoot = expandHome(cfg.ClaudeRoot, home)
	cfg.CodexRoot = expandHome(cfg.CodexRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
