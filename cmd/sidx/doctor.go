package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkerr/ai-session-index/internal/config"
	"github.com/pkerr/ai-session-index/internal/scan"
	"github.com/pkerr/ai-session-index/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify roots, DB, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger := newLogger()
			defer logger.Sync()

			fmt.Println("=== Roots ===")
			checkDir("Claude", cfg.ClaudeRoot)
			checkDir("Codex", cfg.CodexRoot)

			fmt.Println("\n=== File Scan ===")
			claudeCount := 0
			for range scan.ClaudeSessions(cfg.ClaudeRoot, logger) {
				claudeCount++
			}
			codexCount := 0
			for range scan.CodexSessions(cfg.CodexRoot, logger) {
				codexCount++
			}
			fmt.Printf("  Claude JSONL files: %d\n", claudeCount)
			fmt.Printf("  Codex  JSONL files: %d\n", codexCount)

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'sidx index' first)")
				return nil
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()

			total, err := st.SessionCount("")
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			claude, err := st.SessionCount("claude")
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			codex, err := st.SessionCount("codex")
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			messages, err := st.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}

			fmt.Printf("  Sessions: %d (claude=%d codex=%d)\n", total, claude, codex)
			fmt.Printf("  Messages: %d\n", messages)

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
