package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkerr/ai-session-index/internal/config"
	"github.com/pkerr/ai-session-index/internal/index"
	"github.com/pkerr/ai-session-index/internal/store"
)

func indexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan and index Claude Code and Codex conversation transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger()
			defer logger.Sync()

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()

			fmt.Fprintf(os.Stderr, "Scanning roots...\n")
			fmt.Fprintf(os.Stderr, "  Claude: %s\n", cfg.ClaudeRoot)
			fmt.Fprintf(os.Stderr, "  Codex:  %s\n", cfg.CodexRoot)

			ix := index.New(st, cfg.ClaudeRoot, cfg.CodexRoot, logger)
			stats, err := ix.Run(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-index every file, replacing existing records")

	return cmd
}
