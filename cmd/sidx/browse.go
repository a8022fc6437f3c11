package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkerr/ai-session-index/internal/config"
	"github.com/pkerr/ai-session-index/internal/store"
	"github.com/pkerr/ai-session-index/internal/tui"
)

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse indexed sessions in an interactive panel",
		Long:  `Opens a TUI showing indexed sessions sorted by update time (newest first). Type to filter by display text or project path.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()

			return tui.Run(st)
		},
	}
}
