package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pkerr/ai-session-index/internal/config"
	"github.com/pkerr/ai-session-index/internal/store"
)

func listCmd() *cobra.Command {
	var source, project string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print indexed sessions sorted by update time",
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

			sessions, err := st.ListSessions(store.ListOptions{
				Source:  source,
				Project: project,
				Limit:   limit,
			})
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			width := 120
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
				width = w
			}

			for _, sess := range sessions {
				fmt.Println(formatSessionLine(sess, width))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Filter by source (claude/codex)")
	cmd.Flags().StringVar(&project, "project", "", "Filter by project path")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (0 = no limit)")

	return cmd
}

// formatSessionLine renders one table row, truncated to width terminal
// columns on a rune boundary.
func formatSessionLine(sess store.Session, width int) string {
	display := strings.ReplaceAll(sess.Display, "\n", " ")
	line := fmt.Sprintf("%-6s %s %4d msgs  %s",
		sess.Source, sess.UpdatedAt.Format("2006-01-02 15:04"), sess.MessageCount, display)
	return runewidth.Truncate(line, width, "")
}
