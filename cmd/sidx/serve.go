package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pkerr/ai-session-index/internal/api"
	"github.com/pkerr/ai-session-index/internal/config"
	"github.com/pkerr/ai-session-index/internal/index"
	"github.com/pkerr/ai-session-index/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session query API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			logger := newLogger()
			defer logger.Sync()

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()

			ix := index.New(st, cfg.ClaudeRoot, cfg.CodexRoot, logger)
			srv := api.NewServer(st, ix, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !noIndex {
				go func() {
					stats, err := ix.Run(ctx, false)
					if err != nil {
						logger.Warn("startup indexing run failed", zap.Error(err))
						return
					}
					logger.Info("startup indexing run finished", zap.String("stats", stats.String()))
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.ListenAddr)
			}()
			logger.Info("serving", zap.String("addr", cfg.ListenAddr))

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the startup indexing run")

	return cmd
}
