package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/mcp"
	"github.com/dshills/codeindex/internal/watch"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio and keep the index up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(cfg, logger, flags.root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			server, err := mcp.NewServer(ctx, a.searcher, a.orch, a.root, logger)
			if err != nil {
				return err
			}
			a.notify.add(server)

			if cfg.Indexing.AutoIndex {
				a.orch.Start(ctx)
				defer a.orch.Wait()
			}

			if cfg.Indexing.Watch {
				listener := indexer.NewChangeListener(ctx, a.orch, cfg.Indexing.QuietPeriod, logger)
				defer listener.Stop()

				w, err := watch.New(a.lister.Filter(), listener.Observe, logger)
				if err != nil {
					// The periodic reconcile still picks up changes.
					logger.Warn("file watching disabled", "error", err)
				} else {
					defer func() { _ = w.Close() }()
					go func() {
						if err := w.Run(ctx); err != nil {
							logger.Warn("file watcher stopped", "error", err)
						}
					}()
				}
			}

			logger.Info("MCP server ready, listening on stdio", "root", a.root, "version", version)
			err = server.Serve(ctx, os.Stdin, os.Stdout)
			stopped := ctx.Err() != nil
			// Background loops exit on cancellation; the deferred Wait needs it.
			stop()
			if stopped || errors.Is(err, context.Canceled) {
				logger.Info("server stopped")
				return nil
			}
			return err
		},
	}
}
