package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/config"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	root       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "codeindex",
		Short:        "Hybrid code search index with an MCP server",
		SilenceUsage: true, // don't print usage on operational errors
		Long: `codeindex keeps a hybrid full-text and vector index of a source tree
up to date and answers search queries over it, from the command line or
as an MCP server on stdio.`,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.codeindex/config.yaml)")
	pf.StringVar(&flags.root, "root", ".", "project root to index")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(flags),
		newIndexCmd(flags),
		newSearchCmd(flags),
		newStatusCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and installs the stderr logger.
// stdout is reserved for MCP traffic and command output.
func (f *globalFlags) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config: %w", err)
	}
	if f.logLevel != "" {
		level, err := config.ParseLevel(f.logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --log-level %q", f.logLevel)
		}
		cfg.LogLevel = level.String()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
