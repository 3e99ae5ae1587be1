package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index statistics for the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, logger, flags.root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			stats, err := a.store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project:    %s\n", a.root)
			fmt.Fprintf(out, "Index dir:  %s\n", a.store.Dir())
			fmt.Fprintf(out, "Files:      %d\n", stats.Files)
			fmt.Fprintf(out, "Documents:  %d\n", stats.Documents)
			fmt.Fprintf(out, "Symbols:    %d\n", stats.Symbols)
			fmt.Fprintf(out, "Size:       %.2f MB\n", float64(stats.SizeBytes)/(1024*1024))
			fmt.Fprintf(out, "Embeddings: %s (%s)\n", a.client.Provider(), a.client.Model())
			return nil
		},
	}
}
