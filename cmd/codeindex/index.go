package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/pkg/types"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var changed bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the index of the project",
		Long: `Build the index of the project from scratch, or with --changed only
re-index files that are new, modified or deleted since the last run.`,
		Args: cobra.NoArgs,
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

			var jobs []indexer.Completion
			a.notify.add(indexer.NotifierFunc(func(c indexer.Completion) { jobs = append(jobs, c) }))

			ctx := cmd.Context()
			if changed {
				err = a.orch.Reconcile(ctx)
			} else {
				_, err = a.orch.RunFull(ctx, indexer.TriggerManual)
			}
			if err != nil && !errors.Is(err, types.ErrSkipped) {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "Index is up to date.")
				return nil
			}
			for _, c := range jobs {
				fmt.Fprintf(out, "%s index: %d files, %d documents, %d removed in %s\n",
					c.Kind, c.Files, c.Documents, c.Removed, c.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&changed, "changed", false, "only re-index changed files")
	return cmd
}
