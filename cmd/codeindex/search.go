package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/codeindex/internal/searcher"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		limit   int
		mode    string
		syms    []string
		content bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the project index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.ensureIndexed(ctx); err != nil {
				return err
			}

			resp, err := a.searcher.Search(ctx, searcher.SearchRequest{
				Query:   strings.Join(args, " "),
				Symbols: syms,
				Limit:   limit,
				Mode:    searcher.SearchMode(mode),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tLOCATION")
			for _, r := range resp.Results {
				fmt.Fprintf(tw, "%.3f\t%s:%d-%d\n", r.Score(), r.Path, r.StartLine, r.EndLine)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if content {
				for _, r := range resp.Results {
					fmt.Fprintf(out, "\n── %s:%d-%d\n%s\n", r.Path, r.StartLine, r.EndLine, r.Content)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "k", searcher.DefaultLimit, "number of results")
	cmd.Flags().StringVar(&mode, "mode", string(searcher.SearchModeHybrid), "hybrid, vector or keyword")
	cmd.Flags().StringSliceVar(&syms, "symbol", nil, "identifier to boost (repeatable)")
	cmd.Flags().BoolVar(&content, "content", false, "print the matching chunks")
	return cmd
}
