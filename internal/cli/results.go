package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qabench/internal/report"
	"qabench/internal/store"
)

func newResultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "results [name]",
		Short: "List saved results, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			remote := a.remote(cfg)
			local := store.NewFileStore(cfg.Results.Dir)

			if len(args) == 0 {
				var entries []store.Entry
				if remote != nil {
					entries, err = remote.Results(ctx)
				} else {
					entries, err = local.List(ctx)
				}
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(a.stdout, "No saved results.")
					return nil
				}
				return report.PrintEntries(a.stdout, entries)
			}

			var record store.Record
			if remote != nil {
				record, err = remote.Result(ctx, args[0])
			} else {
				record, err = local.Load(args[0])
			}
			if err != nil {
				return err
			}
			runs := record.Runs()
			for _, run := range runs {
				report.PrintSummary(a.stdout, run)
			}
			if len(runs) > 1 {
				fmt.Fprintln(a.stdout)
				return report.PrintLeaderboard(a.stdout, runs)
			}
			return nil
		},
	}
}
