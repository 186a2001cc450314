package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"qabench/internal/report"
	"qabench/internal/resultsdb"
	"qabench/internal/store"
)

func newIndexCmd(a *app) *cobra.Command {
	var dbPath, benchmarkID string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load saved results into the DuckDB index and print standings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Results.DuckDBPath
			}
			if dbPath == "" {
				return usageErrorf("no index path: pass --db or set results.duckdb_path")
			}
			db, err := resultsdb.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, db.Close()) }()

			added, err := db.IngestStore(ctx, store.NewFileStore(cfg.Results.Dir))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Indexed %d new result(s) into %s\n", added, dbPath)
			standings, err := db.Leaderboard(ctx, benchmarkID)
			if err != nil {
				return err
			}
			if len(standings) == 0 {
				fmt.Fprintln(a.stdout, "No runs indexed yet.")
				return nil
			}
			if err := report.PrintStandings(a.stdout, standings); err != nil {
				return err
			}
			lossy, err := db.LossyVerdicts(ctx)
			if err != nil {
				return err
			}
			if lossy > 0 {
				fmt.Fprintf(a.stdout, "%d verdict(s) were recovered from unstructured judge output\n", lossy)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB file (defaults to results.duckdb_path)")
	cmd.Flags().StringVar(&benchmarkID, "benchmark", "", "only show standings for this benchmark")
	return cmd
}
