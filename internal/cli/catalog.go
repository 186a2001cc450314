package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qabench/internal/agent"
	"qabench/internal/dataset"
	"qabench/internal/report"
)

func newBenchmarksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "benchmarks",
		Short: "List available benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			var listings []dataset.Listing
			if remote := a.remote(cfg); remote != nil {
				listings, err = remote.Benchmarks(ctx)
			} else {
				listings, err = dataset.NewCatalog(cfg.Benchmarks.BuiltinDir, cfg.Benchmarks.UploadDir).List(ctx)
			}
			if err != nil {
				return err
			}
			if len(listings) == 0 {
				fmt.Fprintln(a.stdout, "No benchmarks found.")
				return nil
			}
			return report.PrintBenchmarks(a.stdout, listings)
		},
	}
}

func newUploadCmd(a *app) *cobra.Command {
	var upload dataset.Upload
	cmd := &cobra.Command{
		Use:   "upload <qa-file>",
		Short: "Add a benchmark from a question/answer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			qa, err := dataset.LoadQAFile(args[0])
			if err != nil {
				printIssues(a.stderr, err)
				return err
			}
			upload.QA = qa
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			var listing dataset.Listing
			if remote := a.remote(cfg); remote != nil {
				listing, err = remote.Upload(ctx, upload)
			} else {
				listing, err = dataset.NewCatalog(cfg.Benchmarks.BuiltinDir, cfg.Benchmarks.UploadDir).Save(upload)
			}
			if err != nil {
				printIssues(a.stderr, err)
				return err
			}
			fmt.Fprintf(a.stdout, "Uploaded %s (%s) with %d questions\n", listing.ID, listing.Name, listing.QuestionCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&upload.Name, "name", "", "benchmark display name")
	cmd.Flags().StringVar(&upload.Description, "description", "", "benchmark description")
	cmd.Flags().StringVar(&upload.ID, "id", "", "benchmark id (derived from the name when empty)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models offered by the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			var models []agent.ModelInfo
			if remote := a.remote(cfg); remote != nil {
				if models, err = remote.Models(ctx); err != nil {
					return err
				}
			} else {
				models = agent.NewModelCatalog(cfg.Providers.OpenRouterBaseURL, nil).Models(ctx)
			}
			return report.PrintModels(a.stdout, models)
		},
	}
}
