package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"qabench/internal/config"
	"qabench/internal/dataset"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [qa-file...]",
		Short: "Check question/answer files, or the config when no file is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if _, err := a.config(cmd.Context()); err != nil {
					printIssues(a.stderr, err)
					return err
				}
				fmt.Fprintln(a.stdout, "Config OK")
				return nil
			}
			invalid := 0
			for _, path := range args {
				qa, err := dataset.LoadQAFile(path)
				if err != nil {
					invalid++
					fmt.Fprintf(a.stderr, "%s: invalid\n", path)
					printIssues(a.stderr, err)
					continue
				}
				fmt.Fprintf(a.stdout, "%s: %d questions\n", path, len(qa.Questions))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files invalid", invalid, len(args))
			}
			return nil
		},
	}
}

// printIssues lists the individual problems of a validation error.
func printIssues(w io.Writer, err error) {
	var qaErr *dataset.ValidationError
	if errors.As(err, &qaErr) {
		for _, issue := range qaErr.Issues {
			fmt.Fprintf(w, "  - %s: %s\n", issue.Field, issue.Message)
		}
		return
	}
	var cfgErr *config.ValidationError
	if errors.As(err, &cfgErr) {
		for _, issue := range cfgErr.Issues {
			fmt.Fprintf(w, "  - %s: %s\n", issue.Field, issue.Message)
		}
	}
}
