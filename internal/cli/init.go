package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qabench/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter .qabench/config.yml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			} else if cwd, err := os.Getwd(); err == nil {
				root = cwd
			}
			path := config.ConfigPath(root)
			if err := config.Scaffold(path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s\n", path)
			return nil
		},
	}
}
