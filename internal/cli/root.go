// Package cli implements the qabench command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"qabench/internal/client"
	"qabench/internal/config"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logFormat  string
	logLevel   string
	server     string
}

// app carries state shared by the commands of one invocation.
type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer
}

// Run executes the CLI and returns a process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	executed, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	if shouldShowUsage(err) {
		maybePrintUsage(executed, root)
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "qabench",
		Short: "Evaluate language models against question/answer benchmarks",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.flags.logFormat, a.flags.logLevel, a.stderr)
			if err != nil {
				return err
			}
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	silenceUsageAndErrors(root)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", "", "path to .qabench/config.yml (discovered from the working directory by default)")
	flags.StringVar(&a.flags.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&a.flags.logLevel, "log-level", "warn", "minimum log level: debug, info, warn or error")
	flags.StringVar(&a.flags.server, "server", "", "URL of a running qabench server; commands run in-process when empty")

	root.AddCommand(
		newInitCmd(a),
		newServeCmd(a),
		newRunCmd(a),
		newBenchmarksCmd(a),
		newUploadCmd(a),
		newModelsCmd(a),
		newResultsCmd(a),
		newIndexCmd(a),
		newValidateCmd(a),
	)
	return root
}

// config loads the configuration named by --config or discovered from the
// working directory.
func (a *app) config(ctx context.Context) (config.Config, error) {
	if a.flags.configPath != "" {
		return config.Load(ctx, a.flags.configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.Discover(ctx, cwd)
}

// remote returns a client when commands should talk to a server.
func (a *app) remote(cfg config.Config) *client.Client {
	url := strings.TrimSpace(a.flags.server)
	if url == "" {
		url = strings.TrimSpace(cfg.Server.URL)
	}
	if url == "" {
		return nil
	}
	return client.New(url)
}

// jsonLogs reports whether logs are written as JSON.
func (a *app) jsonLogs() bool {
	return strings.EqualFold(a.flags.logFormat, "json")
}

// newLogger builds the logger installed into every command context.
func newLogger(format, level string, w io.Writer) (*clog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, usageErrorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return clog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return clog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, usageErrorf("invalid --log-format %q (expected text|json)", format)
}

func silenceUsageAndErrors(cmd *cobra.Command) *cobra.Command {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func maybePrintUsage(cmd, root *cobra.Command) {
	target := cmd
	if target == nil {
		target = root
	}
	_ = target.Usage()
}

// shouldShowUsage recognizes cobra's argument and flag parsing errors.
func shouldShowUsage(err error) bool {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.HasPrefix(msg, "unknown command"),
		strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"),
		strings.HasPrefix(msg, "invalid argument"),
		strings.Contains(msg, "flag needs an argument"),
		strings.Contains(msg, "required flag"):
		return true
	case strings.Contains(msg, "arg") &&
		(strings.Contains(msg, "accepts") || strings.Contains(msg, "requires at least") || strings.Contains(msg, "requires at most")):
		return true
	}
	return false
}
