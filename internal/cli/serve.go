package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"qabench/internal/api"
	"qabench/internal/reportserver"
)

// serveHTTP runs the HTTP server until ctx is done. Tests replace it.
var serveHTTP = func(ctx context.Context, addr string, handler http.Handler) error {
	return reportserver.Serve(ctx, addr, handler)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API and the results pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			cfg, err := a.config(ctx)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			svc, err := openServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeServices(svc, &err)

			pages, err := reportserver.NewHandler(reportserver.Config{
				Results:       svc.results,
				DBPath:        cfg.Results.DuckDBPath,
				AssetsBaseURL: cfg.Server.AssetsBaseURL,
			})
			if err != nil {
				return err
			}
			handler := api.NewHandler(api.Config{
				Benchmarks:    svc.catalog,
				Runner:        svc.runner,
				Results:       svc.results,
				Models:        svc.models,
				Pages:         pages,
				DefaultJudge:  cfg.Defaults.Judge.ModelConfig(),
				PersistSingle: cfg.Results.PersistSingle,
			})

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(a.stdout, "Serving qabench at %s\n", displayURL(addr))
			return serveHTTP(ctx, addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

// displayURL turns a listen address into a browsable URL.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
