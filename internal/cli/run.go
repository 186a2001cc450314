package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"qabench/internal/batch"
	"qabench/internal/bench"
	"qabench/internal/config"
	"qabench/internal/dataset"
	"qabench/internal/report"
	"qabench/internal/ui/live"
)

type runFlags struct {
	models  []string
	judge   string
	ui      string
	verbose bool
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <benchmark>",
		Short: "Evaluate one or more models on a benchmark and save the combined result",
		Long: "Evaluate one or more models on a benchmark. Every --model runs concurrently;\n" +
			"the combined result is saved once all runs complete. Models are given as\n" +
			"ID or ID=Display Name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringArrayVarP(&flags.models, "model", "m", nil, "model to evaluate, repeatable (defaults to defaults.models)")
	cmd.Flags().StringVar(&flags.judge, "judge", "", "judge model (defaults to defaults.judge)")
	cmd.Flags().StringVar(&flags.ui, "ui", uiAuto, "progress display: auto, live or plain")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print every graded question in plain mode")
	return cmd
}

// runBatch evaluates every requested model and reports the outcome.
func (a *app) runBatch(ctx context.Context, benchmarkID string, flags runFlags) (err error) {
	mode, err := resolveUIMode(flags.ui, a.jsonLogs(), a.stdout)
	if err != nil {
		return err
	}
	if mode.warning != "" {
		fmt.Fprintln(a.stderr, mode.warning)
	}
	cfg, err := a.config(ctx)
	if err != nil {
		return err
	}
	request, err := batchRequest(benchmarkID, flags, cfg)
	if err != nil {
		return err
	}

	var coordinatorCfg batch.Config
	if remote := a.remote(cfg); remote != nil {
		name, err := remoteBenchmarkName(ctx, remote, benchmarkID)
		if err != nil {
			return err
		}
		request.Benchmark.Name = name
		coordinatorCfg = batch.Config{Streamer: remote, Persister: remote}
	} else {
		var svc *services
		svc, err = openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeServices(svc, &err)
		benchmark, loadErr := svc.catalog.Load(benchmarkID)
		if loadErr != nil {
			return loadErr
		}
		request.Benchmark.Name = benchmark.Name
		coordinatorCfg = batch.Config{
			Streamer:  batch.LocalStreamer{Loader: svc.catalog, Runner: svc.runner},
			Persister: svc.results,
		}
	}
	coordinatorCfg.RunTimeout = cfg.Evaluation.RunTimeout
	coordinatorCfg.MaxConcurrent = cfg.Evaluation.MaxConcurrentRuns
	coordinator := batch.New(coordinatorCfg)

	var controller *live.Controller
	if mode.live {
		controller = live.Start(a.stdout, live.Options{OnInterrupt: coordinator.CancelAll})
		controller.Begin(request)
		coordinator.Subscribe(controller.Observe)
	} else {
		coordinator.Subscribe(newPlainProgress(a.stdout, request, flags.verbose).observe)
	}

	if _, err := coordinator.Start(ctx, request); err != nil {
		controller.Close()
		_ = controller.Wait()
		return err
	}
	stopSignals := cancelOnSignal(coordinator)
	result, err := coordinator.Wait(ctx)
	stopSignals()
	if controller != nil {
		controller.Finish(result)
		if uiErr := controller.Wait(); uiErr != nil {
			clog.FromContext(ctx).Warn("live UI exited with error", "error", uiErr)
		}
	}
	if err != nil {
		return err
	}
	if result.Save.State == batch.SaveFailed {
		fmt.Fprintf(a.stderr, "Saving results failed: %v; retrying once\n", result.Save.Err)
		if name, retryErr := coordinator.RetrySave(ctx); retryErr == nil {
			result.Save = batch.SaveStatus{State: batch.SaveSaved, Name: name}
		} else {
			result.Save = batch.SaveStatus{State: batch.SaveFailed, Err: retryErr}
		}
	}
	return printBatchResult(a.stdout, result)
}

// batchRequest resolves models and judge from flags and config defaults.
func batchRequest(benchmarkID string, flags runFlags, cfg config.Config) (batch.Request, error) {
	request := batch.Request{Benchmark: batch.Benchmark{ID: benchmarkID}}
	for _, value := range flags.models {
		model, err := parseModel(value)
		if err != nil {
			return batch.Request{}, err
		}
		request.Models = append(request.Models, model)
	}
	if len(request.Models) == 0 {
		for _, ref := range cfg.Defaults.Models {
			request.Models = append(request.Models, ref.ModelConfig())
		}
	}
	if len(request.Models) == 0 {
		return batch.Request{}, usageErrorf("no models: pass --model or set defaults.models")
	}
	request.Judge = cfg.Defaults.Judge.ModelConfig()
	if flags.judge != "" {
		judgeModel, err := parseModel(flags.judge)
		if err != nil {
			return batch.Request{}, err
		}
		request.Judge = judgeModel
	}
	if request.Judge.ID == "" {
		return batch.Request{}, usageErrorf("no judge: pass --judge or set defaults.judge")
	}
	return request, nil
}

// parseModel reads ID or ID=Display Name.
func parseModel(value string) (bench.ModelConfig, error) {
	id, name, _ := strings.Cut(value, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return bench.ModelConfig{}, usageErrorf("invalid model %q: id is required", value)
	}
	return bench.ModelConfig{ID: id, Name: strings.TrimSpace(name)}, nil
}

// benchmarkLister is the part of the HTTP client used to name a benchmark.
type benchmarkLister interface {
	Benchmarks(ctx context.Context) ([]dataset.Listing, error)
}

// remoteBenchmarkName looks the benchmark up on the server.
func remoteBenchmarkName(ctx context.Context, lister benchmarkLister, id string) (string, error) {
	listings, err := lister.Benchmarks(ctx)
	if err != nil {
		return "", fmt.Errorf("list benchmarks: %w", err)
	}
	for _, listing := range listings {
		if listing.ID == id {
			return listing.Name, nil
		}
	}
	return "", fmt.Errorf("benchmark %q not found on server", id)
}

// cancelOnSignal cancels every run on SIGINT or SIGTERM until stopped.
func cancelOnSignal(coordinator *batch.Coordinator) func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-signals:
			coordinator.CancelAll()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// printBatchResult prints each run and the save outcome. It fails unless
// every run completed and the result was saved.
func printBatchResult(w io.Writer, result batch.Result) error {
	var failed []string
	for _, run := range result.Runs {
		if run.Output != nil {
			report.PrintSummary(w, *run.Output)
			continue
		}
		reason := string(run.State)
		if run.Err != nil {
			reason = run.Err.Error()
		}
		fmt.Fprintf(w, "%s: %s\n", run.Model.DisplayName(), reason)
		failed = append(failed, run.Model.DisplayName())
	}
	if outputs := result.Outputs(); len(outputs) > 1 {
		fmt.Fprintln(w)
		if err := report.PrintLeaderboard(w, outputs); err != nil {
			return err
		}
	}
	switch result.Save.State {
	case batch.SaveSaved:
		fmt.Fprintf(w, "Saved results as %s\n", result.Save.Name)
	case batch.SaveFailed:
		return fmt.Errorf("save results: %w", result.Save.Err)
	default:
		fmt.Fprintln(w, "Results not saved: not every run completed")
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d runs did not complete: %s", len(failed), len(result.Runs), strings.Join(failed, ", "))
	}
	return nil
}

// plainProgress prints one line per notable update.
type plainProgress struct {
	mu      sync.Mutex
	w       io.Writer
	names   []string
	verbose bool
}

func newPlainProgress(w io.Writer, request batch.Request, verbose bool) *plainProgress {
	names := make([]string, len(request.Models))
	for i, model := range request.Models {
		names[i] = model.DisplayName()
	}
	fmt.Fprintf(w, "Running %s on %d model(s)\n", request.Benchmark.ID, len(names))
	return &plainProgress{w: w, names: names, verbose: verbose}
}

func (p *plainProgress) observe(update batch.Update) {
	line := p.format(update)
	if line == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

func (p *plainProgress) format(update batch.Update) string {
	if update.Save != nil {
		switch update.Save.State {
		case batch.SaveSaving:
			return "Saving results..."
		case batch.SaveFailed:
			return fmt.Sprintf("Save failed: %v", update.Save.Err)
		}
		return ""
	}
	name := update.Model.DisplayName()
	if update.RunIndex >= 0 && update.RunIndex < len(p.names) {
		name = p.names[update.RunIndex]
	}
	switch update.State {
	case batch.StateCompleted:
		return fmt.Sprintf("[%s] completed", name)
	case batch.StateError:
		return fmt.Sprintf("[%s] failed: %v", name, update.Err)
	case batch.StateCancelled:
		return fmt.Sprintf("[%s] cancelled", name)
	}
	if update.Event == nil {
		return fmt.Sprintf("[%s] started", name)
	}
	if !p.verbose || update.Event.Type != bench.EventItemComplete || update.Event.Result == nil {
		return ""
	}
	verdict := "incorrect"
	if update.Event.Result.Verdict.Correct {
		verdict = "correct"
	}
	return fmt.Sprintf("[%s] %d/%d %s", name, update.Event.Current, update.Event.Total, verdict)
}
