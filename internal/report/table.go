package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"qabench/internal/agent"
	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/resultsdb"
	"qabench/internal/store"
)

// newTable creates a table writer with the standard report formatting.
func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// PrintLeaderboard writes the runs of a batch ranked by accuracy. Ties keep
// run order.
func PrintLeaderboard(w io.Writer, runs []bench.RunOutput) error {
	ranked := append([]bench.RunOutput(nil), runs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Summary.Accuracy > ranked[j].Summary.Accuracy
	})
	table := newTable([]string{"Rank", "Model", "Correct", "Accuracy"}, w)
	for i, run := range ranked {
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			run.Summary.Model.DisplayName(),
			fmt.Sprintf("%d/%d", run.Summary.CorrectCount, run.Summary.TotalQuestions),
			formatAccuracy(run.Summary.Accuracy),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintStandings writes pooled standings from the results database.
func PrintStandings(w io.Writer, standings []resultsdb.Standing) error {
	table := newTable([]string{"Benchmark", "Model", "Runs", "Correct", "Accuracy", "Last run"}, w)
	for _, standing := range standings {
		if err := table.Append([]string{
			standing.BenchmarkID,
			standing.ModelName,
			fmt.Sprintf("%d", standing.Runs),
			fmt.Sprintf("%d/%d", standing.Correct, standing.Total),
			formatAccuracy(standing.Accuracy),
			standing.LastRun.UTC().Format("2006-01-02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintEntries writes a result listing.
func PrintEntries(w io.Writer, entries []store.Entry) error {
	table := newTable([]string{"Name", "Kind", "Benchmark", "Runs", "Models"}, w)
	for _, entry := range entries {
		models := ""
		for i, model := range entry.Models {
			if i > 0 {
				models += ", "
			}
			models += model
		}
		if err := table.Append([]string{
			entry.Name,
			string(entry.Kind),
			firstNonEmpty(entry.BenchmarkName, entry.BenchmarkID),
			fmt.Sprintf("%d", entry.RunCount),
			models,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintBenchmarks writes the benchmark catalogue.
func PrintBenchmarks(w io.Writer, listings []dataset.Listing) error {
	table := newTable([]string{"ID", "Name", "Source", "Questions", "Description"}, w)
	for _, listing := range listings {
		if err := table.Append([]string{
			listing.ID,
			listing.Name,
			string(listing.Source),
			fmt.Sprintf("%d", listing.QuestionCount),
			truncate(listing.Description, 60),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintModels writes the model catalogue.
func PrintModels(w io.Writer, models []agent.ModelInfo) error {
	table := newTable([]string{"ID", "Name", "Context"}, w)
	for _, model := range models {
		window := ""
		if model.ContextLength > 0 {
			window = fmt.Sprintf("%d", model.ContextLength)
		}
		if err := table.Append([]string{model.ID, model.Name, window}); err != nil {
			return err
		}
	}
	return table.Render()
}
