package reportserver

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"qabench/internal/bench"
	"qabench/internal/judge"
	"qabench/internal/store"
)

func write(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func esc(text string) string {
	return templ.EscapeString(text)
}

func percent(accuracy float64) string {
	return fmt.Sprintf("%.1f%%", accuracy*100)
}

// layout wraps body in the page shell.
func layout(title, styleURL string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"/>`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"/>`+
			`<title>%s</title><link rel="stylesheet" href="%s"/></head><body>`,
			esc(title), esc(styleURL)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</body></html>`)
	})
}

// IndexPage lists stored results, newest first.
func IndexPage(entries []store.Entry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<h1>Benchmark results</h1>`); err != nil {
			return err
		}
		if len(entries) == 0 {
			return write(w, `<p class="muted">No results saved yet.</p>`)
		}
		if err := write(w, `<table><thead><tr><th>Result</th><th>Benchmark</th><th>Kind</th><th>Models</th><th>Saved</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, entry := range entries {
			benchmark := entry.BenchmarkName
			if benchmark == "" {
				benchmark = entry.BenchmarkID
			}
			models := ""
			for i, model := range entry.Models {
				if i > 0 {
					models += ", "
				}
				models += model
			}
			if err := write(w, `<tr><td><a href="/results/%s">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				esc(url.PathEscape(entry.Name)), esc(entry.Name), esc(benchmark), esc(string(entry.Kind)),
				esc(models), esc(entry.Timestamp.UTC().Format("2006-01-02 15:04:05"))); err != nil {
				return err
			}
		}
		return write(w, `</tbody></table>`)
	})
}

// ResultPage shows every run of a stored record with per-item verdicts.
func ResultPage(name string, record store.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<p><a href="/">All results</a></p><h1>%s</h1>`, esc(name)); err != nil {
			return err
		}
		if record.Kind == store.KindMulti {
			if err := write(w, `<p>%s, judged by %s</p>`,
				esc(record.Multi.BenchmarkName), esc(record.Multi.Judge.DisplayName())); err != nil {
				return err
			}
		}
		for _, run := range record.Runs() {
			if err := runSection(run).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func runSection(run bench.RunOutput) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		summary := run.Summary
		if err := write(w, `<h2>%s</h2><p>%d/%d correct (%s)</p>`,
			esc(summary.Model.DisplayName()), summary.CorrectCount, summary.TotalQuestions, esc(percent(summary.Accuracy))); err != nil {
			return err
		}
		if err := write(w, `<table><thead><tr><th>#</th><th>Question</th><th>Expected</th><th>Answer</th><th>Verdict</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, result := range run.Results {
			class, label := "incorrect", "incorrect"
			if result.Verdict.Correct {
				class, label = "correct", "correct"
			}
			if judge.IsLossy(result.Verdict) {
				class += " lossy"
			}
			if err := write(w, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td class="%s" title="%s">%s</td></tr>`,
				result.Index+1, esc(result.Question), esc(result.ExpectedAnswer), esc(result.ModelAnswer),
				class, esc(result.Verdict.Rationale), label); err != nil {
				return err
			}
		}
		return write(w, `</tbody></table>`)
	})
}
