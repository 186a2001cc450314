// Package reportserver serves HTML pages over stored results and the DuckDB
// results index.
package reportserver

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/chainguard-dev/clog"

	"qabench/internal/store"
)

// Config captures the settings for serving result pages.
type Config struct {
	Results *store.FileStore
	// DBPath is the DuckDB results index offered for download; optional.
	DBPath        string
	AssetsBaseURL string
}

// NewHandler builds the HTTP handler for the result pages.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Results == nil {
		return nil, errors.New("reportserver: results store is required")
	}
	styleURL := stylesheetURL(cfg.AssetsBaseURL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		entries, err := cfg.Results.List(r.Context())
		if err != nil {
			clog.FromContext(r.Context()).Error("listing results failed", "error", err)
			http.Error(w, "could not list results", http.StatusInternalServerError)
			return
		}
		render(w, r, layout("Benchmark results", styleURL, IndexPage(entries)))
	})
	mux.HandleFunc("GET /results/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		record, err := cfg.Results.Load(name)
		switch {
		case errors.Is(err, store.ErrInvalidName):
			http.Error(w, "invalid result name", http.StatusBadRequest)
			return
		case errors.Is(err, store.ErrNotFound):
			http.NotFound(w, r)
			return
		case err != nil:
			clog.FromContext(r.Context()).Error("loading result failed", "name", name, "error", err)
			http.Error(w, "could not load result", http.StatusInternalServerError)
			return
		}
		render(w, r, layout(name, styleURL, ResultPage(name, record)))
	})
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(staticAssets)))
	mux.Handle("/data/db.duckdb", serveDatabase(cfg.DBPath))
	return mux, nil
}

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		clog.FromContext(r.Context()).Error("rendering page failed", "error", err)
	}
}

// serveDatabase serves the DuckDB file from disk for offline analysis.
func serveDatabase(dbPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if dbPath == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, dbPath)
	})
}
