//go:build cucumber

package reportserver

import (
	"context"
	"fmt"
	"net/http"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"qabench/internal/bench"
	"qabench/internal/store"
)

// TestResultsPagesScenarios runs the results pages feature scenarios.
func TestResultsPagesScenarios(t *testing.T) {
	featurePath := filepath.Join("..", "..", "features", "results-pages.feature")
	suite := godog.TestSuite{
		Name:                "results-pages",
		ScenarioInitializer: InitializeServeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{featurePath},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeServeScenario wires steps for results pages scenarios.
func InitializeServeScenario(ctx *godog.ScenarioContext) {
	state := &serveScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, state.reset()
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		state.cleanup()
		return ctx, err
	})

	ctx.Step(`^a saved result for benchmark "([^"]+)" named "([^"]+)"$`, state.givenSavedResult)
	ctx.Step(`^a DuckDB results file$`, state.givenDuckDBFile)
	ctx.Step(`^I start the results server$`, state.whenIStartTheServer)
	ctx.Step(`^I request "([^"]+)"$`, state.whenIRequest)
	ctx.Step(`^I request the saved result page$`, state.whenIRequestSavedResult)
	ctx.Step(`^the response status is (\d+)$`, state.thenResponseStatus)
	ctx.Step(`^the response body contains "([^"]+)"$`, state.thenResponseBodyContains)
	ctx.Step(`^the response body equals the DuckDB file bytes$`, state.thenResponseBodyEqualsDB)
}

// serveScenarioState runs a real server on a loopback port per scenario.
type serveScenarioState struct {
	dir        string
	results    *store.FileStore
	savedName  string
	dbPath     string
	dbContents []byte
	baseURL    string
	stop       context.CancelFunc
	stopped    chan error
	status     int
	body       []byte
}

func (s *serveScenarioState) reset() error {
	dir, err := os.MkdirTemp("", "results-pages-*")
	if err != nil {
		return err
	}
	*s = serveScenarioState{dir: dir}
	return nil
}

func (s *serveScenarioState) cleanup() {
	if s.stop != nil {
		s.stop()
		<-s.stopped
	}
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
	}
}

func (s *serveScenarioState) givenSavedResult(benchmarkID, benchmarkName string) error {
	s.results = store.NewFileStore(filepath.Join(s.dir, "results"))
	result := bench.ItemResult{Question: "Capital of France?", ExpectedAnswer: "Paris", ModelAnswer: "Paris", Verdict: bench.Verdict{Correct: true, Rationale: "match"}}
	model := bench.ModelConfig{ID: "vendor/alpha", Name: "Alpha"}
	judge := bench.ModelConfig{ID: "judge"}
	run := bench.RunOutput{Summary: bench.NewSummary(model, judge, []bench.ItemResult{result}, time.Now()), Results: []bench.ItemResult{result}}
	name, err := s.results.SaveMulti(context.Background(), []bench.RunOutput{run}, benchmarkID, benchmarkName, judge)
	if err != nil {
		return err
	}
	s.savedName = name
	return nil
}

func (s *serveScenarioState) givenDuckDBFile() error {
	s.dbContents = []byte("duckdb")
	s.dbPath = filepath.Join(s.dir, "results.duckdb")
	return os.WriteFile(s.dbPath, s.dbContents, 0o644)
}

func (s *serveScenarioState) whenIStartTheServer() error {
	handler, err := NewHandler(Config{Results: s.results, DBPath: s.dbPath})
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.stopped = make(chan error, 1)
	s.baseURL = "http://" + listener.Addr().String()
	go func() { s.stopped <- serveListener(ctx, listener, handler) }()
	return nil
}

func (s *serveScenarioState) whenIRequest(path string) error {
	if s.baseURL == "" {
		return fmt.Errorf("server not started")
	}
	resp, err := http.Get(s.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	s.status = resp.StatusCode
	s.body, err = io.ReadAll(resp.Body)
	return err
}

func (s *serveScenarioState) whenIRequestSavedResult() error {
	return s.whenIRequest("/results/" + s.savedName)
}

func (s *serveScenarioState) thenResponseStatus(expected int) error {
	if s.status != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.status)
	}
	return nil
}

func (s *serveScenarioState) thenResponseBodyContains(snippet string) error {
	if !strings.Contains(string(s.body), snippet) {
		return fmt.Errorf("expected response to contain %q", snippet)
	}
	return nil
}

func (s *serveScenarioState) thenResponseBodyEqualsDB() error {
	if string(s.body) != string(s.dbContents) {
		return fmt.Errorf("response body did not match db bytes")
	}
	return nil
}
