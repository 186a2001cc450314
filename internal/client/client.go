// Package client talks to a qabench server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qabench/internal/agent"
	"qabench/internal/batch"
	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/progress"
	"qabench/internal/store"
)

// Client streams runs from and saves results to a remote server. It
// satisfies batch.Streamer and batch.Persister.
type Client struct {
	baseURL string
	client  *http.Client
}

// New constructs a client for the given base URL. Streams are bounded only
// by their context.
func New(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{}}
}

// NewWithTimeout constructs a client whose requests, streams included, are
// bounded by timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type runRequest struct {
	BenchmarkID string `json:"benchmarkId"`
	ModelID     string `json:"modelId"`
	ModelName   string `json:"modelName,omitempty"`
	JudgeID     string `json:"judgeId,omitempty"`
	JudgeName   string `json:"judgeName,omitempty"`
}

// Stream starts a run on the server and decodes its event stream. Errors
// answered before the stream opens are returned directly; the events channel
// closes at end of stream or when ctx is done.
func (c *Client) Stream(ctx context.Context, request batch.RunRequest) (<-chan bench.Event, error) {
	payload, err := json.Marshal(runRequest{
		BenchmarkID: request.BenchmarkID,
		ModelID:     request.Model.ID,
		ModelName:   request.Model.Name,
		JudgeID:     request.Judge.ID,
		JudgeName:   request.Judge.Name,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/run", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeHTTPError(resp.StatusCode, body)
	}

	events := progress.Events(ctx, resp.Body)
	out := make(chan bench.Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		for event := range events {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type saveRequest struct {
	Runs          []bench.RunOutput `json:"runs"`
	BenchmarkID   string            `json:"benchmarkId"`
	BenchmarkName string            `json:"benchmarkName"`
	Judge         bench.ModelConfig `json:"judge"`
}

type saveResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

// SaveMulti asks the server to persist a batch and returns the record name.
func (c *Client) SaveMulti(ctx context.Context, runs []bench.RunOutput, benchmarkID, benchmarkName string, judge bench.ModelConfig) (string, error) {
	payload, err := json.Marshal(saveRequest{Runs: runs, BenchmarkID: benchmarkID, BenchmarkName: benchmarkName, Judge: judge})
	if err != nil {
		return "", err
	}
	var res saveResponse
	if err := c.do(ctx, http.MethodPost, "/api/save-results", payload, http.StatusOK, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("save results: server reported failure")
	}
	return res.Filename, nil
}

// Benchmarks lists the server's benchmarks.
func (c *Client) Benchmarks(ctx context.Context) ([]dataset.Listing, error) {
	var res []dataset.Listing
	err := c.do(ctx, http.MethodGet, "/api/benchmarks", nil, http.StatusOK, &res)
	return res, err
}

// Upload submits a new benchmark.
func (c *Client) Upload(ctx context.Context, upload dataset.Upload) (dataset.Listing, error) {
	payload, err := json.Marshal(upload)
	if err != nil {
		return dataset.Listing{}, err
	}
	var res dataset.Listing
	err = c.do(ctx, http.MethodPost, "/api/benchmarks/upload", payload, http.StatusCreated, &res)
	return res, err
}

// Results lists stored records.
func (c *Client) Results(ctx context.Context) ([]store.Entry, error) {
	var res []store.Entry
	err := c.do(ctx, http.MethodGet, "/api/results", nil, http.StatusOK, &res)
	return res, err
}

// Result fetches one stored record.
func (c *Client) Result(ctx context.Context, name string) (store.Record, error) {
	var res store.Record
	err := c.do(ctx, http.MethodGet, "/api/results/"+url.PathEscape(name), nil, http.StatusOK, &res)
	return res, err
}

// Models lists the models the server offers.
func (c *Client) Models(ctx context.Context) ([]agent.ModelInfo, error) {
	var res []agent.ModelInfo
	err := c.do(ctx, http.MethodGet, "/api/models", nil, http.StatusOK, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, want int, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return decodeHTTPError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPError is a non-success answer from the server.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func decodeHTTPError(status int, body []byte) error {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return &HTTPError{Status: status, Message: resp.Error}
	}
	return &HTTPError{Status: status}
}
