package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
)

// ModelCacheTTL is how long a fetched model list is served from memory.
const ModelCacheTTL = 5 * time.Minute

// Pricing is the per-token price reported by OpenRouter.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	ContextLength int      `json:"contextLength,omitempty"`
	Pricing       *Pricing `json:"pricing,omitempty"`
}

// FallbackModels is served when the upstream catalogue is unreachable.
var FallbackModels = []ModelInfo{
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet"},
	{ID: "anthropic/claude-3-haiku", Name: "Claude 3 Haiku"},
	{ID: "openai/gpt-4o", Name: "GPT-4o"},
	{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"},
	{ID: "openai/gpt-4-turbo", Name: "GPT-4 Turbo"},
	{ID: "google/gemini-pro-1.5", Name: "Gemini Pro 1.5"},
	{ID: "google/gemini-flash-1.5", Name: "Gemini Flash 1.5"},
	{ID: "meta-llama/llama-3.1-70b-instruct", Name: "Llama 3.1 70B"},
	{ID: "meta-llama/llama-3.1-8b-instruct", Name: "Llama 3.1 8B"},
	{ID: "mistralai/mistral-large", Name: "Mistral Large"},
}

// ModelCatalog fetches and caches the OpenRouter model list.
type ModelCatalog struct {
	BaseURL string
	Client  HTTPDoer
	Now     func() time.Time

	mu      sync.Mutex
	cached  []ModelInfo
	fetched time.Time
}

// NewModelCatalog builds a catalog against baseURL (OpenRouter by default).
func NewModelCatalog(baseURL string, client HTTPDoer) *ModelCatalog {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ModelCatalog{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Now: time.Now}
}

// Models returns the cached list, refreshing it when stale. Upstream failures
// are logged and answered with FallbackModels, which is never cached.
func (c *ModelCatalog) Models(ctx context.Context) []ModelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.Now()
	if c.cached != nil && now.Sub(c.fetched) < ModelCacheTTL {
		return c.cached
	}
	models, err := c.fetch(ctx)
	if err != nil {
		clog.FromContext(ctx).Warn("model catalogue unavailable, serving fallback", "error", err)
		return FallbackModels
	}
	c.cached = models
	c.fetched = now
	return models
}

type openRouterModel struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ContextLength int      `json:"context_length"`
	Pricing       *Pricing `json:"pricing"`
}

func (c *ModelCatalog) fetch(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read models: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Data []openRouterModel `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	models := make([]ModelInfo, 0, len(payload.Data))
	for _, model := range payload.Data {
		// Drop ":free" variants that carry a further suffix.
		if strings.Contains(model.ID, ":free") && !strings.HasSuffix(model.ID, ":free") {
			continue
		}
		name := model.Name
		if name == "" {
			name = model.ID
		}
		models = append(models, ModelInfo{
			ID:            model.ID,
			Name:          name,
			Description:   model.Description,
			ContextLength: model.ContextLength,
			Pricing:       model.Pricing,
		})
	}
	sort.SliceStable(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}
