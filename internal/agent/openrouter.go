package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultOpenRouterBaseURL is the default OpenRouter API base URL.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenRouterProvider implements Provider for the OpenRouter API.
type OpenRouterProvider struct {
	APIKey  string
	BaseURL string
	Client  HTTPDoer
	Model   string
}

// NewOpenRouterProvider constructs an OpenRouter provider with explicit settings.
func NewOpenRouterProvider(model, apiKey, baseURL string, client HTTPDoer) (*OpenRouterProvider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouterProvider{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Model:   model,
	}, nil
}

type openRouterRequest struct {
	Model          string              `json:"model"`
	Stream         bool                `json:"stream"`
	Messages       []openRouterMessage `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string             `json:"type"`
	JSONSchema responseJSONSchema `json:"json_schema"`
}

type responseJSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

func buildOpenRouterRequest(model string, prompt Prompt) openRouterRequest {
	messages := make([]openRouterMessage, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, openRouterMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, openRouterMessage{Role: "user", Content: prompt.User})
	request := openRouterRequest{
		Model:     model,
		Stream:    true,
		Messages:  messages,
		MaxTokens: prompt.MaxTokens,
	}
	if prompt.Output != nil {
		request.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: responseJSONSchema{
				Name:   prompt.Output.Name,
				Strict: true,
				Schema: prompt.Output.Schema,
			},
		}
	}
	return request
}

// Complete streams a chat completion from OpenRouter and returns its text.
func (p *OpenRouterProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	payload, err := json.Marshal(buildOpenRouterRequest(p.Model, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openrouter error: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	content, err := parseOpenRouterStream(resp.Body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
