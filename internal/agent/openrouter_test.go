package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestNewOpenRouterProviderErrors verifies required settings are enforced.
func TestNewOpenRouterProviderErrors(t *testing.T) {
	if _, err := NewOpenRouterProvider("", "key", "", nil); err == nil {
		t.Fatalf("expected model error")
	}
	if _, err := NewOpenRouterProvider("model", " ", "", nil); err == nil {
		t.Fatalf("expected api key error")
	}
	provider, err := NewOpenRouterProvider("model", "key", "", nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if provider.BaseURL != DefaultOpenRouterBaseURL {
		t.Fatalf("unexpected base url %q", provider.BaseURL)
	}
}

// TestOpenRouterCompleteJoinsDeltas verifies streamed content is concatenated.
func TestOpenRouterCompleteJoinsDeltas(t *testing.T) {
	var request openRouterRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Par\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"is\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	provider, err := NewOpenRouterProvider("openai/gpt-4o", "key", server.URL, server.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	answer, err := provider.Complete(context.Background(), Prompt{System: "be brief", User: "Capital of France?", MaxTokens: 500})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if answer != "Paris" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if request.Model != "openai/gpt-4o" || !request.Stream || request.MaxTokens != 500 {
		t.Fatalf("unexpected request: %+v", request)
	}
	if len(request.Messages) != 2 || request.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", request.Messages)
	}
	if request.ResponseFormat != nil {
		t.Fatalf("expected no response format")
	}
}

// TestOpenRouterCompleteRequestsSchema verifies structured output is forwarded.
func TestOpenRouterCompleteRequestsSchema(t *testing.T) {
	request := buildOpenRouterRequest("m", Prompt{
		User:   "q",
		Output: &OutputSchema{Name: "verdict", Schema: json.RawMessage(`{"type":"object"}`)},
	})
	if request.ResponseFormat == nil || request.ResponseFormat.Type != "json_schema" {
		t.Fatalf("expected json_schema response format, got %+v", request.ResponseFormat)
	}
	if request.ResponseFormat.JSONSchema.Name != "verdict" || !request.ResponseFormat.JSONSchema.Strict {
		t.Fatalf("unexpected schema: %+v", request.ResponseFormat.JSONSchema)
	}
	if len(request.Messages) != 1 {
		t.Fatalf("expected only a user message, got %+v", request.Messages)
	}
}

// TestOpenRouterCompleteErrors covers HTTP, mid-stream and empty failures.
func TestOpenRouterCompleteErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			check: func(err error) bool { return strings.Contains(err.Error(), "http 429") },
		},
		{
			name: "stream error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "data: {\"error\":{\"code\":502,\"message\":\"upstream down\"}}\n\n")
			},
			check: func(err error) bool { return strings.Contains(err.Error(), "upstream down") },
		},
		{
			name: "empty",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "data: [DONE]\n\n")
			},
			check: func(err error) bool { return errors.Is(err, ErrEmptyResponse) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			t.Cleanup(server.Close)
			provider, err := NewOpenRouterProvider("m", "key", server.URL, server.Client())
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			_, err = provider.Complete(context.Background(), Prompt{User: "q"})
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
