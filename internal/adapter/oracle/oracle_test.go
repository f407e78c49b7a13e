package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Missing bearer token: %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"[{\"name\":\"Chair\"}]"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test", Timeout: 5 * time.Second}, zap.NewNop())
	out, err := o.Complete(context.Background(), "system prompt", "page text")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != `[{"name":"Chair"}]` {
		t.Errorf("Unexpected content %q", out)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("Expected system and user messages, got %v", got["messages"])
	}
	if got["model"] != "gpt-test" {
		t.Errorf("Unexpected model %v", got["model"])
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"}, zap.NewNop())
	if _, err := o.Complete(context.Background(), "s", "c"); err == nil {
		t.Fatal("Expected an error")
	}
}

const anthropicReply = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
	"content":[{"type":"text","text":"[]"},{"type":"text","text":" "}],
	"stop_reason":"end_turn","stop_sequence":null,
	"usage":{"input_tokens":3,"output_tokens":1}}`

func TestAnthropic_Complete(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "ak" || r.Header.Get("Anthropic-Version") == "" {
			t.Errorf("Missing auth headers: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(anthropicReply))
	}))
	defer srv.Close()

	a := NewAnthropic(Options{APIKey: "ak", BaseURL: srv.URL, Model: "claude-test", Timeout: 5 * time.Second}, zap.NewNop())
	out, err := a.Complete(context.Background(), "sys", "page")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("Unexpected content %q", out)
	}
	if got.Model != "claude-test" || got.MaxTokens != 4096 {
		t.Errorf("Unexpected model or max tokens: %s %d", got.Model, got.MaxTokens)
	}
	if len(got.System) != 1 || got.System[0].Text != "sys" {
		t.Errorf("Unexpected system prompt: %+v", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" ||
		len(got.Messages[0].Content) != 1 || got.Messages[0].Content[0].Text != "page" {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}
}

func TestAnthropic_ErrorStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	a := NewAnthropic(Options{APIKey: "ak", BaseURL: srv.URL, Model: "m"}, zap.NewNop())
	_, err := a.Complete(context.Background(), "s", "c")
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Expected a 429 API error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single request, got %d", calls.Load())
	}
}

func TestLimiter_HonoursCancellation(t *testing.T) {
	lim := newLimiter(1)
	ctx := context.Background()
	if _, cancel, err := withTimeout(ctx, lim, 0); err != nil {
		t.Fatalf("First call should pass: %v", err)
	} else {
		cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := withTimeout(ctx, lim, 0); err == nil {
		t.Fatal("Expected the second call to fail on a cancelled context")
	}
}
