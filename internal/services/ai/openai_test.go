package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const chatCompletionReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": %q,
    "message": {"role": "assistant", "content": "{\"affirmation\":\"You are enough.\"}"}
  }],
  "usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
}`

func TestOpenAIProvider_SendsTemplateSampling(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sprintfReply("stop")))
	}))
	defer srv.Close()

	prompt, err := DefaultTemplates().Affirmation.Render(AffirmationInput{Mood: "Sad"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	p := NewOpenAIProvider("sk-test", srv.URL, "", nil, false)
	got, err := p.Complete(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"affirmation":"You are enough."}` {
		t.Errorf("Complete() = %s", got)
	}

	if body["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v, want %s", body["model"], DefaultOpenAIModel)
	}
	if body["temperature"] != 0.9 {
		t.Errorf("temperature = %v, want 0.9", body["temperature"])
	}
	if body["max_completion_tokens"] != float64(120) {
		t.Errorf("max_completion_tokens = %v, want 120", body["max_completion_tokens"])
	}
	if rf, _ := body["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", body["response_format"])
	}
}

func TestOpenAIProvider_OmitsUnsetSampling(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("sk-test", "", "", nil, false)
	req := p.params(Prompt{Operation: "custom", System: "s", User: "u"})
	if req.Temperature.Valid() || req.MaxCompletionTokens.Valid() {
		t.Errorf("unset sampling should leave params empty: %+v %+v", req.Temperature, req.MaxCompletionTokens)
	}
}

func TestOpenAIProvider_WarnsOnTruncatedReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sprintfReply("length")))
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	p := NewOpenAIProvider("sk-test", srv.URL, "", zap.New(core), false)
	if _, err := p.Complete(context.Background(), Prompt{Operation: TemplateMindfulnessSession, System: "s", User: "u"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if logs.FilterMessage("llm_response_truncated").Len() != 1 {
		t.Errorf("expected one llm_response_truncated warning, got %v", logs.All())
	}
}

func TestOpenAIProvider_MapsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"The model is overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL, "", nil, false)
	_, err := p.Complete(context.Background(), Prompt{Operation: TemplateAffirmation, System: "s", User: "u"})
	if !IsTransientUnavailable(err) {
		t.Fatalf("Complete() error = %v, want transient unavailability", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", apiErr.RetryAfter)
	}
	if apiErr.Message != "The model is overloaded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func sprintfReply(finishReason string) string {
	return fmt.Sprintf(chatCompletionReply, finishReason)
}
