package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// hookServer answers every POST with the next status in statuses,
// repeating the last one
func hookServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		if statuses[n] == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "0")
		}
		w.WriteHeader(statuses[n])
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

// TestWebhookClient_PostsJSON tests method, content type and body
func TestWebhookClient_PostsJSON(t *testing.T) {
	var method, contentType string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := NewWebhookClient(server.URL).SendCollectionFinished(context.Background(), CollectionReport{Matches: 10}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("Expected POST, got %s", method)
	}
	if contentType != "application/json" {
		t.Errorf("Expected application/json, got %s", contentType)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Failed to parse sent payload: %v", err)
	}
	if len(payload.Embeds) != 1 || fieldValues(payload.Embeds[0])["Matches Collected"] != "10" {
		t.Errorf("Unexpected payload %+v", payload)
	}
}

func TestWebhookClient_BadRequest(t *testing.T) {
	server, calls := hookServer(t, http.StatusBadRequest)
	if err := NewWebhookClient(server.URL).SendAnalysisFinished(context.Background(), AnalysisReport{}); err == nil {
		t.Error("Expected error for bad request")
	}
	if calls.Load() != 1 {
		t.Errorf("A 400 must not be retried, got %d calls", calls.Load())
	}
}

func TestWebhookClient_ContextCancelled(t *testing.T) {
	server, _ := hookServer(t, http.StatusNoContent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewWebhookClient(server.URL).SendKeyRejected(ctx, "****"); err == nil {
		t.Error("Expected context cancelled error")
	}
}

// TestWebhookClient_RetriesRateLimit tests one 429 followed by success
func TestWebhookClient_RetriesRateLimit(t *testing.T) {
	server, calls := hookServer(t, http.StatusTooManyRequests, http.StatusNoContent)
	if err := NewWebhookClient(server.URL).SendCollectionFinished(context.Background(), CollectionReport{}); err != nil {
		t.Errorf("Expected success after retry, got: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls.Load())
	}
}

// TestWebhookClient_RateLimitExhausted tests that retries stop at maxRetries
func TestWebhookClient_RateLimitExhausted(t *testing.T) {
	server, calls := hookServer(t, http.StatusTooManyRequests)
	if err := NewWebhookClient(server.URL).SendCollectionFinished(context.Background(), CollectionReport{}); err == nil {
		t.Error("Expected error after exhausting retries")
	}
	if int(calls.Load()) != maxRetries {
		t.Errorf("Expected %d attempts, got %d", maxRetries, calls.Load())
	}
}
