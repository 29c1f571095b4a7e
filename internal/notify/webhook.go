// Package notify posts run notifications to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	webhookTimeout = 10 * time.Second

	// attempts before a rate-limited post gives up
	maxRetries = 3
)

// WebhookClient posts embeds to one Discord webhook URL
type WebhookClient struct {
	url  string
	http *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		url:  webhookURL,
		http: &http.Client{Timeout: webhookTimeout},
	}
}

func (c *WebhookClient) SendCollectionFinished(ctx context.Context, r CollectionReport) error {
	return c.post(ctx, NewCollectionFinishedPayload(r))
}

func (c *WebhookClient) SendAnalysisFinished(ctx context.Context, r AnalysisReport) error {
	return c.post(ctx, NewAnalysisFinishedPayload(r))
}

func (c *WebhookClient) SendKeyRejected(ctx context.Context, maskedKey string) error {
	return c.post(ctx, NewKeyRejectedPayload(maskedKey))
}

// post delivers payload, waiting out Discord 429s up to maxRetries attempts
func (c *WebhookClient) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		status, wait, err := c.postOnce(ctx, body)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusNoContent || status == http.StatusOK:
			return nil
		case status != http.StatusTooManyRequests:
			return fmt.Errorf("webhook returned status %d", status)
		}
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("webhook still rate limited after %d attempts", maxRetries)
}

// postOnce returns the response status and, for a 429, how long to wait
func (c *WebhookClient) postOnce(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("webhook request: %w", err)
	}
	resp.Body.Close()

	wait := time.Second
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		wait = time.Duration(secs) * time.Second
	}
	return resp.StatusCode, wait, nil
}
