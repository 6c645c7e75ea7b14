package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

type payload struct {
	Database   string  `json:"database"`
	Engine     string  `json:"engine"`
	Status     string  `json:"status"`
	Trigger    string  `json:"trigger"`
	Path       string  `json:"path,omitempty"`
	Bytes      int64   `json:"bytes,omitempty"`
	DurationMS int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
	SentAt     string  `json:"sent_at"`
	SizeMB     float64 `json:"size_mb,omitempty"`
}

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}, nil
}

func (w *Webhook) Notify(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(payload{
		Database:   e.Database,
		Engine:     e.Engine.String(),
		Status:     e.Status,
		Trigger:    string(e.Trigger),
		Path:       e.Path,
		Bytes:      e.Bytes,
		DurationMS: e.Duration.Milliseconds(),
		Error:      e.Error,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
		SizeMB:     float64(e.Bytes) / (1024 * 1024),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received non-success status: %s", resp.Status)
	}
	return nil
}
