package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Discord announces reviews via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord publisher.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Publish(ctx context.Context, p *Publication) error {
	r := p.Review
	embed := map[string]any{
		"title":       "🎬 " + p.title(),
		"url":         r.Link.URL,
		"description": p.Summary,
		"color":       colorFor(r.Rating.Normalized),
		"timestamp":   r.Metadata.CreatedAt.UTC().Format(time.RFC3339),
		"footer":      map[string]any{"text": "digest " + p.Digest[:12]},
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook status %d", resp.StatusCode)
	}

	return nil
}

// colorFor picks an embed color from red to green by normalized rating.
func colorFor(n float64) int {
	switch {
	case n >= 0.8:
		return 0x2ECC71
	case n >= 0.5:
		return 0xF1C40F
	default:
		return 0xE74C3C
	}
}
