package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/detect"
)

const deliverTimeout = 10 * time.Second

// Notifier sends transition events to all configured webhook targets.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

// New creates a Notifier. A Notifier with no targets is valid — Run simply
// drains the channel.
func New(webhooks []config.WebhookConfig) *Notifier {
	return &Notifier{
		webhooks: webhooks,
		client:   &http.Client{Timeout: deliverTimeout},
	}
}

// Run consumes transition events from events and delivers each one.
// It returns when events is closed or ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, events <-chan detect.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.Deliver(ev)
		}
	}
}

// Deliver sends one event to every configured target.
// Errors are logged but do not affect the caller.
func (n *Notifier) Deliver(ev detect.Event) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, ev)
		case "http":
			err = n.sendHTTP(url, ev)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"service", ev.Service,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"service", ev.Service,
				"event", ev.Type,
			)
		}
	}
}

func (n *Notifier) sendSlack(url string, ev detect.Event) error {
	body, _ := json.Marshal(map[string]string{
		"text": slackText(ev),
	})
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, ev detect.Event) error {
	body, _ := json.Marshal(map[string]interface{}{"event": ev})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackText(ev detect.Event) string {
	switch ev.Type {
	case detect.FailureStarted:
		return fmt.Sprintf("*[DOWN]* %s is unreachable (since %s)",
			ev.Service, ev.At.Format(time.RFC3339))
	case detect.Recovered:
		return fmt.Sprintf("*[UP]* %s recovered at %s",
			ev.Service, ev.At.Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s: %s", ev.Service, ev.Type)
	}
}
