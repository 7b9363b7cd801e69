package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds one outbound notification.
const DefaultTimeout = 5 * time.Second

// HTTPNotifier POSTs each event as JSON to an external listener.
type HTTPNotifier struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// HTTPNotifierConfig holds configuration for creating an HTTP notifier.
type HTTPNotifierConfig struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPNotifier creates a notifier posting to cfg.URL.
func NewHTTPNotifier(cfg HTTPNotifierConfig) *HTTPNotifier {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPNotifier{url: cfg.URL, client: client, timeout: timeout}
}

// Notify posts e in the background. Failures are logged.
func (n *HTTPNotifier) Notify(ctx context.Context, e Event) {
	// The request outlives the mutation that triggered it.
	ctx = context.WithoutCancel(ctx)

	go func() {
		if err := n.Send(ctx, e); err != nil {
			log.Warn().Err(err).Str("event_type", string(e.Type)).Str("url", n.url).Msg("Failed to deliver drive event")
		}
	}()
}

// Send posts e and waits for the response.
func (n *HTTPNotifier) Send(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("listener responded %d", resp.StatusCode)
	}

	return nil
}
