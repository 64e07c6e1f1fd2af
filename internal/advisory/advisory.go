// Package advisory talks to an optional local inference endpoint for
// supplementary qualitative explanations of failures. It is never
// required for a decision: any connection problem silently disables the
// client for the rest of the run.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultEndpoint is the conventional local inference endpoint.
const DefaultEndpoint = "http://127.0.0.1:11434/api/generate"

// DefaultModel is used when no model is configured.
const DefaultModel = "llama3"

// Client queries the advisory endpoint. Safe for concurrent use.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
	logger   *log.Logger

	mu       sync.Mutex
	disabled bool
	warned   bool
}

// New creates a client. Empty endpoint or model fall back to defaults;
// logger may be nil.
func New(endpoint, model string, timeout time.Duration, logger *log.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Enabled reports whether the client is still willing to make requests.
func (c *Client) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Explain asks the endpoint for a short qualitative explanation of the
// failure and the proposed action. On any failure the client degrades:
// it logs once, marks itself disabled, and returns an error the caller
// is expected to ignore.
func (c *Client) Explain(ctx context.Context, normalizedError, proposedAction string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("advisory client disabled")
	}

	prompt := fmt.Sprintf(
		"An automation agent hit this error:\n%s\n\nThe planned remediation is %q. "+
			"In two sentences, explain the likely root cause and whether the remediation is appropriate.",
		normalizedError, proposedAction)

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.7,
			"top_p":       0.9,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.degrade(err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("advisory endpoint returned %s", resp.Status)
		c.degrade(err)
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.degrade(err)
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		c.degrade(err)
		return "", err
	}
	return strings.TrimSpace(parsed.Response), nil
}

// degrade disables the client and logs the reason exactly once.
func (c *Client) degrade(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
	if !c.warned {
		c.warned = true
		c.logger.Printf("advisory service unavailable, continuing heuristically: %v", err)
	}
}
