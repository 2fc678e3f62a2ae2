// Package summarize condenses a transcript into short notes via an
// OpenAI-compatible chat completions endpoint.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("summarization endpoint is not configured")

const systemPrompt = "You summarize voice note transcripts. Produce a short summary " +
	"followed by bullet points of key items and action points. Keep the " +
	"language of the original transcript."

type Client struct {
	URL        string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
	MaxRetries uint64
}

func NewClient(url, apiKey, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:        url,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     logger,
		MaxRetries: 2,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.URL) == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("transcript is empty")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond

	var summary string
	operation := func() error {
		s, err := c.summarizeOnce(ctx, payload)
		if err != nil {
			return err
		}
		summary = s
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.MaxRetries), ctx)); err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return summary, nil
}

func (c *Client) summarizeOnce(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	c.Logger.Debug("requesting summary", zap.String("url", c.URL), zap.String("model", c.Model))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("summary endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode summary response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", backoff.Permanent(errors.New("summary response has no choices"))
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", backoff.Permanent(errors.New("summary response is empty"))
	}
	return content, nil
}
