package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// CloudBackend sends audio to an OpenAI-compatible audio/transcriptions
// endpoint. The response carries plain text only, so results never include
// native segments.
type CloudBackend struct {
	URL        string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries uint64
}

func NewCloudBackend(url, apiKey, model string, logger *zap.Logger) *CloudBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudBackend{
		URL:        url,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Logger:     logger,
		MaxRetries: 3,
	}
}

func (c *CloudBackend) Name() string {
	return "cloud"
}

type cloudResponse struct {
	Text string `json:"text"`
}

func (c *CloudBackend) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Result{}, fmt.Errorf("%w: cloud API key is not configured", ErrServiceUnavailable)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second

	var result Result
	operation := func() error {
		r, err := c.transcribeOnce(ctx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.MaxRetries), ctx)); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (c *CloudBackend) transcribeOnce(ctx context.Context, req Request) (Result, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("open audio file: %w", err))
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", c.Model); err != nil {
		return Result{}, backoff.Permanent(err)
	}
	lang := strings.TrimSpace(req.Language)
	if lang != "" && lang != "auto" {
		if err := mw.WriteField("language", lang); err != nil {
			return Result{}, backoff.Permanent(err)
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return Result{}, backoff.Permanent(err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("read audio file: %w", err))
	}
	if err := mw.Close(); err != nil {
		return Result{}, backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return Result{}, backoff.Permanent(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	c.Logger.Debug("uploading audio for transcription",
		zap.String("url", c.URL), zap.String("model", c.Model), zap.String("file", req.AudioPath))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
		if retriableStatus(resp.StatusCode) {
			return Result{}, err
		}
		return Result{}, backoff.Permanent(err)
	}

	var parsed cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("decode transcription response: %w", err))
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return Result{}, backoff.Permanent(ErrUnrecognized)
	}
	return Result{Text: text}, nil
}

func retriableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
