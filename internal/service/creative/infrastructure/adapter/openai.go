// internal/service/creative/infrastructure/adapter/openai.go
package adapter

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"adforge/internal/pkg/aiclient"
)

// NewOpenAIClient builds the shared SDK client. All four model adapters use
// the same client and therefore the same credentials and base URL; pacing is
// handled one level up by the rate-limited runner.
func NewOpenAIClient(apiKey, baseURL string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	// The runner owns retries; the SDK must not stack its own on top.
	opts = append(opts, option.WithMaxRetries(0))
	return openai.NewClient(opts...)
}

// QuotaClassifier recognizes quota exhaustion in SDK errors and extracts the
// backend's Retry-After suggestion when one is present.
func QuotaClassifier(err error) (time.Duration, bool) {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return 0, false
	}
	if apierr.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	if apierr.Response != nil {
		if wait := retryAfter(apierr.Response.Header.Get("Retry-After")); wait > 0 {
			return wait, true
		}
	}
	return 0, true
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

var _ aiclient.Classifier = QuotaClassifier

func pngDataURL(imageBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)
}

// stripJSONFences tolerates models that wrap JSON replies in a markdown
// code fence despite being told not to.
func stripJSONFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	return strings.TrimSpace(raw)
}

func firstChoice(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
