package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zap-ai/zapai/pkg/logging"
)

const responseLimit = 32 << 20 // voice notes and photos arrive base64-encoded

// EvolutionFetcher downloads message media from the Evolution API. The
// provider only stores media transiently, so fetch failures are expected and
// reported as empty payloads, not errors the pipeline should abort on.
type EvolutionFetcher struct {
	http    *http.Client
	baseURL string
	logger  *logging.Logger
}

func NewEvolutionFetcher(baseURL string, timeout time.Duration, logger *logging.Logger) *EvolutionFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EvolutionFetcher{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Component("media_fetcher"),
	}
}

// FetchBase64 retrieves a message's media payload as base64. The instance
// token authenticates the call.
func (f *EvolutionFetcher) FetchBase64(ctx context.Context, instanceName, token, messageID string) (string, error) {
	if f.baseURL == "" {
		return "", fmt.Errorf("media: evolution api url not configured")
	}
	payload := map[string]any{
		"message": map[string]any{
			"key": map[string]any{"id": messageID},
		},
		"convertToMp4": false,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("media: encode media request: %w", err)
	}

	url := f.baseURL + "/chat/getBase64FromMediaMessage/" + instanceName
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("media: build media request: %w", err)
	}
	req.Header.Set("apikey", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("media fetch rejected", "status", resp.StatusCode, "instance", instanceName)
		return "", fmt.Errorf("media: evolution api returned status %d", resp.StatusCode)
	}

	var body struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseLimit)).Decode(&body); err != nil {
		return "", fmt.Errorf("media: decode media reply: %w", err)
	}
	if body.Base64 == "" {
		f.logger.Warn("media reply carried no payload", "instance", instanceName, "message_id", messageID)
	}
	return body.Base64, nil
}
