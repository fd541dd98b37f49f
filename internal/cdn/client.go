package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseSize = 64 * 1024

// ErrUpload is returned when the CDN rejects an upload or answers with something unusable.
var ErrUpload = errors.New("cdn upload failed")

// Client uploads remote assets to the CDN by URL.
type Client struct {
	log      *slog.Logger
	client   *http.Client
	endpoint string
	key      string
}

// NewClient creates a CDN client for the upload endpoint authenticated with key.
func NewClient(log *slog.Logger, endpoint, key string, timeout time.Duration) *Client {
	return &Client{
		log:      log,
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		key:      key,
	}
}

type uploadRequest struct {
	URL string `json:"url"`
}

// Upload asks the CDN to copy assetURL and returns the URL it is served from.
func (c *Client) Upload(ctx context.Context, assetURL string) (string, error) {
	const opn = "cdn.Upload"

	payload, err := json.Marshal(uploadRequest{URL: assetURL})
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode request: %w", opn, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create new request %s: %w", opn, c.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: failed to request %s: %w", opn, c.endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response body: %w", opn, err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%s: %w: status code error: [%d] %s", opn, ErrUpload, res.StatusCode, strings.TrimSpace(string(body)))
	}

	cdnURL := gjson.GetBytes(body, "url").String()
	if cdnURL == "" {
		cdnURL = gjson.GetBytes(body, "files.0.deployedUrl").String()
	}
	if cdnURL == "" {
		return "", fmt.Errorf("%s: %w: response has no url: %s", opn, ErrUpload, strings.TrimSpace(string(body)))
	}

	c.log.DebugContext(ctx, "Uploaded asset", "op", opn, "asset", assetURL, "cdn_url", cdnURL)

	return cdnURL, nil
}
