package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "AutoValue/pkg/http"
)

const defaultTimeout = 3 * time.Second

// HTTPServiceBase holds the client and base URL shared by model-serving clients.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client for baseURL. A non-positive timeout falls back to 3s.
func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// BaseURL returns the endpoint requests are sent to.
func (b *HTTPServiceBase) BaseURL() string { return b.baseURL }

// PostJSON posts payload to path under baseURL and decodes the JSON answer into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
