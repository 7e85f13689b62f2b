package diagram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultInkURL is the public mermaid.ink endpoint.
const DefaultInkURL = "https://mermaid.ink"

// InkBackend renders through mermaid.ink, which takes the source
// base64url-encoded in the request path. Last tier: no auth, no POST
// body, works from anywhere but leaks the source into URLs.
type InkBackend struct {
	BaseURL string
	Client  *http.Client
}

func NewInk(baseURL string) *InkBackend {
	if baseURL == "" {
		baseURL = DefaultInkURL
	}
	return &InkBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *InkBackend) Name() string { return "ink" }

func (b *InkBackend) Render(ctx context.Context, source string, opts RenderOptions) (string, error) {
	if opts.Theme != "" {
		source = themeDirective(opts.Theme) + source
	}
	encoded := base64.URLEncoding.EncodeToString([]byte(source))
	url := b.BaseURL + "/svg/" + encoded

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("ink: build request: %w", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ink: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ink: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ink: status %d", resp.StatusCode)
	}
	return validateSVG("ink", string(body))
}
