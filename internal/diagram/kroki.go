package diagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultKrokiURL is the public kroki endpoint used when none is
// configured.
const DefaultKrokiURL = "https://kroki.io"

// KrokiBackend renders mermaid through a kroki server by POSTing the
// raw source to /mermaid/svg.
type KrokiBackend struct {
	BaseURL string
	Client  *http.Client
}

func NewKroki(baseURL string) *KrokiBackend {
	if baseURL == "" {
		baseURL = DefaultKrokiURL
	}
	return &KrokiBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (k *KrokiBackend) Name() string { return "kroki" }

func (k *KrokiBackend) Render(ctx context.Context, source string, opts RenderOptions) (string, error) {
	if opts.Theme != "" {
		source = themeDirective(opts.Theme) + source
	}

	url := k.BaseURL + "/mermaid/svg"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("kroki: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := k.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("kroki: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("kroki: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return "", fmt.Errorf("kroki: status %d: %s", resp.StatusCode, msg)
	}
	return validateSVG("kroki", string(body))
}

// themeDirective prefixes source with a mermaid init block selecting
// the theme, since kroki has no theme parameter of its own.
func themeDirective(theme string) string {
	return fmt.Sprintf("%%%%{init: {'theme': '%s'}}%%%%\n", theme)
}
