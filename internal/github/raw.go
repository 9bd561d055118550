package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"reposcanner/internal/models"
)

// FetchRawFile downloads a file from the raw content host. URLs on any other
// host are refused before a request is made.
func (c *Client) FetchRawFile(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, c.rawBase()) {
		return "", fmt.Errorf("fetch raw file: %w: %q is not under %s", models.ErrInvalidURL, rawURL, c.rawBase())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch raw file: %w: %w", models.ErrInvalidURL, err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch raw file: %w: %w", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch raw file: %w: %w", models.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("fetch raw file: %w: %s", models.ErrNotFound, rawURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("fetch raw file: %w: status %d", models.ErrNetwork, resp.StatusCode)
	}

	return string(body), nil
}
