package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"reposcanner/internal/models"
)

type ClientFactory struct {
	// BaseURL points the clients at a GitHub Enterprise or test server.
	// Nil means api.github.com.
	BaseURL *url.URL
}

func NewClientFactory(apiURL string) (*ClientFactory, error) {
	f := &ClientFactory{}
	if apiURL == "" {
		return f, nil
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
	}
	f.BaseURL = u
	return f, nil
}

// GetUserClient returns a GitHub client authenticated with the user's token.
// An empty token gives an anonymous client.
func (f *ClientFactory) GetUserClient(ctx context.Context, accessToken string) *github.Client {
	var client *github.Client
	if accessToken == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}
	if f.BaseURL != nil {
		base := *f.BaseURL
		client.BaseURL = &base
	}
	return client
}

const DefaultRawBaseURL = "https://raw.githubusercontent.com/"

// Client wraps the GitHub calls the application needs: the content walk,
// raw downloads, branches, the current user and multi-file commits.
type Client struct {
	Factory *ClientFactory

	// RawBaseURL is the only prefix FetchRawFile accepts.
	RawBaseURL string
	HTTPClient *http.Client

	WalkConcurrency int
	BlobConcurrency int
}

func NewClient(factory *ClientFactory, rawBaseURL string, walkConcurrency int) *Client {
	return &Client{
		Factory:         factory,
		RawBaseURL:      rawBaseURL,
		HTTPClient:      &http.Client{},
		WalkConcurrency: walkConcurrency,
		BlobConcurrency: 4,
	}
}

func (c *Client) rawBase() string {
	if c.RawBaseURL == "" {
		return DefaultRawBaseURL
	}
	return c.RawBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// apiError classifies a go-github failure as not found or network error.
func apiError(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, models.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrNetwork, err)
}
