package github

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"reposcanner/internal/config"
)

// OAuth runs the GitHub web flow, an alternative to pasting a personal
// access token.
type OAuth struct {
	OAuthConfig *oauth2.Config
}

func NewOAuth(cfg *config.Config) *OAuth {
	return &OAuth{
		OAuthConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"repo", "read:user"},
			RedirectURL:  cfg.PublicURL + "/oauth/callback",
		},
	}
}

func (o *OAuth) GetLoginURL(state string) string {
	return o.OAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (o *OAuth) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return o.OAuthConfig.Exchange(ctx, code)
}

func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
