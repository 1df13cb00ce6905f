package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthorizeBaseURL = "https://access.line.me"
	defaultAPIBaseURL       = "https://api.line.me"
)

// Profile is the subset of the LINE profile the platform stores.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// LineLoginClient talks to the LINE Login OAuth endpoints.
type LineLoginClient struct {
	channelID     string
	channelSecret string
	authorizeBase string
	apiBase       string
	httpClient    *http.Client
}

// LineLoginConfig configures the OAuth client. Base URLs default to the
// production LINE endpoints when empty.
type LineLoginConfig struct {
	ChannelID     string
	ChannelSecret string
	AuthorizeBase string
	APIBase       string
}

func NewLineLoginClient(cfg LineLoginConfig) *LineLoginClient {
	if cfg.AuthorizeBase == "" {
		cfg.AuthorizeBase = defaultAuthorizeBaseURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBaseURL
	}
	return &LineLoginClient{
		channelID:     cfg.ChannelID,
		channelSecret: cfg.ChannelSecret,
		authorizeBase: strings.TrimRight(cfg.AuthorizeBase, "/"),
		apiBase:       strings.TrimRight(cfg.APIBase, "/"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the redirect target that starts the LINE Login flow.
func (c *LineLoginClient) AuthorizeURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.channelID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("scope", "profile openid")
	return c.authorizeBase + "/oauth2/v2.1/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *LineLoginClient) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.channelID)
	form.Set("client_secret", c.channelSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth2/v2.1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("auth: token exchange returned %d: %s", resp.StatusCode, string(detail))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("auth: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("auth: token response missing access_token")
	}
	return payload.AccessToken, nil
}

// FetchProfile loads the logged-in user's LINE profile.
func (c *LineLoginClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("auth: profile fetch returned %d: %s", resp.StatusCode, string(detail))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decode profile: %w", err)
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("auth: profile response missing userId")
	}
	return &profile, nil
}
