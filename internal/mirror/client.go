package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTokenNotFound is returned when the mirror node has no record of a token.
var ErrTokenNotFound = errors.New("mirror: token not found")

// TokenInfo is the subset of /api/v1/tokens/{id} the toolkit reads. The
// mirror node serialises decimals as a string.
type TokenInfo struct {
	TokenID  string `json:"token_id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals string `json:"decimals"`
	Type     string `json:"type"`
	Deleted  bool   `json:"deleted"`
}

// Client talks to a single network's mirror node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient validates baseURL, e.g. https://testnet.mirrornode.hedera.com.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mirror: base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("mirror: parse base url: %w", err)
	}
	c := &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token fetches token metadata.
func (c *Client) Token(ctx context.Context, tokenID string) (TokenInfo, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return TokenInfo{}, errors.New("mirror: token id is empty")
	}
	endpoint := c.baseURL + "/api/v1/tokens/" + url.PathEscape(tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("mirror: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("mirror: get token %s: %w", tokenID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return TokenInfo{}, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenID)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return TokenInfo{}, fmt.Errorf("mirror: get token %s: status %d: %s", tokenID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return TokenInfo{}, fmt.Errorf("mirror: decode token %s: %w", tokenID, err)
	}
	return info, nil
}

// Decimals returns the raw decimal count of a token. Parsing is left to the
// caller, which owns the validation rules.
func (c *Client) Decimals(ctx context.Context, tokenID string) (string, error) {
	info, err := c.Token(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return info.Decimals, nil
}
