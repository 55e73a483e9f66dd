// Package dexapi reads indexed pool and position data from the SaucerSwap
// REST API. It is informational only; quotes and transactions never depend
// on it.
package dexapi

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

	"HederaDEX-Agent/internal/web3"
)

// Default API hosts per network.
const (
	MainnetURL = "https://api.saucerswap.finance"
	TestnetURL = "https://test-api.saucerswap.finance"
)

// Token describes one side of a pool or position.
type Token struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals int     `json:"decimals"`
	PriceUSD float64 `json:"priceUsd"`
}

// Pool is a concentrated-liquidity pool as indexed by the API.
type Pool struct {
	ID           int64  `json:"id"`
	ContractID   string `json:"contractId"`
	TokenA       Token  `json:"tokenA"`
	TokenB       Token  `json:"tokenB"`
	AmountA      string `json:"amountA"`
	AmountB      string `json:"amountB"`
	Fee          uint32 `json:"fee"`
	SqrtRatioX96 string `json:"sqrtRatioX96"`
	TickCurrent  int32  `json:"tickCurrent"`
	Liquidity    string `json:"liquidity"`
}

// PositionNFT is a liquidity position held by an account.
type PositionNFT struct {
	TokenSN     int64  `json:"tokenSN"`
	AccountID   string `json:"accountId"`
	Deleted     bool   `json:"deleted"`
	Token0      Token  `json:"token0"`
	Token1      Token  `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickLower   int32  `json:"tickLower"`
	TickUpper   int32  `json:"tickUpper"`
	Liquidity   string `json:"liquidity"`
	TokensOwed0 string `json:"tokensOwed0"`
	TokensOwed1 string `json:"tokensOwed1"`
}

// Client routes requests to the API host of each network.
type Client struct {
	hosts      map[string]string
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

// New builds a client. mainnet and testnet default to the public hosts; a
// network's dex_api_url overrides them.
func New(networks map[string]web3.NetworkDefinition, opts ...Option) *Client {
	hosts := map[string]string{"mainnet": MainnetURL, "testnet": TestnetURL}
	for name, def := range networks {
		if u := strings.TrimRight(strings.TrimSpace(def.DexAPIURL), "/"); u != "" {
			hosts[name] = u
		}
	}
	c := &Client{hosts: hosts, httpClient: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pools lists every pool on network.
func (c *Client) Pools(ctx context.Context, network string) ([]Pool, error) {
	var pools []Pool
	if err := c.get(ctx, network, "/v2/pools/", &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// Positions lists the positions owned by accountID (0.0.x) on network.
func (c *Client) Positions(ctx context.Context, network, accountID string) ([]PositionNFT, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.New("dexapi: account id is empty")
	}
	var positions []PositionNFT
	if err := c.get(ctx, network, "/V2/nfts/"+url.PathEscape(accountID)+"/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) get(ctx context.Context, network, path string, out any) error {
	host, ok := c.hosts[network]
	if !ok {
		return fmt.Errorf("dexapi: no api host for network %q", network)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+path, nil)
	if err != nil {
		return fmt.Errorf("dexapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dexapi: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dexapi: GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dexapi: decode %s: %w", path, err)
	}
	return nil
}
