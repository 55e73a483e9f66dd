package dexapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"HederaDEX-Agent/internal/web3"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/pools/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"contractId":"0.0.1224","tokenA":{"id":"0.0.5449","symbol":"USDC","decimals":6,"priceUsd":1.0},"tokenB":{"id":"0.0.15058","symbol":"WHBAR","decimals":8},"amountA":"1000","amountB":"2000","fee":3000,"sqrtRatioX96":"79228162514264337593543950336","tickCurrent":-12,"liquidity":"5000"}]`))
	})
	mux.HandleFunc("/V2/nfts/0.0.1234/positions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"tokenSN":77,"accountId":"0.0.1234","deleted":false,"token0":{"id":"0.0.5449"},"token1":{"id":"0.0.15058"},"fee":3000,"tickLower":-600,"tickUpper":600,"liquidity":"1414"}]`))
	})
	mux.HandleFunc("/V2/nfts/0.0.9/positions", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPools(t *testing.T) {
	srv := newAPI(t)
	c := New(map[string]web3.NetworkDefinition{"testnet": {DexAPIURL: srv.URL + "/"}}, WithHTTPClient(srv.Client()))

	pools, err := c.Pools(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("pools failed: %v", err)
	}
	if len(pools) != 1 || pools[0].TokenA.Symbol != "USDC" || pools[0].Fee != 3000 || pools[0].TickCurrent != -12 {
		t.Fatalf("unexpected pools: %+v", pools)
	}
}

func TestPositions(t *testing.T) {
	srv := newAPI(t)
	c := New(map[string]web3.NetworkDefinition{"testnet": {DexAPIURL: srv.URL}}, WithHTTPClient(srv.Client()))

	positions, err := c.Positions(context.Background(), "testnet", "0.0.1234")
	if err != nil {
		t.Fatalf("positions failed: %v", err)
	}
	if len(positions) != 1 || positions[0].TokenSN != 77 || positions[0].Liquidity != "1414" {
		t.Fatalf("unexpected positions: %+v", positions)
	}

	if _, err := c.Positions(context.Background(), "testnet", "0.0.9"); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
	if _, err := c.Positions(context.Background(), "testnet", " "); err == nil {
		t.Fatalf("expected error for empty account")
	}
}

func TestDefaultHosts(t *testing.T) {
	c := New(nil)
	if c.hosts["mainnet"] != MainnetURL || c.hosts["testnet"] != TestnetURL {
		t.Fatalf("unexpected default hosts: %v", c.hosts)
	}
	if _, err := c.Pools(context.Background(), "previewnet"); err == nil {
		t.Fatalf("expected error for unknown network")
	}
}
