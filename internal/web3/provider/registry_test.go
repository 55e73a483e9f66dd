package provider

import (
	"context"
	"testing"

	"HederaDEX-Agent/internal/config"
	"HederaDEX-Agent/internal/web3"
)

func testConfig() *config.Config {
	return &config.Config{
		Network: "testnet",
		Web3: config.Web3Config{Networks: map[string]web3.NetworkDefinition{
			"testnet": {JSONRPCURL: "http://127.0.0.1:7546"},
			"mainnet": {JSONRPCURL: "http://127.0.0.1:7547"},
		}},
	}
}

func TestRegistryCallerIsSharedPerNetwork(t *testing.T) {
	reg, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	defer reg.Close()

	first, err := reg.Caller(context.Background(), "")
	if err != nil {
		t.Fatalf("caller: %v", err)
	}
	second, err := reg.Caller(context.Background(), "testnet")
	if err != nil {
		t.Fatalf("caller: %v", err)
	}
	if first != second {
		t.Fatal("expected default network caller to be reused")
	}
	other, err := reg.Caller(context.Background(), "mainnet")
	if err != nil {
		t.Fatalf("caller: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct caller per network")
	}

	if got := reg.Networks(); len(got) != 2 || got[0] != "mainnet" {
		t.Fatalf("unexpected networks %v", got)
	}
}

func TestRegistryRejectsUnknownAndClosed(t *testing.T) {
	reg, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := reg.Caller(context.Background(), "previewnet"); err == nil {
		t.Fatal("expected unknown network error")
	}
	if _, err := reg.Submitter(context.Background(), "testnet"); err == nil {
		t.Fatal("expected missing operator error")
	}
	reg.Close()
	if _, err := reg.Caller(context.Background(), "testnet"); err == nil {
		t.Fatal("expected closed registry error")
	}
}

func TestNewRegistryRequiresDefaultNetwork(t *testing.T) {
	cfg := testConfig()
	cfg.Network = "previewnet"
	if _, err := NewRegistry(cfg); err == nil {
		t.Fatal("expected error for unknown default network")
	}
}
