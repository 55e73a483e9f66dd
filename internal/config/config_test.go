package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadAppliesDefaultsAndMergesNetworks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "networks.yaml"), `
networks:
  testnet:
    json_rpc_url: https://testnet.hashio.io/api
    mirror_node_url: https://testnet.mirrornode.hedera.com
    wrapped_native: "0x000000000000000000000000000000000014a04a"
    contracts:
      quoter: 0.0.1155
      router: 0.0.1153
      position_manager: 0.0.1154
    assets:
      USDC: "0x0000000000000000000000000000000000001549"
`)
	cfgPath := filepath.Join(dir, "hederadex.yaml")
	writeFile(t, cfgPath, `
network: testnet
operator:
  account_id: 0.0.1234
web3:
  networks_file: networks.yaml
  networks:
    testnet:
      json_rpc_url: http://localhost:7546
      interfaces:
        quoter: abis/quoter.json
        router: builtin
      assets:
        SAUCE: "0x0000000000000000000000000000000000120f46"
dex:
  deadline: 5m
logging:
  audit:
    enabled: true
    path: logs/audit.log
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	def, ok := cfg.NetworkDefinition("testnet")
	if !ok {
		t.Fatalf("testnet not found")
	}
	if def.JSONRPCURL != "http://localhost:7546" {
		t.Fatalf("inline rpc url should win, got %s", def.JSONRPCURL)
	}
	if def.Contracts.Router != "0.0.1153" {
		t.Fatalf("router not merged from networks file: %+v", def.Contracts)
	}
	if def.Assets["USDC"] == "" || def.Assets["SAUCE"] == "" {
		t.Fatalf("assets not unioned: %+v", def.Assets)
	}
	if def.Interfaces.Quoter != filepath.Join(dir, "abis/quoter.json") {
		t.Fatalf("quoter abi path not resolved: %s", def.Interfaces.Quoter)
	}
	if def.Interfaces.Router != "builtin" {
		t.Fatalf("builtin marker should be kept, got %s", def.Interfaces.Router)
	}

	if cfg.Dex.Deadline != 5*time.Minute {
		t.Fatalf("deadline = %s", cfg.Dex.Deadline)
	}
	if cfg.Dex.Gas.Swap != 1_000_000 || cfg.Dex.Gas.Mint != 900_000 || cfg.Dex.Gas.Remove != 300_000 {
		t.Fatalf("unexpected gas defaults %+v", cfg.Dex.Gas)
	}
	if cfg.Dex.DefaultFeeTier != 3000 {
		t.Fatalf("fee tier default = %d", cfg.Dex.DefaultFeeTier)
	}
	if cfg.Operator.KeyEnv != "HEDERA_OPERATOR_KEY" {
		t.Fatalf("key env default = %s", cfg.Operator.KeyEnv)
	}
	if cfg.Queue.Driver != "memory" || cfg.Registry.Driver != "static" {
		t.Fatalf("unexpected drivers queue=%s registry=%s", cfg.Queue.Driver, cfg.Registry.Driver)
	}
	if cfg.Logging.Audit.Path != filepath.Join(dir, "logs/audit.log") {
		t.Fatalf("audit path = %s", cfg.Logging.Audit.Path)
	}
}

func TestOperatorPrivateKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_OPERATOR_KEY", "  302e020100300506032b657004220420  ")
	op := OperatorConfig{KeyEnv: "TEST_OPERATOR_KEY"}
	if got := op.PrivateKey(); got != "302e020100300506032b657004220420" {
		t.Fatalf("private key = %q", got)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(); got != DefaultPath {
		t.Fatalf("default path = %s", got)
	}
	t.Setenv(EnvConfigPath, "/etc/hederadex.yaml")
	if got := ResolvePath(); got != "/etc/hederadex.yaml" {
		t.Fatalf("env path = %s", got)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
