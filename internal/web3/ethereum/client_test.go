package ethereum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newRelay(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		var result any
		switch req.Method {
		case "eth_call":
			calls.Add(1)
			var msg struct {
				To    string `json:"to"`
				Data  string `json:"data"`
				Input string `json:"input"`
			}
			_ = json.Unmarshal(req.Params[0], &msg)
			if msg.Data != "0xdeadbeef" && msg.Input != "0xdeadbeef" {
				t.Errorf("unexpected call data %+v", msg)
			}
			result = "0x" + "00000000000000000000000000000000000000000000000000000000000001f4"
		case "eth_chainId":
			result = "0x128"
		case "eth_blockNumber":
			result = "0x10"
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func TestClientCallContractDialsLazily(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	relay := newRelay(t, &calls)
	defer relay.Close()

	client, err := NewClient(Config{Name: "testnet", RPCURL: relay.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if client.eth != nil {
		t.Fatal("expected no connection before first call")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	to := common.HexToAddress("0x0000000000000000000000000000000000000480")
	for i := 0; i < 2; i++ {
		out, err := client.CallContract(ctx, to, common.FromHex("0xdeadbeef"))
		if err != nil {
			t.Fatalf("call contract: %v", err)
		}
		if len(out) != 32 || out[31] != 0xf4 {
			t.Fatalf("unexpected return data %x", out)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 eth_call requests, got %d", calls.Load())
	}

	snapshot, err := client.FetchChainSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ChainID != "0x128" || snapshot.BlockNumber != "0x10" || snapshot.Network != "testnet" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestClientClosedRejectsCalls(t *testing.T) {
	client, err := NewClient(Config{RPCURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.Close()
	if _, err := client.CallContract(context.Background(), common.Address{}, nil); err == nil {
		t.Fatal("expected closed client to fail")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Config{RPCURL: "  "}); err == nil {
		t.Fatal("expected missing url error")
	}
}
