package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"HederaDEX-Agent/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to reach the JSON-RPC relay of a network.
type Config struct {
	Name        string
	RPCURL      string
	DialTimeout time.Duration
}

// Client is a read-only JSON-RPC connection. It dials on first use and is
// safe for concurrent use: every call is a stateless eth_call.
type Client struct {
	name        string
	rpcURL      string
	dialTimeout time.Duration

	mu        sync.Mutex
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	closed    bool
}

// NewClient validates cfg without dialling.
func NewClient(cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 JSON-RPC 地址")
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{name: cfg.Name, rpcURL: rpcURL, dialTimeout: timeout}, nil
}

func (c *Client) conn(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("JSON-RPC 客户端已关闭")
	}
	if c.eth != nil {
		return c.eth, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	rpcClient, err := gethrpc.DialContext(dialCtx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 JSON-RPC 节点失败: %w", err)
	}
	c.rpcClient = rpcClient
	c.eth = ethclient.NewClient(rpcClient)
	return c.eth, nil
}

// CallContract simulates a call against the latest state.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c == nil {
		return nil, errors.New("未初始化的 JSON-RPC 客户端")
	}
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	out, err := eth.CallContract(ctx, gethcore.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s 失败: %w", to.Hex(), err)
	}
	return out, nil
}

// FetchChainSnapshot gathers lightweight metadata from the relay.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	if c == nil {
		return web3.ChainSnapshot{}, errors.New("未初始化的 JSON-RPC 客户端")
	}
	eth, err := c.conn(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	blockNumber, err := eth.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return web3.ChainSnapshot{
		Network:     c.name,
		ChainID:     toHexBig(chainID),
		BlockNumber: fmt.Sprintf("0x%x", blockNumber),
	}, nil
}

// Close releases the connection. Further calls fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
	}
	c.eth = nil
	c.rpcClient = nil
	c.closed = true
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

var _ web3.ContractCaller = (*Client)(nil)
