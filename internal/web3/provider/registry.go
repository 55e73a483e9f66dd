package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"HederaDEX-Agent/internal/config"
	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/internal/web3/ethereum"
	"HederaDEX-Agent/internal/web3/hedera"
)

// Registry manages the per-network ledger connections. Read-only callers and
// signing submitters are created on first use and shared afterwards.
type Registry struct {
	cfg      *config.Config
	networks map[string]web3.NetworkDefinition

	mu         sync.Mutex
	callers    map[string]*ethereum.Client
	submitters map[string]*hedera.Client
	closed     bool
}

// NewRegistry validates the configured networks without opening any connection.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("配置为空")
	}
	if len(cfg.Web3.Networks) == 0 {
		return nil, errors.New("未配置任何账本网络")
	}
	if _, ok := cfg.Web3.Networks[cfg.Network]; !ok {
		return nil, fmt.Errorf("默认网络 %s 未在配置中找到", cfg.Network)
	}
	return &Registry{
		cfg:        cfg,
		networks:   cfg.Web3.Networks,
		callers:    make(map[string]*ethereum.Client),
		submitters: make(map[string]*hedera.Client),
	}, nil
}

func (r *Registry) definition(network string) (string, web3.NetworkDefinition, error) {
	if r == nil {
		return "", web3.NetworkDefinition{}, errors.New("未初始化的网络注册表")
	}
	name := strings.TrimSpace(network)
	if name == "" {
		name = r.cfg.Network
	}
	def, ok := r.networks[name]
	if !ok {
		return "", web3.NetworkDefinition{}, fmt.Errorf("网络 %s 未在配置中找到", name)
	}
	return name, def, nil
}

// Caller returns the read-only JSON-RPC caller of network.
func (r *Registry) Caller(_ context.Context, network string) (web3.ContractCaller, error) {
	name, def, err := r.definition(network)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("网络注册表已关闭")
	}
	if client, ok := r.callers[name]; ok {
		return client, nil
	}
	client, err := ethereum.NewClient(ethereum.Config{Name: name, RPCURL: def.JSONRPCURL})
	if err != nil {
		return nil, fmt.Errorf("初始化网络 %s 的 JSON-RPC 客户端失败: %w", name, err)
	}
	r.callers[name] = client
	return client, nil
}

// Submitter returns the signing client of network.
func (r *Registry) Submitter(_ context.Context, network string) (web3.TransactionSubmitter, error) {
	name, _, err := r.definition(network)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("网络注册表已关闭")
	}
	if client, ok := r.submitters[name]; ok {
		return client, nil
	}
	client, err := hedera.NewClient(hedera.Config{
		Network:        name,
		OperatorID:     r.cfg.Operator.AccountID,
		OperatorKey:    r.cfg.Operator.PrivateKey(),
		RequestTimeout: r.cfg.Web3.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化网络 %s 的交易客户端失败: %w", name, err)
	}
	r.submitters[name] = client
	return client, nil
}

// Snapshot reports chain metadata for health checks.
func (r *Registry) Snapshot(ctx context.Context, network string) (web3.ChainSnapshot, error) {
	caller, err := r.Caller(ctx, network)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	return caller.(*ethereum.Client).FetchChainSnapshot(ctx)
}

// Close releases every connection opened by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.callers {
		client.Close()
		delete(r.callers, name)
	}
	for name, client := range r.submitters {
		client.Close()
		delete(r.submitters, name)
	}
	r.closed = true
}

// Networks returns the configured network names.
func (r *Registry) Networks() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default network name.
func (r *Registry) Default() string {
	if r == nil {
		return ""
	}
	return r.cfg.Network
}
