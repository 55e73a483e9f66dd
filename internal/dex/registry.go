package dex

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"HederaDEX-Agent/internal/web3"
)

// AssetRegistry maps a fungible asset id to its contract address on a network.
// A missing mapping is reported with found=false, not an error.
type AssetRegistry interface {
	Lookup(ctx context.Context, network, assetID string) (addr common.Address, found bool, err error)
}

// StaticRegistry serves the asset maps declared in configuration. Keys are
// compared case-insensitively.
type StaticRegistry struct {
	assets map[string]map[string]common.Address
}

// NewStaticRegistry validates every configured address.
func NewStaticRegistry(networks map[string]web3.NetworkDefinition) (*StaticRegistry, error) {
	assets := make(map[string]map[string]common.Address, len(networks))
	for network, def := range networks {
		entries := make(map[string]common.Address, len(def.Assets))
		for id, hex := range def.Assets {
			if !common.IsHexAddress(hex) {
				return nil, fmt.Errorf("network %s: asset %s has invalid address %q", network, id, hex)
			}
			entries[strings.ToLower(strings.TrimSpace(id))] = common.HexToAddress(hex)
		}
		assets[network] = entries
	}
	return &StaticRegistry{assets: assets}, nil
}

// Lookup implements AssetRegistry.
func (r *StaticRegistry) Lookup(_ context.Context, network, assetID string) (common.Address, bool, error) {
	addr, ok := r.assets[network][strings.ToLower(strings.TrimSpace(assetID))]
	return addr, ok, nil
}

// ChainRegistry consults registries in order and returns the first hit. When
// nothing matches, the first lookup error (if any) is returned.
type ChainRegistry []AssetRegistry

// Lookup implements AssetRegistry.
func (c ChainRegistry) Lookup(ctx context.Context, network, assetID string) (common.Address, bool, error) {
	var firstErr error
	for _, reg := range c {
		if reg == nil {
			continue
		}
		addr, found, err := reg.Lookup(ctx, network, assetID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return addr, true, nil
		}
	}
	return common.Address{}, false, firstErr
}
