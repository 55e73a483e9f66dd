package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/internal/web3/hedera"
)

// Directory routes metadata lookups to the mirror node of each network.
type Directory struct {
	clients map[string]*Client
}

// NewDirectory builds one client per network that declares a mirror node.
func NewDirectory(networks map[string]web3.NetworkDefinition, opts ...Option) (*Directory, error) {
	clients := make(map[string]*Client, len(networks))
	for name, def := range networks {
		if def.MirrorNodeURL == "" {
			continue
		}
		client, err := NewClient(def.MirrorNodeURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", name, err)
		}
		clients[name] = client
	}
	return &Directory{clients: clients}, nil
}

func (d *Directory) client(network string) (*Client, error) {
	client, ok := d.clients[network]
	if !ok {
		return nil, fmt.Errorf("mirror: no mirror node configured for network %s", network)
	}
	return client, nil
}

// Decimals returns the raw decimal count of tokenID on network.
func (d *Directory) Decimals(ctx context.Context, network, tokenID string) (string, error) {
	client, err := d.client(network)
	if err != nil {
		return "", err
	}
	return client.Decimals(ctx, tokenID)
}

// Lookup resolves a token entity id to its long-zero address after confirming
// the token exists and is not deleted. Unknown tokens report found=false.
func (d *Directory) Lookup(ctx context.Context, network, tokenID string) (common.Address, bool, error) {
	client, err := d.client(network)
	if err != nil {
		return common.Address{}, false, err
	}
	info, err := client.Token(ctx, tokenID)
	if errors.Is(err, ErrTokenNotFound) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, err
	}
	if info.Deleted {
		return common.Address{}, false, nil
	}
	addr, err := hedera.TokenAddress(info.TokenID)
	if err != nil {
		return common.Address{}, false, err
	}
	return addr, true, nil
}
