package dex

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "HederaDEX-Agent/internal/errors"
)

// Resolver maps AssetRefs to contract addresses. The native coin resolves to
// the network's wrapped-native token and 0x addresses are taken as given.
// Anything else goes through the registry. No address is ever synthesised.
type Resolver struct {
	deployments Deployments
	registry    AssetRegistry
}

// NewResolver builds a Resolver.
func NewResolver(deployments Deployments, registry AssetRegistry) *Resolver {
	return &Resolver{deployments: deployments, registry: registry}
}

// Resolve returns the address of ref on network.
func (r *Resolver) Resolve(ctx context.Context, ref AssetRef, network string) (common.Address, error) {
	if IsNativeCoin(ref) {
		dep, err := r.deployments.Get(network)
		if err != nil {
			return common.Address{}, err
		}
		if dep.WrappedNative == (common.Address{}) {
			return common.Address{}, configurationError("wrapped native address")
		}
		return dep.WrappedNative, nil
	}

	id := ref.String()
	if id == "" {
		return common.Address{}, invalidParameter("asset id is empty")
	}
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		if !common.IsHexAddress(id) {
			return common.Address{}, invalidParameter("asset address %q is not a 20-byte hex address", id)
		}
		return common.HexToAddress(id), nil
	}
	if r.registry == nil {
		return common.Address{}, xerrors.New(CodeAddressResolution, "no asset registry configured for "+id,
			xerrors.WithMetadata("asset", id), xerrors.WithMetadata("network", network))
	}
	addr, found, err := r.registry.Lookup(ctx, network, id)
	if err != nil {
		return common.Address{}, xerrors.Wrap(CodeAddressResolution, err, "lookup "+id,
			xerrors.WithMetadata("asset", id), xerrors.WithMetadata("network", network))
	}
	if !found || addr == (common.Address{}) {
		return common.Address{}, xerrors.New(CodeAddressResolution, "no address registered for "+id+" on "+network,
			xerrors.WithMetadata("asset", id), xerrors.WithMetadata("network", network))
	}
	return addr, nil
}
