package dex

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"HederaDEX-Agent/internal/web3"
)

type stubRegistry struct {
	addr  common.Address
	found bool
	err   error
	calls int
}

func (s *stubRegistry) Lookup(context.Context, string, string) (common.Address, bool, error) {
	s.calls++
	return s.addr, s.found, s.err
}

func TestResolverNativeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.deps.Deployments, f.deps.Registry)

	upper, err := r.Resolve(context.Background(), "HBAR", "testnet")
	require.NoError(t, err)
	lower, err := r.Resolve(context.Background(), "hbar", "testnet")
	require.NoError(t, err)
	require.Equal(t, testWHBAR, upper)
	require.Equal(t, upper, lower)
}

func TestResolverIsDeterministic(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.deps.Deployments, f.deps.Registry)

	first, err := r.Resolve(context.Background(), "0.0.5449", "testnet")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "0.0.5449", "testnet")
	require.NoError(t, err)
	require.Equal(t, testUSDC, first)
	require.Equal(t, first, second)
}

func TestResolverNeverSynthesises(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.deps.Deployments, f.deps.Registry)

	_, err := r.Resolve(context.Background(), "0.0.999999", "testnet")
	require.True(t, errors.Is(err, ErrAddressResolution))

	_, err = NewResolver(f.deps.Deployments, nil).Resolve(context.Background(), "0.0.5449", "testnet")
	require.True(t, errors.Is(err, ErrAddressResolution))

	lookupErr := errors.New("db down")
	_, err = NewResolver(f.deps.Deployments, &stubRegistry{err: lookupErr}).Resolve(context.Background(), "0.0.5449", "testnet")
	require.True(t, errors.Is(err, ErrAddressResolution))
	require.True(t, errors.Is(err, lookupErr))
}

func TestResolverNativeWithoutDeployment(t *testing.T) {
	r := NewResolver(Deployments{}, nil)
	_, err := r.Resolve(context.Background(), "HBAR", "previewnet")
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestChainRegistryFallsThrough(t *testing.T) {
	miss := &stubRegistry{}
	failing := &stubRegistry{err: errors.New("mirror timeout")}
	hit := &stubRegistry{addr: testSAUCE, found: true}

	addr, found, err := ChainRegistry{miss, failing, hit}.Lookup(context.Background(), "testnet", "0.0.1183558")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testSAUCE, addr)
	require.Equal(t, 1, miss.calls)

	_, found, err = ChainRegistry{miss, failing}.Lookup(context.Background(), "testnet", "0.0.1183558")
	require.False(t, found)
	require.EqualError(t, err, "mirror timeout")

	_, found, err = ChainRegistry{miss, nil}.Lookup(context.Background(), "testnet", "0.0.1183558")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStaticRegistryValidatesAddresses(t *testing.T) {
	_, err := NewStaticRegistry(map[string]web3.NetworkDefinition{
		"testnet": {Assets: map[string]string{"USDC": "not-an-address"}},
	})
	require.Error(t, err)

	reg, err := NewStaticRegistry(map[string]web3.NetworkDefinition{
		"testnet": {Assets: map[string]string{"USDC": testUSDC.Hex()}},
	})
	require.NoError(t, err)
	addr, found, err := reg.Lookup(context.Background(), "testnet", "usdc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, testUSDC, addr)

	_, found, _ = reg.Lookup(context.Background(), "mainnet", "usdc")
	require.False(t, found)
}

func TestResolverAcceptsHexAddress(t *testing.T) {
	f := newFixture(t)
	reg := &stubRegistry{}
	r := NewResolver(f.deps.Deployments, reg)

	addr, err := r.Resolve(context.Background(), AssetRef(" "+testUSDC.Hex()+" "), "testnet")
	require.NoError(t, err)
	require.Equal(t, testUSDC, addr)
	require.Zero(t, reg.calls, "hex addresses bypass the registry")

	_, err = r.Resolve(context.Background(), "0x1234", "testnet")
	require.True(t, errors.Is(err, ErrInvalidParameter))
}
