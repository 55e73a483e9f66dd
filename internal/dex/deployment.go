package dex

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/internal/web3/hedera"
	"HederaDEX-Agent/pkg/logger"
)

// Backends hands out the ledger collaborators of a network.
type Backends interface {
	Caller(ctx context.Context, network string) (web3.ContractCaller, error)
	Submitter(ctx context.Context, network string) (web3.TransactionSubmitter, error)
}

// Deployment is the set of DEX contracts and interfaces on one network.
type Deployment struct {
	Network         string
	Quoter          web3.Contract
	Router          web3.Contract
	PositionManager web3.Contract
	WrappedNative   common.Address

	QuoterABI          *abi.ABI
	RouterABI          *abi.ABI
	PositionManagerABI *abi.ABI
}

var requiredMethods = map[string][]string{
	QuoterInterface:          {"quoteExactInput", "quoteExactOutput"},
	RouterInterface:          {"exactInput", "unwrapWHBAR", "multicall"},
	PositionManagerInterface: {"mint", "increaseLiquidity", "decreaseLiquidity", "collect", "refundETH", "unwrapWHBAR", "multicall", "positions"},
}

// NewDeployment builds a Deployment from its configured definition. Missing
// entries are left empty and reported by Validate when an operation runs.
func NewDeployment(network string, def web3.NetworkDefinition) (*Deployment, error) {
	dep := &Deployment{Network: network}

	contracts := []struct {
		kind, value string
		dst         *web3.Contract
	}{
		{QuoterInterface, def.Contracts.Quoter, &dep.Quoter},
		{RouterInterface, def.Contracts.Router, &dep.Router},
		{PositionManagerInterface, def.Contracts.PositionManager, &dep.PositionManager},
	}
	for _, c := range contracts {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		parsed, err := hedera.ParseContract(c.value)
		if err != nil {
			return nil, xerrors.Wrap(CodeConfiguration, err, network+" "+c.kind+" address",
				xerrors.WithMetadata("missing", c.kind+" address"))
		}
		*c.dst = parsed
	}

	interfaces := []struct {
		kind, source string
		dst          **abi.ABI
	}{
		{QuoterInterface, def.Interfaces.Quoter, &dep.QuoterABI},
		{RouterInterface, def.Interfaces.Router, &dep.RouterABI},
		{PositionManagerInterface, def.Interfaces.PositionManager, &dep.PositionManagerABI},
	}
	for _, i := range interfaces {
		parsed, err := LoadABI(i.kind, i.source)
		if err != nil {
			return nil, xerrors.Wrap(CodeConfiguration, err, network+" "+i.kind+" interface",
				xerrors.WithMetadata("missing", i.kind+" interface"))
		}
		*i.dst = parsed
	}

	if wrapped := strings.TrimSpace(def.WrappedNative); wrapped != "" {
		parsed, err := hedera.ParseContract(wrapped)
		if err != nil {
			return nil, xerrors.Wrap(CodeConfiguration, err, network+" wrapped native address",
				xerrors.WithMetadata("missing", "wrapped native address"))
		}
		dep.WrappedNative = parsed.Address
	}
	return dep, nil
}

// Validate fails with a ConfigurationError naming the first missing piece.
func (d *Deployment) Validate() error {
	if d == nil {
		return configurationError("deployment")
	}
	checks := []struct {
		kind     string
		contract web3.Contract
		iface    *abi.ABI
	}{
		{QuoterInterface, d.Quoter, d.QuoterABI},
		{RouterInterface, d.Router, d.RouterABI},
		{PositionManagerInterface, d.PositionManager, d.PositionManagerABI},
	}
	for _, c := range checks {
		if c.contract.IsZero() {
			return configurationError(c.kind + " address")
		}
		if c.iface == nil || len(c.iface.Methods) == 0 {
			return configurationError(c.kind + " interface")
		}
		for _, method := range requiredMethods[c.kind] {
			if _, ok := c.iface.Methods[method]; !ok {
				return configurationError(c.kind + " interface method " + method)
			}
		}
	}
	if d.WrappedNative == (common.Address{}) {
		return configurationError("wrapped native address")
	}
	return nil
}

func (d *Deployment) quoter() *Encoder  { return NewEncoder(QuoterInterface, d.QuoterABI) }
func (d *Deployment) router() *Encoder  { return NewEncoder(RouterInterface, d.RouterABI) }
func (d *Deployment) manager() *Encoder { return NewEncoder(PositionManagerInterface, d.PositionManagerABI) }

// Deployments indexes deployments by network name.
type Deployments map[string]*Deployment

// NewDeployments builds a deployment for every configured network.
func NewDeployments(networks map[string]web3.NetworkDefinition) (Deployments, error) {
	out := make(Deployments, len(networks))
	for name, def := range networks {
		dep, err := NewDeployment(name, def)
		if err != nil {
			return nil, err
		}
		out[name] = dep
	}
	return out, nil
}

// Get returns the deployment of network.
func (d Deployments) Get(network string) (*Deployment, error) {
	dep, ok := d[network]
	if !ok || dep == nil {
		return nil, configurationError("deployment for network " + network)
	}
	return dep, nil
}

// GasBudget is the fixed gas limit per transaction kind.
type GasBudget struct {
	Swap     uint64
	Mint     uint64
	Increase uint64
	Remove   uint64
}

// Settings tunes transaction composition.
type Settings struct {
	Deadline time.Duration
	Gas      GasBudget
}

func (s Settings) withDefaults() Settings {
	if s.Deadline <= 0 {
		s.Deadline = 10 * time.Minute
	}
	if s.Gas.Swap == 0 {
		s.Gas.Swap = 1_000_000
	}
	if s.Gas.Mint == 0 {
		s.Gas.Mint = 900_000
	}
	if s.Gas.Increase == 0 {
		s.Gas.Increase = 900_000
	}
	if s.Gas.Remove == 0 {
		s.Gas.Remove = 300_000
	}
	return s
}

// Dependencies wires the pipelines to their collaborators.
type Dependencies struct {
	Deployments Deployments
	Backends    Backends
	Registry    AssetRegistry
	Metadata    MetadataService
	Settings    Settings
	Logger      *slog.Logger
	Clock       func() time.Time
}

type core struct {
	deployments Deployments
	backends    Backends
	resolver    *Resolver
	normalizer  *Normalizer
	settings    Settings
	logger      *slog.Logger
	now         func() time.Time
}

func newCore(deps Dependencies) *core {
	c := &core{
		deployments: deps.Deployments,
		backends:    deps.Backends,
		resolver:    NewResolver(deps.Deployments, deps.Registry),
		normalizer:  NewNormalizer(deps.Metadata),
		settings:    deps.Settings.withDefaults(),
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if c.logger == nil {
		c.logger = logger.Named("dex")
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// deployment returns a validated deployment; nothing touches the network
// before this succeeds.
func (c *core) deployment(network string) (*Deployment, error) {
	dep, err := c.deployments.Get(network)
	if err != nil {
		return nil, err
	}
	if err := dep.Validate(); err != nil {
		return nil, err
	}
	return dep, nil
}

func (c *core) deadline() *big.Int {
	return big.NewInt(c.now().Add(c.settings.Deadline).Unix())
}
