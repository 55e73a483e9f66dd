// Package app assembles the DEX toolkit from configuration. Both the daemon
// and the operator CLI build their services through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"HederaDEX-Agent/internal/config"
	"HederaDEX-Agent/internal/dex"
	"HederaDEX-Agent/internal/dexapi"
	"HederaDEX-Agent/internal/mirror"
	"HederaDEX-Agent/internal/storage/mysql"
	"HederaDEX-Agent/internal/storage/redis"
	"HederaDEX-Agent/internal/web3/provider"
	"HederaDEX-Agent/pkg/logger"
)

// Registry drivers.
const (
	RegistryStatic = "static"
	RegistryMirror = "mirror"
	RegistryMySQL  = "mysql"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config   *config.Config
	Chains   *provider.Registry
	Dex      *dex.Service
	Metadata *dexapi.Client

	closers []func() error
}

// New wires the provider registry, the asset registry chain, the metadata
// service and the dex facade. observer may be nil.
func New(ctx context.Context, cfg *config.Config, observer dex.Observer) (*App, error) {
	chains, err := provider.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Chains: chains}
	a.closers = append(a.closers, func() error { chains.Close(); return nil })

	deployments, err := dex.NewDeployments(cfg.Web3.Networks)
	if err != nil {
		a.Close()
		return nil, err
	}

	directory, err := mirror.NewDirectory(cfg.Web3.Networks)
	if err != nil {
		a.Close()
		return nil, err
	}

	registry, err := a.assetRegistry(ctx, directory)
	if err != nil {
		a.Close()
		return nil, err
	}

	var metadata dex.MetadataService = directory
	if cfg.Cache.Redis.Address != "" {
		cache, err := redis.Dial(ctx, redis.Config{
			Address:  cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
			TTL:      cfg.Cache.Redis.TTL,
		}, directory)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
		metadata = cache
	}

	a.Dex = dex.NewService(dex.Dependencies{
		Deployments: deployments,
		Backends:    chains,
		Registry:    registry,
		Metadata:    metadata,
		Settings: dex.Settings{
			Deadline: cfg.Dex.Deadline,
			Gas: dex.GasBudget{
				Swap:     cfg.Dex.Gas.Swap,
				Mint:     cfg.Dex.Gas.Mint,
				Increase: cfg.Dex.Gas.Increase,
				Remove:   cfg.Dex.Gas.Remove,
			},
		},
		Logger: logger.Named("dex"),
	}, dex.Defaults{
		Network:  cfg.Network,
		FeeTier:  cfg.Dex.DefaultFeeTier,
		Slippage: cfg.Dex.DefaultSlippage,
	}, observer)

	a.Metadata = dexapi.New(cfg.Web3.Networks)
	return a, nil
}

// assetRegistry builds the lookup chain: static addresses first, then the
// mirror node, then the MySQL index.
func (a *App) assetRegistry(ctx context.Context, directory *mirror.Directory) (dex.AssetRegistry, error) {
	static, err := dex.NewStaticRegistry(a.Config.Web3.Networks)
	if err != nil {
		return nil, err
	}
	chain := dex.ChainRegistry{static}

	switch a.Config.Registry.Driver {
	case "", RegistryStatic:
	case RegistryMirror:
		chain = append(chain, directory)
	case RegistryMySQL:
		chain = append(chain, directory)
		mc := a.Config.Registry.MySQL
		repo, err := mysql.OpenAssetRepository(ctx, mysql.Config{
			DSN:             mc.DSN,
			MaxOpenConns:    mc.MaxOpenConns,
			MaxIdleConns:    mc.MaxIdleConns,
			ConnMaxLifetime: mc.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		chain = append(chain, repo)
	default:
		return nil, fmt.Errorf("未知的资产注册表驱动: %s", a.Config.Registry.Driver)
	}
	return chain, nil
}

// CheckNetworks validates every deployment and logs a chain snapshot per
// network. Snapshot failures are logged, not returned.
func (a *App) CheckNetworks(ctx context.Context) error {
	var errs []error
	for _, network := range a.Chains.Networks() {
		if err := a.Dex.Validate(network); err != nil {
			errs = append(errs, fmt.Errorf("network %s: %w", network, err))
			continue
		}
		snapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		snap, err := a.Chains.Snapshot(snapCtx, network)
		cancel()
		if err != nil {
			logger.L().Warn("获取链快照失败", slog.String("network", network), slog.Any("error", err))
			continue
		}
		logger.L().Info("网络就绪",
			slog.String("network", network),
			slog.String("chain_id", snap.ChainID),
			slog.String("block_number", snap.BlockNumber),
		)
	}
	return errors.Join(errs...)
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
