package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/pkg/logger"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "HEDERADEX_CONFIG"

// DefaultPath 是未设置环境变量时使用的配置文件路径。
const DefaultPath = "configs/hederadex.yaml"

// Config 描述了 HederaDEX 在启动阶段需要加载的核心配置。
type Config struct {
	Network  string         `yaml:"network"`
	Operator OperatorConfig `yaml:"operator"`
	Web3     Web3Config     `yaml:"web3"`
	Dex      DexConfig      `yaml:"dex"`
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
	Queue    QueueConfig    `yaml:"queue"`
	Server   ServerConfig   `yaml:"server"`
	Alerting AlertingConfig `yaml:"alerting"`
	Logging  logger.Config  `yaml:"logging"`
}

// OperatorConfig 描述签名交易的账户。私钥只从环境变量读取。
type OperatorConfig struct {
	AccountID string `yaml:"account_id"`
	KeyEnv    string `yaml:"key_env"`
}

// PrivateKey 返回环境变量中的运营账户私钥。
func (o OperatorConfig) PrivateKey() string {
	return strings.TrimSpace(os.Getenv(o.KeyEnv))
}

// Web3Config 包含各网络的节点、合约与资产信息。
type Web3Config struct {
	NetworksFile   string                            `yaml:"networks_file"`
	RequestTimeout time.Duration                     `yaml:"request_timeout"`
	Networks       map[string]web3.NetworkDefinition `yaml:"networks"`
}

// DexConfig 控制报价与交易的默认参数。
type DexConfig struct {
	DefaultFeeTier  uint32        `yaml:"default_fee_tier"`
	DefaultSlippage float64       `yaml:"default_slippage"`
	Deadline        time.Duration `yaml:"deadline"`
	Gas             GasConfig     `yaml:"gas"`
}

// GasConfig 为每类交易设置固定的 gas 预算。
type GasConfig struct {
	Swap     uint64 `yaml:"swap"`
	Mint     uint64 `yaml:"mint"`
	Increase uint64 `yaml:"increase"`
	Remove   uint64 `yaml:"remove"`
}

// RegistryConfig 选择资产地址注册表的实现。
type RegistryConfig struct {
	Driver string      `yaml:"driver"`
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig 描述 MySQL 连接池。
type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig 控制代币精度缓存。
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig 描述 Redis 连接。Address 为空时关闭缓存。
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// QueueConfig 控制作业队列与工作协程。
type QueueConfig struct {
	Driver     string         `yaml:"driver"`
	Workers    int            `yaml:"workers"`
	MaxRetries int            `yaml:"max_retries"`
	BufferSize int            `yaml:"buffer_size"`
	Redis      RedisQueue     `yaml:"redis"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RedisQueue 描述基于 Redis list 的队列。
type RedisQueue struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Queue     string        `yaml:"queue"`
	BlockWait time.Duration `yaml:"block_wait"`
}

// RabbitMQConfig 描述 RabbitMQ 队列。
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Queue    string `yaml:"queue"`
	Prefetch int    `yaml:"prefetch"`
	Durable  bool   `yaml:"durable"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RatePerMinute   int           `yaml:"rate_per_minute"`
	MetricsAddress  string        `yaml:"metrics_address"`
}

// AlertingConfig 配置需要告警的错误的通知渠道。WebhookURL 为空时只写日志。
type AlertingConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ResolvePath 返回环境变量或默认的配置文件路径。
func ResolvePath() string {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return path
	}
	return DefaultPath
}

// Load 负责解析指定路径的 YAML 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	baseDir := filepath.Dir(path)
	if err := cfg.mergeNetworksFile(baseDir); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)

	return &cfg, nil
}

// mergeNetworksFile 将外部网络文件合并进来，内联配置优先。
func (c *Config) mergeNetworksFile(baseDir string) error {
	path := strings.TrimSpace(c.Web3.NetworksFile)
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	defs, err := web3.LoadNetworkDefinitions(path)
	if err != nil {
		return err
	}
	if c.Web3.Networks == nil {
		c.Web3.Networks = make(map[string]web3.NetworkDefinition, len(defs.Networks))
	}
	for name, def := range defs.Networks {
		c.Web3.Networks[name] = def.Merge(c.Web3.Networks[name])
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Network == "" {
		c.Network = "testnet"
	}
	if c.Operator.KeyEnv == "" {
		c.Operator.KeyEnv = "HEDERA_OPERATOR_KEY"
	}
	if c.Web3.RequestTimeout <= 0 {
		c.Web3.RequestTimeout = 30 * time.Second
	}
	for name, def := range c.Web3.Networks {
		c.Web3.Networks[name] = resolveInterfaces(def, baseDir)
	}

	if c.Dex.DefaultFeeTier == 0 {
		c.Dex.DefaultFeeTier = 3000
	}
	if c.Dex.DefaultSlippage == 0 {
		c.Dex.DefaultSlippage = 0.01
	}
	if c.Dex.Deadline <= 0 {
		c.Dex.Deadline = 10 * time.Minute
	}
	if c.Dex.Gas.Swap == 0 {
		c.Dex.Gas.Swap = 1_000_000
	}
	if c.Dex.Gas.Mint == 0 {
		c.Dex.Gas.Mint = 900_000
	}
	if c.Dex.Gas.Increase == 0 {
		c.Dex.Gas.Increase = 900_000
	}
	if c.Dex.Gas.Remove == 0 {
		c.Dex.Gas.Remove = 300_000
	}

	if c.Registry.Driver == "" {
		c.Registry.Driver = "static"
	}
	if c.Registry.MySQL.MaxOpenConns == 0 {
		c.Registry.MySQL.MaxOpenConns = 10
	}
	if c.Registry.MySQL.MaxIdleConns == 0 {
		c.Registry.MySQL.MaxIdleConns = 5
	}
	if c.Registry.MySQL.ConnMaxLifetime == 0 {
		c.Registry.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "hederadex:decimals:"
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = 3
	}
	if c.Queue.BufferSize <= 0 {
		c.Queue.BufferSize = 128
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Alerting.Timeout <= 0 {
		c.Alerting.Timeout = 5 * time.Second
	}

	if c.Logging.Audit.Enabled && c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}
}

// resolveInterfaces 把相对 ABI 路径转换为相对于配置文件目录的路径。
func resolveInterfaces(def web3.NetworkDefinition, baseDir string) web3.NetworkDefinition {
	abs := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || p == "builtin" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	def.Interfaces.Quoter = abs(def.Interfaces.Quoter)
	def.Interfaces.Router = abs(def.Interfaces.Router)
	def.Interfaces.PositionManager = abs(def.Interfaces.PositionManager)
	return def
}

// NetworkDefinition 返回指定网络的定义。
func (c *Config) NetworkDefinition(name string) (web3.NetworkDefinition, bool) {
	if c == nil {
		return web3.NetworkDefinition{}, false
	}
	def, ok := c.Web3.Networks[name]
	return def, ok
}
