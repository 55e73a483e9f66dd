package web3

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkDefinitions models the structure of an optional networks YAML file.
type NetworkDefinitions struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition describes where the ledger endpoints and DEX contracts of
// a single network live.
type NetworkDefinition struct {
	JSONRPCURL    string            `yaml:"json_rpc_url"`
	MirrorNodeURL string            `yaml:"mirror_node_url"`
	DexAPIURL     string            `yaml:"dex_api_url"`
	WrappedNative string            `yaml:"wrapped_native"`
	Contracts     ContractSet       `yaml:"contracts"`
	Interfaces    InterfaceSet      `yaml:"interfaces"`
	Assets        map[string]string `yaml:"assets"`
	Description   string            `yaml:"description"`
}

// ContractSet holds entity ids ("0.0.x") or 0x addresses of the DEX contracts.
type ContractSet struct {
	Quoter          string `yaml:"quoter"`
	Router          string `yaml:"router"`
	PositionManager string `yaml:"position_manager"`
}

// InterfaceSet holds JSON ABI file paths. The literal value "builtin" selects
// the ABI shipped with the binary.
type InterfaceSet struct {
	Quoter          string `yaml:"quoter"`
	Router          string `yaml:"router"`
	PositionManager string `yaml:"position_manager"`
}

// LoadNetworkDefinitions parses the YAML file containing network metadata.
func LoadNetworkDefinitions(path string) (NetworkDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkDefinitions{Networks: map[string]NetworkDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkDefinitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}

	var defs NetworkDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return NetworkDefinitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	if defs.Networks == nil {
		defs.Networks = map[string]NetworkDefinition{}
	}
	return defs, nil
}

// Merge overlays non-empty fields of other onto d. Asset entries are unioned,
// with other taking precedence.
func (d NetworkDefinition) Merge(other NetworkDefinition) NetworkDefinition {
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return over
		}
		return base
	}
	merged := NetworkDefinition{
		JSONRPCURL:    pick(d.JSONRPCURL, other.JSONRPCURL),
		MirrorNodeURL: pick(d.MirrorNodeURL, other.MirrorNodeURL),
		DexAPIURL:     pick(d.DexAPIURL, other.DexAPIURL),
		WrappedNative: pick(d.WrappedNative, other.WrappedNative),
		Description:   pick(d.Description, other.Description),
		Contracts: ContractSet{
			Quoter:          pick(d.Contracts.Quoter, other.Contracts.Quoter),
			Router:          pick(d.Contracts.Router, other.Contracts.Router),
			PositionManager: pick(d.Contracts.PositionManager, other.Contracts.PositionManager),
		},
		Interfaces: InterfaceSet{
			Quoter:          pick(d.Interfaces.Quoter, other.Interfaces.Quoter),
			Router:          pick(d.Interfaces.Router, other.Interfaces.Router),
			PositionManager: pick(d.Interfaces.PositionManager, other.Interfaces.PositionManager),
		},
	}
	if len(d.Assets)+len(other.Assets) > 0 {
		merged.Assets = make(map[string]string, len(d.Assets)+len(other.Assets))
		for k, v := range d.Assets {
			merged.Assets[k] = v
		}
		for k, v := range other.Assets {
			merged.Assets[k] = v
		}
	}
	return merged
}
