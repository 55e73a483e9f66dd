package hedera

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	hsdk "github.com/hashgraph/hedera-sdk-go/v2"

	"HederaDEX-Agent/internal/web3"
)

// ParseContract accepts either an entity id ("0.0.1154") or a 0x address.
func ParseContract(value string) (web3.Contract, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return web3.Contract{}, errors.New("合约标识为空")
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		if !common.IsHexAddress(value) {
			return web3.Contract{}, fmt.Errorf("非法的合约地址 %s", value)
		}
		return web3.Contract{Address: common.HexToAddress(value)}, nil
	}
	id, err := hsdk.ContractIDFromString(value)
	if err != nil {
		return web3.Contract{}, fmt.Errorf("解析合约 ID %s 失败: %w", value, err)
	}
	return web3.Contract{ID: id.String(), Address: common.HexToAddress(id.ToSolidityAddress())}, nil
}

// ContractID returns the SDK id for c, deriving it from the address when only
// the address is known.
func ContractID(c web3.Contract) (hsdk.ContractID, error) {
	if c.ID != "" {
		id, err := hsdk.ContractIDFromString(c.ID)
		if err != nil {
			return hsdk.ContractID{}, fmt.Errorf("解析合约 ID %s 失败: %w", c.ID, err)
		}
		return id, nil
	}
	if c.Address == (common.Address{}) {
		return hsdk.ContractID{}, errors.New("合约地址为空")
	}
	id, err := hsdk.ContractIDFromSolidityAddress(strings.TrimPrefix(c.Address.Hex(), "0x"))
	if err != nil {
		return hsdk.ContractID{}, fmt.Errorf("转换合约地址 %s 失败: %w", c.Address.Hex(), err)
	}
	return id, nil
}

// TokenAddress converts a token entity id into its long-zero address.
func TokenAddress(tokenID string) (common.Address, error) {
	id, err := hsdk.TokenIDFromString(strings.TrimSpace(tokenID))
	if err != nil {
		return common.Address{}, fmt.Errorf("解析代币 ID %s 失败: %w", tokenID, err)
	}
	return common.HexToAddress(id.ToSolidityAddress()), nil
}

// AccountAddress converts an account entity id into its long-zero address.
func AccountAddress(accountID string) (common.Address, error) {
	id, err := hsdk.AccountIDFromString(strings.TrimSpace(accountID))
	if err != nil {
		return common.Address{}, fmt.Errorf("解析账户 ID %s 失败: %w", accountID, err)
	}
	return common.HexToAddress(id.ToSolidityAddress()), nil
}
