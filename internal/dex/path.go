package dex

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Pool fee tiers in hundredths of a basis point.
const (
	FeeLowest    uint32 = 100
	FeeLow       uint32 = 500
	FeeLowMedium uint32 = 1500
	FeeMedium    uint32 = 3000
	FeeHigh      uint32 = 10000
)

// FeeTiers lists the pool fees the DEX deploys.
var FeeTiers = []uint32{FeeLowest, FeeLow, FeeLowMedium, FeeMedium, FeeHigh}

const maxFee = 1<<24 - 1

// ValidateFeeTier rejects fees that no pool is deployed with.
func ValidateFeeTier(fee uint32) error {
	if !slices.Contains(FeeTiers, fee) {
		return invalidParameter("fee tier %d is not one of %v", fee, FeeTiers)
	}
	return nil
}

// EncodePath packs tokens and per-hop fees as token0 | fee0 | token1 | ...
// with every fee in 3 big-endian bytes.
func EncodePath(tokens []common.Address, fees []uint32) ([]byte, error) {
	if len(tokens) < 2 || len(tokens) != len(fees)+1 {
		return nil, invalidParameter("path has %d tokens and %d fees", len(tokens), len(fees))
	}
	out := make([]byte, 0, len(tokens)*common.AddressLength+len(fees)*3)
	out = append(out, tokens[0].Bytes()...)
	for i, fee := range fees {
		if fee > maxFee {
			return nil, invalidParameter("fee %d does not fit in 24 bits", fee)
		}
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
		out = append(out, tokens[i+1].Bytes()...)
	}
	return out, nil
}
