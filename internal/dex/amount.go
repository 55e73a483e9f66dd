package dex

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	xerrors "HederaDEX-Agent/internal/errors"
)

const (
	// NativeSymbol is the sentinel AssetRef for the ledger's native coin.
	NativeSymbol = "HBAR"
	// NativeDecimals is fixed by the native denomination (1 HBAR = 10^8 tinybar).
	NativeDecimals = 8

	maxDecimals = 77
	// maxAmountLen bounds the textual amount; 78 integer digits already exceed uint256.
	maxAmountLen = 160
)

// maxUint256 is the largest amount a contract call can carry.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AssetRef identifies a tradable asset: the native sentinel or a fungible
// token id such as "0.0.456858".
type AssetRef string

func (r AssetRef) String() string { return strings.TrimSpace(string(r)) }

// IsNativeCoin reports whether ref is the native-coin sentinel, ignoring case.
func IsNativeCoin(ref AssetRef) bool {
	return strings.EqualFold(ref.String(), NativeSymbol)
}

// ToSmallestUnit scales a human-scale decimal amount by 10^decimals and
// truncates toward zero. ToSmallestUnit("1.239", 2) == "123".
func ToSmallestUnit(amount string, decimals int) (string, error) {
	v, err := toSmallestUnit(amount, decimals)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func toSmallestUnit(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, invalidParameter("decimals %d out of range", decimals)
	}
	trimmed := strings.TrimSpace(amount)
	if len(trimmed) > maxAmountLen {
		return nil, invalidParameter("amount is longer than %d characters", maxAmountLen)
	}
	// Exponent notation would let a short string expand to an unbounded integer.
	if strings.ContainsAny(trimmed, "eE") {
		return nil, invalidParameter("amount %s must be plain decimal notation", strconv.Quote(amount))
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, xerrors.Wrap(CodeInvalidParameter, err, "amount "+strconv.Quote(amount)+" is not a decimal number")
	}
	if d.IsNegative() {
		return nil, invalidParameter("amount %s is negative", amount)
	}
	v := d.Shift(int32(decimals)).Truncate(0).BigInt()
	if v.Cmp(maxUint256) > 0 {
		return nil, invalidParameter("amount %s exceeds uint256 in smallest units", amount)
	}
	return v, nil
}

// FromSmallestUnit renders a smallest-unit integer back at human scale.
func FromSmallestUnit(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, int32(-decimals)).String()
}

// parseSmallestUnit parses an integer amount that is already in smallest units.
// Empty input is zero.
func parseSmallestUnit(field, value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int), nil
	}
	if len(value) > maxAmountLen {
		return nil, invalidParameter("%s is longer than %d characters", field, maxAmountLen)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, invalidParameter("%s %q is not a non-negative integer", field, value)
	}
	if v.Cmp(maxUint256) > 0 {
		return nil, invalidParameter("%s %q exceeds uint256", field, value)
	}
	return v, nil
}

// parseDecimals validates a decimal count reported by asset metadata.
func parseDecimals(assetID, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, xerrors.Wrap(CodeInvalidDecimals, err, "decimals of "+assetID+" are not an integer",
			xerrors.WithMetadata("asset", assetID), xerrors.WithMetadata("decimals", raw))
	}
	if n < 0 || n > maxDecimals {
		return 0, xerrors.New(CodeInvalidDecimals, "decimals of "+assetID+" out of range",
			xerrors.WithMetadata("asset", assetID), xerrors.WithMetadata("decimals", raw))
	}
	return n, nil
}

// MetadataService reports the decimal count of a fungible asset as published
// by the network, unparsed.
type MetadataService interface {
	Decimals(ctx context.Context, network, assetID string) (string, error)
}

// Normalizer converts human-scale amounts into smallest units per asset.
type Normalizer struct {
	metadata MetadataService
}

// NewNormalizer builds a Normalizer. metadata may be nil when only the native
// coin is traded.
func NewNormalizer(metadata MetadataService) *Normalizer {
	return &Normalizer{metadata: metadata}
}

// Decimals returns the decimal count of ref. The native coin never hits the
// metadata service.
func (n *Normalizer) Decimals(ctx context.Context, network string, ref AssetRef) (int, error) {
	if IsNativeCoin(ref) {
		return NativeDecimals, nil
	}
	if n == nil || n.metadata == nil {
		return 0, configurationError("asset metadata service")
	}
	raw, err := n.metadata.Decimals(ctx, network, ref.String())
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "fetch decimals of "+ref.String(),
			xerrors.WithMetadata("asset", ref.String()), xerrors.WithMetadata("network", network))
	}
	return parseDecimals(ref.String(), raw)
}

// SmallestUnit converts amount of ref into smallest units.
func (n *Normalizer) SmallestUnit(ctx context.Context, network string, ref AssetRef, amount string) (*big.Int, error) {
	decimals, err := n.Decimals(ctx, network, ref)
	if err != nil {
		return nil, err
	}
	return toSmallestUnit(amount, decimals)
}
