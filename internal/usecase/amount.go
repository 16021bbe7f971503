package usecase

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	nativeDecimals = 18

	// uint256 holds at most 78 decimal digits.
	maxIntegerDigits  = 78
	maxFractionDigits = 36
)

var plainDecimal = regexp.MustCompile(`^\d*\.?\d+$`)

// ParseAmount reads a strictly positive plain decimal amount typed by a user.
// Signs, exponents and digit runs longer than a uint256 are rejected.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if !plainDecimal.MatchString(text) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", entity.ErrValidation, text)
	}
	integer, fraction, _ := strings.Cut(text, ".")
	if len(integer) > maxIntegerDigits || len(fraction) > maxFractionDigits {
		return decimal.Decimal{}, fmt.Errorf("%w: amount has too many digits", entity.ErrValidation)
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", entity.ErrValidation, text)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be positive", entity.ErrValidation)
	}
	return amount, nil
}

// ToBaseUnits converts amount to the smallest unit of an asset with the given
// decimals, dropping any precision the asset cannot represent.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).BigInt()
}

func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, nativeDecimals)
}

// MinAmountOut applies a slippage tolerance in basis points to a quote using
// integer floor division. The result is never negative and never above quoted.
func MinAmountOut(quoted *big.Int, slippageBps int64) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return new(big.Int)
	}
	if slippageBps < 0 {
		slippageBps = 0
	}
	if slippageBps > 10_000 {
		slippageBps = 10_000
	}

	out := new(big.Int).Mul(quoted, big.NewInt(10_000-slippageBps))
	return out.Quo(out, big.NewInt(10_000))
}

// ValidAddress accepts 40 hex digits with an optional 0x prefix. Mixed case
// input must carry a correct EIP-55 checksum.
func ValidAddress(text string) bool {
	text = strings.TrimSpace(text)
	if !common.IsHexAddress(text) {
		return false
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return true
	}
	return common.HexToAddress(text).Hex()[2:] == digits
}
