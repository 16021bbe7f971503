package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type SwapDirection string

const (
	// SwapBuy spends native currency for a token.
	SwapBuy SwapDirection = "buy"
	// SwapSell spends a token for native currency.
	SwapSell SwapDirection = "sell"
)

type SwapRequest struct {
	Direction    SwapDirection
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Path         []common.Address
	Recipient    common.Address
	Deadline     time.Time
}
