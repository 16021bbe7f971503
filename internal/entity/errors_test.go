package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		msg  string
		want FailureReason
	}{
		{msg: "insufficient funds for gas * price + value", want: ReasonInsufficientFunds},
		{msg: "execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY", want: ReasonInsufficientLiquidity},
		{msg: "execution reverted: UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT", want: ReasonExcessivePriceImpact},
		{msg: "execution reverted", want: ReasonReverted},
		{msg: "user rejected transaction", want: ReasonRejected},
		{msg: "request denied", want: ReasonRejected},
		{msg: "nonce too low", want: ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(errors.New(tt.msg)))
		})
	}

	assert.Equal(t, ReasonUnknown, ClassifyFailure(nil))
}

func TestTransactionError(t *testing.T) {
	cause := errors.New("execution reverted: INSUFFICIENT_LIQUIDITY")
	err := fmt.Errorf("swap: %w", NewTransactionError("0xabc", cause))

	var txErr *TransactionError
	assert.ErrorAs(t, err, &txErr)
	assert.Equal(t, "0xabc", txErr.Hash)
	assert.Equal(t, "Not enough liquidity in the trading pool", txErr.Describe())
	assert.ErrorIs(t, err, cause)
}

func TestTimeoutError(t *testing.T) {
	err := fmt.Errorf("swap: %w", &TimeoutError{Hash: "0xabc"})
	assert.ErrorIs(t, err, ErrTransactionTimeout)
	assert.Contains(t, err.Error(), "0xabc")
}

func TestMissingKeyIsNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrMissingKey, ErrNotFound)
	assert.Contains(t, ErrMissingKey.Error(), "private key is missing")
}
