package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ether(s string) *big.Int {
	return ToBaseUnits(decimal.RequireFromString(s), 18)
}

func newTestSwap(t *testing.T) (*Swap, *fakeChain, *memUsers, entity.User) {
	t.Helper()
	ks := newTestKeystore(t)
	users := newMemUsers()
	user := addUser(t, users, ks, 1)
	chain := newFakeChain()
	swap := NewSwap(users, ks, chain, testSwapConfig(), nopLogger())
	return swap, chain, users, user
}

func TestSwapBuy(t *testing.T) {
	swap, chain, _, user := newTestSwap(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	swap.now = func() time.Time { return now }
	chain.native = ether("2")

	token := entity.Token{Address: testToken.Hex(), Symbol: "TKN", Known: true}
	tx, err := swap.Execute(context.Background(), 1, entity.SwapBuy, token, decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	assert.Equal(t, entity.TransactionBuy, tx.Kind)
	assert.Equal(t, swapHash.Hex(), tx.Hash)
	assert.Equal(t, "0.5", tx.Amount)
	assert.Equal(t, "ETH", tx.Asset)

	require.Len(t, chain.swaps, 1)
	req := chain.swaps[0]
	assert.Equal(t, entity.SwapBuy, req.Direction)
	assert.Equal(t, ether("0.5").String(), req.AmountIn.String())
	assert.Equal(t, int64(990), req.MinAmountOut.Int64())
	assert.Equal(t, []common.Address{testWETH, testToken}, req.Path)
	assert.Equal(t, common.HexToAddress(user.Address), req.Recipient)
	assert.Equal(t, now.Add(20*time.Minute), req.Deadline)

	assert.Equal(t, 0, chain.called("Approve"))
	assert.Equal(t, 0, chain.called("TokenDecimals"))
	assert.Equal(t, 1, chain.called("WaitForConfirmation"))
}

func TestSwapSellApprovesBeforeSwap(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.decimals = 6
	chain.tokenBal = big.NewInt(10_000_000)

	token := entity.Token{Address: testToken.Hex(), Symbol: "USDT", Known: true}
	tx, err := swap.Execute(context.Background(), 1, entity.SwapSell, token, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionSell, tx.Kind)
	assert.Equal(t, "USDT", tx.Asset)

	require.Len(t, chain.approvals, 1)
	assert.Equal(t, int64(2_500_000), chain.approvals[0].Int64())

	require.Len(t, chain.swaps, 1)
	assert.Equal(t, int64(2_500_000), chain.swaps[0].AmountIn.Int64())
	assert.Equal(t, []common.Address{testToken, testWETH}, chain.swaps[0].Path)

	assert.Equal(t, []string{
		"TokenDecimals", "TokenBalance", "WrappedNative", "AmountsOut",
		"Approve", "WaitForConfirmation", "Swap", "WaitForConfirmation",
	}, chain.calls)
}

func TestSwapBalanceCheckedBeforeQuote(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.native = ether("0.1")

	token := entity.Token{Address: testToken.Hex()}
	_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, token, decimal.RequireFromString("1"))
	require.ErrorIs(t, err, entity.ErrInsufficientBalance)
	assert.Equal(t, 0, chain.called("AmountsOut"))
	assert.Equal(t, 0, chain.called("Swap"))

	chain.tokenBal = big.NewInt(1)
	_, err = swap.Execute(context.Background(), 1, entity.SwapSell, token, decimal.RequireFromString("1"))
	require.ErrorIs(t, err, entity.ErrInsufficientBalance)
	assert.Equal(t, 0, chain.called("Approve"))
}

func TestSwapQuoteUnavailable(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.native = ether("1")
	chain.quoteErr = fmt.Errorf("%w: execution reverted", entity.ErrQuoteUnavailable)

	_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, entity.Token{Address: testToken.Hex()}, decimal.RequireFromString("0.1"))
	require.ErrorIs(t, err, entity.ErrQuoteUnavailable)
	assert.Equal(t, 0, chain.called("Swap"))

	chain.quoteErr = nil
	chain.quote = big.NewInt(0)
	_, err = swap.Execute(context.Background(), 1, entity.SwapBuy, entity.Token{Address: testToken.Hex()}, decimal.RequireFromString("0.1"))
	require.ErrorIs(t, err, entity.ErrQuoteUnavailable)
}

func TestSwapAmountTooSmall(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.native = ether("1")

	_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, entity.Token{Address: testToken.Hex()}, decimal.RequireFromString("0.0000000000000000001"))
	require.ErrorIs(t, err, entity.ErrValidation)
	require.ErrorIs(t, err, ErrAmountTooSmall)
	assert.Empty(t, chain.calls)
}

func TestSwapUserErrors(t *testing.T) {
	swap, _, users, user := newTestSwap(t)
	token := entity.Token{Address: testToken.Hex()}

	_, err := swap.Execute(context.Background(), 99, entity.SwapBuy, token, decimal.RequireFromString("1"))
	require.ErrorIs(t, err, entity.ErrNotFound)

	user.EncryptedKey = ""
	users.users[1] = user
	_, err = swap.Execute(context.Background(), 1, entity.SwapBuy, token, decimal.RequireFromString("1"))
	require.ErrorIs(t, err, entity.ErrMissingKey)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSwapTransactionFailure(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.native = ether("1")
	chain.swapErr = entity.NewTransactionError("", errors.New("execution reverted: UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT"))

	_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, entity.Token{Address: testToken.Hex()}, decimal.RequireFromString("0.1"))
	var txErr *entity.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, entity.ReasonExcessivePriceImpact, txErr.Reason)

	chain.swapErr = nil
	chain.waitErr = &entity.TimeoutError{Hash: swapHash.Hex()}
	_, err = swap.Execute(context.Background(), 1, entity.SwapBuy, entity.Token{Address: testToken.Hex()}, decimal.RequireFromString("0.1"))
	require.ErrorIs(t, err, entity.ErrTransactionTimeout)
}

func TestSwapWrappedNative(t *testing.T) {
	swap, chain, _, _ := newTestSwap(t)
	chain.native = ether("1")
	token := entity.Token{Address: testToken.Hex()}

	for i := 0; i < 2; i++ {
		_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, token, decimal.RequireFromString("0.1"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, chain.called("WrappedNative"))

	configured := common.HexToAddress("0x4444444444444444444444444444444444444444")
	cfg := testSwapConfig()
	cfg.WrappedNative = configured.Hex()
	swap = NewSwap(swap.users, swap.keys, chain, cfg, nopLogger())

	_, err := swap.Execute(context.Background(), 1, entity.SwapBuy, token, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	assert.Equal(t, 1, chain.called("WrappedNative"))
	assert.Equal(t, configured, chain.swaps[len(chain.swaps)-1].Path[0])
}
