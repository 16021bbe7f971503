// Package chain talks to an EVM node: native balances, ERC-20 tokens and a
// Uniswap V2 style router.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"medusa/internal/entity"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

const (
	defaultGasLimit     = 500_000
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
)

type Config struct {
	RPCURL          string
	RouterAddress   string
	ReferrerAddress string

	// GasLimit is used for every contract write.
	GasLimit uint64

	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	rpc     *gethrpc.Client
	eth     *ethclient.Client
	chainID *big.Int

	router    common.Address
	routerABI abi.ABI
	referrer  *common.Address

	gasLimit       uint64
	confirmTimeout time.Duration
	pollInterval   time.Duration

	log zerolog.Logger
}

// NewClient dials the node and reads its chain id.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("rpc url is not configured")
	}
	if !common.IsHexAddress(cfg.RouterAddress) {
		return nil, fmt.Errorf("invalid router address %q", cfg.RouterAddress)
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("%w: read chain id: %v", entity.ErrNetwork, err)
	}

	c := &Client{
		rpc:            rpcClient,
		eth:            eth,
		chainID:        chainID,
		router:         common.HexToAddress(cfg.RouterAddress),
		routerABI:      routerABI,
		gasLimit:       cfg.GasLimit,
		confirmTimeout: cfg.ConfirmationTimeout,
		pollInterval:   cfg.PollInterval,
		log:            log.With().Str("component", "chain").Logger(),
	}

	if ref := strings.TrimSpace(cfg.ReferrerAddress); ref != "" {
		if !common.IsHexAddress(ref) {
			rpcClient.Close()
			return nil, fmt.Errorf("invalid referrer address %q", ref)
		}
		addr := common.HexToAddress(ref)
		c.referrer = &addr
	}

	if c.gasLimit == 0 {
		c.gasLimit = defaultGasLimit
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = defaultTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}

	return c, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) Router() common.Address {
	return c.router
}

func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: get balance: %v", entity.ErrNetwork, err)
	}
	return balance, nil
}

func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", out[0])
	}
	return balance, nil
}

func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result %T", out[0])
	}
	return decimals, nil
}

// WrappedNative asks the router for its wrapped native token.
func (c *Client) WrappedNative(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.router, c.routerABI, "WETH")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected WETH result %T", out[0])
	}
	return addr, nil
}

// AmountsOut quotes amountIn along path. Any refusal of the router to price
// the path is reported as entity.ErrQuoteUnavailable.
func (c *Client) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := c.call(ctx, c.router, c.routerABI, "getAmountsOut", amountIn, path)
	if err != nil {
		if errors.Is(err, entity.ErrNetwork) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrQuoteUnavailable, err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("%w: malformed quote", entity.ErrQuoteUnavailable)
	}
	return amounts, nil
}

func (c *Client) Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return c.send(ctx, key, token, nil, data, c.gasLimit)
}

// Swap submits a fee-on-transfer supporting swap. The call is simulated first
// so that router reverts carry their reason instead of surfacing as a bare
// failed receipt.
func (c *Client) Swap(ctx context.Context, key *ecdsa.PrivateKey, req entity.SwapRequest) (common.Hash, error) {
	data, value, err := c.packSwap(req)
	if err != nil {
		return common.Hash{}, err
	}

	msg := gethcore.CallMsg{
		From:  crypto.PubkeyToAddress(key.PublicKey),
		To:    &c.router,
		Value: value,
		Data:  data,
	}
	if _, err := c.eth.CallContract(ctx, msg, nil); err != nil {
		return common.Hash{}, classify("", err)
	}

	return c.send(ctx, key, c.router, value, data, c.gasLimit)
}

func (c *Client) packSwap(req entity.SwapRequest) ([]byte, *big.Int, error) {
	deadline := big.NewInt(req.Deadline.Unix())

	parsed := c.routerABI
	if c.referrer != nil {
		parsed = referralRouterABI
	}

	var (
		data  []byte
		value *big.Int
		err   error
	)
	switch req.Direction {
	case entity.SwapBuy:
		value = req.AmountIn
		if c.referrer != nil {
			data, err = parsed.Pack(methodSwapETHForTokens, req.MinAmountOut, req.Path, req.Recipient, *c.referrer, deadline)
		} else {
			data, err = parsed.Pack(methodSwapETHForTokens, req.MinAmountOut, req.Path, req.Recipient, deadline)
		}
	case entity.SwapSell:
		if c.referrer != nil {
			data, err = parsed.Pack(methodSwapTokensForETH, req.AmountIn, req.MinAmountOut, req.Path, req.Recipient, *c.referrer, deadline)
		} else {
			data, err = parsed.Pack(methodSwapTokensForETH, req.AmountIn, req.MinAmountOut, req.Path, req.Recipient, deadline)
		}
	default:
		return nil, nil, fmt.Errorf("unknown swap direction %q", req.Direction)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("pack swap: %w", err)
	}
	return data, value, nil
}

// Transfer sends a plain native value transfer.
func (c *Client) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, amount *big.Int) (common.Hash, error) {
	gas, err := c.eth.EstimateGas(ctx, gethcore.CallMsg{
		From:  crypto.PubkeyToAddress(key.PublicKey),
		To:    &to,
		Value: amount,
	})
	if err != nil {
		return common.Hash{}, classify("", err)
	}
	return c.send(ctx, key, to, amount, nil, gas)
}

// WaitForConfirmation polls for the receipt of hash until it is mined or the
// confirmation timeout passes.
func (c *Client) WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, &entity.TransactionError{Reason: entity.ReasonReverted, Hash: hash.Hex()}
			}
			return receipt, nil
		case errors.Is(err, gethcore.NotFound):
		case ctx.Err() == nil:
			c.log.Warn().Err(err).Str("tx", hash.Hex()).Msg("receipt poll failed")
		}

		select {
		case <-ctx.Done():
			return nil, &entity.TimeoutError{Hash: hash.Hex()}
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, gethcore.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify("", err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, &entity.TransactionError{Reason: entity.ReasonReverted, Err: fmt.Errorf("%s returned no data: %w", method, err)}
	}
	if len(out) == 0 {
		return nil, &entity.TransactionError{Reason: entity.ReasonReverted, Err: fmt.Errorf("%s returned no values", method)}
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gas uint64) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: get nonce: %v", entity.ErrNetwork, err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: get gas price: %v", entity.ErrNetwork, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, classify(signed.Hash().Hex(), err)
	}

	c.log.Info().
		Str("tx", signed.Hash().Hex()).
		Str("from", from.Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Msg("transaction submitted")

	return signed.Hash(), nil
}

// classify separates answers of the node (the request reached it and was
// refused) from transport failures.
func classify(hash string, err error) error {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return entity.NewTransactionError(hash, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrNetwork, err)
}
