package usecase

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var ErrAmountTooSmall = fmt.Errorf("%w: amount is below the smallest unit", entity.ErrValidation)

type SwapConfig struct {
	// WrappedNative is optional; the router is asked when it is empty.
	WrappedNative string
	SlippageBps   int64
	Deadline      time.Duration
}

// Swap buys tokens for native currency and sells them back through the router.
type Swap struct {
	users userRepository
	keys  keyring
	chain chainClient
	cfg   SwapConfig
	now   func() time.Time
	log   zerolog.Logger

	mu      sync.Mutex
	wrapped *common.Address
}

func NewSwap(users userRepository, keys keyring, chain chainClient, cfg SwapConfig, log zerolog.Logger) *Swap {
	s := &Swap{
		users: users,
		keys:  keys,
		chain: chain,
		cfg:   cfg,
		now:   time.Now,
		log:   log.With().Str("component", "swap").Logger(),
	}
	if cfg.WrappedNative != "" {
		addr := common.HexToAddress(cfg.WrappedNative)
		s.wrapped = &addr
	}
	return s
}

// Execute swaps amount of the input asset (native for a buy, token for a sell)
// and waits for every submitted transaction to be confirmed.
func (s *Swap) Execute(ctx context.Context, userID int64, direction entity.SwapDirection, token entity.Token, amount decimal.Decimal) (entity.Transaction, error) {
	key, owner, err := signer(ctx, s.users, s.keys, userID)
	if err != nil {
		return entity.Transaction{}, err
	}
	tokenAddr := common.HexToAddress(token.Address)

	decimals := uint8(nativeDecimals)
	if direction == entity.SwapSell {
		if decimals, err = s.chain.TokenDecimals(ctx, tokenAddr); err != nil {
			return entity.Transaction{}, fmt.Errorf("token decimals: %w", err)
		}
	}

	amountIn := ToBaseUnits(amount, decimals)
	if amountIn.Sign() <= 0 {
		return entity.Transaction{}, ErrAmountTooSmall
	}

	if err := s.checkBalance(ctx, direction, tokenAddr, owner, amountIn); err != nil {
		return entity.Transaction{}, err
	}

	wrapped, err := s.wrappedNative(ctx)
	if err != nil {
		return entity.Transaction{}, err
	}
	path := []common.Address{wrapped, tokenAddr}
	if direction == entity.SwapSell {
		path = []common.Address{tokenAddr, wrapped}
	}

	amounts, err := s.chain.AmountsOut(ctx, amountIn, path)
	if err != nil {
		return entity.Transaction{}, err
	}
	quoted := amounts[len(amounts)-1]
	if quoted.Sign() <= 0 {
		return entity.Transaction{}, fmt.Errorf("%w: zero quote", entity.ErrQuoteUnavailable)
	}

	if direction == entity.SwapSell {
		hash, err := s.chain.Approve(ctx, key, tokenAddr, s.chain.Router(), amountIn)
		if err != nil {
			return entity.Transaction{}, fmt.Errorf("approve: %w", err)
		}
		if _, err := s.chain.WaitForConfirmation(ctx, hash); err != nil {
			return entity.Transaction{}, fmt.Errorf("approve: %w", err)
		}
	}

	hash, err := s.chain.Swap(ctx, key, entity.SwapRequest{
		Direction:    direction,
		AmountIn:     amountIn,
		MinAmountOut: MinAmountOut(quoted, s.cfg.SlippageBps),
		Path:         path,
		Recipient:    owner,
		Deadline:     s.now().Add(s.cfg.Deadline),
	})
	if err != nil {
		return entity.Transaction{}, err
	}
	if _, err := s.chain.WaitForConfirmation(ctx, hash); err != nil {
		return entity.Transaction{}, err
	}

	tx := entity.Transaction{
		Kind:   entity.TransactionBuy,
		Hash:   hash.Hex(),
		Amount: amount.String(),
		Asset:  "ETH",
	}
	if direction == entity.SwapSell {
		tx.Kind = entity.TransactionSell
		tx.Asset = token.Symbol
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("direction", string(direction)).
		Str("token", token.Address).
		Str("amount", tx.Amount).
		Str("tx", tx.Hash).
		Msg("swap confirmed")

	return tx, nil
}

func (s *Swap) checkBalance(ctx context.Context, direction entity.SwapDirection, token, owner common.Address, amountIn *big.Int) error {
	var (
		balance *big.Int
		err     error
	)
	if direction == entity.SwapBuy {
		balance, err = s.chain.NativeBalance(ctx, owner)
	} else {
		balance, err = s.chain.TokenBalance(ctx, token, owner)
	}
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if balance.Cmp(amountIn) < 0 {
		return entity.ErrInsufficientBalance
	}
	return nil
}

func (s *Swap) wrappedNative(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wrapped != nil {
		return *s.wrapped, nil
	}
	addr, err := s.chain.WrappedNative(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("wrapped native: %w", err)
	}
	s.wrapped = &addr
	return addr, nil
}

// signer loads the user and unseals their key.
func signer(ctx context.Context, users userRepository, keys keyring, userID int64) (*ecdsa.PrivateKey, common.Address, error) {
	user, err := users.Get(ctx, userID)
	if err != nil {
		return nil, common.Address{}, err
	}
	if !user.HasKey() {
		return nil, common.Address{}, entity.ErrMissingKey
	}

	key, err := keys.Open(user.Address, user.EncryptedKey)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("open key: %w", err)
	}
	return key, common.HexToAddress(user.Address), nil
}
