package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// WalletOverview is what a user sees when opening the bot. Balance is nil when
// the node could not be reached; User.CachedBalance then holds the last value
// seen.
type WalletOverview struct {
	User    entity.User
	Balance *big.Int
	Created bool
}

type Wallet struct {
	users userRepository
	keys  keyring
	chain chainClient
	now   func() time.Time
	log   zerolog.Logger
}

func NewWallet(users userRepository, keys keyring, chain chainClient, log zerolog.Logger) *Wallet {
	return &Wallet{
		users: users,
		keys:  keys,
		chain: chain,
		now:   time.Now,
		log:   log.With().Str("component", "wallet").Logger(),
	}
}

// Open returns the wallet of userID, creating it on first contact.
func (u *Wallet) Open(ctx context.Context, userID int64) (WalletOverview, error) {
	user, created, err := u.users.FindOrCreate(ctx, userID, func() (entity.User, error) {
		address, sealed, err := u.keys.Generate()
		if err != nil {
			return entity.User{}, fmt.Errorf("generate wallet: %w", err)
		}
		return entity.User{
			ID:           userID,
			Address:      address,
			EncryptedKey: sealed,
			CreatedAt:    u.now().UTC(),
		}, nil
	})
	if err != nil {
		return WalletOverview{}, err
	}
	if created {
		u.log.Info().Int64("user_id", userID).Str("address", user.Address).Msg("wallet created")
	}

	overview := WalletOverview{User: user, Created: created}

	balance, err := u.chain.NativeBalance(ctx, common.HexToAddress(user.Address))
	if err != nil {
		if !errors.Is(err, entity.ErrNetwork) {
			return WalletOverview{}, err
		}
		u.log.Warn().Err(err).Int64("user_id", userID).Msg("balance unavailable")
		return overview, nil
	}
	overview.Balance = balance

	if user.CachedBalance != balance.String() {
		if err := u.users.UpdateCachedBalance(ctx, userID, balance.String()); err != nil {
			u.log.Warn().Err(err).Int64("user_id", userID).Msg("cache balance")
		} else {
			overview.User.CachedBalance = balance.String()
		}
	}
	return overview, nil
}
