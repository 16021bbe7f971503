package usecase

import (
	"context"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Transfer sends native currency from a user's wallet.
type Transfer struct {
	users userRepository
	keys  keyring
	chain chainClient
	log   zerolog.Logger
}

func NewTransfer(users userRepository, keys keyring, chain chainClient, log zerolog.Logger) *Transfer {
	return &Transfer{
		users: users,
		keys:  keys,
		chain: chain,
		log:   log.With().Str("component", "transfer").Logger(),
	}
}

func (u *Transfer) Execute(ctx context.Context, userID int64, to string, amount decimal.Decimal) (entity.Transaction, error) {
	key, _, err := signer(ctx, u.users, u.keys, userID)
	if err != nil {
		return entity.Transaction{}, err
	}

	value := ToBaseUnits(amount, nativeDecimals)
	if value.Sign() <= 0 {
		return entity.Transaction{}, ErrAmountTooSmall
	}

	hash, err := u.chain.Transfer(ctx, key, common.HexToAddress(to), value)
	if err != nil {
		return entity.Transaction{}, err
	}
	if _, err := u.chain.WaitForConfirmation(ctx, hash); err != nil {
		return entity.Transaction{}, err
	}

	u.log.Info().
		Int64("user_id", userID).
		Str("to", to).
		Str("amount", amount.String()).
		Str("tx", hash.Hex()).
		Msg("transfer confirmed")

	return entity.Transaction{
		Kind:   entity.TransactionTransfer,
		Hash:   hash.Hex(),
		Amount: amount.String(),
		Asset:  "ETH",
		To:     to,
	}, nil
}
