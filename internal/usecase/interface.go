package usecase

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type idempotenceRepository interface {
	// MakeRecord return true if it was first time to call this method with same id
	MakeRecord(context.Context, string) (bool, error)
	Prune(context.Context, time.Time) (int, error)
}

type userRepository interface {
	// FindOrCreate stores the user built by create unless id already exists.
	// The bool result reports whether a new user was stored.
	FindOrCreate(ctx context.Context, id int64, create func() (entity.User, error)) (entity.User, bool, error)
	Get(context.Context, int64) (entity.User, error)
	UpdateCachedBalance(ctx context.Context, id int64, wei string) error
}

// FlowRepository stores the active flow of each user. Both the bolt and the
// redis stores satisfy it.
type FlowRepository interface {
	Get(context.Context, int64) (entity.Flow, error)
	Save(context.Context, int64, entity.Flow) error
	Delete(context.Context, int64) error
}

type keyring interface {
	Generate() (address string, sealed string, err error)
	Open(address string, sealed string) (*ecdsa.PrivateKey, error)
}

type tokenInfo interface {
	Lookup(ctx context.Context, address string) (entity.Token, error)
}

type chainClient interface {
	Router() common.Address
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	WrappedNative(ctx context.Context) (common.Address, error)
	AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Swap(ctx context.Context, key *ecdsa.PrivateKey, req entity.SwapRequest) (common.Hash, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, amount *big.Int) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
