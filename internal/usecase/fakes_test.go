package usecase

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"medusa/internal/entity"
	"medusa/internal/keystore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var (
	testToken  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testWETH   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRouter = common.HexToAddress("0x3333333333333333333333333333333333333333")

	approveHash  = common.HexToHash("0xa1")
	swapHash     = common.HexToHash("0xb2")
	transferHash = common.HexToHash("0xc3")
)

type memUsers struct {
	mu    sync.Mutex
	users map[int64]entity.User
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]entity.User)}
}

func (r *memUsers) FindOrCreate(_ context.Context, id int64, create func() (entity.User, error)) (entity.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return entity.User{}, false, r.err
	}
	if user, ok := r.users[id]; ok {
		return user, false, nil
	}
	user, err := create()
	if err != nil {
		return entity.User{}, false, err
	}
	r.users[id] = user
	return user, true, nil
}

func (r *memUsers) Get(_ context.Context, id int64) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return entity.User{}, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return entity.User{}, entity.ErrNotFound
	}
	return user, nil
}

func (r *memUsers) UpdateCachedBalance(_ context.Context, id int64, wei string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return entity.ErrNotFound
	}
	user.CachedBalance = wei
	r.users[id] = user
	return nil
}

type memFlows struct {
	mu    sync.Mutex
	flows map[int64]entity.Flow
}

func newMemFlows() *memFlows {
	return &memFlows{flows: make(map[int64]entity.Flow)}
}

func (r *memFlows) Get(_ context.Context, id int64) (entity.Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flow, ok := r.flows[id]
	if !ok {
		return entity.Flow{}, entity.FlowNotFoundErr
	}
	return flow, nil
}

func (r *memFlows) Save(_ context.Context, id int64, flow entity.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[id] = flow
	return nil
}

func (r *memFlows) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, id)
	return nil
}

func (r *memFlows) current(id int64) (entity.Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flow, ok := r.flows[id]
	return flow, ok
}

type fakeTokens struct {
	token entity.Token
	err   error
}

func (f *fakeTokens) Lookup(_ context.Context, address string) (entity.Token, error) {
	if f.err != nil {
		return entity.Token{}, f.err
	}
	token := f.token
	token.Address = address
	return token, nil
}

type fakeChain struct {
	mu sync.Mutex

	native    *big.Int
	nativeErr error
	tokenBal  *big.Int
	decimals  uint8

	quote    *big.Int
	quoteErr error

	swapErr     error
	transferErr error
	waitErr     error

	calls     []string
	swaps     []entity.SwapRequest
	approvals []*big.Int
	transfers []*big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native:   big.NewInt(0),
		tokenBal: big.NewInt(0),
		decimals: 18,
		quote:    big.NewInt(1000),
	}
}

func (c *fakeChain) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeChain) called(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, name := range c.calls {
		if name == call {
			n++
		}
	}
	return n
}

func (c *fakeChain) Router() common.Address {
	return testRouter
}

func (c *fakeChain) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("NativeBalance")
	if c.nativeErr != nil {
		return nil, c.nativeErr
	}
	return new(big.Int).Set(c.native), nil
}

func (c *fakeChain) TokenBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("TokenBalance")
	return new(big.Int).Set(c.tokenBal), nil
}

func (c *fakeChain) TokenDecimals(context.Context, common.Address) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("TokenDecimals")
	return c.decimals, nil
}

func (c *fakeChain) WrappedNative(context.Context) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("WrappedNative")
	return testWETH, nil
}

func (c *fakeChain) AmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("AmountsOut")
	if c.quoteErr != nil {
		return nil, c.quoteErr
	}
	amounts := make([]*big.Int, len(path))
	amounts[0] = amountIn
	for i := 1; i < len(path); i++ {
		amounts[i] = c.quote
	}
	return amounts, nil
}

func (c *fakeChain) Approve(_ context.Context, _ *ecdsa.PrivateKey, _, _ common.Address, amount *big.Int) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Approve")
	c.approvals = append(c.approvals, amount)
	return approveHash, nil
}

func (c *fakeChain) Swap(_ context.Context, _ *ecdsa.PrivateKey, req entity.SwapRequest) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Swap")
	if c.swapErr != nil {
		return common.Hash{}, c.swapErr
	}
	c.swaps = append(c.swaps, req)
	return swapHash, nil
}

func (c *fakeChain) Transfer(_ context.Context, _ *ecdsa.PrivateKey, _ common.Address, amount *big.Int) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Transfer")
	if c.transferErr != nil {
		return common.Hash{}, c.transferErr
	}
	c.transfers = append(c.transfers, amount)
	return transferHash, nil
}

func (c *fakeChain) WaitForConfirmation(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("WaitForConfirmation")
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
}

func newTestKeystore(t *testing.T) *keystore.Keystore {
	t.Helper()
	ks, err := keystore.New(testSecret)
	require.NoError(t, err)
	return ks
}

// addUser stores a user with a fresh wallet.
func addUser(t *testing.T, users *memUsers, ks *keystore.Keystore, id int64) entity.User {
	t.Helper()
	address, sealed, err := ks.Generate()
	require.NoError(t, err)
	user := entity.User{ID: id, Address: address, EncryptedKey: sealed, CreatedAt: time.Now()}
	users.users[id] = user
	return user
}

func testSwapConfig() SwapConfig {
	return SwapConfig{SlippageBps: 100, Deadline: 20 * time.Minute}
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
