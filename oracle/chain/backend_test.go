package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeSub struct {
	once sync.Once
	errc chan error
}

func newFakeSub() *fakeSub {
	return &fakeSub{errc: make(chan error, 1)}
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() { close(s.errc) })
}

func (s *fakeSub) Err() <-chan error {
	return s.errc
}

// fakeBackend answers calls from canned method outputs and mines every
// transaction immediately.
type fakeBackend struct {
	mu sync.Mutex

	abi      abi.ABI
	outputs  map[string][]any
	callErr  error
	gasErr   error
	reverted map[string]bool

	sent     []TxArgs
	estimate []ethereum.CallMsg

	head    uint64
	past    []types.Log
	query   ethereum.FilterQuery
	live    chan<- types.Log
	liveSub *fakeSub
}

func newFakeBackend(parsed abi.ABI) *fakeBackend {
	return &fakeBackend{
		abi:      parsed,
		outputs:  make(map[string][]any),
		reverted: make(map[string]bool),
	}
}

func (b *fakeBackend) method(data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, errors.New("short calldata")
	}
	return b.abi.MethodById(data[:4])
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if b.callErr != nil {
		return nil, b.callErr
	}

	m, err := b.method(msg.Data)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	out, ok := b.outputs[m.RawName]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}

	return m.Outputs.Pack(out...)
}

func (b *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.estimate = append(b.estimate, msg)
	if b.gasErr != nil {
		return 0, b.gasErr
	}
	return 21000, nil
}

func (b *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var res []types.Log
	for _, l := range b.past {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			res = append(res, l)
		}
	}
	return res, nil
}

func (b *fakeBackend) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.query = q
	b.live = ch
	b.liveSub = newFakeSub()
	return b.liveSub, nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return b.head, nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, tx := range b.sent {
		if txHash(i) != hash {
			continue
		}
		status := types.ReceiptStatusSuccessful
		if m, err := b.method(tx.Data); err == nil && b.reverted[m.RawName] {
			status = types.ReceiptStatusFailed
		}
		return &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(int64(i + 1))}, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) SendTransactionFrom(_ context.Context, args TxArgs) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent = append(b.sent, args)
	return txHash(len(b.sent) - 1), nil
}

func (b *fakeBackend) sentCalls() []TxArgs {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]TxArgs(nil), b.sent...)
}

func txHash(i int) common.Hash {
	return crypto.Keccak256Hash(big.NewInt(int64(i)).Bytes())
}
