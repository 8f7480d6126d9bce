package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/GPTx-global/flightsurety/oracle/log"
	flighttypes "github.com/GPTx-global/flightsurety/oracle/types"
)

// SendOpts describes a state-changing call. A zero Gas means estimate.
type SendOpts struct {
	From  common.Address
	Value *big.Int
	Gas   uint64
}

// Contract is a deployed contract reachable through a Backend. Reads go
// through Call, state changes through Send, event streams through Watch.
type Contract struct {
	name         string
	address      common.Address
	abi          abi.ABI
	backend      Backend
	pollInterval time.Duration
}

func NewContract(name string, address common.Address, parsed abi.ABI, backend Backend) *Contract {
	return &Contract{
		name:         name,
		address:      address,
		abi:          parsed,
		backend:      backend,
		pollInterval: 250 * time.Millisecond,
	}
}

func (c *Contract) Name() string {
	return c.name
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

func (c *Contract) pack(method string, args ...any) ([]byte, error) {
	if _, ok := c.abi.Methods[method]; !ok {
		return nil, errorsmod.Wrapf(flighttypes.ErrUnknownMethod, "%s.%s", c.name, method)
	}

	return c.abi.Pack(method, args...)
}

// Call performs a read-only query and returns the unpacked outputs.
func (c *Contract) Call(ctx context.Context, from common.Address, method string, args ...any) ([]any, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "pack %s.%s: %v", c.name, method, err)
	}

	msg := ethereum.CallMsg{From: from, To: &c.address, Data: data}
	out, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "call %s.%s: %v", c.name, method, err)
	}

	if len(out) == 0 && len(c.abi.Methods[method].Outputs) > 0 {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "call %s.%s: empty result, no contract at %s?", c.name, method, c.address.Hex())
	}

	res, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "unpack %s.%s: %v", c.name, method, err)
	}

	return res, nil
}

// EstimateGas estimates the gas a Send with the same arguments would use.
// A call that would revert fails here.
func (c *Contract) EstimateGas(ctx context.Context, opts SendOpts, method string, args ...any) (uint64, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return 0, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "pack %s.%s: %v", c.name, method, err)
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  opts.From,
		To:    &c.address,
		Value: opts.Value,
		Data:  data,
	})
	if err != nil {
		return 0, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "estimate gas %s.%s from %s: %v", c.name, method, opts.From.Hex(), err)
	}

	return gas, nil
}

// Send submits a state-changing call from a node-managed account and waits
// for it to be mined. A reverted receipt is returned with an error.
func (c *Contract) Send(ctx context.Context, opts SendOpts, method string, args ...any) (*types.Receipt, error) {
	data, err := c.pack(method, args...)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "pack %s.%s: %v", c.name, method, err)
	}

	gas := opts.Gas
	if gas == 0 {
		if gas, err = c.EstimateGas(ctx, opts, method, args...); err != nil {
			return nil, err
		}
	}

	txArgs := TxArgs{
		From: opts.From,
		To:   &c.address,
		Gas:  hexutil.Uint64(gas),
		Data: data,
	}
	if opts.Value != nil && opts.Value.Sign() > 0 {
		txArgs.Value = (*hexutil.Big)(opts.Value)
	}

	hash, err := c.backend.SendTransactionFrom(ctx, txArgs)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "send %s.%s from %s: %v", c.name, method, opts.From.Hex(), err)
	}

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "wait %s.%s tx %s: %v", c.name, method, hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errorsmod.Wrapf(flighttypes.ErrChainTransaction, "%s.%s tx %s reverted", c.name, method, hash.Hex())
	}

	log.Debugf("%s.%s from %s mined in block %v (%s)", c.name, method, opts.From.Hex(), receipt.BlockNumber, hash.Hex())
	return receipt, nil
}

func (c *Contract) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watch streams every log of the named event emitted from fromBlock onward:
// the historical range up to the current head first, then new logs as they
// are mined. The returned subscription fails when the live feed fails.
func (c *Contract) Watch(ctx context.Context, name string, fromBlock uint64, sink chan<- types.Log) (event.Subscription, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return nil, errorsmod.Wrapf(flighttypes.ErrUnknownMethod, "event %s.%s", c.name, name)
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{ev.ID}},
	}

	live := make(chan types.Log, 128)
	liveSub, err := c.backend.SubscribeFilterLogs(ctx, query, live)
	if err != nil {
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "subscribe %s.%s: %v", c.name, name, err)
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		liveSub.Unsubscribe()
		return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "block number: %v", err)
	}

	var backlog []types.Log
	replayed := fromBlock <= head
	if replayed {
		past := query
		past.FromBlock = new(big.Int).SetUint64(fromBlock)
		past.ToBlock = new(big.Int).SetUint64(head)

		backlog, err = c.backend.FilterLogs(ctx, past)
		if err != nil {
			liveSub.Unsubscribe()
			return nil, errorsmod.Wrapf(flighttypes.ErrChainQuery, "filter %s.%s [%d, %d]: %v", c.name, name, fromBlock, head, err)
		}
	}

	log.Debugf("watching %s.%s from block %d (head %d, %d past logs)", c.name, name, fromBlock, head, len(backlog))

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer liveSub.Unsubscribe()

		for _, l := range backlog {
			select {
			case sink <- l:
			case <-quit:
				return nil
			}
		}

		for {
			select {
			case l := <-live:
				if l.Removed || (replayed && l.BlockNumber <= head) || l.BlockNumber < fromBlock {
					continue
				}
				select {
				case sink <- l:
				case <-quit:
					return nil
				}
			case err := <-liveSub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// UnpackLog decodes a log of the named event into out.
func (c *Contract) UnpackLog(out any, name string, l types.Log) error {
	ev, ok := c.abi.Events[name]
	if !ok {
		return errorsmod.Wrapf(flighttypes.ErrUnknownMethod, "event %s.%s", c.name, name)
	}

	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return errors.New("event signature mismatch")
	}

	if len(l.Data) > 0 {
		if err := c.abi.UnpackIntoInterface(out, name, l.Data); err != nil {
			return err
		}
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	return abi.ParseTopics(out, indexed, l.Topics[1:])
}
