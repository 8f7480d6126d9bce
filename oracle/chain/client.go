package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/retry"
)

// Backend is the node surface the contract bindings need.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransactionFrom(ctx context.Context, args TxArgs) (common.Hash, error)
}

// TxArgs are the eth_sendTransaction parameters for a node-managed account.
type TxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   hexutil.Uint64  `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// Client is a connection to an Ethereum node whose accounts are unlocked on
// the node itself (ganache, a dev geth), so transactions are signed remotely.
type Client struct {
	*ethclient.Client

	rpc      *rpc.Client
	endpoint string
}

// Dial connects to endpoint, retrying transient network failures.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	var rpcClient *rpc.Client

	breaker := retry.NewCircuitBreaker(5, time.Minute)
	err := retry.Do(ctx, retry.NetworkRetryConfig(), func() error {
		return breaker.Execute(func() error {
			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			c, err := rpc.DialContext(dialCtx, endpoint)
			if err != nil {
				return err
			}

			var chainID hexutil.Big
			if err := c.CallContext(dialCtx, &chainID, "eth_chainId"); err != nil {
				c.Close()
				return err
			}

			log.Infof("connected to %s (chain id %s)", endpoint, chainID.ToInt())
			rpcClient = c
			return nil
		})
	}, retry.NetworkIsRetryable)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	return &Client{
		Client:   ethclient.NewClient(rpcClient),
		rpc:      rpcClient,
		endpoint: endpoint,
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Accounts lists the node-managed accounts (eth_accounts).
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}

// SendTransactionFrom submits an unsigned transaction for the node to sign
// with the sender's unlocked key.
func (c *Client) SendTransactionFrom(ctx context.Context, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}

	return hash, nil
}

// Ping reports whether the node answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.BlockNumber(ctx)
	return err
}
