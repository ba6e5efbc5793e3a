package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/singleflight"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine/config"
	"github.com/miraland-labs/sugar/pkg/candymachine/monitor"
)

const (
	DevnetGenesisHash  = "EtWTRABZaYq6iMfeYKouRu166VU2xqa1wcaWoxPkrZBG"
	TestnetGenesisHash = "4uhcVJyU9pJkvQyS88uRDiswHXSCkY3zQawwpjk2NsNY"
	MainnetGenesisHash = "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdpKuc147dw2N9d"
)

var networks = map[string]string{
	DevnetGenesisHash:  "devnet",
	TestnetGenesisHash: "testnet",
	MainnetGenesisHash: "mainnet",
}

type ReaderWriter interface {
	Reader
	Writer
}

type Reader interface {
	AccountReader
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (*rpc.GetLatestBlockhashResult, error)
	// ChainID names the network the node serves: devnet, testnet, mainnet or localnet.
	ChainID(ctx context.Context) (string, error)
}

type AccountReader interface {
	GetAccountInfoWithOpts(ctx context.Context, addr solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

type Writer interface {
	SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*rpc.SignatureStatusesResult, error)
}

var _ ReaderWriter = (*Client)(nil)

// Client is the RPC node the candy machine commands talk to. Every call is bounded by the request
// timeout, except sends which get the transaction timeout.
type Client struct {
	url            string
	rpc            *rpc.Client
	commitment     rpc.CommitmentType
	sendOpts       rpc.TransactionOpts
	requestTimeout time.Duration
	txTimeout      time.Duration
	lggr           logger.Logger

	// identical in-flight reads share one request; keys must include every argument
	group singleflight.Group
}

func NewClient(endpoint string, cfg config.Config, lggr logger.Logger) *Client {
	return &Client{
		url:        endpoint,
		rpc:        rpc.New(endpoint),
		commitment: cfg.Commitment(),
		sendOpts: rpc.TransactionOpts{
			SkipPreflight:       cfg.SkipPreflight(),
			PreflightCommitment: cfg.Commitment(),
			MaxRetries:          cfg.MaxRetries(),
		},
		requestTimeout: cfg.RequestTimeout(),
		txTimeout:      cfg.TxTimeout(),
		lggr:           logger.Named(lggr, "Client"),
	}
}

// call runs fn under timeout and records its latency as request.
func call[T any](ctx context.Context, c *Client, request string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() { monitor.SetClientLatency(time.Since(start), request, c.url) }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// shared is call with concurrent duplicates collapsed on key.
func shared[T any](ctx context.Context, c *Client, request, key string, fn func(context.Context) (T, error)) (T, error) {
	return call(ctx, c, request, c.requestTimeout, func(ctx context.Context) (T, error) {
		v, err, _ := c.group.Do(key, func() (any, error) { return fn(ctx) })
		if err != nil {
			var zero T
			return zero, err
		}
		return v.(T), nil
	})
}

func (c *Client) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	res, err := shared(ctx, c, "balance", "GetBalance("+addr.String()+")", func(ctx context.Context) (*rpc.GetBalanceResult, error) {
		return c.rpc.GetBalance(ctx, addr, c.commitment)
	})
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetAccountInfoWithOpts always reads at the client's commitment, whatever opts says.
func (c *Client) GetAccountInfoWithOpts(ctx context.Context, addr solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	o := rpc.GetAccountInfoOpts{}
	if opts != nil {
		o = *opts
	}
	o.Commitment = c.commitment
	return call(ctx, c, "account_info", c.requestTimeout, func(ctx context.Context) (*rpc.GetAccountInfoResult, error) {
		return c.rpc.GetAccountInfoWithOpts(ctx, addr, &o)
	})
}

func (c *Client) LatestBlockhash(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
	return shared(ctx, c, "latest_blockhash", "GetLatestBlockhash", func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
		return c.rpc.GetLatestBlockhash(ctx, c.commitment)
	})
}

func (c *Client) ChainID(ctx context.Context) (string, error) {
	hash, err := shared(ctx, c, "chain_id", "GetGenesisHash", c.rpc.GetGenesisHash)
	if err != nil {
		return "", err
	}
	if network, ok := networks[hash.String()]; ok {
		return network, nil
	}
	c.lggr.Warnw("Unknown genesis hash, assuming localnet", "hash", hash)
	return "localnet", nil
}

func (c *Client) SignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*rpc.SignatureStatusesResult, error) {
	res, err := call(ctx, c, "signature_statuses", c.requestTimeout, func(ctx context.Context) (*rpc.GetSignatureStatusesResult, error) {
		return c.rpc.GetSignatureStatuses(ctx, false, sigs...)
	})
	if err != nil {
		return nil, fmt.Errorf("error in GetSignatureStatuses: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, errors.New("nil pointer in GetSignatureStatuses")
	}
	return res.Value, nil
}

func (c *Client) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return call(ctx, c, "send_tx", c.txTimeout, func(ctx context.Context) (solana.Signature, error) {
		return c.rpc.SendTransactionWithOpts(ctx, tx, c.sendOpts)
	})
}
