package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine/account"
	"github.com/miraland-labs/sugar/pkg/candymachine/config"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
	"github.com/miraland-labs/sugar/pkg/candymachine/setup"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidEndpoint = errors.New("invalid rpc endpoint")
	ErrTxFailed        = errors.New("transaction failed")
	ErrTxNotConfirmed  = errors.New("transaction not confirmed")
)

const defaultConfirmPollPeriod = 500 * time.Millisecond

// Ledger is the narrow view of a node the candy machine tooling works through: read an account's
// bytes, and write encoded config line slots at an absolute account offset.
type Ledger interface {
	FetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error)
	SendBytes(ctx context.Context, addr solana.PublicKey, offset uint64, data []byte) (solana.Signature, error)
}

var _ Ledger = (*Connection)(nil)

// Connection is a Ledger backed by an RPC node and the resolved signing keypair.
type Connection struct {
	client  ReaderWriter
	signer  solana.PrivateKey
	codec   configline.Codec
	timeout time.Duration
	poll    time.Duration
	lggr    logger.Logger
}

// Connect builds a Connection from a resolved credential.
func Connect(cred *setup.Credential, cfg config.Config, lggr logger.Logger) (*Connection, error) {
	u, err := url.Parse(cred.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidEndpoint, cred.RPCURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w %q: expected an http(s) URL", ErrInvalidEndpoint, cred.RPCURL)
	}

	return NewConnection(NewClient(cred.RPCURL, cfg, lggr), cred.Keypair, cfg.TxTimeout(), lggr), nil
}

func NewConnection(client ReaderWriter, signer solana.PrivateKey, txTimeout time.Duration, lggr logger.Logger) *Connection {
	return &Connection{
		client:  client,
		signer:  signer,
		codec:   configline.NewCodec(layout.Default),
		timeout: txTimeout,
		poll:    defaultConfirmPollPeriod,
		lggr:    logger.Named(lggr, "Connection"),
	}
}

func (c *Connection) Authority() solana.PublicKey {
	return c.signer.PublicKey()
}

func (c *Connection) Reader() Reader {
	return c.client
}

// FetchAccount returns the raw data of addr.
func (c *Connection) FetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := c.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Encoding: solana.EncodingBase64})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr, err)
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return res.Value.Data.GetBinary(), nil
}

// SendBytes writes encoded config line slots at offset of candy machine addr and waits for the
// write to confirm. offset must be a slot address, data whole slots.
func (c *Connection) SendBytes(ctx context.Context, addr solana.PublicKey, offset uint64, data []byte) (solana.Signature, error) {
	index, err := c.codec.Index(offset)
	if err != nil {
		return solana.Signature{}, err
	}
	size := c.codec.Layout().ConfigLineSize
	if len(data) == 0 || len(data)%size != 0 {
		return solana.Signature{}, fmt.Errorf("%w: %d bytes is not a whole number of %d byte slots", configline.ErrInvalidEncoding, len(data), size)
	}
	lines, err := c.codec.Decode(data, len(data)/size)
	if err != nil {
		return solana.Signature{}, err
	}

	ix, err := account.NewAddConfigLinesInstruction(addr, c.Authority(), uint32(index), lines) //nolint:gosec // index is bounded by account size
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := c.signedTx(ctx, ix)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.client.SendTx(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send config lines %d..%d: %w", index, index+len(lines)-1, err)
	}
	c.lggr.Debugw("Sent config lines", "candyMachine", addr, "index", index, "count", len(lines), "signature", sig)

	return sig, c.confirm(ctx, sig)
}

func (c *Connection) signedTx(ctx context.Context, ixs ...solana.Instruction) (*solana.Transaction, error) {
	hash, err := c.client.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if hash == nil || hash.Value == nil {
		return nil, errors.New("nil pointer in LatestBlockhash")
	}

	tx, err := solana.NewTransaction(ixs, hash.Value.Blockhash, solana.TransactionPayer(c.Authority()))
	if err != nil {
		return nil, err
	}

	if _, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(c.Authority()) {
			return &c.signer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

func (c *Connection) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		statuses, err := c.client.SignatureStatuses(ctx, []solana.Signature{sig})
		if err != nil {
			c.lggr.Debugw("Failed to get signature status", "signature", sig, "err", err)
		} else if len(statuses) > 0 && statuses[0] != nil {
			s := statuses[0]
			if s.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTxFailed, sig, s.Err)
			}
			if s.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || s.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrTxNotConfirmed, sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
