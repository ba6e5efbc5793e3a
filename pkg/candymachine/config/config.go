package config

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/smartcontractkit/chainlink-common/pkg/config"

	"github.com/miraland-labs/sugar/pkg/candymachine"
)

// Config is what the client and uploader read at runtime.
type Config interface {
	Commitment() rpc.CommitmentType
	SkipPreflight() bool
	MaxRetries() *uint
	TxTimeout() time.Duration
	RequestTimeout() time.Duration
	ParallelLimit() int
	UploadRetries() uint8
}

var defaultConfigSet = Chain{
	Commitment:     ptr(string(rpc.CommitmentConfirmed)),
	SkipPreflight:  ptr(false),
	MaxRetries:     ptr(int64(0)),
	TxTimeout:      config.MustNewDuration(time.Minute),
	RequestTimeout: config.MustNewDuration(30 * time.Second),
	ParallelLimit:  ptr(int64(candymachine.ParallelLimit)),
	UploadRetries:  ptr(uint8(6)),
}

type Chain struct {
	Commitment     *string
	SkipPreflight  *bool
	MaxRetries     *int64
	TxTimeout      *config.Duration
	RequestTimeout *config.Duration
	ParallelLimit  *int64
	UploadRetries  *uint8
}

func (c *Chain) SetDefaults() {
	setFromChain(c, &defaultConfigSet)
}

func setFromChain(c, f *Chain) {
	if f.Commitment != nil {
		c.Commitment = f.Commitment
	}
	if f.SkipPreflight != nil {
		c.SkipPreflight = f.SkipPreflight
	}
	if f.MaxRetries != nil {
		c.MaxRetries = f.MaxRetries
	}
	if f.TxTimeout != nil {
		c.TxTimeout = f.TxTimeout
	}
	if f.RequestTimeout != nil {
		c.RequestTimeout = f.RequestTimeout
	}
	if f.ParallelLimit != nil {
		c.ParallelLimit = f.ParallelLimit
	}
	if f.UploadRetries != nil {
		c.UploadRetries = f.UploadRetries
	}
}

func ptr[T any](t T) *T {
	return &t
}
