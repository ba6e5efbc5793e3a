package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pelletier/go-toml/v2"

	"github.com/smartcontractkit/chainlink-common/pkg/config"
)

// TOMLConfig is the tool config file. Unset fields keep their defaults.
type TOMLConfig struct {
	Chain
}

func NewDefault() *TOMLConfig {
	cfg := &TOMLConfig{}
	cfg.Chain.SetDefaults()
	return cfg
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*TOMLConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var f TOMLConfig
	d := toml.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err = d.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	cfg := NewDefault()
	cfg.SetFrom(&f)
	if err = cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *TOMLConfig) SetFrom(f *TOMLConfig) {
	setFromChain(&c.Chain, &f.Chain)
}

func (c *TOMLConfig) ValidateConfig() (err error) {
	if c.Chain.Commitment == nil {
		err = errors.Join(err, config.ErrMissing{Name: "Commitment", Msg: "required"})
	} else {
		switch rpc.CommitmentType(*c.Chain.Commitment) {
		case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		default:
			err = errors.Join(err, config.ErrInvalid{Name: "Commitment", Value: *c.Chain.Commitment, Msg: "must be processed, confirmed or finalized"})
		}
	}

	if c.Chain.ParallelLimit == nil {
		err = errors.Join(err, config.ErrMissing{Name: "ParallelLimit", Msg: "required"})
	} else if *c.Chain.ParallelLimit < 1 {
		err = errors.Join(err, config.ErrInvalid{Name: "ParallelLimit", Value: *c.Chain.ParallelLimit, Msg: "must be at least 1"})
	}

	if c.Chain.TxTimeout == nil || c.Chain.TxTimeout.Duration() <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "TxTimeout", Value: c.Chain.TxTimeout, Msg: "must be positive"})
	}
	if c.Chain.RequestTimeout == nil || c.Chain.RequestTimeout.Duration() <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "RequestTimeout", Value: c.Chain.RequestTimeout, Msg: "must be positive"})
	}
	return
}

func (c *TOMLConfig) TOMLString() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ Config = &TOMLConfig{}

func (c *TOMLConfig) Commitment() rpc.CommitmentType {
	return rpc.CommitmentType(*c.Chain.Commitment)
}

func (c *TOMLConfig) SkipPreflight() bool {
	return *c.Chain.SkipPreflight
}

func (c *TOMLConfig) MaxRetries() *uint {
	if c.Chain.MaxRetries == nil {
		return nil
	}
	if *c.Chain.MaxRetries < 0 {
		return nil // interpret negative numbers as nil (prevents unlikely case of overflow)
	}
	mr := uint(*c.Chain.MaxRetries) //nolint:gosec // overflow check is handled above
	return &mr
}

func (c *TOMLConfig) TxTimeout() time.Duration {
	return c.Chain.TxTimeout.Duration()
}

func (c *TOMLConfig) RequestTimeout() time.Duration {
	return c.Chain.RequestTimeout.Duration()
}

func (c *TOMLConfig) ParallelLimit() int {
	return int(*c.Chain.ParallelLimit)
}

func (c *TOMLConfig) UploadRetries() uint8 {
	return *c.Chain.UploadRetries
}
