// Package verify compares a deployed candy machine against the values recorded locally.
//
// Every failure is reported, never retried. Whether a mismatch is fatal is up to the caller.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine/account"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
)

// missing is reported as the found value of a config line the account does not hold.
const missing = "<missing>"

type AccountFetcher interface {
	FetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error)
}

// Expectation holds the locally recorded values. Zero Authority and empty Symbol are not checked.
type Expectation struct {
	ItemsAvailable uint64
	Authority      solana.PublicKey
	Symbol         string
	// Lines are the expected config lines, Lines[i] at index i.
	Lines []configline.ConfigLine
}

type Report struct {
	Account      solana.PublicKey
	Machine      *account.CandyMachine
	LinesChecked int
	Mismatches   []*MismatchError
}

// Err joins all mismatches, nil when there are none.
func (r *Report) Err() error {
	return errors.Join(lo.Map(r.Mismatches, func(m *MismatchError, _ int) error { return m })...)
}

func (r *Report) Fields() []string {
	return lo.Map(r.Mismatches, func(m *MismatchError, _ int) string { return m.Field })
}

func (r *Report) add(m *MismatchError) {
	r.Mismatches = append(r.Mismatches, m)
}

type Verifier struct {
	fetcher AccountFetcher
	codec   configline.Codec
	lggr    logger.Logger
}

func NewVerifier(fetcher AccountFetcher, l layout.Layout, lggr logger.Logger) *Verifier {
	return &Verifier{
		fetcher: fetcher,
		codec:   configline.NewCodec(l),
		lggr:    logger.Named(lggr, "Verifier"),
	}
}

// Verify fetches addr and checks it against exp. A machine that cannot be read or decoded yields an
// *AccountFetchFailedError; differences, including expected lines the account does not hold, are
// collected in the Report.
func (v *Verifier) Verify(ctx context.Context, addr solana.PublicKey, exp Expectation) (*Report, error) {
	data, err := v.fetcher.FetchAccount(ctx, addr)
	if err != nil {
		return nil, &AccountFetchFailedError{Account: addr.String(), Err: err}
	}
	cm, err := account.Decode(data)
	if err != nil {
		return nil, &AccountFetchFailedError{Account: addr.String(), Err: err}
	}

	r := &Report{Account: addr, Machine: cm}
	if cm.Data.ItemsAvailable != exp.ItemsAvailable {
		r.add(NewMismatch("items_available", exp.ItemsAvailable, cm.Data.ItemsAvailable))
	}
	if !exp.Authority.IsZero() && !exp.Authority.Equals(cm.Authority) {
		r.add(NewMismatch("authority", exp.Authority, cm.Authority))
	}
	if exp.Symbol != "" && exp.Symbol != cm.Data.Symbol {
		r.add(NewMismatch("symbol", exp.Symbol, cm.Data.Symbol))
	}

	if cm.Data.HiddenSettings != nil {
		v.lggr.Debugw("Hidden settings machine, skipping config lines", "candyMachine", addr)
		return r, nil
	}
	if len(exp.Lines) == 0 {
		return r, nil
	}

	count, err := account.ConfigLineCount(data, v.codec.Layout())
	if err != nil {
		return nil, &AccountFetchFailedError{Account: addr.String(), Err: err}
	}
	if int(count) != len(exp.Lines) {
		r.add(NewMismatch("config_lines", len(exp.Lines), count))
	}

	// lines past the recorded count, or past the slots the account has room for, were never written
	slots := (len(data) - int(v.codec.Address(0))) / v.codec.Layout().ConfigLineSize //nolint:gosec // header offset
	present := max(0, min(int(count), slots))
	for i, want := range exp.Lines {
		if i >= present {
			r.add(NewMismatch(fmt.Sprintf("items[%d]", i), want, missing))
			continue
		}
		got, err := v.codec.DecodeAt(data, i)
		if err != nil {
			return nil, &AccountFetchFailedError{Account: addr.String(), Err: fmt.Errorf("config line %d: %w", i, err)}
		}
		if got.Name != want.Name {
			r.add(NewMismatch(fmt.Sprintf("items[%d].name", i), want.Name, got.Name))
		}
		if got.URI != want.URI {
			r.add(NewMismatch(fmt.Sprintf("items[%d].uri", i), want.URI, got.URI))
		}
		r.LinesChecked++
	}

	if len(r.Mismatches) > 0 {
		v.lggr.Warnw("Candy machine does not match local values", "candyMachine", addr, "mismatches", len(r.Mismatches))
	}
	return r, nil
}
