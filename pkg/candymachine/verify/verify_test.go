package verify_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/smartcontractkit/chainlink-common/pkg/utils/tests"

	"github.com/miraland-labs/sugar/pkg/candymachine/account"
	"github.com/miraland-labs/sugar/pkg/candymachine/client"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
	"github.com/miraland-labs/sugar/pkg/candymachine/verify"
)

type fakeFetcher map[solana.PublicKey][]byte

func (f fakeFetcher) FetchAccount(_ context.Context, addr solana.PublicKey) ([]byte, error) {
	data, ok := f[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", client.ErrAccountNotFound, addr)
	}
	return data, nil
}

// buildAccount lays out a machine the way the program does: header, line count at the config array
// start, then the written slots.
func buildAccount(t *testing.T, cm *account.CandyMachine, lines []configline.ConfigLine) []byte {
	l := layout.Default
	header, err := account.Encode(cm)
	require.NoError(t, err)
	require.LessOrEqual(t, len(header), l.ConfigArrayStart)

	buf := make([]byte, l.AccountSize(int(cm.Data.ItemsAvailable), cm.Data.HiddenSettings != nil)) //nolint:gosec // test sizes
	copy(buf, header)
	if cm.Data.HiddenSettings != nil {
		return buf
	}

	binary.LittleEndian.PutUint32(buf[l.ConfigArrayStart:], uint32(len(lines))) //nolint:gosec // test sizes
	if len(lines) > 0 {
		slots, err := configline.NewCodec(l).Encode(configline.Chunk{Lines: lines})
		require.NoError(t, err)
		copy(buf[l.Address(0):], slots)
	}
	return buf
}

func testLines(n int) []configline.ConfigLine {
	lines := make([]configline.ConfigLine, n)
	for i := range lines {
		lines[i] = configline.ConfigLine{
			Name: fmt.Sprintf("Candy #%d", i),
			URI:  fmt.Sprintf("https://arweave.net/%d", i),
		}
	}
	return lines
}

func newMachine(authority solana.PublicKey, items uint64) *account.CandyMachine {
	return &account.CandyMachine{
		Authority: authority,
		Wallet:    authority,
		Data: account.CandyMachineData{
			UUID:           "000000",
			Price:          1_000_000,
			Symbol:         "CANDY",
			MaxSupply:      0,
			IsMutable:      true,
			ItemsAvailable: items,
			Creators:       []account.Creator{{Address: authority, Verified: true, Share: 100}},
		},
	}
}

func TestVerify_Match(t *testing.T) {
	ctx := tests.Context(t)
	authority := solana.NewWallet().PublicKey()
	addr := solana.NewWallet().PublicKey()
	lines := testLines(3)

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, newMachine(authority, 3), lines)}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{
		ItemsAvailable: 3,
		Authority:      authority,
		Symbol:         "CANDY",
		Lines:          lines,
	})
	require.NoError(t, err)
	require.NoError(t, r.Err())
	assert.Empty(t, r.Mismatches)
	assert.Equal(t, 3, r.LinesChecked)
	assert.Equal(t, "CANDY", r.Machine.Data.Symbol)
}

func TestVerify_ItemsAvailableMismatch(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, newMachine(solana.NewWallet().PublicKey(), 7), nil)}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{ItemsAvailable: 5})
	require.NoError(t, err)

	require.Len(t, r.Mismatches, 1)
	assert.Equal(t, &verify.MismatchError{Field: "items_available", Expected: "5", Found: "7"}, r.Mismatches[0])
	require.ErrorIs(t, r.Err(), verify.ErrMismatch)
	assert.EqualError(t, r.Mismatches[0], "items_available mismatch (expected='5', found='7')")
}

func TestVerify_LineMismatches(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	onChain := testLines(3)

	expected := testLines(3)
	expected[1].Name = "Renamed"
	expected[2].URI = "https://arweave.net/other"

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, newMachine(authority, 3), onChain)}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{
		ItemsAvailable: 3,
		Authority:      solana.NewWallet().PublicKey(),
		Lines:          expected,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"authority", "items[1].name", "items[2].uri"}, r.Fields())
	assert.Equal(t, "Renamed", r.Mismatches[1].Expected)
	assert.Equal(t, "Candy #1", r.Mismatches[1].Found)
	assert.Equal(t, 3, r.LinesChecked)
}

func TestVerify_LineCountMismatch(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()
	lines := testLines(4)

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, newMachine(solana.NewWallet().PublicKey(), 4), lines[:2])}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{ItemsAvailable: 4, Lines: lines})
	require.NoError(t, err)

	assert.Equal(t, []string{"config_lines", "items[2]", "items[3]"}, r.Fields())
	assert.Equal(t, &verify.MismatchError{Field: "config_lines", Expected: "4", Found: "2"}, r.Mismatches[0])
	assert.Equal(t, "<missing>", r.Mismatches[1].Found)
	assert.Equal(t, 2, r.LinesChecked)
}

func TestVerify_MoreLinesThanAccount(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()
	lines := testLines(12)

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, newMachine(solana.NewWallet().PublicKey(), 10), lines[:10])}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{ItemsAvailable: 12, Lines: lines})
	require.NoError(t, err)
	require.ErrorIs(t, r.Err(), verify.ErrMismatch)
	require.NotErrorIs(t, r.Err(), verify.ErrAccountFetchFailed)

	assert.Equal(t, []string{"items_available", "config_lines", "items[10]", "items[11]"}, r.Fields())
	assert.Equal(t, &verify.MismatchError{Field: "items_available", Expected: "12", Found: "10"}, r.Mismatches[0])
	assert.Equal(t, &verify.MismatchError{Field: "config_lines", Expected: "12", Found: "10"}, r.Mismatches[1])
	assert.Equal(t, &verify.MismatchError{Field: "items[11]", Expected: "{Candy #11 https://arweave.net/11}", Found: "<missing>"}, r.Mismatches[3])
	assert.Equal(t, 10, r.LinesChecked)
}

func TestVerify_CountBeyondAccountSlots(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()
	data := buildAccount(t, newMachine(solana.NewWallet().PublicKey(), 2), testLines(2))
	binary.LittleEndian.PutUint32(data[layout.Default.ConfigArrayStart:], 5)

	v := verify.NewVerifier(fakeFetcher{addr: data}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{ItemsAvailable: 2, Lines: testLines(3)})
	require.NoError(t, err)

	assert.Equal(t, []string{"config_lines", "items[2]"}, r.Fields())
	assert.Equal(t, 2, r.LinesChecked)
}

func TestVerify_HiddenSettingsSkipsLines(t *testing.T) {
	ctx := tests.Context(t)
	addr := solana.NewWallet().PublicKey()
	cm := newMachine(solana.NewWallet().PublicKey(), 10)
	cm.Data.HiddenSettings = &account.HiddenSettings{Name: "Hidden #", URI: "https://arweave.net/hidden"}

	v := verify.NewVerifier(fakeFetcher{addr: buildAccount(t, cm, nil)}, layout.Default, logger.Test(t))
	r, err := v.Verify(ctx, addr, verify.Expectation{ItemsAvailable: 10, Lines: testLines(10)})
	require.NoError(t, err)
	assert.Empty(t, r.Mismatches)
	assert.Zero(t, r.LinesChecked)
}

func TestVerify_AccountFetchFailed(t *testing.T) {
	ctx := tests.Context(t)
	missing := solana.NewWallet().PublicKey()
	garbage := solana.NewWallet().PublicKey()
	short := solana.NewWallet().PublicKey()

	header, err := account.Encode(newMachine(solana.NewWallet().PublicKey(), 2))
	require.NoError(t, err)

	v := verify.NewVerifier(fakeFetcher{
		garbage: make([]byte, 800),
		short:   header,
	}, layout.Default, logger.Test(t))

	t.Run("nonexistent account", func(t *testing.T) {
		_, err := v.Verify(ctx, missing, verify.Expectation{})
		require.ErrorIs(t, err, verify.ErrAccountFetchFailed)
		require.ErrorIs(t, err, client.ErrAccountNotFound)
		assert.EqualError(t, err, fmt.Sprintf("Failed to get candy machine account data from Miraland for address: %s.", missing))

		var fetchErr *verify.AccountFetchFailedError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, missing.String(), fetchErr.Account)
	})

	t.Run("wrong discriminator", func(t *testing.T) {
		_, err := v.Verify(ctx, garbage, verify.Expectation{})
		require.ErrorIs(t, err, verify.ErrAccountFetchFailed)
		require.ErrorIs(t, err, account.ErrInvalidAccountData)
	})

	t.Run("account ends before the line count", func(t *testing.T) {
		_, err := v.Verify(ctx, short, verify.Expectation{ItemsAvailable: 2, Lines: testLines(2)})
		require.ErrorIs(t, err, verify.ErrAccountFetchFailed)
		require.ErrorIs(t, err, configline.ErrInvalidEncoding)
	})
}

func TestNewMismatch(t *testing.T) {
	key := solana.MustPublicKeyFromBase58("cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ")

	cases := []struct {
		name     string
		expected any
		found    any
		want     string
	}{
		{"number", uint64(5), uint64(7), "number mismatch (expected='5', found='7')"},
		{"string", "CANDY", "OTHER", "string mismatch (expected='CANDY', found='OTHER')"},
		{"key", key, solana.PublicKey{}, "key mismatch (expected='cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ', found='11111111111111111111111111111111')"},
		{"bool", true, false, "bool mismatch (expected='true', found='false')"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := verify.NewMismatch(tt.name, tt.expected, tt.found)
			assert.EqualError(t, err, tt.want)
			require.ErrorIs(t, err, verify.ErrMismatch)
			require.NotErrorIs(t, err, verify.ErrAccountFetchFailed)
		})
	}
}
