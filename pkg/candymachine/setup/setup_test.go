package setup_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine/setup"
)

func writeKeypair(t *testing.T, dir, name string) (string, solana.PrivateKey) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path, key
}

func writeCLIConfig(t *testing.T, dir, rpcURL, keypairPath string) string {
	path := filepath.Join(dir, "config.yml")
	contents := fmt.Sprintf("json_rpc_url: %q\nkeypair_path: %q\ncommitment: confirmed\n", rpcURL, keypairPath)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func newResolver(t *testing.T, cliConfigPath, defaultKeypair string) *setup.Resolver {
	r := setup.NewResolver(logger.Test(t))
	r.CLIConfigPath = cliConfigPath
	r.DefaultKeypairPath = defaultKeypair
	return r
}

func TestResolve_ExplicitWins(t *testing.T) {
	dir := t.TempDir()
	explicitPath, explicitKey := writeKeypair(t, dir, "explicit.json")
	cliKeyPath, _ := writeKeypair(t, dir, "cli.json")
	defaultPath, _ := writeKeypair(t, dir, "default.json")
	cliConfig := writeCLIConfig(t, dir, "https://cli.example", cliKeyPath)

	cred, err := newResolver(t, cliConfig, defaultPath).Resolve(explicitPath, "https://explicit.example")
	require.NoError(t, err)

	assert.Equal(t, "https://explicit.example", cred.RPCURL)
	assert.Equal(t, "--rpc-url", cred.EndpointSource)
	assert.Equal(t, explicitPath, cred.KeypairPath)
	assert.Equal(t, "--keypair", cred.KeypairSource)
	assert.Equal(t, explicitKey, cred.Keypair)
	assert.Equal(t, explicitKey.PublicKey(), cred.Authority())
	assert.Equal(t, "wss://explicit.example", cred.WebsocketURL())
}

func TestResolve_CLIConfigFillsOmittedValues(t *testing.T) {
	dir := t.TempDir()
	cliKeyPath, cliKey := writeKeypair(t, dir, "cli.json")
	defaultPath, _ := writeKeypair(t, dir, "default.json")
	cliConfig := writeCLIConfig(t, dir, "http://127.0.0.1:8899", cliKeyPath)

	t.Run("both omitted", func(t *testing.T) {
		cred, err := newResolver(t, cliConfig, defaultPath).Resolve("", "")
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8899", cred.RPCURL)
		assert.Equal(t, "ws://127.0.0.1:8899", cred.WebsocketURL())
		assert.Equal(t, cliKey, cred.Keypair)
		assert.Equal(t, "cli config keypair_path", cred.KeypairSource)
		assert.Equal(t, "cli config json_rpc_url", cred.EndpointSource)
	})

	t.Run("only rpc omitted", func(t *testing.T) {
		explicitPath, explicitKey := writeKeypair(t, dir, "explicit.json")
		cred, err := newResolver(t, cliConfig, defaultPath).Resolve(explicitPath, "")
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8899", cred.RPCURL)
		assert.Equal(t, explicitKey, cred.Keypair)
	})
}

func TestResolve_DefaultKeypair(t *testing.T) {
	dir := t.TempDir()
	defaultPath, defaultKey := writeKeypair(t, dir, "default.json")

	cred, err := newResolver(t, filepath.Join(dir, "missing.yml"), defaultPath).Resolve("", "https://rpc.example")
	require.NoError(t, err)
	assert.Equal(t, defaultKey, cred.Keypair)
	assert.Equal(t, "default path", cred.KeypairSource)
}

func TestResolve_MissingEndpoint(t *testing.T) {
	dir := t.TempDir()
	defaultPath, _ := writeKeypair(t, dir, "default.json")

	cred, err := newResolver(t, filepath.Join(dir, "missing.yml"), defaultPath).Resolve("", "")
	require.ErrorIs(t, err, setup.ErrMissingRPCURL)
	assert.Nil(t, cred)
}

func TestResolve_SelectedKeypairFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	cliKeyPath, _ := writeKeypair(t, dir, "cli.json")
	defaultPath, _ := writeKeypair(t, dir, "default.json")
	cliConfig := writeCLIConfig(t, dir, "https://cli.example", cliKeyPath)

	t.Run("explicit path missing does not fall back", func(t *testing.T) {
		missing := filepath.Join(dir, "nope.json")
		_, err := newResolver(t, cliConfig, defaultPath).Resolve(missing, "")

		var kerr *setup.KeypairError
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, "--keypair", kerr.Source)
		assert.Equal(t, missing, kerr.Path)
		assert.ErrorContains(t, err, "failed to read keypair file from --keypair")
	})

	t.Run("cli config keypair unparsable does not fall back", func(t *testing.T) {
		garbage := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(garbage, []byte("not a keypair"), 0o600))
		cfg := writeCLIConfig(t, t.TempDir(), "https://cli.example", garbage)

		_, err := newResolver(t, cfg, defaultPath).Resolve("", "")

		var kerr *setup.KeypairError
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, "cli config keypair_path", kerr.Source)
		assert.Equal(t, garbage, kerr.Path)
	})
}

func TestResolve_UnreadableCLIConfigIsIgnored(t *testing.T) {
	dir := t.TempDir()
	defaultPath, _ := writeKeypair(t, dir, "default.json")
	cliConfig := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cliConfig, []byte("json_rpc_url: [oops"), 0o600))

	lggr, observed := logger.TestObserved(t, zapcore.WarnLevel)
	r := setup.NewResolver(lggr)
	r.CLIConfigPath = cliConfig
	r.DefaultKeypairPath = defaultPath

	_, err := r.Resolve("", "")
	require.ErrorIs(t, err, setup.ErrMissingRPCURL)
	assert.Equal(t, 1, observed.FilterMessage("Ignoring unreadable Miraland config file").Len())
}

func TestFirst(t *testing.T) {
	src, v, ok := setup.First([]setup.Source{
		setup.Explicit("a", ""),
		setup.CLIRPCURL(nil),
		setup.Default("c", "value"),
		setup.Default("d", "other"),
	})
	require.True(t, ok)
	assert.Equal(t, "c", src.Name())
	assert.Equal(t, "value", v)

	_, _, ok = setup.First(nil)
	assert.False(t, ok)
}
