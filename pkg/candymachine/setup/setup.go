// Package setup resolves the signing keypair and RPC endpoint the tool runs with.
//
// Each role walks an ordered list of sources and takes the first one that offers a value. Once a
// keypair source is chosen it must load; a bad keypair file never falls through to the next source.
package setup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mitchellh/go-homedir"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/config"
)

var (
	ErrMissingRPCURL = errors.New("no RPC URL found in Miraland config file")
	ErrNoKeypair     = errors.New("no keypair source configured")
)

// KeypairError reports the selected keypair source that failed to load.
type KeypairError struct {
	Source string
	Path   string
	Err    error
}

func (e *KeypairError) Error() string {
	return fmt.Sprintf("failed to read keypair file from %s: %s, %s", e.Source, e.Path, e.Err)
}

func (e *KeypairError) Unwrap() error {
	return e.Err
}

// Credential is created once per run and only read afterwards.
type Credential struct {
	RPCURL         string
	EndpointSource string
	KeypairPath    string
	KeypairSource  string
	Keypair        solana.PrivateKey
}

// Authority is the public key of the signing keypair.
func (c Credential) Authority() solana.PublicKey {
	return c.Keypair.PublicKey()
}

// WebsocketURL derives the pubsub endpoint from the RPC URL.
func (c Credential) WebsocketURL() string {
	return strings.Replace(c.RPCURL, "http", "ws", 1)
}

// Resolver holds the well-known paths consulted when values are not passed explicitly.
type Resolver struct {
	CLIConfigPath      string
	DefaultKeypairPath string

	lggr logger.Logger
}

func NewResolver(lggr logger.Logger) *Resolver {
	return &Resolver{
		CLIConfigPath:      config.DefaultCLIConfigPath,
		DefaultKeypairPath: candymachine.DefaultKeypath,
		lggr:               logger.Named(lggr, "Setup"),
	}
}

// Resolve builds the credential. Explicit arguments always win; the CLI config is consulted only for
// omitted values.
func (r *Resolver) Resolve(keypairPath, rpcURL string) (*Credential, error) {
	cliCfg := r.cliConfig()

	endpoint, url, ok := First([]Source{
		Explicit("--rpc-url", rpcURL),
		CLIRPCURL(cliCfg),
	})
	if !ok {
		r.lggr.Error(ErrMissingRPCURL.Error())
		return nil, ErrMissingRPCURL
	}

	keypairSource, path, ok := First([]Source{
		Explicit("--keypair", keypairPath),
		CLIKeypair(cliCfg),
		Default("default path", r.DefaultKeypairPath),
	})
	if !ok {
		return nil, ErrNoKeypair
	}

	keypair, err := readKeypair(path)
	if err != nil {
		kerr := &KeypairError{Source: keypairSource.Name(), Path: path, Err: err}
		r.lggr.Errorw("Failed to read keypair file", "source", kerr.Source, "path", path, "err", err)
		return nil, kerr
	}

	r.lggr.Debugw("Resolved credential", "rpcURL", url, "endpointSource", endpoint.Name(),
		"keypairSource", keypairSource.Name(), "authority", keypair.PublicKey())

	return &Credential{
		RPCURL:         url,
		EndpointSource: endpoint.Name(),
		KeypairPath:    path,
		KeypairSource:  keypairSource.Name(),
		Keypair:        keypair,
	}, nil
}

// cliConfig treats an unreadable CLI config like a missing one.
func (r *Resolver) cliConfig() *config.CLIConfig {
	cfg, err := config.ReadCLIConfig(r.CLIConfigPath)
	if err != nil {
		r.lggr.Warnw("Ignoring unreadable Miraland config file", "path", r.CLIConfigPath, "err", err)
		return nil
	}
	return cfg
}

func readKeypair(path string) (solana.PrivateKey, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(expanded)
	if err != nil {
		return nil, err
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("keypair must be 64 bytes, got %d", len(key))
	}
	return key, nil
}
