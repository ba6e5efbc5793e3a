package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/client"
	"github.com/miraland-labs/sugar/pkg/candymachine/config"
	"github.com/miraland-labs/sugar/pkg/candymachine/setup"
)

const (
	flagConfig        = "config"
	flagLogLevel      = "log-level"
	flagKeypair       = "keypair"
	flagRPCURL        = "rpc-url"
	flagCache         = "cache"
	flagCLIConfigPath = "cli-config"
)

type rootOptions struct {
	configPath    string
	logLevel      string
	keypair       string
	rpcURL        string
	cachePath     string
	cliConfigPath string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sugar",
		Short:         "Command line tool for creating and managing Metaplex candy machines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, flagConfig, "", "path to a TOML file overriding the client settings")
	pf.StringVarP(&opts.logLevel, flagLogLevel, "l", "info", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.keypair, flagKeypair, "k", "", "path to the keypair file, uses the Miraland CLI config or "+candymachine.DefaultKeypath+" when omitted")
	pf.StringVarP(&opts.rpcURL, flagRPCURL, "r", "", "RPC url, uses the Miraland CLI config when omitted")
	pf.StringVarP(&opts.cachePath, flagCache, "c", candymachine.DefaultCache, "path to the cache file")
	pf.StringVar(&opts.cliConfigPath, flagCLIConfigPath, config.DefaultCLIConfigPath, "path to the Miraland CLI config file")

	rootCmd.AddCommand(
		newLayoutCmd(),
		newVerifyCmd(opts),
		newUploadCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) logger() (logger.Logger, error) {
	level, err := zapcore.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagLogLevel, err)
	}
	return logger.NewWith(func(cfg *zap.Config) {
		cfg.Level = zap.NewAtomicLevelAt(level)
	})
}

func (o *rootOptions) clientConfig() (*config.TOMLConfig, error) {
	if o.configPath == "" {
		return config.NewDefault(), nil
	}
	return config.Load(o.configPath)
}

// connect resolves the credential and opens a connection with it.
func (o *rootOptions) connect(lggr logger.Logger) (*client.Connection, *config.TOMLConfig, error) {
	cfg, err := o.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	resolver := setup.NewResolver(lggr)
	resolver.CLIConfigPath = o.cliConfigPath

	cred, err := resolver.Resolve(o.keypair, o.rpcURL)
	if err != nil {
		return nil, nil, err
	}
	lggr.Infow("Using RPC endpoint", "url", cred.RPCURL, "source", cred.EndpointSource)
	lggr.Infow("Using keypair", "path", cred.KeypairPath, "source", cred.KeypairSource, "authority", cred.Authority())

	conn, err := client.Connect(cred, cfg, lggr)
	if err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}
