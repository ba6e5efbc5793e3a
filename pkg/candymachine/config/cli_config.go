package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultCLIConfigPath is where the Miraland CLI keeps its settings.
const DefaultCLIConfigPath = "~/.config/miraland/cli/config.yml"

// CLIConfig is the subset of the Miraland CLI config the tool consumes.
type CLIConfig struct {
	JSONRPCURL   string `mapstructure:"json_rpc_url"`
	WebsocketURL string `mapstructure:"websocket_url"`
	KeypairPath  string `mapstructure:"keypair_path"`
	Commitment   string `mapstructure:"commitment"`
}

// ReadCLIConfig loads the CLI config at path. A missing file returns (nil, nil): the file is optional.
func ReadCLIConfig(path string) (*CLIConfig, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(expanded)
	if filepath.Ext(expanded) == "" {
		v.SetConfigType("yaml")
	}

	if err = v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cli config %s: %w", expanded, err)
	}

	var cfg CLIConfig
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode cli config %s: %w", expanded, err)
	}
	return &cfg, nil
}
