package setup

import (
	"github.com/miraland-labs/sugar/pkg/candymachine/config"
)

// Source offers a value for one credential role. Lookup reports false when the source has nothing to
// say, which moves resolution on to the next source.
type Source interface {
	Name() string
	Lookup() (string, bool)
}

type explicitSource struct {
	name  string
	value string
}

func (s explicitSource) Name() string { return s.name }

func (s explicitSource) Lookup() (string, bool) {
	return s.value, s.value != ""
}

// Explicit is a value passed on the command line; empty means omitted.
func Explicit(name, value string) Source {
	return explicitSource{name: name, value: value}
}

// Default always offers value.
func Default(name, value string) Source {
	return explicitSource{name: name, value: value}
}

type cliConfigSource struct {
	name string
	cfg  *config.CLIConfig
	get  func(*config.CLIConfig) string
}

func (s cliConfigSource) Name() string { return s.name }

func (s cliConfigSource) Lookup() (string, bool) {
	if s.cfg == nil {
		return "", false
	}
	v := s.get(s.cfg)
	return v, v != ""
}

// CLIKeypair offers the keypair path recorded in the CLI config, if one was found.
func CLIKeypair(cfg *config.CLIConfig) Source {
	return cliConfigSource{name: "cli config keypair_path", cfg: cfg, get: func(c *config.CLIConfig) string { return c.KeypairPath }}
}

// CLIRPCURL offers the RPC URL recorded in the CLI config, if one was found.
func CLIRPCURL(cfg *config.CLIConfig) Source {
	return cliConfigSource{name: "cli config json_rpc_url", cfg: cfg, get: func(c *config.CLIConfig) string { return c.JSONRPCURL }}
}

// First returns the first source in order that offers a value.
func First(sources []Source) (Source, string, bool) {
	for _, s := range sources {
		if v, ok := s.Lookup(); ok {
			return s, v, true
		}
	}
	return nil, "", false
}
