package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ListenerConfig configures the log crawler.
type ListenerConfig struct {
	Shared
	ChainID           uint64
	RPCURL            string
	ContractAddresses []string
}

// LoadListener loads and validates the crawler configuration.
func LoadListener(cfgFile string, flags *pflag.FlagSet) (ListenerConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return ListenerConfig{}, err
	}
	shared, err := loadShared(v)
	if err != nil {
		return ListenerConfig{}, err
	}

	cfg := ListenerConfig{
		Shared:            shared,
		RPCURL:            strings.TrimSpace(v.GetString("rpc")),
		ContractAddresses: getStringSlice(v, "contract-addresses"),
	}

	chainID, err := parseChainID(v.GetString("chain-id"))
	if err != nil {
		return ListenerConfig{}, err
	}
	cfg.ChainID = chainID

	if cfg.RPCURL == "" {
		return ListenerConfig{}, fmt.Errorf("%w: rpc", ErrMissingValue)
	}
	if len(cfg.ContractAddresses) == 0 {
		return ListenerConfig{}, fmt.Errorf("%w: contract-addresses", ErrMissingValue)
	}

	return cfg, nil
}
