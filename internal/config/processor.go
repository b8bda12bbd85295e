package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"evmlogindexer/internal/chain"
)

// ProcessorConfig configures the batch processor.
type ProcessorConfig struct {
	Shared
	// ChainID labels pools recorded by handlers.
	ChainID       uint64
	PollInterval  time.Duration
	BatchSize     int
	ArtifactsPath string
	// Contracts maps lower-cased hex addresses to contract kinds.
	Contracts map[string]string
}

// LoadProcessor loads and validates the processor configuration.
func LoadProcessor(cfgFile string, flags *pflag.FlagSet) (ProcessorConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"chain-id":       "1",
		"poll-interval":  "5s",
		"batch-size":     100,
		"artifacts-path": "./artifacts",
	})
	if err != nil {
		return ProcessorConfig{}, err
	}
	shared, err := loadShared(v)
	if err != nil {
		return ProcessorConfig{}, err
	}

	chainID, err := parseChainID(v.GetString("chain-id"))
	if err != nil {
		return ProcessorConfig{}, err
	}
	pollInterval, err := ParseInterval(v.GetString("poll-interval"))
	if err != nil {
		return ProcessorConfig{}, fmt.Errorf("poll-interval: %w", err)
	}
	contracts, err := ParseContracts(getStringSlice(v, "contracts"))
	if err != nil {
		return ProcessorConfig{}, err
	}

	cfg := ProcessorConfig{
		Shared:        shared,
		ChainID:       chainID,
		PollInterval:  pollInterval,
		BatchSize:     v.GetInt("batch-size"),
		ArtifactsPath: strings.TrimSpace(v.GetString("artifacts-path")),
		Contracts:     contracts,
	}
	if cfg.BatchSize <= 0 {
		return ProcessorConfig{}, fmt.Errorf("batch-size must be greater than zero")
	}
	if cfg.ArtifactsPath == "" {
		return ProcessorConfig{}, fmt.Errorf("%w: artifacts-path", ErrMissingValue)
	}

	return cfg, nil
}

// ParseInterval parses a duration. A bare integer is a number of seconds.
func ParseInterval(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty interval")
	}

	var interval time.Duration
	if isNumeric(input) {
		seconds, err := strconv.ParseUint(input, 10, 32)
		if err != nil {
			return 0, err
		}
		interval = time.Duration(seconds) * time.Second
	} else {
		parsed, err := time.ParseDuration(input)
		if err != nil {
			return 0, err
		}
		interval = parsed
	}

	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive: %s", input)
	}
	return interval, nil
}

// ParseContracts parses `name:address` entries into an address to contract kind mapping.
func ParseContracts(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, address, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		address = strings.TrimSpace(address)
		if !ok || name == "" || address == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidContractMapping, entry)
		}
		parsed, err := chain.ParseAddress(address)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidContractMapping, entry, err)
		}
		key := strings.ToLower(parsed.Hex())
		if existing, ok := out[key]; ok && existing != name {
			return nil, fmt.Errorf("%w: %s mapped to both %s and %s", ErrInvalidContractMapping, key, existing, name)
		}
		out[key] = name
	}
	return out, nil
}

func parseChainID(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if !isNumeric(input) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChainID, input)
	}
	id, err := strconv.ParseUint(input, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChainID, input)
	}
	return id, nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
