package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrInvalidChainID         = errors.New("invalid chain id")
	ErrInvalidContractMapping = errors.New("invalid contract mapping")
	ErrMissingValue           = errors.New("missing required value")
)

// Database holds Postgres connection settings.
type Database struct {
	DSN      string
	MaxConns int32
}

// Shared holds settings common to every subcommand.
type Shared struct {
	Database    Database
	LogLevel    string
	MetricsAddr string
}

// load merges config file, environment variables, and flags.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("pg-max-conns", 10)
	v.SetDefault("log-level", "info")
	v.SetDefault("metrics-addr", "")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func loadShared(v *viper.Viper) (Shared, error) {
	shared := Shared{
		Database: Database{
			DSN:      strings.TrimSpace(v.GetString("pg-dsn")),
			MaxConns: v.GetInt32("pg-max-conns"),
		},
		LogLevel:    v.GetString("log-level"),
		MetricsAddr: strings.TrimSpace(v.GetString("metrics-addr")),
	}
	if shared.Database.DSN == "" {
		return Shared{}, fmt.Errorf("%w: pg-dsn", ErrMissingValue)
	}
	return shared, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
