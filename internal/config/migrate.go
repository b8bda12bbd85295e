package config

import "github.com/spf13/pflag"

// MigrateConfig configures the migrate subcommands.
type MigrateConfig struct {
	Shared
}

func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return MigrateConfig{}, err
	}
	shared, err := loadShared(v)
	if err != nil {
		return MigrateConfig{}, err
	}
	return MigrateConfig{Shared: shared}, nil
}
