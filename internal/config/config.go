package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Out      string
	PgDSN    string
	Seed     string
	Rounds   int
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLASHPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/records.jsonl")
	v.SetDefault("seed", "flashpool")
	v.SetDefault("rounds", 3)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Out:      v.GetString("out"),
		PgDSN:    v.GetString("pg-dsn"),
		Seed:     v.GetString("seed"),
		Rounds:   v.GetInt("rounds"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Rounds <= 0 {
		return Config{}, fmt.Errorf("rounds must be positive, got %d", cfg.Rounds)
	}

	return cfg, nil
}
