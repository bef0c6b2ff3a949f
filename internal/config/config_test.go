package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Out != "./data/records.jsonl" {
		t.Fatalf("unexpected out: %s", cfg.Out)
	}
	if cfg.Seed != "flashpool" {
		t.Fatalf("unexpected seed: %s", cfg.Seed)
	}
	if cfg.Rounds != 3 {
		t.Fatalf("unexpected rounds: %d", cfg.Rounds)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.PgDSN != "" {
		t.Fatalf("unexpected pg dsn: %s", cfg.PgDSN)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("out", "./data/records.jsonl", "")
	flags.Int("rounds", 3, "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--out", "/tmp/x.jsonl", "--rounds", "7", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Out != "/tmp/x.jsonl" {
		t.Fatalf("unexpected out: %s", cfg.Out)
	}
	if cfg.Rounds != 7 {
		t.Fatalf("unexpected rounds: %d", cfg.Rounds)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLASHPOOL_ROUNDS", "9")
	t.Setenv("FLASHPOOL_LOG_LEVEL", "warn")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rounds != 9 {
		t.Fatalf("unexpected rounds: %d", cfg.Rounds)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadRejectsNonPositiveRounds(t *testing.T) {
	t.Setenv("FLASHPOOL_ROUNDS", "0")

	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for zero rounds")
	}
}
