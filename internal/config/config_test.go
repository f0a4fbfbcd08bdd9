package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func serveFlags() *pflag.FlagSet {
	fs := NewFlagSet("test")
	AddServeFlags(fs)
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(serveFlags(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "requisitions.sqlite3" {
		t.Errorf("expected default db, got %q", cfg.DB)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h ttl, got %v", cfg.TokenTTL)
	}
	if cfg.LoginRatePerMin != 10 {
		t.Errorf("expected 10 logins/min, got %d", cfg.LoginRatePerMin)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("expected redis off by default, got %q", cfg.Redis.Addr)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `db: from-file.sqlite3
addr: ":7000"
token_ttl: 2h
redis:
  addr: file:6379
  channel: file-channel
`
	if err := os.WriteFile(filepath.Join(dir, "requisitions.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REQUISITIONS_ADDR", ":7100")
	t.Setenv("REQUISITIONS_REDIS_ADDR", "env:6379")

	cfg, err := Load(serveFlags(), []string{"--redis-addr", "flag:6379", "-d", "flag.sqlite3"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB != "flag.sqlite3" {
		t.Errorf("flag should win over file, got %q", cfg.DB)
	}
	if cfg.Addr != ":7100" {
		t.Errorf("env should win over file, got %q", cfg.Addr)
	}
	if cfg.Redis.Addr != "flag:6379" {
		t.Errorf("flag should win over env, got %q", cfg.Redis.Addr)
	}
	if cfg.Redis.Channel != "file-channel" {
		t.Errorf("file should win over default, got %q", cfg.Redis.Channel)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h from file, got %v", cfg.TokenTTL)
	}
}

func TestLoadExplicitConfigMustExist(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(serveFlags(), []string{"--config", "missing.yaml"})
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(serveFlags(), []string{"--login-rate", "0"})
	if err == nil {
		t.Error("expected error for zero login rate")
	}
}

func TestLoadHelp(t *testing.T) {
	fs := serveFlags()
	fs.SetOutput(io.Discard)

	_, err := Load(fs, []string{"-h"})
	if !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
}

func TestSharedFlagsOnly(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewFlagSet("useradd"), []string{"--db", "other.sqlite3"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "other.sqlite3" {
		t.Errorf("expected other.sqlite3, got %q", cfg.DB)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr without serve flags, got %q", cfg.Addr)
	}
}
