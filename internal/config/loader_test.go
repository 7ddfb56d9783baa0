package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draftstore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("expected config write to succeed, got %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "draftstore.db" {
		t.Fatalf("expected sqlite defaults, got %+v", cfg.Storage)
	}
	if cfg.Assets.Driver != "fs" || cfg.Assets.Root != "./assetdata" {
		t.Fatalf("expected fs asset defaults, got %+v", cfg.Assets)
	}
	if cfg.Metrics.Exporter != "expvar" {
		t.Fatalf("expected expvar exporter default, got %+v", cfg.Metrics)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  driver: memory
assets:
  driver: s3
  watch: true
  s3:
    bucket: drafts
    region: eu-west-1
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if !cfg.Assets.Watch || cfg.Assets.S3.Bucket != "drafts" || cfg.Assets.S3.Region != "eu-west-1" {
		t.Fatalf("expected s3 settings, got %+v", cfg.Assets)
	}
	// Unset fields still fall back.
	if cfg.Storage.SQLitePath != "draftstore.db" {
		t.Fatalf("expected default sqlite path, got %s", cfg.Storage.SQLitePath)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  driver: memory\n")
	t.Setenv("DRAFTSTORE_STORAGE__DRIVER", "postgres")
	t.Setenv("DRAFTSTORE_STORAGE__POSTGRES_DSN", "postgres://db/draft")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Fatalf("expected env to win over file, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.PostgresDSN != "postgres://db/draft" {
		t.Fatalf("expected dsn from env, got %s", cfg.Storage.PostgresDSN)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DRAFTSTORE_STORAGE__DRIVER", "postgres")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("storage-driver", "", "")
	flags.String("sqlite-path", "", "")
	if err := flags.Set("storage-driver", "memory"); err != nil {
		t.Fatalf("expected flag set to succeed, got %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected flag to win over env, got %s", cfg.Storage.Driver)
	}
	// Unchanged flags contribute nothing.
	if cfg.Storage.SQLitePath != "draftstore.db" {
		t.Fatalf("expected default sqlite path, got %s", cfg.Storage.SQLitePath)
	}
}
