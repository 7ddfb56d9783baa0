package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the default config file name searched in the working directory.
const FileName = "draftstore.yaml"

// EnvPrefix namespaces the environment variables the loader reads.
// DRAFTSTORE_STORAGE_DRIVER maps to storage.driver, and so on.
const EnvPrefix = "DRAFTSTORE_"

// flagKeys bridges CLI flag names to config keys.
var flagKeys = map[string]string{
	"storage-driver": "storage.driver",
	"sqlite-path":    "storage.sqlite_path",
	"postgres-dsn":   "storage.postgres_dsn",
	"assets-driver":  "assets.driver",
	"assets-root":    "assets.root",
}

// Load builds the configuration by layering, lowest to highest precedence:
// defaults, the config file (when present), DRAFTSTORE_* environment
// variables, and explicitly set flags. cfgFile overrides the default file
// search; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"storage.driver":      "sqlite",
		"storage.sqlite_path": "draftstore.db",
		"assets.driver":       "fs",
		"assets.root":         "./assetdata",
		"metrics.exporter":    "expvar",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(FileName); err == nil {
			cfgFile = FileName
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// Double underscore separates sections so single underscores survive in
	// key names: DRAFTSTORE_STORAGE__SQLITE_PATH -> storage.sqlite_path.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
