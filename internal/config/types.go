// Package config loads draftstore configuration from file, environment, and
// command-line flags.
package config

// Config is the root configuration document.
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Assets  AssetsConfig  `koanf:"assets"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// StorageConfig selects and parameterizes the table repository backend.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver string `koanf:"driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`
	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string `koanf:"postgres_dsn"`
}

// AssetsConfig selects and parameterizes the asset blob backend.
type AssetsConfig struct {
	// Driver is one of fs, memory, s3.
	Driver string `koanf:"driver"`
	// Root is the asset directory used by the fs driver.
	Root string `koanf:"root"`
	// Watch enables filesystem reindexing on external changes (fs driver).
	Watch bool     `koanf:"watch"`
	S3    S3Config `koanf:"s3"`
}

// S3Config parameterizes the s3 asset driver.
type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
}

// MetricsConfig parameterizes the metrics recorder.
type MetricsConfig struct {
	// Exporter is one of none, expvar, prometheus.
	Exporter string `koanf:"exporter"`
	// ExpvarName is the publication name used by the expvar exporter.
	ExpvarName string `koanf:"expvar_name"`
}

// ApplyDefaults fills unset fields with development-friendly values.
func (c *Config) ApplyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "draftstore.db"
	}
	if c.Assets.Driver == "" {
		c.Assets.Driver = "fs"
	}
	if c.Assets.Root == "" {
		c.Assets.Root = "./assetdata"
	}
	if c.Metrics.Exporter == "" {
		c.Metrics.Exporter = "expvar"
	}
}
