// Command draftstore inspects the configured persistence backends: it dumps
// tracked table snapshots and lists the assets indexed in the blob store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"draftstore/internal/assets"
	"draftstore/internal/blob"
	"draftstore/internal/config"
	"draftstore/internal/observe"
	"draftstore/internal/source"
	"draftstore/internal/storage"
	"draftstore/pkg/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "draftstore",
		Short:         "Inspect draftstore table and asset storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to config file (default "+config.FileName+")")
	pf.String("storage-driver", "", "table storage driver (memory|sqlite|postgres)")
	pf.String("sqlite-path", "", "sqlite database file")
	pf.String("postgres-dsn", "", "postgres connection string")
	pf.String("assets-driver", "", "asset storage driver (fs|memory|s3)")
	pf.String("assets-root", "", "asset directory for the fs driver")

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		return config.Load(cfgFile, cmd.Flags())
	}
	root.AddCommand(newTablesCmd(loadConfig))
	root.AddCommand(newAssetsCmd(loadConfig))
	return root
}

func newTablesCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Dump the persisted snapshot of one table bucket as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo, closeFn, err := storage.Open[string](cmd.Context(), cfg.Storage, bucket, cloneDocument)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			src := source.NewKeyValue[string](repo, domain.NewSchema(cloneDocument))
			src.SetMetricsRecorder(newRecorder(cfg.Metrics))
			if err := src.Load(cmd.Context()); err != nil {
				return err
			}
			out, err := json.MarshalIndent(src.Items(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "default", "table bucket to dump")
	return cmd
}

func newAssetsCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect the assets indexed in the configured blob store",
	}
	cmd.AddCommand(newAssetsListCmd(loadConfig))
	cmd.AddCommand(newAssetsWatchCmd(loadConfig))
	return cmd
}

func openAssetRepo(cmd *cobra.Command, cfg *config.Config) (*assets.Repository[map[string]any], error) {
	store, err := storage.OpenBlob(cmd.Context(), cfg.Assets)
	if err != nil {
		return nil, err
	}
	return assets.Open[map[string]any](cmd.Context(), store, assets.JSONCodec[map[string]any]{})
}

func printSummaries(cmd *cobra.Command, repo *assets.Repository[map[string]any]) error {
	summaries, err := repo.Summaries(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%q\t%d bytes\n", s.ID, s.Path, s.Metadata.DisplayName, s.Size)
	}
	return nil
}

func newAssetsListCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed assets; with assets.watch set, keep following changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo, err := openAssetRepo(cmd, cfg)
			if err != nil {
				return err
			}
			if err := printSummaries(cmd, repo); err != nil {
				return err
			}
			if cfg.Assets.Watch {
				return watchAssets(cmd, cfg, repo)
			}
			return nil
		},
	}
}

// newAssetsWatchCmd reindexes and reprints the listing whenever the asset
// directory changes on disk.
func newAssetsWatchCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the asset directory and relist on changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo, err := openAssetRepo(cmd, cfg)
			if err != nil {
				return err
			}
			if err := printSummaries(cmd, repo); err != nil {
				return err
			}
			return watchAssets(cmd, cfg, repo)
		},
	}
}

// watchAssets blocks until interrupted, reindexing and relisting after each
// settled burst of filesystem changes. Only the fs driver has a directory to
// watch.
func watchAssets(cmd *cobra.Command, cfg *config.Config, repo *assets.Repository[map[string]any]) error {
	if cfg.Assets.Driver != "" && cfg.Assets.Driver != string(blob.DriverFilesystem) {
		return fmt.Errorf("asset watching requires the fs driver, got %s", cfg.Assets.Driver)
	}
	w, err := assets.WatchRoot(cfg.Assets.Root, func(ctx context.Context) error {
		if err := repo.Reindex(ctx); err != nil {
			return err
		}
		return printSummaries(cmd, repo)
	}, func(err error) {
		fmt.Fprintln(cmd.ErrOrStderr(), "watch:", err)
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-cmd.Context().Done():
	}
	return nil
}

// newRecorder builds the metrics recorder named by the configuration.
// Unrecognized exporters fall back to the nop recorder.
func newRecorder(cfg config.MetricsConfig) observe.MetricsRecorder {
	switch cfg.Exporter {
	case "expvar":
		return observe.NewExpvarMetricsRecorder(cfg.ExpvarName)
	case "prometheus":
		if rec, err := observe.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer); err == nil {
			return rec
		}
	}
	return observe.NopMetricsRecorder{}
}

// cloneDocument deep-copies a generic JSON document so working copies never
// alias the stored baseline.
func cloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
