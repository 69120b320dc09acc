package main

import (
	"fmt"

	"github.com/adammck/sstprops/pkg/catalog"
	"github.com/adammck/sstprops/pkg/collector"
	"github.com/adammck/sstprops/pkg/compactor"
	"github.com/adammck/sstprops/pkg/config"
	"github.com/adammck/sstprops/pkg/extractor"
	"github.com/adammck/sstprops/pkg/filter"
	"github.com/adammck/sstprops/pkg/impl/blobstore/s3"
	"github.com/adammck/sstprops/pkg/logging"
	"github.com/adammck/sstprops/pkg/metadata"
	"github.com/adammck/sstprops/pkg/metrics"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds everything the subcommands share. It's populated by the root
// command's PersistentPreRunE, after flags are parsed.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg     *config.Config
	logger  *zap.Logger
	clock   clockwork.Clock
	reg     *prometheus.Registry
	metrics *metrics.CollectorMetrics
}

func newRootCmd(clock clockwork.Clock) *cobra.Command {
	a := &app{
		clock: clock,
	}

	root := &cobra.Command{
		Use:   "sstprops",
		Short: "Build and inspect sstables with TTL-aware compaction hints",
		Long: `sstprops writes sstables whose properties block records when compacting
them is expected to reclaim expired data, and reads those hints back to decide
which files are due for compaction.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write collector metrics to this file in the prometheus text format")

	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newPickCmd(a))
	root.AddCommand(newCompactCmd(a))
	root.AddCommand(newPublishCmd(a))
	root.AddCommand(newDueCmd(a))

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging.NewLogger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.reg = prometheus.NewRegistry()
	a.metrics = metrics.NewCollectorMetrics(a.reg)

	logger.Debug("configuration loaded", zap.String("path", a.configPath))
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	if a.metricsFile == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(a.metricsFile, a.reg); err != nil {
		return fmt.Errorf("prometheus.WriteToTextfile: %w", err)
	}

	return nil
}

func (a *app) extractorFactory() *extractor.TimestampedFactory {
	return extractor.NewTimestampedFactory(a.cfg.TTL.Expiry, a.clock, a.cfg.TTL.ColumnFamilies...)
}

func (a *app) ttlOptions() collector.TtlOptions {
	return collector.TtlOptions{
		ScanCap:             a.cfg.TTL.ScanCap,
		GCRatio:             a.cfg.TTL.GCRatio,
		MandatoryCompaction: a.cfg.TTL.MandatoryCompaction,
	}
}

// catalog connects to the configured bucket and metadata store. The returned
// func closes the metadata store.
func (a *app) catalog(cmd *cobra.Command) (*catalog.Catalog, func(), error) {
	ctx := cmd.Context()

	var opts []s3.Option
	if a.cfg.Catalog.Endpoint != "" {
		opts = append(opts, s3.WithEndpoint(a.cfg.Catalog.Endpoint))
	}
	if a.cfg.Catalog.Region != "" {
		opts = append(opts, s3.WithRegion(a.cfg.Catalog.Region))
	}

	bs := s3.New(a.cfg.Catalog.Bucket, opts...)
	if err := bs.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("s3 Ping: %w", err)
	}

	ms := metadata.New(a.cfg.Catalog.MongoURL)
	closer := func() {
		if err := ms.Close(ctx); err != nil {
			a.logger.Warn("failed to close metadata store", zap.Error(err))
		}
	}

	return catalog.New(bs, ms, a.clock, a.logger), closer, nil
}

// writerFactory returns a factory for writers which run the TTL collector,
// configured from the loaded config, and the key filter collector.
func (a *app) writerFactory(cf uint32) (*sstable.DefaultFactory, error) {
	tf, err := collector.NewTtlCollectorFactory(a.extractorFactory(), a.clock, a.ttlOptions(),
		collector.WithLogger(a.logger),
		collector.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("NewTtlCollectorFactory: %w", err)
	}

	return sstable.NewFactory(a.clock,
		sstable.WithCollectorFactory(tf),
		sstable.WithUserCollectorFactory(filter.CollectorFactory{}),
		sstable.WithColumnFamily(cf, ""),
		sstable.WithLogger(a.logger)), nil
}

func (a *app) picker() (*compactor.Picker, error) {
	return compactor.NewPicker(a.clock, a.cfg.Picker.CacheSize)
}
