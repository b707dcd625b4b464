package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"hostmon/internal/api"
	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/config"
	"hostmon/internal/logger"
	"hostmon/internal/scheduler"
	"hostmon/internal/zabbix"
	"hostmon/pkg/profiler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version задается при сборке
	Version = "dev"
	// Commit задается при сборке
	Commit = "none"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "hostmon",
	Short: "Host metrics sampler with a cached HTTP API",
	Long: `hostmon samples CPU, memory, swap, disk, network and sensor metrics,
averages them over a sliding window and serves the latest snapshot over HTTP.
Snapshots can optionally be pushed to Zabbix trapper items.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	config.AddFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(itemsCmd)
}

// run запускает сервис до получения SIGINT/SIGTERM
func run(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Cleanup()
	log := logger.Logger

	log.Info("Starting hostmon",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.Duration("interval", cfg.Interval),
		zap.Duration("publish_interval", cfg.PublishInterval()),
		zap.String("listen", cfg.ListenAddr))

	prof := profiler.New(profiler.Config{
		Enable:      cfg.ProfileEnable,
		CPUProfile:  cfg.ProfileCPUFile,
		MemProfile:  cfg.ProfileMemFile,
		ProfileTime: cfg.ProfileTime,
	}, logger.Named("profiler"))
	if err := prof.Start(); err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	defer func() {
		if err := prof.Stop(); err != nil {
			log.Error("Failed to stop profiler", zap.Error(err))
		}
	}()

	sampler := collector.New(collector.NewSystemProvider(), cfg.DiskPath, logger.Named("collector"))
	snapshots := cache.New(cfg.PublishInterval())
	sched := scheduler.New(cfg, sampler, snapshots, logger.Named("scheduler"))

	opts := []api.Option{api.WithProfiler(prof)}

	var exporter *zabbix.Exporter
	if cfg.ZabbixEnable {
		zlog := logger.Named("zabbix")
		sender := zabbix.NewSender(cfg.ZabbixServer, cfg.ZabbixPort, cfg.HTTPTimeout, zlog)
		exporter = zabbix.NewExporter(cfg, snapshots, sender, zlog)
		opts = append(opts, api.WithExporter(exporter))
	}

	server := api.New(cfg, sched, logger.Named("api"), opts...)
	if err := server.Start(); err != nil {
		return err
	}

	sched.Start()
	if exporter != nil {
		exporter.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if exporter != nil {
		exporter.Stop()
		exporter.Wait()
	}
	sched.Stop()
	sched.Wait()

	log.Info("hostmon stopped", zap.Any("stats", sched.Stats()))
	return nil
}
