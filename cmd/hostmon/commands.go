package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/config"
	"hostmon/internal/logger"
	"hostmon/internal/scheduler"
	"hostmon/pkg/zabbix"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// versionCmd выводит версию
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hostmon %s (commit %s, %s %s/%s)\n",
			Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// snapshotCmd снимает один мгновенный срез и печатает его в JSON
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print one instant snapshot as JSON",
	Long: `Samples the host once and prints the snapshot to stdout.
CPU usage needs two readings, so the command waits --warmup before sampling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		cfg.LogLevel = "warn"
		if err := cfg.Load(cmd); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// Логи уходят в stderr, stdout остается чистым JSON
		if err := logger.Initialize(cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Cleanup()

		warmup, _ := cmd.Flags().GetDuration("warmup")

		provider := collector.NewSystemProvider()
		sampler := collector.New(provider, cfg.DiskPath, logger.Logger)
		sched := scheduler.New(cfg, sampler, cache.New(cfg.PublishInterval()), logger.Logger)

		// Первое чтение задает базы для CPU и сетевой скорости
		sched.InstantSnapshot(cmd.Context())
		time.Sleep(warmup)
		snap := sched.InstantSnapshot(cmd.Context())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

// itemsCmd печатает trapper-элементы, которые нужно создать в Zabbix
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Print Zabbix trapper items expected by the exporter as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		if err := cfg.Load(cmd); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := struct {
			Host  string              `yaml:"host,omitempty"`
			Items []zabbix.MetricItem `yaml:"items"`
		}{
			Host:  cfg.ZabbixHost,
			Items: zabbix.GetItems(cfg.DiskPath),
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode items: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	for _, cmd := range []*cobra.Command{snapshotCmd, itemsCmd} {
		cmd.Flags().String("config", "", "Path to YAML config file")
		cmd.Flags().String("disk-path", "/", "Mount point for disk usage")
	}
	snapshotCmd.Flags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	snapshotCmd.Flags().Duration("warmup", time.Second, "Delay between the baseline and the reported reading")
	itemsCmd.Flags().String("zabbix-host", "", "Host name in Zabbix")
}
