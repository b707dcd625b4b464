package zabbix

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/config"

	"go.uber.org/zap"
)

// Source источник опубликованных срезов
type Source interface {
	Read() (cache.Entry, bool)
}

// ExporterStats статистика экспорта
type ExporterStats struct {
	Address      string `json:"address"`
	Exports      uint64 `json:"exports"`
	Failures     uint64 `json:"failures"`
	LastSequence uint64 `json:"last_sequence"`
}

// Exporter периодически читает кэш и отправляет новые срезы в Zabbix.
// Один и тот же срез повторно не отправляется.
type Exporter struct {
	config *config.Config
	source Source
	sender *Sender
	logger *zap.Logger

	lastSequence atomic.Uint64
	exports      atomic.Uint64
	failures     atomic.Uint64

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewExporter создает новый экспортер
func NewExporter(cfg *config.Config, source Source, sender *Sender, logger *zap.Logger) *Exporter {
	ctx, cancel := context.WithCancel(context.Background())

	return &Exporter{
		config: cfg,
		source: source,
		sender: sender,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start запускает цикл экспорта
func (e *Exporter) Start() {
	e.startOnce.Do(func() {
		e.logger.Info("Starting Zabbix exporter",
			zap.String("address", e.sender.Address()),
			zap.String("zabbix_host", e.config.ZabbixHost),
			zap.Duration("interval", e.config.ExportInterval))

		go e.exportLoop()
	})
}

// Stop останавливает экспорт
func (e *Exporter) Stop() {
	e.logger.Info("Stopping Zabbix exporter")
	e.cancel()
}

// Wait ожидает завершения цикла экспорта
func (e *Exporter) Wait() {
	e.startOnce.Do(func() {
		close(e.done)
	})
	<-e.done
}

// exportLoop основной цикл экспорта
func (e *Exporter) exportLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.config.ExportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.ExportOnce(e.ctx); err != nil {
				e.logger.Error("Failed to export snapshot after retries", zap.Error(err))
			}
		case <-e.ctx.Done():
			e.logger.Info("Export loop stopped")
			return
		}
	}
}

// ExportOnce отправляет последний срез, если он новее уже отправленного.
// Холодный кэш не считается ошибкой.
func (e *Exporter) ExportOnce(ctx context.Context) error {
	entry, ok := e.source.Read()
	if !ok {
		e.logger.Debug("No snapshot published yet, nothing to export")
		return nil
	}

	seq := entry.Snapshot.Sequence
	if seq <= e.lastSequence.Load() {
		return nil
	}

	host := e.config.ZabbixHost
	if host == "" {
		host = entry.Snapshot.Hostname
	}

	start := time.Now()
	data := SnapshotData(host, entry.Snapshot)
	if err := e.sendWithRetry(ctx, data); err != nil {
		e.failures.Add(1)
		return err
	}

	e.lastSequence.Store(seq)
	e.exports.Add(1)

	e.logger.Info("Snapshot exported to Zabbix",
		zap.Uint64("sequence", seq),
		zap.String("host", host),
		zap.Int("items", len(data)),
		zap.Duration("send_time", time.Since(start)))

	return nil
}

// sendWithRetry отправляет данные с повторными попытками
func (e *Exporter) sendWithRetry(ctx context.Context, data []SenderData) error {
	attempts := e.config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := e.config.RetryBackoffBase

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			e.logger.Warn("Retrying snapshot export",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", attempts),
				zap.Duration("backoff", backoff))

			// Ждем с экспоненциальным back-off
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			backoff *= 2
		}

		_, err := e.sender.SendData(ctx, data)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("Snapshot exported after retry",
					zap.Int("attempts", attempt+1))
			}
			return nil
		}

		lastErr = err
		e.logger.Warn("Failed to export snapshot",
			zap.Error(err),
			zap.Int("attempt", attempt+1))
	}

	return fmt.Errorf("failed to export snapshot after %d attempts: %w", attempts, lastErr)
}

// Stats возвращает статистику экспорта
func (e *Exporter) Stats() ExporterStats {
	return ExporterStats{
		Address:      e.sender.Address(),
		Exports:      e.exports.Load(),
		Failures:     e.failures.Load(),
		LastSequence: e.lastSequence.Load(),
	}
}
