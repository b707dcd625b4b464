package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/config"
	"hostmon/internal/netrate"
	"hostmon/internal/window"

	"go.uber.org/zap"
)

// State состояние цикла сбора
type State int32

const (
	StateInitializing State = iota
	StateSampling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSampling:
		return "sampling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats статистика работы цикла
type Stats struct {
	State          string  `json:"state"`
	Interval       string  `json:"interval"`
	PublishEvery   int     `json:"publish_every"`
	WindowSize     int     `json:"window_size"`
	Ticks          uint64  `json:"ticks"`
	FailedTicks    uint64  `json:"failed_ticks"`
	Publishes      uint64  `json:"publishes"`
	LastTickMillis float64 `json:"last_tick_ms"`
}

// Scheduler крутит цикл сбора: семплирует метрики каждый тик, копит их в
// скользящих окнах и каждый PublishEvery-й тик публикует срез в кэш.
type Scheduler struct {
	config       *config.Config
	sampler      *collector.Sampler
	instant      *collector.Sampler
	averager     *window.Averager
	rates        *netrate.Tracker
	instantRates *netrate.Tracker
	cache        *cache.SnapshotCache
	logger       *zap.Logger
	now          func() time.Time

	// tickCount и lastSample меняются только горутиной цикла
	tickCount  int
	lastSample *collector.Sample

	state       atomic.Int32
	ticks       atomic.Uint64
	failedTicks atomic.Uint64
	publishes   atomic.Uint64
	lastTick    atomic.Int64

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option настраивает планировщик
type Option func(*Scheduler)

// WithAverager подменяет усреднитель
func WithAverager(a *window.Averager) Option {
	return func(s *Scheduler) {
		s.averager = a
	}
}

// WithRateTracker подменяет трекер сетевой скорости цикла
func WithRateTracker(t *netrate.Tracker) Option {
	return func(s *Scheduler) {
		s.rates = t
	}
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New создает новый планировщик
func New(cfg *config.Config, sampler *collector.Sampler, snapshots *cache.SnapshotCache, logger *zap.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		config:       cfg,
		sampler:      sampler,
		instant:      sampler.Fork(),
		averager:     window.New(cfg.WindowSize),
		rates:        netrate.New(),
		instantRates: netrate.New(),
		cache:        snapshots,
		logger:       logger,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start запускает цикл сбора. Повторные вызовы ничего не делают.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("Starting scheduler",
			zap.Duration("interval", s.config.Interval),
			zap.Int("publish_every", s.config.PublishEvery),
			zap.Int("window_size", s.averager.Size()))

		go s.samplingLoop()
	})
}

// Stop останавливает цикл сбора
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
}

// Wait ожидает завершения цикла сбора
func (s *Scheduler) Wait() {
	// цикл так и не запускался, ждать нечего
	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}

// State возвращает текущее состояние цикла
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// samplingLoop основной цикл сбора
func (s *Scheduler) samplingLoop() {
	defer close(s.done)
	defer s.state.Store(int32(StateStopped))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.state.Store(int32(StateSampling))

	// Выполняем первый сбор сразу
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.ctx.Done():
			s.logger.Info("Sampling loop stopped")
			return
		}
	}
}

// tick один шаг цикла. Паника внутри шага логируется и не останавливает цикл.
func (s *Scheduler) tick() {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.failedTicks.Add(1)
			s.logger.Error("Recovered from panic in sampling tick", zap.Any("panic", r))
		}
		s.lastTick.Store(int64(time.Since(start)))
	}()

	s.ticks.Add(1)

	// Семплируем вне каких-либо блокировок
	sample, err := s.sampler.Sample(s.ctx)
	if err != nil {
		s.failedTicks.Add(1)
		s.logger.Warn("Sampling tick failed", zap.Error(err))
	} else {
		for name, value := range sample.Values {
			s.averager.Add(name, value)
		}
		// Отказавшие в этом тике метрики берут абсолютные значения из прошлых
		sample.FillFrom(s.lastSample)
		s.lastSample = sample
	}

	s.tickCount = (s.tickCount + 1) % s.config.PublishEvery
	if s.tickCount != 0 {
		return
	}

	if sample == nil {
		s.logger.Warn("Skipping publish, previous snapshot stays visible")
		return
	}
	s.publish(sample)
}

// publish собирает срез из средних значений и публикует его в кэш
func (s *Scheduler) publish(sample *collector.Sample) {
	averages, ok := s.averager.Averages()
	if !ok {
		s.logger.Debug("No averages yet, skipping publish")
		return
	}

	now := s.now()
	facts := s.sampler.Facts(s.ctx, now)
	network := s.network(s.ctx, s.rates, now, facts.Interface)

	snap := collector.BuildSnapshot(sample, averages, network, facts)
	published := s.cache.Publish(snap)
	s.publishes.Add(1)

	s.logger.Debug("Snapshot published",
		zap.Uint64("sequence", published.Sequence),
		zap.Float64("cpu_percent", published.CPU.UsagePercent),
		zap.Float64("memory_percent", published.Memory.UsagePercent),
		zap.Float64("recv_per_sec", published.Network.RecvPerSec),
		zap.Time("generated_at", published.GeneratedAt))
}

// network читает счетчики и переводит их в скорость заданным трекером
func (s *Scheduler) network(ctx context.Context, tracker *netrate.Tracker, now time.Time, iface string) collector.NetworkMetrics {
	counters, err := s.sampler.Network(ctx)
	if err != nil {
		s.logger.Warn("Failed to read network counters", zap.Error(err))
		return collector.NetworkMetrics{Interface: iface}
	}

	r := tracker.Observe(counters.BytesSent, counters.BytesRecv, now)
	return collector.NewNetworkMetrics(counters, r.SentPerSec, r.RecvPerSec, iface)
}

// CachedSnapshot возвращает последний опубликованный срез.
// false означает холодный кэш, вызывающий сам выбирает запасной путь.
func (s *Scheduler) CachedSnapshot() (cache.Entry, bool) {
	return s.cache.Read()
}

// InstantSnapshot снимает метрики немедленно, минуя кэш и окна.
// Базы CPU и сети у мгновенного пути свои, цикл они не сдвигают.
// Никогда не возвращает ошибку: недоступные метрики остаются нулевыми.
func (s *Scheduler) InstantSnapshot(ctx context.Context) collector.Snapshot {
	now := s.now()

	values := map[string]float64{}
	sample, err := s.instant.Sample(ctx)
	if err != nil {
		s.logger.Warn("Instant sampling failed", zap.Error(err))
	} else {
		values = sample.Values
	}

	facts := s.instant.Facts(ctx, now)
	network := s.network(ctx, s.instantRates, now, facts.Interface)

	snap := collector.BuildSnapshot(sample, values, network, facts)
	snap.GeneratedAt = now
	return snap
}

// Stats возвращает статистику работы
func (s *Scheduler) Stats() Stats {
	return Stats{
		State:          s.State().String(),
		Interval:       s.config.Interval.String(),
		PublishEvery:   s.config.PublishEvery,
		WindowSize:     s.averager.Size(),
		Ticks:          s.ticks.Load(),
		FailedTicks:    s.failedTicks.Load(),
		Publishes:      s.publishes.Load(),
		LastTickMillis: float64(time.Duration(s.lastTick.Load())) / float64(time.Millisecond),
	}
}
