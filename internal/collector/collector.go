package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sampler выполняет одно мгновенное чтение метрик ОС за тик.
// База для загрузки CPU своя у каждого сэмплера.
type Sampler struct {
	provider Provider
	diskPath string
	logger   *zap.Logger
	cpu      *cpuTracker
}

// New создает новый сэмплер
func New(provider Provider, diskPath string, logger *zap.Logger) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{
		provider: provider,
		diskPath: diskPath,
		logger:   logger,
		cpu:      &cpuTracker{},
	}
}

// Fork возвращает сэмплер с тем же провайдером и собственной базой CPU
func (s *Sampler) Fork() *Sampler {
	return &Sampler{
		provider: s.provider,
		diskPath: s.diskPath,
		logger:   s.logger,
		cpu:      &cpuTracker{},
	}
}

// Sample собирает процентные метрики CPU, памяти, подкачки и диска.
// Ошибка одной метрики логируется и не прерывает сбор; ошибка
// возвращается только если не удалось прочитать ни одной метрики.
func (s *Sampler) Sample(ctx context.Context) (*Sample, error) {
	sample := &Sample{
		Timestamp: time.Now(),
		Values:    make(map[string]float64, len(Metrics)),
	}

	// Собираем метрики параллельно, каждая горутина отдает свой результат
	type result struct {
		name  string
		value float64
		apply func(*Sample)
		err   error
	}

	results := make(chan result, len(Metrics))

	// Паника в горутине не перехватывается вызывающим, поэтому ловим ее здесь
	collect := func(name string, read func() result) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- result{name: name, err: fmt.Errorf("panic while sampling: %v", r)}
				}
			}()
			res := read()
			res.name = name
			results <- res
		}()
	}

	collect(MetricCPU, func() result {
		times, err := s.provider.CPUTimes(ctx)
		if err != nil {
			return result{err: err}
		}
		pct, err := s.cpu.observe(times)
		return result{value: pct, err: err}
	})

	collect(MetricMemory, func() result {
		m, err := s.provider.VirtualMemory(ctx)
		return result{value: m.UsagePercent, err: err,
			apply: func(smp *Sample) { smp.Memory = m }}
	})

	collect(MetricSwap, func() result {
		m, err := s.provider.SwapMemory(ctx)
		return result{value: m.UsagePercent, err: err,
			apply: func(smp *Sample) { smp.Swap = m }}
	})

	collect(MetricDisk, func() result {
		m, err := s.provider.DiskUsage(ctx, s.diskPath)
		return result{value: m.UsagePercent, err: err,
			apply: func(smp *Sample) { smp.Disk = m }}
	})

	var failures []string
	for i := 0; i < len(Metrics); i++ {
		res := <-results
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.name, res.err))
			if errors.Is(res.err, ErrNoData) {
				s.logger.Debug("Metric not available yet", zap.String("metric", res.name))
			} else {
				s.logger.Warn("Failed to sample metric",
					zap.String("metric", res.name),
					zap.Error(res.err))
			}
			continue
		}
		sample.Values[res.name] = res.value
		if res.apply != nil {
			res.apply(sample)
		}
	}

	if len(sample.Values) == 0 {
		return nil, fmt.Errorf("failed to sample any metric: %s", strings.Join(failures, "; "))
	}

	return sample, nil
}

// Network читает накопительные сетевые счетчики
func (s *Sampler) Network(ctx context.Context) (NetCounters, error) {
	return s.provider.NetCounters(ctx)
}

// Facts собирает сведения о хосте. Недоступные источники оставляют нулевые
// значения, ошибка наружу не возвращается.
func (s *Sampler) Facts(ctx context.Context, now time.Time) HostFacts {
	facts := HostFacts{
		Temperatures: map[string]float64{},
		Interface:    "N/A",
	}

	if info, err := s.provider.HostInfo(ctx); err != nil {
		s.logger.Warn("Failed to get host info", zap.Error(err))
	} else {
		facts.Hostname = info.Hostname
		facts.OS = strings.TrimSpace(info.OS + " " + info.KernelVersion)
		if info.BootTime > 0 {
			boot := time.Unix(int64(info.BootTime), 0)
			if up := now.Sub(boot); up > 0 {
				facts.Uptime = up.Truncate(time.Second)
			}
		}
	}

	if cpuInfo, err := s.provider.CPUInfo(ctx); err != nil {
		s.logger.Warn("Failed to get CPU info", zap.Error(err))
	} else {
		facts.CPU = cpuInfo
	}

	if avg, err := s.provider.LoadAvg(ctx); err != nil {
		// Load average не критично, продолжаем без него
		s.logger.Debug("Failed to get load average", zap.Error(err))
	} else {
		facts.Load = avg
	}

	if temps, err := s.provider.Temperatures(ctx); err != nil {
		s.logger.Debug("Temperature sensors unavailable", zap.Error(err))
	} else if temps != nil {
		facts.Temperatures = temps
	}

	if names, err := s.provider.Interfaces(ctx); err != nil {
		s.logger.Debug("Failed to list network interfaces", zap.Error(err))
	} else {
		facts.Interface = MainInterface(names)
	}

	return facts
}

// MainInterface выбирает первый интерфейс, не являющийся loopback или docker
func MainInterface(names []string) string {
	for _, name := range names {
		if name == "lo" || strings.HasPrefix(name, "docker") {
			continue
		}
		return name
	}
	return "N/A"
}
