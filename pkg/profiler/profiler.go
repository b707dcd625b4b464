package profiler

import (
	"fmt"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config представляет конфигурацию профилировщика
type Config struct {
	Enable      bool   // включить профилирование
	CPUProfile  string // путь к файлу CPU профиля
	MemProfile  string // путь к файлу профиля памяти
	ProfileTime int    // время записи CPU профиля в секундах
}

// Profiler управляет профилированием приложения
type Profiler struct {
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	cpuFile  *os.File
	cpuTimer *time.Timer
}

// RuntimeStats сводка по памяти и горутинам процесса
type RuntimeStats struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
}

// New создает новый профилировщик
func New(config Config, logger *zap.Logger) *Profiler {
	return &Profiler{
		config: config,
		logger: logger,
	}
}

// Enabled включено ли профилирование
func (p *Profiler) Enabled() bool {
	return p.config.Enable
}

// Start запускает запись CPU профиля в файл, если он задан
func (p *Profiler) Start() error {
	if !p.config.Enable {
		p.logger.Info("Profiling disabled")
		return nil
	}

	p.logger.Info("Starting profiler",
		zap.String("cpu_profile", p.config.CPUProfile),
		zap.String("mem_profile", p.config.MemProfile))

	if p.config.CPUProfile != "" {
		if err := p.startCPUProfile(); err != nil {
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
	}

	return nil
}

// Stop останавливает профилирование и сохраняет профиль памяти
func (p *Profiler) Stop() error {
	if !p.config.Enable {
		return nil
	}

	var errs []error

	if err := p.stopCPUProfile(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop CPU profiling: %w", err))
	}

	if p.config.MemProfile != "" {
		if err := p.writeMemProfile(); err != nil {
			errs = append(errs, fmt.Errorf("failed to write memory profile: %w", err))
		}
	}

	p.LogMemStats()

	if len(errs) > 0 {
		return fmt.Errorf("profiler shutdown errors: %v", errs)
	}

	p.logger.Info("Profiler stopped")
	return nil
}

// Mount регистрирует pprof endpoints на переданном мультиплексоре.
// При выключенном профилировании ничего не делает.
func (p *Profiler) Mount(mux *http.ServeMux) {
	if !p.config.Enable {
		return
	}

	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)

	p.logger.Info("pprof endpoints mounted", zap.String("path", "/debug/pprof/"))
}

// startCPUProfile начинает CPU профилирование в файл
func (p *Profiler) startCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := os.Create(p.config.CPUProfile)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}

	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to start CPU profiling: %w", err)
	}
	p.cpuFile = file

	p.logger.Info("Started CPU profiling", zap.String("file", p.config.CPUProfile))

	// Автоматически останавливаем через заданное время
	if p.config.ProfileTime > 0 {
		p.cpuTimer = time.AfterFunc(time.Duration(p.config.ProfileTime)*time.Second, func() {
			if err := p.stopCPUProfile(); err != nil {
				p.logger.Error("Failed to stop CPU profiling", zap.Error(err))
			}
		})
	}

	return nil
}

// stopCPUProfile останавливает CPU профилирование
func (p *Profiler) stopCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cpuTimer != nil {
		p.cpuTimer.Stop()
		p.cpuTimer = nil
	}
	if p.cpuFile == nil {
		return nil
	}

	pprof.StopCPUProfile()

	file := p.cpuFile
	p.cpuFile = nil
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CPU profile file: %w", err)
	}

	p.logger.Info("Stopped CPU profiling", zap.String("file", p.config.CPUProfile))
	return nil
}

// writeMemProfile записывает профиль памяти в файл
func (p *Profiler) writeMemProfile() error {
	file, err := os.Create(p.config.MemProfile)
	if err != nil {
		return fmt.Errorf("failed to create memory profile file: %w", err)
	}
	defer file.Close()

	// Принудительно запускаем GC для точного профиля памяти
	runtime.GC()

	if err := pprof.WriteHeapProfile(file); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	p.logger.Info("Written memory profile", zap.String("file", p.config.MemProfile))
	return nil
}

// Stats возвращает статистику памяти процесса
func (p *Profiler) Stats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
	}
}

// LogMemStats логирует статистику памяти
func (p *Profiler) LogMemStats() {
	s := p.Stats()
	p.logger.Info("Memory statistics",
		zap.Uint64("alloc_mb", s.AllocMB),
		zap.Uint64("total_alloc_mb", s.TotalAllocMB),
		zap.Uint64("sys_mb", s.SysMB),
		zap.Uint32("num_gc", s.NumGC),
		zap.Int("goroutines", s.Goroutines),
	)
}
