// Package collectortest содержит управляемый провайдер метрик для тестов.
package collectortest

import (
	"context"
	"errors"
	"sync"

	"hostmon/internal/collector"
)

// ErrSensor ошибка, которую возвращают отключенные методы
var ErrSensor = errors.New("sensor read failed")

// Provider реализует collector.Provider на заданных значениях
type Provider struct {
	mu sync.Mutex

	// CPU загрузка в процентах между соседними вызовами CPUTimes
	CPU          float64
	Info         collector.CPUInfo
	Load         collector.LoadAvg
	Memory       collector.MemoryMetrics
	Swap         collector.SwapMetrics
	Disk         collector.DiskMetrics
	Net          collector.NetCounters
	Ifaces       []string
	Temps        map[string]float64
	Host         collector.HostInfo
	cpuTimes     collector.CPUTimes
	failing      map[string]bool
	netCalls     int
	diskRequests []string
}

// New создает провайдер с правдоподобными значениями
func New() *Provider {
	return &Provider{
		CPU:    25,
		Info:   collector.CPUInfo{Count: 4, FrequencyMHz: 2400},
		Load:   collector.LoadAvg{Load1: 0.5, Load5: 0.4, Load15: 0.3},
		Memory: collector.MemoryMetrics{TotalBytes: 8 << 30, UsedBytes: 4 << 30, AvailableBytes: 4 << 30, UsagePercent: 50},
		Swap:   collector.SwapMetrics{TotalBytes: 2 << 30, UsedBytes: 1 << 29, FreeBytes: 3 << 29, UsagePercent: 25},
		Disk:   collector.DiskMetrics{TotalBytes: 100 << 30, UsedBytes: 60 << 30, FreeBytes: 40 << 30, UsagePercent: 60},
		Ifaces: []string{"lo", "docker0", "eth0"},
		Temps:  map[string]float64{"coretemp": 45},
		Host:   collector.HostInfo{Hostname: "test-host", OS: "linux", KernelVersion: "6.1.0"},
	}
}

// Fail включает или выключает отказ метода по имени
// (cpu, memory, swap, disk, net, info, load, ifaces, temps, host)
func (p *Provider) Fail(name string, fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing == nil {
		p.failing = make(map[string]bool)
	}
	p.failing[name] = fail
}

// FailAll выключает все методы
func (p *Provider) FailAll(fail bool) {
	for _, name := range []string{"cpu", "memory", "swap", "disk", "net", "info", "load", "ifaces", "temps", "host"} {
		p.Fail(name, fail)
	}
}

// Set изменяет значения под блокировкой
func (p *Provider) Set(fn func(p *Provider)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// NetCalls возвращает число вызовов NetCounters
func (p *Provider) NetCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.netCalls
}

// DiskRequests возвращает пути, запрошенные у DiskUsage
func (p *Provider) DiskRequests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.diskRequests...)
}

func (p *Provider) failed(name string) bool {
	return p.failing[name]
}

// CPUTimes каждый вызов продвигает счетчики на 100 секунд, из них CPU занятых
func (p *Provider) CPUTimes(context.Context) (collector.CPUTimes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("cpu") {
		return collector.CPUTimes{}, ErrSensor
	}
	p.cpuTimes.Busy += p.CPU
	p.cpuTimes.Total += 100
	return p.cpuTimes, nil
}

func (p *Provider) CPUInfo(context.Context) (collector.CPUInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("info") {
		return collector.CPUInfo{}, ErrSensor
	}
	return p.Info, nil
}

func (p *Provider) LoadAvg(context.Context) (collector.LoadAvg, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("load") {
		return collector.LoadAvg{}, ErrSensor
	}
	return p.Load, nil
}

func (p *Provider) VirtualMemory(context.Context) (collector.MemoryMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("memory") {
		return collector.MemoryMetrics{}, ErrSensor
	}
	return p.Memory, nil
}

func (p *Provider) SwapMemory(context.Context) (collector.SwapMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("swap") {
		return collector.SwapMetrics{}, ErrSensor
	}
	return p.Swap, nil
}

func (p *Provider) DiskUsage(_ context.Context, path string) (collector.DiskMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.diskRequests = append(p.diskRequests, path)
	if p.failed("disk") {
		return collector.DiskMetrics{}, ErrSensor
	}
	d := p.Disk
	d.Path = path
	return d, nil
}

func (p *Provider) NetCounters(context.Context) (collector.NetCounters, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.netCalls++
	if p.failed("net") {
		return collector.NetCounters{}, ErrSensor
	}
	return p.Net, nil
}

func (p *Provider) Interfaces(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("ifaces") {
		return nil, ErrSensor
	}
	return append([]string(nil), p.Ifaces...), nil
}

func (p *Provider) Temperatures(context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("temps") {
		return map[string]float64{}, ErrSensor
	}
	out := make(map[string]float64, len(p.Temps))
	for k, v := range p.Temps {
		out[k] = v
	}
	return out, nil
}

func (p *Provider) HostInfo(context.Context) (collector.HostInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed("host") {
		return collector.HostInfo{}, ErrSensor
	}
	return p.Host, nil
}

var _ collector.Provider = (*Provider)(nil)
