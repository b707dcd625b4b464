package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// ErrNoData означает, что источник пока не может дать значение
var ErrNoData = errors.New("no data available")

// Provider источник метрик ОС. Каждый метод может отказать независимо.
type Provider interface {
	CPUTimes(ctx context.Context) (CPUTimes, error)
	CPUInfo(ctx context.Context) (CPUInfo, error)
	LoadAvg(ctx context.Context) (LoadAvg, error)
	VirtualMemory(ctx context.Context) (MemoryMetrics, error)
	SwapMemory(ctx context.Context) (SwapMetrics, error)
	DiskUsage(ctx context.Context, path string) (DiskMetrics, error)
	NetCounters(ctx context.Context) (NetCounters, error)
	Interfaces(ctx context.Context) ([]string, error)
	Temperatures(ctx context.Context) (map[string]float64, error)
	HostInfo(ctx context.Context) (HostInfo, error)
}

// SystemProvider читает метрики через gopsutil. Состояния не хранит,
// базовые показания держат потребители.
type SystemProvider struct{}

// NewSystemProvider создает провайдер
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

// CPUTimes возвращает накопленное время CPU по всем ядрам
func (p *SystemProvider) CPUTimes(ctx context.Context) (CPUTimes, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUTimes{}, fmt.Errorf("failed to get CPU times: %w", err)
	}
	if len(times) == 0 {
		return CPUTimes{}, ErrNoData
	}
	return cpuTimes(times[0]), nil
}

// cpuTimes сводит счетчики gopsutil к занятому и полному времени.
// iowait считается простоем.
func cpuTimes(t cpu.TimesStat) CPUTimes {
	idle := t.Idle + t.Iowait
	total := t.User + t.System + t.Nice + t.Irq + t.Softirq + t.Steal + idle
	return CPUTimes{Busy: total - idle, Total: total}
}

// CPUInfo возвращает число логических ядер и частоту
func (p *SystemProvider) CPUInfo(ctx context.Context) (CPUInfo, error) {
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("failed to get CPU count: %w", err)
	}

	info := CPUInfo{Count: count}

	// Частота доступна не на всех платформах
	if stats, err := cpu.InfoWithContext(ctx); err == nil && len(stats) > 0 {
		info.FrequencyMHz = stats[0].Mhz
	}
	return info, nil
}

// LoadAvg возвращает среднюю загрузку
func (p *SystemProvider) LoadAvg(ctx context.Context) (LoadAvg, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadAvg{}, fmt.Errorf("failed to get load average: %w", err)
	}
	return LoadAvg{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}, nil
}

// VirtualMemory возвращает метрики оперативной памяти
func (p *SystemProvider) VirtualMemory(ctx context.Context) (MemoryMetrics, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryMetrics{}, fmt.Errorf("failed to get memory statistics: %w", err)
	}

	return MemoryMetrics{
		TotalBytes:     vmStat.Total,
		UsedBytes:      vmStat.Used,
		AvailableBytes: vmStat.Available,
		UsagePercent:   vmStat.UsedPercent,
	}, nil
}

// SwapMemory возвращает метрики подкачки
func (p *SystemProvider) SwapMemory(ctx context.Context) (SwapMetrics, error) {
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return SwapMetrics{}, fmt.Errorf("failed to get swap statistics: %w", err)
	}

	return SwapMetrics{
		TotalBytes:   swap.Total,
		UsedBytes:    swap.Used,
		FreeBytes:    swap.Free,
		UsagePercent: swap.UsedPercent,
	}, nil
}

// DiskUsage возвращает метрики диска для точки монтирования
func (p *SystemProvider) DiskUsage(ctx context.Context, path string) (DiskMetrics, error) {
	diskStat, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return DiskMetrics{}, fmt.Errorf("failed to get disk statistics for %s: %w", path, err)
	}

	return DiskMetrics{
		Path:         path,
		TotalBytes:   diskStat.Total,
		UsedBytes:    diskStat.Used,
		FreeBytes:    diskStat.Free,
		UsagePercent: diskStat.UsedPercent,
	}, nil
}

// NetCounters суммирует счетчики по всем интерфейсам
func (p *SystemProvider) NetCounters(ctx context.Context) (NetCounters, error) {
	netStats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, fmt.Errorf("failed to get network statistics: %w", err)
	}

	var counters NetCounters
	for _, stat := range netStats {
		counters.BytesSent += stat.BytesSent
		counters.BytesRecv += stat.BytesRecv
		counters.PacketsSent += stat.PacketsSent
		counters.PacketsRecv += stat.PacketsRecv
	}
	return counters, nil
}

// Interfaces возвращает имена сетевых интерфейсов
func (p *SystemProvider) Interfaces(ctx context.Context) ([]string, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Name)
	}
	return names, nil
}

// Temperatures возвращает первое показание каждого датчика.
// Отсутствие датчиков не ошибка: возвращается пустой набор.
func (p *SystemProvider) Temperatures(ctx context.Context) (map[string]float64, error) {
	temps := make(map[string]float64)

	stats, err := host.SensorsTemperaturesWithContext(ctx)
	// gopsutil может вернуть частичный результат вместе с предупреждениями
	if err != nil && len(stats) == 0 {
		return temps, fmt.Errorf("failed to read temperature sensors: %w", err)
	}

	for _, stat := range stats {
		name := sensorName(stat.SensorKey)
		if _, seen := temps[name]; !seen {
			temps[name] = stat.Temperature
		}
	}
	return temps, nil
}

// sensorName обрезает суффикс показания (coretemp_core_0_input -> coretemp_core_0)
func sensorName(key string) string {
	for _, suffix := range []string{"_input", "_crit", "_max"} {
		key = strings.TrimSuffix(key, suffix)
	}
	return key
}

// HostInfo возвращает имя хоста, ОС и время загрузки
func (p *SystemProvider) HostInfo(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, fmt.Errorf("failed to get host info: %w", err)
	}

	return HostInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		BootTime:      info.BootTime,
	}, nil
}
