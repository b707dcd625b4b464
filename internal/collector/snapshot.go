package collector

import (
	"fmt"
	"time"
)

// BuildSnapshot собирает срез из усредненных процентов, последних
// абсолютных значений выборки, сетевых метрик и сведений о хосте.
// Метрики без среднего остаются нулевыми.
func BuildSnapshot(sample *Sample, averages map[string]float64, network NetworkMetrics, facts HostFacts) Snapshot {
	snap := Snapshot{
		CPU: CPUMetrics{
			UsagePercent: averages[MetricCPU],
			Count:        facts.CPU.Count,
			FrequencyMHz: facts.CPU.FrequencyMHz,
			LoadAvg1:     facts.Load.Load1,
			LoadAvg5:     facts.Load.Load5,
			LoadAvg15:    facts.Load.Load15,
		},
		Network:       network,
		Temperatures:  facts.Temperatures,
		Uptime:        FormatUptime(facts.Uptime),
		UptimeSeconds: uint64(facts.Uptime / time.Second),
		Hostname:      facts.Hostname,
		OS:            facts.OS,
	}

	if sample != nil {
		snap.Memory = sample.Memory
		snap.Swap = sample.Swap
		snap.Disk = sample.Disk
	}
	snap.Memory.UsagePercent = averages[MetricMemory]
	snap.Swap.UsagePercent = averages[MetricSwap]
	snap.Disk.UsagePercent = averages[MetricDisk]

	snap.Memory.TotalHuman = FormatBytes(snap.Memory.TotalBytes)
	snap.Memory.UsedHuman = FormatBytes(snap.Memory.UsedBytes)
	snap.Memory.AvailableHuman = FormatBytes(snap.Memory.AvailableBytes)
	snap.Disk.TotalHuman = FormatBytes(snap.Disk.TotalBytes)
	snap.Disk.UsedHuman = FormatBytes(snap.Disk.UsedBytes)
	snap.Disk.FreeHuman = FormatBytes(snap.Disk.FreeBytes)

	if snap.Temperatures == nil {
		snap.Temperatures = map[string]float64{}
	}
	return snap
}

// NewNetworkMetrics объединяет счетчики, скорость и основной интерфейс
func NewNetworkMetrics(counters NetCounters, sentPerSec, recvPerSec float64, iface string) NetworkMetrics {
	return NetworkMetrics{
		Interface:      iface,
		BytesSent:      counters.BytesSent,
		BytesRecv:      counters.BytesRecv,
		PacketsSent:    counters.PacketsSent,
		PacketsRecv:    counters.PacketsRecv,
		SentPerSec:     sentPerSec,
		RecvPerSec:     recvPerSec,
		BytesSentHuman: FormatBytes(counters.BytesSent),
		BytesRecvHuman: FormatBytes(counters.BytesRecv),
	}
}

// FormatBytes переводит байты в читаемый вид с основанием 1024 (1.50GB)
func FormatBytes(b uint64) string {
	const factor = 1024
	units := []string{"", "K", "M", "G", "T", "P"}

	value := float64(b)
	for _, unit := range units {
		if value < factor {
			return fmt.Sprintf("%.2f%sB", value, unit)
		}
		value /= factor
	}
	return fmt.Sprintf("%.2fEB", value)
}

// FormatUptime форматирует время работы как "2 days, 3:04:05"
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	rest := total % 86400
	clock := fmt.Sprintf("%d:%02d:%02d", rest/3600, rest%3600/60, rest%60)

	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
