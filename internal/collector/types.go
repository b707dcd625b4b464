package collector

import (
	"maps"
	"time"
)

// Имена усредняемых метрик
const (
	MetricCPU    = "cpu"
	MetricMemory = "memory"
	MetricSwap   = "swap"
	MetricDisk   = "disk"
)

// Metrics перечисляет усредняемые метрики в порядке сбора
var Metrics = []string{MetricCPU, MetricMemory, MetricSwap, MetricDisk}

// Sample мгновенные показания одного тика
type Sample struct {
	Timestamp time.Time
	// Values процент загрузки по метрикам, прочитанным без ошибок
	Values map[string]float64
	Memory MemoryMetrics
	Swap   SwapMetrics
	Disk   DiskMetrics
}

// Has сообщает, есть ли в выборке значение метрики
func (s *Sample) Has(metric string) bool {
	_, ok := s.Values[metric]
	return ok
}

// FillFrom переносит абсолютные значения памяти, подкачки и диска из
// предыдущей выборки для метрик, которые в этой выборке не прочитались
func (s *Sample) FillFrom(prev *Sample) {
	if prev == nil {
		return
	}
	if !s.Has(MetricMemory) {
		s.Memory = prev.Memory
	}
	if !s.Has(MetricSwap) {
		s.Swap = prev.Swap
	}
	if !s.Has(MetricDisk) {
		s.Disk = prev.Disk
	}
}

// Snapshot агрегированный срез метрик системы
type Snapshot struct {
	CPU           CPUMetrics         `json:"cpu"`
	Memory        MemoryMetrics      `json:"memory"`
	Swap          SwapMetrics        `json:"swap"`
	Disk          DiskMetrics        `json:"disk"`
	Network       NetworkMetrics     `json:"network"`
	Temperatures  map[string]float64 `json:"temperature"`
	Uptime        string             `json:"uptime"`
	UptimeSeconds uint64             `json:"uptime_seconds"`
	Hostname      string             `json:"hostname"`
	OS            string             `json:"os"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Sequence      uint64             `json:"sequence"`
}

// Clone возвращает независимую копию среза
func (s Snapshot) Clone() Snapshot {
	s.Temperatures = maps.Clone(s.Temperatures)
	return s
}

// CPUMetrics содержит метрики процессора
type CPUMetrics struct {
	UsagePercent float64 `json:"percent"`
	Count        int     `json:"count"`
	FrequencyMHz float64 `json:"frequency"`
	LoadAvg1     float64 `json:"load_avg_1"`
	LoadAvg5     float64 `json:"load_avg_5"`
	LoadAvg15    float64 `json:"load_avg_15"`
}

// MemoryMetrics содержит метрики памяти
type MemoryMetrics struct {
	TotalBytes     uint64  `json:"total"`
	UsedBytes      uint64  `json:"used"`
	AvailableBytes uint64  `json:"available"`
	UsagePercent   float64 `json:"percent"`
	TotalHuman     string  `json:"total_human,omitempty"`
	UsedHuman      string  `json:"used_human,omitempty"`
	AvailableHuman string  `json:"available_human,omitempty"`
}

// SwapMetrics содержит метрики подкачки
type SwapMetrics struct {
	TotalBytes   uint64  `json:"total"`
	UsedBytes    uint64  `json:"used"`
	FreeBytes    uint64  `json:"free"`
	UsagePercent float64 `json:"percent"`
}

// DiskMetrics содержит метрики диска для точки монтирования
type DiskMetrics struct {
	Path         string  `json:"path"`
	TotalBytes   uint64  `json:"total"`
	UsedBytes    uint64  `json:"used"`
	FreeBytes    uint64  `json:"free"`
	UsagePercent float64 `json:"percent"`
	TotalHuman   string  `json:"total_human,omitempty"`
	UsedHuman    string  `json:"used_human,omitempty"`
	FreeHuman    string  `json:"free_human,omitempty"`
}

// NetCounters накопительные счетчики всех интерфейсов
type NetCounters struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
}

// NetworkMetrics содержит сетевые счетчики и скорость
type NetworkMetrics struct {
	Interface      string  `json:"interface"`
	BytesSent      uint64  `json:"bytes_sent"`
	BytesRecv      uint64  `json:"bytes_recv"`
	PacketsSent    uint64  `json:"packets_sent"`
	PacketsRecv    uint64  `json:"packets_recv"`
	SentPerSec     float64 `json:"sent_per_sec"`
	RecvPerSec     float64 `json:"recv_per_sec"`
	BytesSentHuman string  `json:"bytes_sent_human,omitempty"`
	BytesRecvHuman string  `json:"bytes_recv_human,omitempty"`
}

// CPUInfo статические характеристики процессора
type CPUInfo struct {
	Count        int
	FrequencyMHz float64
}

// LoadAvg средняя загрузка системы
type LoadAvg struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// HostInfo сведения о хосте
type HostInfo struct {
	Hostname      string
	OS            string
	Platform      string
	KernelVersion string
	BootTime      uint64
}

// HostFacts редко меняющиеся сведения, собираемые при публикации
type HostFacts struct {
	Hostname     string
	OS           string
	Uptime       time.Duration
	CPU          CPUInfo
	Load         LoadAvg
	Temperatures map[string]float64
	Interface    string
}
