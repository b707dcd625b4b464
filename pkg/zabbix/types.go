package zabbix

import "fmt"

// Типы значений элементов данных Zabbix
const (
	ValueFloat    = 0
	ValueUnsigned = 3
)

// Ключи trapper-элементов, в которые hostmon отправляет срезы
const (
	KeyCPUUtil        = "system.cpu.util"
	KeyCPULoad1       = "system.cpu.load[all,avg1]"
	KeyCPULoad5       = "system.cpu.load[all,avg5]"
	KeyCPULoad15      = "system.cpu.load[all,avg15]"
	KeyMemoryUtil     = "vm.memory.util"
	KeyMemoryTotal    = "vm.memory.size[total]"
	KeyMemoryAvail    = "vm.memory.size[available]"
	KeySwapUtil       = "system.swap.size[,pused]"
	KeyNetInRate      = "net.if.in.rate[all]"
	KeyNetOutRate     = "net.if.out.rate[all]"
	KeyNetInBytes     = "net.if.in[all]"
	KeyNetOutBytes    = "net.if.out[all]"
	KeyNetInPackets   = "net.if.in[all,packets]"
	KeyNetOutPackets  = "net.if.out[all,packets]"
	KeyUptime         = "system.uptime"
	KeySnapshotNumber = "hostmon.snapshot.sequence"
)

// DiskUtilKey ключ процента занятого места для точки монтирования
func DiskUtilKey(path string) string {
	return fmt.Sprintf("vfs.fs.pused[%s]", path)
}

// DiskSizeKey ключ размера файловой системы (mode: total, used, free)
func DiskSizeKey(path, mode string) string {
	return fmt.Sprintf("vfs.fs.size[%s,%s]", path, mode)
}

// MetricItem описание trapper-элемента для настройки на стороне Zabbix
type MetricItem struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	ValueType   int    `yaml:"value_type"`
	Units       string `yaml:"units,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// GetItems возвращает список элементов, которые нужно создать в Zabbix
// (тип "Zabbix trapper") для приема срезов hostmon
func GetItems(diskPath string) []MetricItem {
	return []MetricItem{
		// CPU метрики
		{Key: KeyCPUUtil, Name: "CPU utilization (window average)", ValueType: ValueFloat, Units: "%",
			Description: "CPU usage averaged over the sampling window"},
		{Key: KeyCPULoad1, Name: "Load average (1m)", ValueType: ValueFloat},
		{Key: KeyCPULoad5, Name: "Load average (5m)", ValueType: ValueFloat},
		{Key: KeyCPULoad15, Name: "Load average (15m)", ValueType: ValueFloat},

		// Memory метрики
		{Key: KeyMemoryUtil, Name: "Memory utilization (window average)", ValueType: ValueFloat, Units: "%"},
		{Key: KeyMemoryTotal, Name: "Total memory", ValueType: ValueUnsigned, Units: "B"},
		{Key: KeyMemoryAvail, Name: "Available memory", ValueType: ValueUnsigned, Units: "B"},
		{Key: KeySwapUtil, Name: "Swap utilization (window average)", ValueType: ValueFloat, Units: "%"},

		// Disk метрики
		{Key: DiskUtilKey(diskPath), Name: fmt.Sprintf("Space utilization on %s (window average)", diskPath), ValueType: ValueFloat, Units: "%"},
		{Key: DiskSizeKey(diskPath, "total"), Name: fmt.Sprintf("Total space on %s", diskPath), ValueType: ValueUnsigned, Units: "B"},
		{Key: DiskSizeKey(diskPath, "free"), Name: fmt.Sprintf("Free space on %s", diskPath), ValueType: ValueUnsigned, Units: "B"},

		// Network метрики
		{Key: KeyNetInRate, Name: "Incoming traffic rate on all interfaces", ValueType: ValueFloat, Units: "Bps"},
		{Key: KeyNetOutRate, Name: "Outgoing traffic rate on all interfaces", ValueType: ValueFloat, Units: "Bps"},
		{Key: KeyNetInBytes, Name: "Bytes received on all interfaces", ValueType: ValueUnsigned, Units: "B"},
		{Key: KeyNetOutBytes, Name: "Bytes sent on all interfaces", ValueType: ValueUnsigned, Units: "B"},
		{Key: KeyNetInPackets, Name: "Packets received on all interfaces", ValueType: ValueUnsigned},
		{Key: KeyNetOutPackets, Name: "Packets sent on all interfaces", ValueType: ValueUnsigned},

		// Прочее
		{Key: KeyUptime, Name: "System uptime", ValueType: ValueUnsigned, Units: "uptime"},
		{Key: KeySnapshotNumber, Name: "hostmon snapshot sequence", ValueType: ValueUnsigned,
			Description: "Monotonic snapshot counter, gaps mean skipped exports"},
	}
}
