package zabbix

import (
	"strconv"

	"hostmon/internal/collector"
	"hostmon/pkg/zabbix"
)

// SnapshotData конвертирует опубликованный срез в формат Zabbix Sender.
// Все значения получают время генерации среза.
func SnapshotData(host string, snap collector.Snapshot) []SenderData {
	clock := snap.GeneratedAt.Unix()
	data := make([]SenderData, 0, 20)

	addFloat := func(key string, value float64) {
		data = append(data, SenderData{Host: host, Key: key, Value: strconv.FormatFloat(value, 'f', 2, 64), Clock: clock})
	}
	addUint := func(key string, value uint64) {
		data = append(data, SenderData{Host: host, Key: key, Value: strconv.FormatUint(value, 10), Clock: clock})
	}

	// CPU метрики
	addFloat(zabbix.KeyCPUUtil, snap.CPU.UsagePercent)
	addFloat(zabbix.KeyCPULoad1, snap.CPU.LoadAvg1)
	addFloat(zabbix.KeyCPULoad5, snap.CPU.LoadAvg5)
	addFloat(zabbix.KeyCPULoad15, snap.CPU.LoadAvg15)

	// Memory метрики
	addFloat(zabbix.KeyMemoryUtil, snap.Memory.UsagePercent)
	addUint(zabbix.KeyMemoryTotal, snap.Memory.TotalBytes)
	addUint(zabbix.KeyMemoryAvail, snap.Memory.AvailableBytes)
	addFloat(zabbix.KeySwapUtil, snap.Swap.UsagePercent)

	// Disk метрики
	if path := snap.Disk.Path; path != "" {
		addFloat(zabbix.DiskUtilKey(path), snap.Disk.UsagePercent)
		addUint(zabbix.DiskSizeKey(path, "total"), snap.Disk.TotalBytes)
		addUint(zabbix.DiskSizeKey(path, "free"), snap.Disk.FreeBytes)
	}

	// Network метрики
	addFloat(zabbix.KeyNetInRate, snap.Network.RecvPerSec)
	addFloat(zabbix.KeyNetOutRate, snap.Network.SentPerSec)
	addUint(zabbix.KeyNetInBytes, snap.Network.BytesRecv)
	addUint(zabbix.KeyNetOutBytes, snap.Network.BytesSent)
	addUint(zabbix.KeyNetInPackets, snap.Network.PacketsRecv)
	addUint(zabbix.KeyNetOutPackets, snap.Network.PacketsSent)

	addUint(zabbix.KeyUptime, snap.UptimeSeconds)
	addUint(zabbix.KeySnapshotNumber, snap.Sequence)

	return data
}
