// Package sysmonitor snapshots host resource usage for the admin
// monitoring endpoints. Every probe degrades gracefully: a metric the
// host platform cannot report is omitted from the snapshot rather than
// failing the whole call, since gopsutil's per-OS backends vary in what
// they can read inside a container.
package sysmonitor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/antigravity-dev/banking-platform/internal/logging"
)

var log = logging.For("sysmonitor")

// Snapshot is a point-in-time view of host resource usage.
type Snapshot struct {
	CPUPercent    float64   `json:"cpu_percent,omitempty"`
	MemUsedBytes  uint64    `json:"mem_used_bytes,omitempty"`
	MemTotalBytes uint64    `json:"mem_total_bytes,omitempty"`
	MemPercent    float64   `json:"mem_percent,omitempty"`
	SwapUsedBytes uint64    `json:"swap_used_bytes,omitempty"`
	DiskUsedBytes uint64    `json:"disk_used_bytes,omitempty"`
	DiskTotalBytes uint64   `json:"disk_total_bytes,omitempty"`
	DiskPercent   float64   `json:"disk_percent,omitempty"`
	NetBytesSent  uint64    `json:"net_bytes_sent,omitempty"`
	NetBytesRecv  uint64    `json:"net_bytes_recv,omitempty"`
	BootTime      time.Time `json:"boot_time,omitempty"`
	Uptime        string    `json:"uptime,omitempty"`
}

// Capture gathers a Snapshot across CPU, memory, swap, disk (rooted at
// diskPath), and network counters. Each probe's failure is logged and
// leaves the corresponding field zero rather than aborting the whole call.
func Capture(ctx context.Context, diskPath string) Snapshot {
	var snap Snapshot

	if pct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err != nil {
		log.Warnf("cpu probe failed: %v", err)
	} else if len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Warnf("memory probe failed: %v", err)
	} else {
		snap.MemUsedBytes = vm.Used
		snap.MemTotalBytes = vm.Total
		snap.MemPercent = vm.UsedPercent
	}

	if sw, err := mem.SwapMemoryWithContext(ctx); err != nil {
		log.Warnf("swap probe failed: %v", err)
	} else {
		snap.SwapUsedBytes = sw.Used
	}

	if diskPath == "" {
		diskPath = "/"
	}
	if du, err := disk.UsageWithContext(ctx, diskPath); err != nil {
		log.Warnf("disk probe failed: %v", err)
	} else {
		snap.DiskUsedBytes = du.Used
		snap.DiskTotalBytes = du.Total
		snap.DiskPercent = du.UsedPercent
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err != nil {
		log.Warnf("network probe failed: %v", err)
	} else if len(counters) > 0 {
		snap.NetBytesSent = counters[0].BytesSent
		snap.NetBytesRecv = counters[0].BytesRecv
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		log.Warnf("host probe failed: %v", err)
	} else {
		snap.BootTime = time.Unix(int64(info.BootTime), 0).UTC()
		snap.Uptime = (time.Duration(info.Uptime) * time.Second).String()
	}

	return snap
}
