package system

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats is a snapshot of the machine an export ran on.
type HostStats struct {
	Platform       string
	CPUs           int
	MemTotal       uint64
	MemUsedPercent float64
	ProcessRSS     uint64
	Goroutines     int
}

// Host collects host statistics. Fields gopsutil cannot read on this
// platform stay zero.
func Host(ctx context.Context) HostStats {
	s := HostStats{
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Goroutines: runtime.NumGoroutine(),
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		s.Platform = fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.CPUs = n
	} else {
		s.CPUs = runtime.NumCPU()
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemTotal = vm.Total
		s.MemUsedPercent = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			s.ProcessRSS = mi.RSS
		}
	}
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("%s | CPU: %d | RAM: %.1f GB (%.0f%% занято) | RSS: %.0f MB",
		s.Platform, s.CPUs, float64(s.MemTotal)/(1<<30), s.MemUsedPercent, float64(s.ProcessRSS)/(1<<20))
}
