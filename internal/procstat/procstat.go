// Package procstat reports resource usage of the running server.
package procstat

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a point-in-time view of this process.
type Snapshot struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	UptimeSec  float64 `json:"uptime_sec"`
}

// Collect samples the current process. Fields the platform cannot report
// are left zero; only failing to open the process is an error.
func Collect(ctx context.Context) (Snapshot, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open process %d: %w", pid, err)
	}

	s := Snapshot{
		PID:        pid,
		Goroutines: runtime.NumGoroutine(),
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		s.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		s.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		s.Threads = n
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		s.UptimeSec = time.Since(time.UnixMilli(created)).Seconds()
	}
	return s, nil
}
