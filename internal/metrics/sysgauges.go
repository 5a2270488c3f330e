package metrics

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/schema"
)

// systemGaugeNames are refreshed by the visitor callback, not by any
// node, per spec §4.8.
const (
	GaugeCPUPercent    = "cpu_percent"
	GaugeMemUsedBytes  = "mem_used_bytes"
	GaugeDiskTotal     = "disk_total_bytes"
	GaugeDiskFree      = "disk_free_bytes"
	GaugeUptimeSeconds = "uptime_seconds"
	GaugeCoreDumped    = "core_dumped"
)

// SysGaugeCollector refreshes the registry's system-level gauges from
// /proc and syscalls. CPU percent is double-sampled 50ms apart (spec
// §4.8); memory comes from /proc/meminfo and disk from statfs; core-dump presence
// is a directory scan of coreDumpDir.
type SysGaugeCollector struct {
	registry   *Registry
	diskPath   string
	coreDumpDir string
}

// NewSysGaugeCollector registers the six system gauges against registry
// and returns a collector ready for periodic Refresh calls. diskPath is
// the filesystem to report disk_total/free_bytes for (e.g. "/"); an
// empty coreDumpDir disables the core-dump scan.
func NewSysGaugeCollector(registry *Registry, diskPath, coreDumpDir string) *SysGaugeCollector {
	for _, name := range []string{GaugeCPUPercent, GaugeMemUsedBytes, GaugeDiskTotal, GaugeDiskFree, GaugeUptimeSeconds, GaugeCoreDumped} {
		registry.Register(name, name+" (system gauge)", schema.MetricGauge, 0)
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &SysGaugeCollector{registry: registry, diskPath: diskPath, coreDumpDir: coreDumpDir}
}

// Refresh samples every system gauge and updates the registry entries in
// place. Intended to be called periodically (e.g. from housekeeping),
// not per node.
func (s *SysGaugeCollector) Refresh() {
	if pct, err := cpuPercent(); err != nil {
		cclog.Warnf("[METRICS]> cpu sample failed: %v", err)
	} else {
		s.set(GaugeCPUPercent, pct)
	}
	if used, err := memUsedBytes(); err != nil {
		cclog.Warnf("[METRICS]> mem sample failed: %v", err)
	} else {
		s.set(GaugeMemUsedBytes, float64(used))
	}
	if total, free, err := diskStats(s.diskPath); err != nil {
		cclog.Warnf("[METRICS]> disk sample failed: %v", err)
	} else {
		s.set(GaugeDiskTotal, float64(total))
		s.set(GaugeDiskFree, float64(free))
	}
	if up, err := uptimeSeconds(); err != nil {
		cclog.Warnf("[METRICS]> uptime sample failed: %v", err)
	} else {
		s.set(GaugeUptimeSeconds, up)
	}
	s.set(GaugeCoreDumped, boolToFloat(s.coreDumped()))
}

func (s *SysGaugeCollector) set(name string, v float64) {
	e := s.registry.Get(name)
	if e == nil {
		return
	}
	e.Current = v
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// cpuPercent double-samples /proc/stat's aggregate "cpu" line 50ms apart
// and returns the fraction of non-idle ticks over that interval.
func cpuPercent() (float64, error) {
	a, err := readCPUTicks()
	if err != nil {
		return 0, err
	}
	time.Sleep(50 * time.Millisecond)
	b, err := readCPUTicks()
	if err != nil {
		return 0, err
	}
	totalDelta := b.total() - a.total()
	if totalDelta <= 0 {
		return 0, nil
	}
	idleDelta := b.idle - a.idle
	return (float64(totalDelta-idleDelta) / float64(totalDelta)) * 100, nil
}

type cpuTicks struct {
	user, nice, system, idle, iowait, irq, softirq, steal int64
}

func (c cpuTicks) total() int64 {
	return c.user + c.nice + c.system + c.idle + c.iowait + c.irq + c.softirq + c.steal
}

func readCPUTicks() (cpuTicks, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuTicks{}, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 || fields[0] != "cpu" {
			continue
		}
		vals := make([]int64, 8)
		for i := 1; i < 8 && i < len(fields); i++ {
			vals[i-1], _ = strconv.ParseInt(fields[i], 10, 64)
		}
		return cpuTicks{user: vals[0], nice: vals[1], system: vals[2], idle: vals[3], iowait: vals[4], irq: vals[5], softirq: vals[6], steal: vals[7]}, nil
	}
	return cpuTicks{}, scanner.Err()
}

func memUsedBytes() (int64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var total, available int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, _ := strconv.ParseInt(fields[1], 10, 64)
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			total = kb
		case "MemAvailable":
			available = kb
		}
	}
	return (total - available) * 1024, scanner.Err()
}

func diskStats(path string) (total, free uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	return stat.Blocks * uint64(stat.Bsize), stat.Bavail * uint64(stat.Bsize), nil
}

func uptimeSeconds() (float64, error) {
	f, err := os.Open("/proc/uptime")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, scanner.Err()
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0, nil
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v, nil
}

// coreDumped reports whether coreDumpDir (if configured) contains any
// file, treated as evidence a process under this broker core-dumped.
func (s *SysGaugeCollector) coreDumped() bool {
	if s.coreDumpDir == "" {
		return false
	}
	entries, err := os.ReadDir(s.coreDumpDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(filepath.Base(e.Name()), "core") {
			return true
		}
	}
	return false
}
