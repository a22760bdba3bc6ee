package hoststats

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

type Usage struct {
	Total          uint64  `json:"total"`
	Used           uint64  `json:"used"`
	Percent        float64 `json:"percent"`
	TotalFormatted string  `json:"total_formatted"`
	UsedFormatted  string  `json:"used_formatted"`
}

type Load struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

type Snapshot struct {
	Memory Usage `json:"memory"`
	CPU    Load  `json:"cpu"`
	Disk   Usage `json:"disk"`
}

// Collector reads memory and load from procfs and disk usage of DiskPath
// with statfs.
type Collector struct {
	fs       procfs.FS
	diskPath string
}

func NewCollector(mountPoint, diskPath string) (*Collector, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	pfs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("hoststats: open procfs: %w", err)
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &Collector{fs: pfs, diskPath: diskPath}, nil
}

func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	mem, err := c.fs.Meminfo()
	if err != nil {
		return nil, fmt.Errorf("hoststats: meminfo: %w", err)
	}
	load, err := c.fs.LoadAvg()
	if err != nil {
		return nil, fmt.Errorf("hoststats: loadavg: %w", err)
	}
	disk, err := DiskUsage(c.diskPath)
	if err != nil {
		return nil, err
	}

	var total, available uint64
	if mem.MemTotal != nil {
		total = *mem.MemTotal * 1024
	}
	switch {
	case mem.MemAvailable != nil:
		available = *mem.MemAvailable * 1024
	case mem.MemFree != nil:
		available = *mem.MemFree * 1024
	}

	return &Snapshot{
		Memory: NewUsage(total, total-min(available, total)),
		CPU:    Load{Load1: load.Load1, Load5: load.Load5, Load15: load.Load15},
		Disk:   disk,
	}, nil
}

func DiskUsage(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, fmt.Errorf("hoststats: statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bfree * bsize
	return NewUsage(total, total-min(free, total)), nil
}

func NewUsage(total, used uint64) Usage {
	return Usage{
		Total:          total,
		Used:           used,
		Percent:        Percent(used, total),
		TotalFormatted: humanize.IBytes(total),
		UsedFormatted:  humanize.IBytes(used),
	}
}

// Percent is rounded to one decimal place.
func Percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
