package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
)

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateUnknown  State = "unknown"
)

// ProcessInfo describes a live game server process.
type ProcessInfo struct {
	PID    int
	Uptime time.Duration
}

// Probe finds the game server in the OS process table. It returns nil, nil
// when no process matches.
type Probe interface {
	Find(ctx context.Context) (*ProcessInfo, error)
}

type Launcher interface {
	Launch(ctx context.Context) error
}

type Terminator interface {
	Terminate(pid int) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	ConfigFile    string
	LogFile       string
	LoaderLogFile string
	SettleDelay   time.Duration
	StopTimeout   time.Duration
	PollInterval  time.Duration
	// StartGrace is how long a launched process may take to show up in the
	// process table before the launch is treated as stopped again.
	StartGrace time.Duration
}

func ConfigFromGame(g internal.GameConfig) Config {
	return Config{
		ConfigFile:    g.ConfigFile,
		LogFile:       g.LogFile,
		LoaderLogFile: g.LoaderLogFile,
		SettleDelay:   g.RestartSettleDelay,
		StopTimeout:   g.StopTimeout,
		PollInterval:  g.StopPollInterval,
		StartGrace:    g.StartGrace,
	}
}

func (c Config) withDefaults() Config {
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.StartGrace <= 0 {
		c.StartGrace = 30 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// Status is the server half of a status snapshot.
type Status struct {
	Running         bool   `json:"running"`
	PID             *int   `json:"pid"`
	Uptime          int64  `json:"uptime"`
	UptimeFormatted string `json:"uptime_formatted"`
	State           State  `json:"state"`
}

// FormatUptime renders seconds as "1d 2h 3m 4s", leaving out zero parts.
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}
