package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcProbe matches the launch signature against every command line in
// /proc.
type ProcProbe struct {
	fs        procfs.FS
	signature *regexp.Regexp
	self      int
}

func NewProcProbe(mountPoint, signature string) (*ProcProbe, error) {
	re, err := regexp.Compile(signature)
	if err != nil {
		return nil, fmt.Errorf("supervisor: bad process signature: %w", err)
	}
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	pfs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("supervisor: open procfs: %w", err)
	}
	return &ProcProbe{fs: pfs, signature: re, self: os.Getpid()}, nil
}

// Find returns the oldest matching process, so a launcher shell wrapping the
// game does not shadow the game itself.
func (p *ProcProbe) Find(ctx context.Context) (*ProcessInfo, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, err
	}

	type match struct {
		pid   int
		start float64
	}
	var matches []match
	for _, proc := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if proc.PID == p.self {
			continue
		}
		// processes can exit between listing and reading
		cmdline, err := proc.CmdLine()
		if err != nil || len(cmdline) == 0 {
			continue
		}
		if !p.signature.MatchString(strings.Join(cmdline, " ")) {
			continue
		}
		stat, err := proc.Stat()
		if err != nil {
			continue
		}
		if stat.State == "Z" {
			continue
		}
		start, err := stat.StartTime()
		if err != nil {
			continue
		}
		matches = append(matches, match{pid: proc.PID, start: start})
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })
	started := time.Unix(0, int64(matches[0].start*float64(time.Second)))
	uptime := time.Since(started)
	if uptime < 0 {
		uptime = 0
	}
	return &ProcessInfo{PID: matches[0].pid, Uptime: uptime}, nil
}

// ExecLauncher starts the game detached from the admin process with its
// output redirected to the game log.
type ExecLauncher struct {
	Dir     string
	Command string
	Args    []string
	Env     []string
	LogFile string
	Logger  *slog.Logger
}

func (l *ExecLauncher) Launch(ctx context.Context) error {
	if l.Command == "" {
		return errors.New("supervisor: no launch command configured")
	}

	var out *os.File
	if l.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(l.LogFile), 0o755); err != nil {
			return fmt.Errorf("supervisor: create log dir: %w", err)
		}
		f, err := os.OpenFile(l.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("supervisor: open game log: %w", err)
		}
		out = f
	}

	// the game must outlive the request that started it
	cmd := exec.Command(l.Command, l.Args...)
	cmd.Dir = l.Dir
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, l.Env...)
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		if out != nil {
			out.Close()
		}
		return fmt.Errorf("supervisor: start %s: %w", filepath.Base(l.Command), err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if out != nil {
			out.Close()
		}
		if l.Logger != nil {
			l.Logger.Info("game server process exited", "pid", pid, "error", err)
		}
	}()
	return nil
}

// SignalTerminator asks the process to shut down with SIGTERM.
type SignalTerminator struct{}

func (SignalTerminator) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("supervisor: invalid pid %d", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("supervisor: process %d is already gone: %w", pid, err)
		}
		return fmt.Errorf("supervisor: signal %d: %w", pid, err)
	}
	return nil
}
