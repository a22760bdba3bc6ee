package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"github.com/frahmantamala/gameserver-admin/internal/gameconfig"
)

// Supervisor owns start, stop and restart of one game server. Commands are
// mutually exclusive; Status only reads the process table.
type Supervisor struct {
	cfg      Config
	probe    Probe
	launcher Launcher
	term     Terminator
	audit    audit.Recorder
	bus      Publisher
	logger   *slog.Logger

	cmd sync.Mutex

	mu        sync.RWMutex
	state     State
	changedAt time.Time
}

func New(cfg Config, probe Probe, launcher Launcher, term Terminator, recorder audit.Recorder, bus Publisher, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:       cfg.withDefaults(),
		probe:     probe,
		launcher:  launcher,
		term:      term,
		audit:     recorder,
		bus:       bus,
		logger:    logger,
		state:     StateUnknown,
		changedAt: time.Now(),
	}
}

// Exclusive runs fn while holding the command lock. A caller that finds the
// lock taken gets ErrOperationInProgress instead of waiting. fn runs on a
// context that survives the caller going away, so a dropped request cannot
// abandon a half finished restart.
func (s *Supervisor) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.cmd.TryLock() {
		return internal.ErrOperationInProgress
	}
	defer s.cmd.Unlock()
	return fn(context.WithoutCancel(ctx))
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.changedAt = time.Now()
}

func (s *Supervisor) snapshotState() (State, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.changedAt
}

// launchPending reports a launch that has not reached the process table yet.
func (s *Supervisor) launchPending() bool {
	state, at := s.snapshotState()
	return state == StateStarting && time.Since(at) < s.cfg.StartGrace
}

// Status is derived from the process table on every call.
func (s *Supervisor) Status(ctx context.Context) (*Status, error) {
	info, err := s.probe.Find(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to read process table", err)
	}

	state, at := s.snapshotState()
	if info == nil {
		st := &Status{State: StateStopped, UptimeFormatted: FormatUptime(0)}
		switch {
		case s.launchPending():
			st.State = StateStarting
		case state != StateStopped:
			s.settle(state, StateStopped)
		}
		return st, nil
	}

	pid := info.PID
	uptime := int64(info.Uptime / time.Second)
	st := &Status{
		Running:         true,
		PID:             &pid,
		Uptime:          uptime,
		UptimeFormatted: FormatUptime(uptime),
		State:           StateRunning,
	}
	switch {
	case state == StateStopping && time.Since(at) < s.cfg.StopTimeout:
		st.State = StateStopping
	case state != StateRunning:
		s.settle(state, StateRunning)
	}
	return st, nil
}

// settle records what the process table shows, unless a command changed
// the state since it was read.
func (s *Supervisor) settle(seen, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == seen {
		s.state = next
		s.changedAt = time.Now()
	}
}

func (s *Supervisor) Start(ctx context.Context, actor *operator.Operator) error {
	return s.Exclusive(ctx, func(ctx context.Context) error {
		info, err := s.probe.Find(ctx)
		if err != nil {
			return internal.NewInternalError("failed to read process table", err)
		}
		if info != nil || s.launchPending() {
			return internal.ErrAlreadyRunning
		}

		if err := s.launch(ctx); err != nil {
			s.audit.Record(ctx, &actor.ID, audit.ActionServerStartFailed, failure(err))
			return err
		}

		s.audit.Record(ctx, &actor.ID, audit.ActionServerStart, "Server started")
		s.notify(ctx, events.EventServerStart, actor)
		return nil
	})
}

func (s *Supervisor) Stop(ctx context.Context, actor *operator.Operator) error {
	return s.Exclusive(ctx, func(ctx context.Context) error {
		info, err := s.probe.Find(ctx)
		if err != nil {
			return internal.NewInternalError("failed to read process table", err)
		}
		if info == nil {
			return internal.ErrNotRunning
		}

		if err := s.terminate(info.PID); err != nil {
			s.audit.Record(ctx, &actor.ID, audit.ActionServerStopFailed, failure(err))
			return err
		}

		s.audit.Record(ctx, &actor.ID, audit.ActionServerStop, "Server stopped")
		s.notify(ctx, events.EventServerStop, actor)
		return nil
	})
}

// Restart stops a running server, waits for it to leave the process table,
// lets it settle and starts it again. A stopped server is simply started.
func (s *Supervisor) Restart(ctx context.Context, actor *operator.Operator) error {
	return s.Exclusive(ctx, func(ctx context.Context) error {
		info, err := s.probe.Find(ctx)
		if err != nil {
			return internal.NewInternalError("failed to read process table", err)
		}

		if info != nil {
			if err := s.terminate(info.PID); err != nil {
				s.audit.Record(ctx, &actor.ID, audit.ActionServerStopFailed, failure(err))
				return err
			}
			if err := s.waitStopped(ctx); err != nil {
				s.audit.Record(ctx, &actor.ID, audit.ActionServerRestartFailed, failure(err))
				return err
			}
		}

		if err := sleepCtx(ctx, s.cfg.SettleDelay); err != nil {
			return err
		}

		if err := s.launch(ctx); err != nil {
			s.audit.Record(ctx, &actor.ID, audit.ActionServerStartFailed, failure(err))
			return err
		}

		s.audit.Record(ctx, &actor.ID, audit.ActionServerRestart, "Server restarted")
		s.notify(ctx, events.EventServerRestart, actor)
		return nil
	})
}

// launch forces the headless flags into the game config and starts the
// process. The config file is put back if the launch fails.
func (s *Supervisor) launch(ctx context.Context) error {
	snap, err := gameconfig.TakeSnapshot(s.cfg.ConfigFile)
	if err != nil {
		return internal.ErrConfigWriteFailed.Wrap(err)
	}
	doc, err := gameconfig.Load(s.cfg.ConfigFile)
	if err != nil {
		return internal.ErrConfigWriteFailed.Wrap(err)
	}
	gameconfig.ForceHeadless(doc)
	if err := gameconfig.Save(s.cfg.ConfigFile, doc); err != nil {
		return internal.ErrConfigWriteFailed.Wrap(err)
	}

	s.setState(StateStarting)
	if err := s.launcher.Launch(ctx); err != nil {
		s.setState(StateStopped)
		if rerr := snap.Restore(); rerr != nil {
			s.logger.Error("failed to restore game config after launch failure", "error", rerr)
		}
		s.logger.Error("server launch failed", "error", err)
		return internal.ErrLaunchFailed.Wrap(err)
	}

	s.logger.Info("server launched")
	return nil
}

func (s *Supervisor) terminate(pid int) error {
	s.setState(StateStopping)
	if err := s.term.Terminate(pid); err != nil {
		s.setState(StateRunning)
		s.logger.Error("server termination failed", "pid", pid, "error", err)
		return internal.ErrTerminationFailed.Wrap(err)
	}
	s.logger.Info("server termination signalled", "pid", pid)
	return nil
}

func (s *Supervisor) waitStopped(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.StopTimeout)
	for {
		info, err := s.probe.Find(ctx)
		if err != nil {
			return internal.NewInternalError("failed to read process table", err)
		}
		if info == nil {
			s.setState(StateStopped)
			return nil
		}
		if time.Now().After(deadline) {
			s.logger.Error("server did not stop in time", "pid", info.PID, "timeout", s.cfg.StopTimeout)
			return internal.ErrRestartTimeout.WithMessage(fmt.Sprintf("Server did not stop within %s", s.cfg.StopTimeout))
		}
		if err := sleepCtx(ctx, s.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (s *Supervisor) notify(ctx context.Context, event string, actor *operator.Operator) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.NewNotification(event, map[string]interface{}{"user": actor.Username}))
	if err != nil {
		s.logger.Warn("failed to publish server event", "event", event, "error", err)
	}
}

// failure keeps causes, which may carry paths, out of the audit log.
func failure(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Message
	}
	return "unexpected error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
