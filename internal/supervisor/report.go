package supervisor

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/gameserver-admin/internal/hoststats"
)

type HostCollector interface {
	Collect(ctx context.Context) (*hoststats.Snapshot, error)
}

// Report is the snapshot served by GET /server/status and pushed on the
// status stream.
type Report struct {
	Server *Status             `json:"server"`
	System *hoststats.Snapshot `json:"system"`
}

type Reporter struct {
	supervisor *Supervisor
	host       HostCollector
	logger     *slog.Logger
}

func NewReporter(sup *Supervisor, host HostCollector, logger *slog.Logger) *Reporter {
	return &Reporter{supervisor: sup, host: host, logger: logger}
}

// Report fails only when the process table cannot be read; missing host
// metrics leave System nil.
func (r *Reporter) Report(ctx context.Context) (*Report, error) {
	status, err := r.supervisor.Status(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{Server: status}
	if r.host != nil {
		sys, err := r.host.Collect(ctx)
		if err != nil {
			r.logger.Warn("host metrics unavailable", "error", err)
		} else {
			report.System = sys
		}
	}
	return report, nil
}
