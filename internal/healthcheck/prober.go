package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultProbeTimeout = 15 * time.Second

// Snapshot is the result of one probe run.
type Snapshot struct {
	Status    string        `json:"status"`
	CheckedAt time.Time     `json:"checked_at"`
	Checks    []CheckResult `json:"checks"`
}

// Prober runs checkers on a cron schedule and keeps the latest snapshot.
type Prober struct {
	logger   *slog.Logger
	checkers []Checker
	schedule string
	timeout  time.Duration

	cron *cron.Cron

	mu   sync.RWMutex
	last Snapshot
}

// NewProber creates a prober. schedule uses cron syntax including
// descriptors such as "@every 5m"; an empty schedule disables periodic runs.
func NewProber(log *slog.Logger, schedule string, checkers ...Checker) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{
		logger:   log.With(slog.String("service", "healthcheck")),
		checkers: checkers,
		schedule: strings.TrimSpace(schedule),
		timeout:  defaultProbeTimeout,
		last:     Snapshot{Status: StatusUnknown, Checks: []CheckResult{}},
	}
}

// Run evaluates every checker now and stores the snapshot.
func (p *Prober) Run(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	checks := make([]CheckResult, 0, len(p.checkers))
	for _, c := range p.checkers {
		if c == nil {
			continue
		}
		checks = append(checks, c.ListChecks(ctx)...)
	}
	snap := Snapshot{Status: Worst(checks), CheckedAt: time.Now().UTC(), Checks: checks}

	p.mu.Lock()
	prev := p.last.Status
	p.last = snap
	p.mu.Unlock()

	if snap.Status != prev {
		p.logger.Info("health status changed",
			slog.String("from", prev),
			slog.String("to", snap.Status),
		)
	}
	for _, c := range checks {
		if c.Status == StatusError {
			p.logger.Warn("health check failing",
				slog.String("check", c.ID),
				slog.String("summary", c.Summary),
				slog.String("detail", c.Detail),
			)
		}
	}
	return snap
}

// Last returns the most recent snapshot.
func (p *Prober) Last() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Start schedules periodic runs.
func (p *Prober) Start() error {
	if p.schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() { p.Run(context.Background()) }); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.schedule, err)
	}
	p.cron = c
	c.Start()
	p.logger.Info("health prober started", slog.String("schedule", p.schedule))
	return nil
}

// Stop halts the schedule and waits for a running probe, bounded by ctx.
func (p *Prober) Stop(ctx context.Context) error {
	if p.cron == nil {
		return nil
	}
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
