// Package jobs runs the periodic background work of the API process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"cityinit.org/internal/obs"
	"cityinit.org/internal/project"
)

// ProjectLister is the read side the gauge job needs.
type ProjectLister interface {
	ListProjects(ctx context.Context, f project.Filter) ([]project.Project, error)
}

// Snapshot is one lifecycle gauge reading.
type Snapshot struct {
	ByStatus map[string]int
	Appeals  int
}

// RefreshGauges counts projects per stored status and publishes the result.
func RefreshGauges(ctx context.Context, src ProjectLister) (Snapshot, error) {
	projects, err := src.ListProjects(ctx, project.Filter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list projects: %w", err)
	}
	snap := Snapshot{ByStatus: make(map[string]int, len(project.Statuses))}
	for _, s := range project.Statuses {
		snap.ByStatus[string(s)] = 0
	}
	for _, p := range projects {
		snap.ByStatus[string(p.Status)]++
		if p.Status == project.StatusAppealPending {
			snap.Appeals++
		}
	}
	obs.SetProjectGauges(snap.ByStatus, snap.Appeals)
	return snap, nil
}

// Manager owns the gocron scheduler.
type Manager struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	projects  ProjectLister
	ping      func(context.Context) error
}

// NewManager creates a stopped scheduler. ping may be nil.
func NewManager(interval time.Duration, projects ProjectLister, ping func(context.Context) error) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	timeout := interval / 2
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Manager{scheduler: s, interval: interval, timeout: timeout, projects: projects, ping: ping}, nil
}

// Start registers the jobs and starts the scheduler. Both jobs fire once right away.
func (m *Manager) Start() error {
	if err := m.register("lifecycle_gauges", m.refreshGauges); err != nil {
		return err
	}
	if m.ping != nil {
		if err := m.register("readiness_probe", m.probe); err != nil {
			return err
		}
	}
	m.scheduler.Start()
	obs.Logger().Info("scheduler started", zap.Duration("interval", m.interval))
	return nil
}

func (m *Manager) register(name string, fn func()) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

func (m *Manager) refreshGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if _, err := RefreshGauges(ctx, m.projects); err != nil {
		obs.Logger().Warn("gauge refresh failed", zap.Error(err))
	}
}

func (m *Manager) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	err := m.ping(ctx)
	obs.SetReady(err == nil)
	if err != nil {
		obs.Logger().Warn("readiness probe failed", zap.Error(err))
	}
}

// Stop shuts the scheduler down and waits for running jobs.
func (m *Manager) Stop() error {
	if err := m.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	obs.Logger().Info("scheduler stopped")
	return nil
}
