// Package scheduler owns the background jobs that drive the alert engine:
// price updates, alert checks, the market-hours refresh and daily cleanup.
package scheduler

import (
	"context"
	"sync"
	"time"

	"stock_alert_system/errs"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// JobFunc is a job body. The context is cancelled when the scheduler
// stops; bodies should honor it for long sleeps but are allowed to finish
// their current item rather than being killed mid-write.
type JobFunc func(ctx context.Context)

// jobEntry is the registry record for one scheduled job.
type jobEntry struct {
	id       string
	name     string
	trigger  string
	interval time.Duration // zero for daily jobs
	grace    time.Duration // zero disables misfire skipping
	fn       JobFunc

	paused       bool
	nextExpected time.Time
	runCount     int
	misfireCount int
	handle       *gocron.Job
}

// Scheduler wraps gocron with a job registry supporting pause/resume,
// removal, and misfire-grace handling. Every job runs in singleton mode:
// a fire that overlaps the previous run of the same job is dropped.
type Scheduler struct {
	cron *gocron.Scheduler
	log  *zap.SugaredLogger

	mu     sync.RWMutex
	jobs   map[string]*jobEntry
	order  []string
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler running jobs in UTC.
func NewScheduler(log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron: gocron.NewScheduler(time.UTC),
		log:  log,
		jobs: make(map[string]*jobEntry),
	}
}

// AddIntervalJob registers a fixed-interval job. A fire arriving more than
// grace past its expected time is skipped as a misfire instead of running
// late and stacking; grace of zero disables the check.
func (s *Scheduler) AddIntervalJob(id, name string, interval, grace time.Duration, fn JobFunc) error {
	entry := &jobEntry{
		id:       id,
		name:     name,
		trigger:  "interval[" + interval.String() + "]",
		interval: interval,
		grace:    grace,
		fn:       fn,
	}

	job, err := s.cron.Every(interval).Tag(id).SingletonMode().Do(s.wrap(entry))
	if err != nil {
		return err
	}
	entry.handle = job

	s.mu.Lock()
	s.jobs[id] = entry
	s.order = append(s.order, id)
	s.mu.Unlock()
	return nil
}

// AddDailyJob registers a job firing once per day at the given UTC time
// ("HH:MM").
func (s *Scheduler) AddDailyJob(id, name, at string, fn JobFunc) error {
	entry := &jobEntry{
		id:      id,
		name:    name,
		trigger: "daily[" + at + " UTC]",
		fn:      fn,
	}

	job, err := s.cron.Every(1).Day().At(at).Tag(id).SingletonMode().Do(s.wrap(entry))
	if err != nil {
		return err
	}
	entry.handle = job

	s.mu.Lock()
	s.jobs[id] = entry
	s.order = append(s.order, id)
	s.mu.Unlock()
	return nil
}

// wrap builds the closure gocron fires: it applies the pause flag and
// misfire grace, then runs the body with panic isolation so one bad run
// leaves the job scheduled.
func (s *Scheduler) wrap(entry *jobEntry) func() {
	return func() {
		now := time.Now()

		s.mu.Lock()
		run, ctx := s.admitRun(entry, now)
		s.mu.Unlock()

		if !run {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("Job panicked", "job_id", entry.id, "panic", r)
			}
		}()
		entry.fn(ctx)
	}
}

// admitRun decides whether this fire runs, updating bookkeeping either
// way. Caller holds the mutex.
func (s *Scheduler) admitRun(entry *jobEntry, now time.Time) (bool, context.Context) {
	// Rebase the expectation regardless of the decision so a skipped
	// fire does not cascade into skipping the next one.
	expected := entry.nextExpected
	if entry.interval > 0 {
		entry.nextExpected = now.Add(entry.interval)
	}

	if entry.paused {
		s.log.Debugw("Job paused, skipping fire", "job_id", entry.id)
		return false, nil
	}

	if entry.grace > 0 && !expected.IsZero() && now.After(expected.Add(entry.grace)) {
		entry.misfireCount++
		s.log.Warnw("Misfire: scheduled run missed beyond grace window, skipping",
			"job_id", entry.id, "expected", expected, "late_by", now.Sub(expected))
		return false, nil
	}

	entry.runCount++
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return true, ctx
}

// Start begins firing jobs. Safe to call on an already-running scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.mu.Unlock()

	s.cron.StartAsync()
	s.log.Infow("Scheduler started", "jobs", len(s.jobs))
}

// Stop stops firing new runs and cancels the job context. In-flight job
// bodies run to completion; they are never killed mid-write.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
	s.mu.Unlock()

	s.cron.Stop()
	s.log.Info("Scheduler stopped")
}

// Restart stops and starts the scheduler, keeping registered jobs.
func (s *Scheduler) Restart() {
	s.Stop()
	s.Start()
	s.log.Info("Scheduler restarted")
}

// IsRunning reports whether the scheduler is firing jobs.
func (s *Scheduler) IsRunning() bool {
	return s.cron.IsRunning()
}

// PauseJob excludes a job from firing until resumed. The job stays
// registered and keeps its schedule.
func (s *Scheduler) PauseJob(id string) error {
	return s.setPaused(id, true)
}

// ResumeJob re-enables a paused job.
func (s *Scheduler) ResumeJob(id string) error {
	return s.setPaused(id, false)
}

func (s *Scheduler) setPaused(id string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok {
		return errs.ErrJobNotFound
	}
	entry.paused = paused
	if paused {
		s.log.Infow("Job paused", "job_id", id)
	} else {
		s.log.Infow("Job resumed", "job_id", id)
	}
	return nil
}

// RemoveJob unregisters a job entirely.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return errs.ErrJobNotFound
	}
	if err := s.cron.RemoveByTag(id); err != nil {
		return err
	}
	delete(s.jobs, id)
	for i, jid := range s.order {
		if jid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Infow("Job removed", "job_id", id)
	return nil
}

// JobInfo is the operator-facing view of one scheduled job.
type JobInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Trigger  string    `json:"trigger"`
	NextRun  time.Time `json:"next_run_time"`
	Paused   bool      `json:"paused"`
	RunCount int       `json:"run_count"`
	Misfires int       `json:"misfires"`
}

// Jobs returns a snapshot of all registered jobs in registration order.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.order))
	for _, id := range s.order {
		entry := s.jobs[id]
		info := JobInfo{
			ID:       entry.id,
			Name:     entry.name,
			Trigger:  entry.trigger,
			Paused:   entry.paused,
			RunCount: entry.runCount,
			Misfires: entry.misfireCount,
		}
		if entry.handle != nil {
			info.NextRun = entry.handle.NextRun()
		}
		infos = append(infos, info)
	}
	return infos
}

// SchedulerStatus is the operator-facing view of the whole scheduler.
type SchedulerStatus struct {
	Running  bool      `json:"is_running"`
	JobCount int       `json:"job_count"`
	Jobs     []JobInfo `json:"jobs"`
}

// Status returns the scheduler state and its job snapshot.
func (s *Scheduler) Status() SchedulerStatus {
	jobs := s.Jobs()
	return SchedulerStatus{
		Running:  s.IsRunning(),
		JobCount: len(jobs),
		Jobs:     jobs,
	}
}
