package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock_alert_system/errs"

	"go.uber.org/zap"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(zap.NewNop().Sugar())
}

func noop(context.Context) {}

func TestJobRegistry(t *testing.T) {
	s := newTestScheduler()

	if err := s.AddIntervalJob("first", "First", 5*time.Minute, 5*time.Minute, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}
	if err := s.AddIntervalJob("second", "Second", 2*time.Minute, 0, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}
	if err := s.AddDailyJob("nightly", "Nightly", "00:00", noop); err != nil {
		t.Fatalf("AddDailyJob: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	if jobs[0].ID != "first" || jobs[1].ID != "second" || jobs[2].ID != "nightly" {
		t.Fatalf("registration order not preserved: %+v", jobs)
	}
	if jobs[0].Trigger != "interval[5m0s]" {
		t.Errorf("trigger = %q", jobs[0].Trigger)
	}
	if jobs[2].Trigger != "daily[00:00 UTC]" {
		t.Errorf("trigger = %q", jobs[2].Trigger)
	}

	status := s.Status()
	if status.Running {
		t.Error("scheduler must start stopped")
	}
	if status.JobCount != 3 {
		t.Errorf("job_count = %d, want 3", status.JobCount)
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddIntervalJob("job", "Job", time.Minute, 0, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}

	if err := s.PauseJob("job"); err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	if !s.Jobs()[0].Paused {
		t.Fatal("job should report paused")
	}

	if err := s.ResumeJob("job"); err != nil {
		t.Fatalf("ResumeJob: %v", err)
	}
	if s.Jobs()[0].Paused {
		t.Fatal("job should report resumed")
	}

	if err := s.PauseJob("ghost"); !errors.Is(err, errs.ErrJobNotFound) {
		t.Fatalf("PauseJob(ghost) = %v, want job not found", err)
	}
	if err := s.ResumeJob("ghost"); !errors.Is(err, errs.ErrJobNotFound) {
		t.Fatalf("ResumeJob(ghost) = %v, want job not found", err)
	}
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddIntervalJob("keep", "Keep", time.Minute, 0, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}
	if err := s.AddIntervalJob("drop", "Drop", time.Minute, 0, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}

	if err := s.RemoveJob("drop"); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].ID != "keep" {
		t.Fatalf("jobs after removal = %+v", jobs)
	}

	if err := s.RemoveJob("drop"); !errors.Is(err, errs.ErrJobNotFound) {
		t.Fatalf("second RemoveJob = %v, want job not found", err)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddIntervalJob("job", "Job", time.Hour, 0, noop); err != nil {
		t.Fatalf("AddIntervalJob: %v", err)
	}

	s.Start()
	if !s.IsRunning() {
		t.Fatal("scheduler should run after Start")
	}

	s.Stop()
	if s.IsRunning() {
		t.Fatal("scheduler should stop after Stop")
	}

	s.Restart()
	if !s.IsRunning() {
		t.Fatal("scheduler should run after Restart")
	}
	s.Stop()
}

func TestAdmitRun(t *testing.T) {
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("first_fire_runs", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 5 * time.Minute, grace: 5 * time.Minute}

		run, ctx := s.admitRun(entry, base)
		if !run {
			t.Fatal("first fire has no expectation and must run")
		}
		if ctx == nil {
			t.Fatal("a runnable fire must carry a context")
		}
		if entry.runCount != 1 {
			t.Errorf("runCount = %d, want 1", entry.runCount)
		}
		if !entry.nextExpected.Equal(base.Add(5 * time.Minute)) {
			t.Errorf("nextExpected = %v", entry.nextExpected)
		}
	})

	t.Run("on_time_fire_runs", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 5 * time.Minute, grace: 5 * time.Minute}

		s.admitRun(entry, base)
		run, _ := s.admitRun(entry, base.Add(5*time.Minute))
		if !run {
			t.Fatal("an on-time fire must run")
		}
		if entry.misfireCount != 0 {
			t.Errorf("misfireCount = %d, want 0", entry.misfireCount)
		}
	})

	t.Run("late_within_grace_runs", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 5 * time.Minute, grace: 5 * time.Minute}

		s.admitRun(entry, base)
		run, _ := s.admitRun(entry, base.Add(9*time.Minute))
		if !run {
			t.Fatal("a fire inside the grace window must run")
		}
	})

	t.Run("late_beyond_grace_misfires", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 5 * time.Minute, grace: 5 * time.Minute}

		s.admitRun(entry, base)
		late := base.Add(11 * time.Minute)
		run, _ := s.admitRun(entry, late)
		if run {
			t.Fatal("a fire past the grace window must be skipped")
		}
		if entry.misfireCount != 1 {
			t.Errorf("misfireCount = %d, want 1", entry.misfireCount)
		}
		// The expectation is rebased on the skip so the next fire is
		// judged from here, not from the stale slot.
		if !entry.nextExpected.Equal(late.Add(5 * time.Minute)) {
			t.Errorf("nextExpected = %v", entry.nextExpected)
		}

		run, _ = s.admitRun(entry, late.Add(5*time.Minute))
		if !run {
			t.Fatal("the fire after a misfire must run on its rebased slot")
		}
	})

	t.Run("zero_grace_never_misfires", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 3 * time.Minute}

		s.admitRun(entry, base)
		run, _ := s.admitRun(entry, base.Add(2*time.Hour))
		if !run {
			t.Fatal("grace zero disables misfire skipping")
		}
	})

	t.Run("paused_skips", func(t *testing.T) {
		s := newTestScheduler()
		entry := &jobEntry{id: "job", interval: 5 * time.Minute, paused: true}

		run, _ := s.admitRun(entry, base)
		if run {
			t.Fatal("a paused job must not run")
		}
		if entry.runCount != 0 {
			t.Errorf("runCount = %d, want 0", entry.runCount)
		}
	})
}
