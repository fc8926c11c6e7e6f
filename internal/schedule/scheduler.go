package schedule

import (
	"context"
	"sync"
	"time"

	"verenigingsloket.org/internal/export"
	"verenigingsloket.org/internal/job"
	"verenigingsloket.org/internal/obs"
)

// ArtifactCleaner removes stored artifacts past the retention age.
type ArtifactCleaner interface {
	DeleteOlderThan(age time.Duration) (int, error)
}

// Scheduler runs the nightly full export and the retention cleanup. The
// nightly export covers the whole source graph and does not touch the
// external registry; sensitive data stays behind the job gate.
type Scheduler struct {
	scope     job.ScopeResolver
	assembler job.Assembler
	artifacts job.ArtifactStore
	jobs      *job.Store
	cleaner   ArtifactCleaner

	hourUTC   int
	retention time.Duration

	interval time.Duration
	now      func() time.Time
	lastRun  time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(scope job.ScopeResolver, assembler job.Assembler, artifacts job.ArtifactStore, jobs *job.Store, cleaner ArtifactCleaner, hourUTC int, retention time.Duration) *Scheduler {
	return &Scheduler{
		scope:     scope,
		assembler: assembler,
		artifacts: artifacts,
		jobs:      jobs,
		cleaner:   cleaner,
		hourUTC:   hourUTC,
		retention: retention,
		interval:  time.Minute,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	obs.Log(map[string]any{"level": "info", "msg": "scheduler started", "hour_utc": s.hourUTC})
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	obs.Log(map[string]any{"level": "info", "msg": "scheduler stopped"})
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick fires the nightly work once per day, in the configured hour.
func (s *Scheduler) tick() {
	now := s.now().UTC()
	if now.Hour() != s.hourUTC {
		return
	}
	if sameDay(s.lastRun, now) {
		return
	}
	s.lastRun = now

	s.runFullExport(now)
	s.runCleanup()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func (s *Scheduler) runFullExport(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	ids, err := s.scope.IdentifiersInScope(ctx, "")
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "nightly export: list identifiers", "error": err.Error()})
		return
	}
	if len(ids) == 0 {
		obs.Log(map[string]any{"level": "warn", "msg": "nightly export: source graph is empty"})
		return
	}

	artifact, err := s.assembler.Assemble(ctx, ids, "", export.Sources{Internal: true})
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "nightly export failed", "error": err.Error()})
		return
	}

	name := "verenigingen-full-" + now.Format("2006-01-02") + ".xlsx"
	ref, err := s.artifacts.Save(name, artifact.Bytes)
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "nightly export: store artifact", "error": err.Error()})
		return
	}
	obs.Log(map[string]any{
		"level": "info", "msg": "nightly export finished",
		"result": ref, "rows": artifact.GeneralCount,
	})
}

func (s *Scheduler) runCleanup() {
	removed := s.jobs.DeleteOlderThan(s.retention)
	deleted := 0
	if s.cleaner != nil {
		n, err := s.cleaner.DeleteOlderThan(s.retention)
		if err != nil {
			obs.Log(map[string]any{"level": "error", "msg": "retention cleanup: artifacts", "error": err.Error()})
		}
		deleted = n
	}
	obs.Log(map[string]any{
		"level": "info", "msg": "retention cleanup finished",
		"jobs_removed": len(removed), "artifacts_removed": deleted,
	})
}
