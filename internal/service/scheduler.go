package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"asyncgen/internal/logger"
)

// ExportScheduler re-exports every workspace on a cron schedule.
type ExportScheduler struct {
	svc  *BlockService
	log  *logger.Logger
	cron *cron.Cron

	mu       sync.Mutex
	busy     map[string]bool // workspace id -> export in flight
	inflight sync.WaitGroup
}

// NewExportScheduler validates spec (standard five-field cron syntax or a
// descriptor such as "@every 5m") and returns a stopped scheduler.
func NewExportScheduler(svc *BlockService, spec string, log *logger.Logger) (*ExportScheduler, error) {
	s := &ExportScheduler{svc: svc, log: log, cron: cron.New(), busy: make(map[string]bool)}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule in the background.
func (s *ExportScheduler) Start() {
	s.cron.Start()
	s.log.Info("export scheduler started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for exports in flight or ctx.
func (s *ExportScheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
	}
}

// RunOnce exports every workspace, skipping any whose previous export is
// still running. It returns the number of exports written.
func (s *ExportScheduler) RunOnce(ctx context.Context) int {
	workspaces, err := s.svc.ListWorkspaces(ctx)
	if err != nil {
		s.log.Error("scheduled export: list workspaces", "error", err)
		return 0
	}
	written := 0
	for _, w := range workspaces {
		if !s.claim(w.ID) {
			s.log.Debug("scheduled export: still running", "workspace", w.Name)
			continue
		}
		_, err := s.svc.Export(ctx, w.Name, "")
		s.release(w.ID)
		if err != nil {
			s.log.Error("scheduled export failed", "workspace", w.Name, "error", err)
			continue
		}
		written++
	}
	return written
}

// claim marks the workspace busy. False means an export already holds it.
func (s *ExportScheduler) claim(workspaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[workspaceID] {
		return false
	}
	s.busy[workspaceID] = true
	s.inflight.Add(1)
	return true
}

func (s *ExportScheduler) release(workspaceID string) {
	s.mu.Lock()
	delete(s.busy, workspaceID)
	s.mu.Unlock()
	s.inflight.Done()
}
