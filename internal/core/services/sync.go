package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.SyncOrchestrator = (*SyncService)(nil)

// SyncService coordinates sync passes across the registered source
// drivers. At most one pass runs per source: a second request for an
// active source fails fast instead of racing the first on the checkpoint.
type SyncService struct {
	mu      sync.Mutex
	drivers map[string]driving.SyncDriver
	active  map[string]*driving.SyncStatus
	last    map[string]*driving.SyncStatus
}

// NewSyncService creates a sync orchestrator over the given drivers.
func NewSyncService(drivers ...driving.SyncDriver) *SyncService {
	s := &SyncService{
		drivers: make(map[string]driving.SyncDriver),
		active:  make(map[string]*driving.SyncStatus),
		last:    make(map[string]*driving.SyncStatus),
	}
	for _, d := range drivers {
		s.drivers[d.Type()] = d
	}
	return s
}

// Register adds a driver after construction. The last registration for a
// type wins.
func (s *SyncService) Register(d driving.SyncDriver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.Type()] = d
}

// Types returns the registered sync types in stable order.
func (s *SyncService) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.drivers))
	for t := range s.drivers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Sync runs one pass for a single source.
func (s *SyncService) Sync(ctx context.Context, syncType string) (domain.SyncStats, error) {
	s.mu.Lock()
	driver, ok := s.drivers[syncType]
	if !ok {
		s.mu.Unlock()
		return domain.SyncStats{}, fmt.Errorf("%w: unknown sync type %q", domain.ErrNotFound, syncType)
	}
	if _, running := s.active[syncType]; running {
		s.mu.Unlock()
		return domain.SyncStats{}, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, syncType)
	}

	status := &driving.SyncStatus{
		SyncType: syncType,
		RunID:    uuid.New().String(),
		Running:  true,
	}
	s.active[syncType] = status
	s.mu.Unlock()

	logger.Info("sync %s: starting run %s", syncType, status.RunID)
	stats, err := driver.Sync(ctx)

	s.mu.Lock()
	delete(s.active, syncType)
	status.Running = false
	status.Stats = stats
	s.last[syncType] = status
	s.mu.Unlock()

	if err != nil {
		logger.Error("sync %s: run %s failed: %v", syncType, status.RunID, err)
		return stats, err
	}
	logger.Info("sync %s: run %s done (added=%d deleted=%d skipped=%d errors=%d)",
		syncType, status.RunID, stats.Added, stats.Deleted, stats.Skipped, stats.Errors)
	return stats, nil
}

// SyncAll runs a pass for every registered source sequentially, in
// stable type order. One source's fatal failure does not prevent the
// others from running; the errors are joined.
func (s *SyncService) SyncAll(ctx context.Context) (domain.SyncStats, error) {
	s.mu.Lock()
	types := make([]string, 0, len(s.drivers))
	for t := range s.drivers {
		types = append(types, t)
	}
	s.mu.Unlock()
	sort.Strings(types)

	var total domain.SyncStats
	var errs []error
	for _, t := range types {
		stats, err := s.Sync(ctx, t)
		total.Merge(stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	return total, errors.Join(errs...)
}

// Status reports the in-flight pass for a source, or the last completed
// one when idle.
func (s *SyncService) Status(_ context.Context, syncType string) (*driving.SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drivers[syncType]; !ok {
		return nil, fmt.Errorf("%w: unknown sync type %q", domain.ErrNotFound, syncType)
	}
	if status, ok := s.active[syncType]; ok {
		copied := *status
		return &copied, nil
	}
	if status, ok := s.last[syncType]; ok {
		copied := *status
		return &copied, nil
	}
	return &driving.SyncStatus{SyncType: syncType}, nil
}
