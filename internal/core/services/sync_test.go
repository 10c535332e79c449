package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docpipe/internal/core/domain"
)

// fakeDriver is a scriptable sync driver.
type fakeDriver struct {
	syncType string
	stats    domain.SyncStats
	err      error
	block    chan struct{}

	mu    sync.Mutex
	calls int
}

func (d *fakeDriver) Type() string { return d.syncType }

func (d *fakeDriver) Sync(ctx context.Context) (domain.SyncStats, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return domain.SyncStats{}, ctx.Err()
		}
	}
	return d.stats, d.err
}

func TestSyncService_Sync(t *testing.T) {
	driver := &fakeDriver{syncType: "filestore", stats: domain.SyncStats{Added: 3, Skipped: 1}}
	svc := NewSyncService(driver)

	stats, err := svc.Sync(context.Background(), "filestore")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Added)
	assert.Equal(t, 1, driver.calls)
}

func TestSyncService_Sync_UnknownType(t *testing.T) {
	svc := NewSyncService()

	_, err := svc.Sync(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncService_Sync_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	driver := &fakeDriver{syncType: "filestore", block: block}
	svc := NewSyncService(driver)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Sync(context.Background(), "filestore")
		assert.NoError(t, err)
	}()

	// Wait for the first pass to be marked active.
	require.Eventually(t, func() bool {
		status, err := svc.Status(context.Background(), "filestore")
		return err == nil && status.Running
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Sync(context.Background(), "filestore")
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(block)
	<-done

	// After completion a new pass is accepted again.
	_, err = svc.Sync(context.Background(), "filestore")
	assert.NoError(t, err)
}

func TestSyncService_SyncAll(t *testing.T) {
	fileDriver := &fakeDriver{syncType: "filestore", stats: domain.SyncStats{Added: 2}}
	mailDriver := &fakeDriver{syncType: "mailbox", stats: domain.SyncStats{Added: 5, Errors: 1}}
	svc := NewSyncService(fileDriver, mailDriver)

	stats, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Added)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, fileDriver.calls)
	assert.Equal(t, 1, mailDriver.calls)
}

func TestSyncService_SyncAll_FailureDoesNotStopOthers(t *testing.T) {
	failing := &fakeDriver{syncType: "filestore", err: fmt.Errorf("%w: feed down", domain.ErrSourceUnavailable)}
	healthy := &fakeDriver{syncType: "mailbox", stats: domain.SyncStats{Added: 1}}
	svc := NewSyncService(failing, healthy)

	stats, err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	assert.Equal(t, 1, stats.Added, "the healthy source still synced")
	assert.Equal(t, 1, healthy.calls)
}

func TestSyncService_Status(t *testing.T) {
	driver := &fakeDriver{syncType: "filestore", stats: domain.SyncStats{Added: 4}}
	svc := NewSyncService(driver)

	ctx := context.Background()

	status, err := svc.Status(ctx, "filestore")
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Empty(t, status.RunID)

	_, err = svc.Sync(ctx, "filestore")
	require.NoError(t, err)

	status, err = svc.Status(ctx, "filestore")
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, 4, status.Stats.Added)

	_, err = svc.Status(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
