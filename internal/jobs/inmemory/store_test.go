package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.Error(t, s.SaveJob(ctx, &jobs.ImportJob{}))

	job := &jobs.ImportJob{JobID: "j1", UserID: "u1", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status, "store must hold a copy")

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ImportJob{
			JobID:     id,
			UserID:    "u1",
			Status:    jobs.JobStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.SaveJob(ctx, &jobs.ImportJob{JobID: "d", UserID: "u2", Status: jobs.JobStatusFailed, CreatedAt: base}))

	list, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].JobID)
	assert.Equal(t, "a", list[2].JobID)

	list, err = s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d", list[0].JobID)

	list, err = s.ListJobs(ctx, jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].JobID)

	list, err = s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, &jobs.ImportJob{JobID: "j1"}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "bad"))
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "bad", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}

func TestStore_CompareAndSetStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, &jobs.ImportJob{JobID: "j1", Status: jobs.JobStatusAwaitingDecision}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		lostErr []error
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CompareAndSetStatus(ctx, "j1", jobs.JobStatusAwaitingDecision, jobs.JobStatusPending)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			lostErr = append(lostErr, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	for _, err := range lostErr {
		assert.ErrorIs(t, err, jobs.ErrStatusConflict)
	}
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)

	assert.ErrorIs(t, s.CompareAndSetStatus(ctx, "nope", jobs.JobStatusPending, jobs.JobStatusFailed), jobs.ErrJobNotFound)
}
