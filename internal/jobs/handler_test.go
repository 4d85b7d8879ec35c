package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/pipeline"
)

type mockCommitter struct {
	result pipeline.BatchResult
	err    error
	mode   pipeline.Mode
	calls  int
}

func (m *mockCommitter) Commit(ctx context.Context, p *pipeline.Preview, mode pipeline.Mode) (pipeline.BatchResult, error) {
	m.calls++
	m.mode = mode
	return m.result, m.err
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestImportHandler_Success(t *testing.T) {
	c := &mockCommitter{result: pipeline.BatchResult{Attempted: 2, Succeeded: 2}}
	h := NewImportHandler(c, zerolog.Nop())
	job := &ImportJob{JobID: "j1", Mode: pipeline.ModeNonDuplicates, Preview: &pipeline.Preview{BatchID: "b"}}

	require.NoError(t, h(context.Background(), job))
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.Succeeded)
	assert.Equal(t, pipeline.ModeNonDuplicates, c.mode)
}

func TestImportHandler_PartialFailureIsRetryable(t *testing.T) {
	c := &mockCommitter{result: pipeline.BatchResult{Attempted: 3, Succeeded: 2, Failed: 1}}
	h := NewImportHandler(c, zerolog.Nop())
	job := &ImportJob{JobID: "j1", Preview: &pipeline.Preview{}}

	err := h(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
	require.NotNil(t, job.Result)
}

func TestImportHandler_Errors(t *testing.T) {
	c := &mockCommitter{err: errors.New("boom")}
	h := NewImportHandler(c, zerolog.Nop())

	assert.Error(t, h(context.Background(), otherJob{}))
	assert.Error(t, h(context.Background(), &ImportJob{JobID: "j"}))
	assert.Equal(t, 0, c.calls)

	err := h(context.Background(), &ImportJob{JobID: "j", Preview: &pipeline.Preview{}})
	assert.ErrorContains(t, err, "boom")
}
