package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/config"
	"github.com/dvloznov/ledgerplan/internal/pipeline"
)

func TestOpen_MemorySnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	cfg, err := config.LoadFrom(func(k string) string {
		if k == "DATA_FILE" {
			return path
		}
		return ""
	})
	require.NoError(t, err)

	b, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, b.FileSource())

	clk := clock.NewFixedDate(civil.Date{Year: 2026, Month: time.March, Day: 1})
	svc := NewImportService(b, cfg, clk, zerolog.Nop())
	p, err := svc.Preview(ctx, pipeline.ImportRequest{
		UserID:   "u1",
		Filename: "bills.csv",
		Data:     []byte("Company,Amount,Frequency,Category,Date\nNetflix,£12.99,Monthly,Entertainment,15\n"),
	})
	require.NoError(t, err)
	res, err := svc.Commit(ctx, p, pipeline.ModeAll)
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	require.NoError(t, b.Close())

	reopened, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.Store.ListObligations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Netflix", list[0].Name)
}
