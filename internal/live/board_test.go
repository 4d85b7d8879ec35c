package live

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/store/inmemory"
)

func seed(t *testing.T, s *inmemory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveObligation(ctx, &domain.RecurringObligation{
		ID: "o1", UserID: "u1", Name: "Netflix", Amount: decimal.RequireFromString("12.99"),
		Frequency: domain.FrequencyMonthly, AnchorDay: 10, Status: domain.StatusActive,
	}))
	for i, d := range []civil.Date{
		{Year: 2026, Month: time.February, Day: 3},
		{Year: 2026, Month: time.March, Day: 4},
	} {
		require.NoError(t, s.SaveTransaction(ctx, &domain.Transaction{
			ID: string(rune('a' + i)), UserID: "u1", CardID: "c1", Date: d,
			Amount: decimal.NewFromInt(-20),
		}))
	}
}

func TestBoard_RecomputesOnEverySnapshot(t *testing.T) {
	s := inmemory.NewStore()
	seed(t, s)

	var versions []int
	b := NewBoard(Config{
		Feed:     s,
		UserID:   "u1",
		Accounts: []domain.Account{{ID: "c1", UserID: "u1", Type: domain.AccountTypeCredit}},
		Months:   2,
		Clock:    clock.NewFixedDate(civil.Date{Year: 2026, Month: time.March, Day: 22}),
		Logger:   zerolog.Nop(),
		OnChange: func(s Snapshot) { versions = append(versions, s.Version) },
	})
	b.Start()
	defer b.Stop()

	snap := b.Snapshot()
	assert.Equal(t, 2, snap.Version)
	require.Len(t, snap.Calendar, 2)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.March, Day: 10}, snap.Calendar[0].Date)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.April, Day: 10}, snap.Calendar[1].Date)
	require.Len(t, snap.Obligations, 1)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.April, Day: 10}, snap.Obligations[0].NextOccurrence,
		"next occurrence is recomputed from today")

	stmts := snap.Statements["c1"]
	require.Len(t, stmts, 2)
	assert.Equal(t, domain.Period{Year: 2026, Month: time.March}, stmts[0].Period)

	require.NoError(t, s.SaveObligation(context.Background(), &domain.RecurringObligation{
		ID: "o2", UserID: "u1", Name: "Gym", Amount: decimal.NewFromInt(30),
		Frequency: domain.FrequencyMonthly, AnchorDay: 1, Status: domain.StatusActive,
	}))

	snap = b.Snapshot()
	assert.Equal(t, 3, snap.Version)
	assert.Len(t, snap.Calendar, 4)
	assert.Equal(t, []int{1, 2, 3}, versions)
}

func TestBoard_StopEndsUpdates(t *testing.T) {
	s := inmemory.NewStore()
	b := NewBoard(Config{Feed: s, UserID: "u1", Logger: zerolog.Nop()})
	b.Start()
	b.Stop()
	b.Stop()

	require.NoError(t, s.SaveObligation(context.Background(), &domain.RecurringObligation{
		ID: "o1", UserID: "u1", Name: "Gym", Amount: decimal.NewFromInt(30),
		Frequency: domain.FrequencyMonthly, AnchorDay: 1, Status: domain.StatusActive,
	}))
	assert.Equal(t, 2, b.Snapshot().Version)
	assert.Empty(t, b.Snapshot().Calendar)
}
