package inmemory

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/store"
)

func obligation(user, name string) *domain.RecurringObligation {
	return &domain.RecurringObligation{
		UserID:    user,
		Name:      name,
		Amount:    decimal.RequireFromString("9.99"),
		Frequency: domain.FrequencyMonthly,
		AnchorDay: 3,
		Status:    domain.StatusActive,
	}
}

func TestObligationCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	o := obligation("u1", "Spotify")
	require.NoError(t, s.SaveObligation(ctx, o))
	require.NotEmpty(t, o.ID)
	require.NoError(t, s.SaveObligation(ctx, obligation("u1", "apple")))
	require.NoError(t, s.SaveObligation(ctx, obligation("u2", "Netflix")))

	list, err := s.ListObligations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "apple", list[0].Name)

	got, err := s.GetObligation(ctx, "u1", o.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	again, _ := s.GetObligation(ctx, "u1", o.ID)
	assert.Equal(t, "Spotify", again.Name)

	_, err = s.GetObligation(ctx, "u2", o.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	o.Status = domain.StatusPaused
	require.NoError(t, s.SaveObligation(ctx, o))
	again, _ = s.GetObligation(ctx, "u1", o.ID)
	assert.Equal(t, domain.StatusPaused, again.Status)

	require.NoError(t, s.DeleteObligation(ctx, "u1", o.ID))
	assert.True(t, errors.Is(s.DeleteObligation(ctx, "u1", o.ID), store.ErrNotFound))

	assert.Error(t, s.SaveObligation(ctx, &domain.RecurringObligation{Name: "no user"}))
}

func TestTransactionsFilteredAndSorted(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for _, tx := range []domain.Transaction{
		{ID: "b", UserID: "u1", CardID: "c1", Date: civil.Date{Year: 2025, Month: time.March, Day: 5}},
		{ID: "a", UserID: "u1", CardID: "c1", Date: civil.Date{Year: 2025, Month: time.March, Day: 1}},
		{ID: "c", UserID: "u1", CardID: "c2", Date: civil.Date{Year: 2025, Month: time.March, Day: 2}},
		{ID: "d", UserID: "u2", CardID: "c1", Date: civil.Date{Year: 2025, Month: time.March, Day: 2}},
	} {
		tx := tx
		require.NoError(t, s.SaveTransaction(ctx, &tx))
	}

	card1, err := s.ListTransactions(ctx, store.TransactionFilter{UserID: "u1", CardID: "c1"})
	require.NoError(t, err)
	require.Len(t, card1, 2)
	assert.Equal(t, "a", card1[0].ID)

	all, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: "u1"})
	assert.Len(t, all, 3)

	assert.Error(t, s.SaveTransaction(ctx, &domain.Transaction{UserID: "u1"}))
	assert.True(t, errors.Is(s.DeleteTransaction(ctx, "u2", "a"), store.ErrNotFound))
	require.NoError(t, s.DeleteTransaction(ctx, "u1", "a"))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a := &domain.Account{UserID: "u1", Name: "Amex", Type: domain.AccountTypeCredit}
	require.NoError(t, s.SaveAccount(ctx, a))
	got, err := s.GetAccount(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountTypeCredit, got.Type)

	assert.Error(t, s.SaveAccount(ctx, &domain.Account{UserID: "u1", Type: "savings"}))
	_, err = s.GetAccount(ctx, "u2", a.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	list, _ := s.ListAccounts(ctx, "u1")
	assert.Len(t, list, 1)
}

func TestSubscribeObligations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveObligation(ctx, obligation("u1", "Gym")))

	var snapshots [][]domain.RecurringObligation
	unsubscribe := s.SubscribeObligations("u1", func(list []domain.RecurringObligation) {
		snapshots = append(snapshots, list)
	})

	require.Len(t, snapshots, 1, "initial snapshot delivered on subscribe")
	assert.Len(t, snapshots[0], 1)

	require.NoError(t, s.SaveObligation(ctx, obligation("u1", "Rent")))
	require.NoError(t, s.SaveObligation(ctx, obligation("u2", "Other user")))
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 2)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SaveObligation(ctx, obligation("u1", "Water")))
	assert.Len(t, snapshots, 2)
}

func TestSubscribeTransactions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var counts []int
	unsubscribe := s.SubscribeTransactions("u1", func(list []domain.Transaction) {
		counts = append(counts, len(list))
	})
	defer unsubscribe()

	tx := &domain.Transaction{UserID: "u1", CardID: "c1", Amount: decimal.NewFromInt(-5)}
	require.NoError(t, s.SaveTransaction(ctx, tx))
	require.NoError(t, s.DeleteTransaction(ctx, "u1", tx.ID))

	assert.Equal(t, []int{0, 1, 0}, counts)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	o := obligation("u1", "Netflix")
	o.NextOccurrence = civil.Date{Year: 2025, Month: time.April, Day: 3}
	require.NoError(t, s.SaveObligation(ctx, o))
	require.NoError(t, s.SaveAccount(ctx, &domain.Account{ID: "c1", UserID: "u1", Type: domain.AccountTypeDebit}))

	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf))

	restored := NewStore()
	require.NoError(t, restored.Load(&buf))
	got, err := restored.GetObligation(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.True(t, o.Amount.Equal(got.Amount))
	assert.Equal(t, o.NextOccurrence, got.NextOccurrence)

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, restored.SaveFile(path))
	fromFile, err := LoadFile(path)
	require.NoError(t, err)
	accounts, _ := fromFile.ListAccounts(ctx, "u1")
	assert.Len(t, accounts, 1)

	empty, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	list, _ := empty.ListObligations(ctx, "u1")
	assert.Empty(t, list)
}
