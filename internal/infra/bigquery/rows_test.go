package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

func TestObligationRowMapping(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := domain.RecurringObligation{
		ID:             "o1",
		UserID:         "u1",
		Name:           "Netflix",
		Amount:         decimal.RequireFromString("12.99"),
		Frequency:      domain.FrequencyMonthly,
		Category:       "Entertainment",
		AnchorDay:      15,
		NextOccurrence: civil.Date{Year: 2026, Month: time.February, Day: 15},
		Status:         domain.StatusActive,
		OwnerCardID:    "card-1",
		CreatedAt:      created,
	}

	row := ObligationToRow(o)
	assert.Equal(t, "Monthly", row.Frequency)
	assert.Equal(t, 0, row.Amount.Cmp(big.NewRat(1299, 100)))
	assert.False(t, row.Description.Valid)
	assert.True(t, row.OwnerCardID.Valid)
	assert.False(t, row.UpdatedTS.Valid)

	back, err := RowToObligation(row)
	require.NoError(t, err)
	assert.True(t, back.Amount.Equal(o.Amount))
	back.Amount = o.Amount
	assert.Equal(t, o, back)
}

func TestRowToObligation_Invalid(t *testing.T) {
	row := ObligationRow{ObligationID: "o1", Frequency: "fortnightly", Status: "active"}
	_, err := RowToObligation(row)
	assert.ErrorContains(t, err, "invalid frequency")

	row = ObligationRow{ObligationID: "o1", Frequency: "Weekly", Status: "gone"}
	_, err = RowToObligation(row)
	assert.ErrorContains(t, err, "invalid status")
}

func TestTransactionRowMapping(t *testing.T) {
	tx := domain.Transaction{
		ID:          "t1",
		UserID:      "u1",
		CardID:      "c1",
		Date:        civil.Date{Year: 2026, Month: time.March, Day: 9},
		Description: "Tesco",
		Amount:      decimal.RequireFromString("-45.10"),
	}

	row := TransactionToRow(tx)
	assert.Equal(t, "c1", row.AccountID)
	assert.False(t, row.CategoryName.Valid)

	back, err := RowToTransaction(row)
	require.NoError(t, err)
	assert.True(t, back.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Date, back.Date)
	assert.Equal(t, tx.CardID, back.CardID)
}

func TestAccountRowMapping(t *testing.T) {
	a := domain.Account{ID: "c1", UserID: "u1", Name: "Amex", Type: domain.AccountTypeCredit}
	back, err := RowToAccount(AccountToRow(a))
	require.NoError(t, err)
	assert.Equal(t, a, back)

	_, err = RowToAccount(AccountRow{AccountID: "c2", AccountType: "savings"})
	assert.Error(t, err)
}

func TestRatToDecimal(t *testing.T) {
	d, err := ratToDecimal(nil)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = ratToDecimal(big.NewRat(1, 3))
	require.NoError(t, err)
	assert.Equal(t, "0.333333333", d.String())
}

func TestTableRef(t *testing.T) {
	assert.Equal(t, "`p.d.recurring_obligations`", tableRef("p", "d", obligationsTable))
}
