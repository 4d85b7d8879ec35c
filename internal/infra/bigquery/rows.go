package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

type ObligationRow struct {
	ObligationID string `bigquery:"obligation_id"` // REQUIRED
	UserID       string `bigquery:"user_id"`       // REQUIRED

	Name        string              `bigquery:"name"`        // REQUIRED
	Description bigquery.NullString `bigquery:"description"` // NULLABLE

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC
	Frequency string   `bigquery:"frequency"` // REQUIRED
	Category  string   `bigquery:"category"`  // REQUIRED
	AnchorDay int64    `bigquery:"anchor_day"`

	NextOccurrence civil.Date `bigquery:"next_occurrence"` // REQUIRED DATE
	Status         string     `bigquery:"status"`          // REQUIRED

	OwnerCardID    bigquery.NullString `bigquery:"owner_card_id"`    // NULLABLE
	LinkedTargetID bigquery.NullString `bigquery:"linked_target_id"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID    string `bigquery:"user_id"`    // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	RawDescription string              `bigquery:"raw_description"` // REQUIRED
	CategoryName   bigquery.NullString `bigquery:"category_name"`   // NULLABLE
}

type AccountRow struct {
	AccountID   string `bigquery:"account_id"` // REQUIRED
	UserID      string `bigquery:"user_id"`    // REQUIRED
	AccountName string `bigquery:"account_name"`
	AccountType string `bigquery:"account_type"` // credit | debit
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ratToDecimal converts a NUMERIC value. NUMERIC has nine fractional digits.
func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return decimal.Zero, fmt.Errorf("ratToDecimal: %w", err)
	}
	return d, nil
}

// ObligationToRow maps a domain obligation for storage.
func ObligationToRow(o domain.RecurringObligation) ObligationRow {
	row := ObligationRow{
		ObligationID:   o.ID,
		UserID:         o.UserID,
		Name:           o.Name,
		Description:    nullString(o.Description),
		Amount:         o.Amount.Rat(),
		Frequency:      string(o.Frequency),
		Category:       o.Category,
		AnchorDay:      int64(o.AnchorDay),
		NextOccurrence: o.NextOccurrence,
		Status:         string(o.Status),
		OwnerCardID:    nullString(o.OwnerCardID),
		LinkedTargetID: nullString(o.LinkedTargetID),
		CreatedTS:      o.CreatedAt,
	}
	if !o.UpdatedAt.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: o.UpdatedAt, Valid: true}
	}
	return row
}

// RowToObligation maps a stored row back to the domain.
func RowToObligation(r ObligationRow) (domain.RecurringObligation, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.RecurringObligation{}, fmt.Errorf("RowToObligation: %s: %w", r.ObligationID, err)
	}
	freq, ok := domain.ParseFrequency(r.Frequency)
	if !ok {
		return domain.RecurringObligation{}, fmt.Errorf("RowToObligation: %s: invalid frequency %q", r.ObligationID, r.Frequency)
	}
	status, ok := domain.ParseStatus(r.Status)
	if !ok {
		return domain.RecurringObligation{}, fmt.Errorf("RowToObligation: %s: invalid status %q", r.ObligationID, r.Status)
	}

	o := domain.RecurringObligation{
		ID:             r.ObligationID,
		UserID:         r.UserID,
		Name:           r.Name,
		Description:    r.Description.StringVal,
		Amount:         amount,
		Frequency:      freq,
		Category:       r.Category,
		AnchorDay:      int(r.AnchorDay),
		NextOccurrence: r.NextOccurrence,
		Status:         status,
		OwnerCardID:    r.OwnerCardID.StringVal,
		LinkedTargetID: r.LinkedTargetID.StringVal,
		CreatedAt:      r.CreatedTS,
	}
	if r.UpdatedTS.Valid {
		o.UpdatedAt = r.UpdatedTS.Timestamp
	}
	return o, nil
}

// TransactionToRow maps a domain transaction for storage.
func TransactionToRow(t domain.Transaction) TransactionRow {
	return TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.UserID,
		AccountID:       t.CardID,
		TransactionDate: t.Date,
		Amount:          t.Amount.Rat(),
		RawDescription:  t.Description,
		CategoryName:    nullString(t.Category),
	}
}

// RowToTransaction maps a stored row back to the domain.
func RowToTransaction(r TransactionRow) (domain.Transaction, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("RowToTransaction: %s: %w", r.TransactionID, err)
	}
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		CardID:      r.AccountID,
		Date:        r.TransactionDate,
		Description: r.RawDescription,
		Category:    r.CategoryName.StringVal,
		Amount:      amount,
	}, nil
}

// AccountToRow maps a domain account for storage.
func AccountToRow(a domain.Account) AccountRow {
	return AccountRow{
		AccountID:   a.ID,
		UserID:      a.UserID,
		AccountName: a.Name,
		AccountType: string(a.Type),
	}
}

// RowToAccount maps a stored row back to the domain.
func RowToAccount(r AccountRow) (domain.Account, error) {
	t, ok := domain.ParseAccountType(r.AccountType)
	if !ok {
		return domain.Account{}, fmt.Errorf("RowToAccount: %s: invalid account type %q", r.AccountID, r.AccountType)
	}
	return domain.Account{ID: r.AccountID, UserID: r.UserID, Name: r.AccountName, Type: t}, nil
}
