package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing d.
func PeriodOf(d civil.Date) Period {
	return Period{Year: d.Year, Month: d.Month}
}

// ParsePeriod parses a "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("ParsePeriod: %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the "YYYY-MM" key.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// First returns the first day of the month.
func (p Period) First() civil.Date {
	return civil.Date{Year: p.Year, Month: p.Month, Day: 1}
}

// Last returns the last day of the month.
func (p Period) Last() civil.Date {
	return p.Next().First().AddDays(-1)
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Before reports whether p is an earlier month than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Availability marks whether a statement period has closed.
type Availability string

const (
	AvailabilityCurrent   Availability = "current"
	AvailabilityAvailable Availability = "available"
)

// MonthlyStatement aggregates one card's transactions for one month.
type MonthlyStatement struct {
	Period           Period          `json:"period"`
	StartDate        civil.Date      `json:"start_date"`
	EndDate          civil.Date      `json:"end_date"`
	CardID           string          `json:"card_id"`
	AccountType      AccountType     `json:"account_type"`
	Transactions     []Transaction   `json:"transactions"`
	TransactionCount int             `json:"transaction_count"`
	TotalOutflow     decimal.Decimal `json:"total_outflow"`
	TotalInflow      decimal.Decimal `json:"total_inflow"`
	NetChange        decimal.Decimal `json:"net_change"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	Availability     Availability    `json:"availability"`

	// Credit accounts only.
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"`
	DueDate        *civil.Date      `json:"due_date,omitempty"`
}
