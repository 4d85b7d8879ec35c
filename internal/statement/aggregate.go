// Package statement rolls card transactions up into monthly statements and
// decides which months are closed.
package statement

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

// CreditCutoverDay is the first day of the month on which a credit card's
// statement for that month is considered issued.
const CreditCutoverDay = 21

// CreditDueDay is the day of the following month a credit statement is due.
const CreditDueDay = 25

var (
	minimumPaymentFloor = decimal.NewFromInt(25)
	minimumPaymentRate  = decimal.RequireFromString("0.03")
)

// GroupByMonth buckets transactions by calendar month.
func GroupByMonth(txs []domain.Transaction) map[domain.Period][]domain.Transaction {
	groups := make(map[domain.Period][]domain.Transaction)
	for _, tx := range txs {
		p := domain.PeriodOf(tx.Date)
		groups[p] = append(groups[p], tx)
	}
	return groups
}

// Aggregate totals one month of transactions. Outflow is reported as a
// positive magnitude. The closing balance is the month's net change; it
// does not carry forward from earlier months.
func Aggregate(period domain.Period, account domain.Account, txs []domain.Transaction) domain.MonthlyStatement {
	sorted := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	outflow, inflow := decimal.Zero, decimal.Zero
	for _, tx := range sorted {
		if tx.IsOutflow() {
			outflow = outflow.Add(tx.Amount.Abs())
		} else {
			inflow = inflow.Add(tx.Amount)
		}
	}
	net := inflow.Sub(outflow)

	s := domain.MonthlyStatement{
		Period:           period,
		StartDate:        period.First(),
		EndDate:          period.Last(),
		CardID:           account.ID,
		AccountType:      account.Type,
		Transactions:     sorted,
		TransactionCount: len(sorted),
		TotalOutflow:     outflow,
		TotalInflow:      inflow,
		NetChange:        net,
		ClosingBalance:   net,
	}
	if account.Type == domain.AccountTypeCredit {
		minPay := decimal.Max(minimumPaymentFloor, outflow.Mul(minimumPaymentRate)).Round(2)
		due := civil.Date{Year: period.Next().Year, Month: period.Next().Month, Day: CreditDueDay}
		s.MinimumPayment = &minPay
		s.DueDate = &due
	}
	return s
}

// AvailabilityFor decides whether period has closed as of today. Earlier
// months are always available. The current month becomes available on the
// credit cutover day for credit cards and never for debit cards, whose
// cutover is the first of the next month. Later months are current.
func AvailabilityFor(period domain.Period, accountType domain.AccountType, today civil.Date) domain.Availability {
	now := domain.PeriodOf(today)
	switch {
	case period.Before(now):
		return domain.AvailabilityAvailable
	case period == now && accountType == domain.AccountTypeCredit && today.Day >= CreditCutoverDay:
		return domain.AvailabilityAvailable
	}
	return domain.AvailabilityCurrent
}

// Build aggregates every month with activity on the account, oldest first.
// Transactions for other cards are ignored.
func Build(txs []domain.Transaction, account domain.Account, today civil.Date) []domain.MonthlyStatement {
	var own []domain.Transaction
	for _, tx := range txs {
		if tx.CardID == account.ID {
			own = append(own, tx)
		}
	}

	groups := GroupByMonth(own)
	periods := make([]domain.Period, 0, len(groups))
	for p := range groups {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := make([]domain.MonthlyStatement, 0, len(periods))
	for _, p := range periods {
		s := Aggregate(p, account, groups[p])
		s.Availability = AvailabilityFor(p, account.Type, today)
		out = append(out, s)
	}
	return out
}

// AvailableStatements returns only closed statements, newest first.
func AvailableStatements(txs []domain.Transaction, account domain.Account, today civil.Date) []domain.MonthlyStatement {
	all := Build(txs, account, today)
	out := make([]domain.MonthlyStatement, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Availability == domain.AvailabilityAvailable {
			out = append(out, all[i])
		}
	}
	return out
}

// Find returns the available statement for period, if any.
func Find(statements []domain.MonthlyStatement, period domain.Period) (domain.MonthlyStatement, bool) {
	for _, s := range statements {
		if s.Period == period {
			return s, true
		}
	}
	return domain.MonthlyStatement{}, false
}
