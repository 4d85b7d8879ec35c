// Package recurrence projects anchor-day obligations onto concrete dates.
package recurrence

import (
	"iter"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/normalize"
)

// NextOccurrence returns the first date strictly after from that falls on
// anchorDay, clamped to month end. Passing the result back in walks the
// schedule forward one month at a time.
func NextOccurrence(anchorDay int, from civil.Date) civil.Date {
	candidate := normalize.ProjectDate(from.Year, from.Month, anchorDay)
	if candidate.After(from) {
		return candidate
	}
	return normalize.ProjectDate(from.Year, from.Month+1, anchorDay)
}

// OccurrencesInRange yields one date per calendar month, starting with the
// month of start, for monthsAhead months. Obligations that are not active
// yield nothing. The sequence is recomputed on every iteration.
func OccurrencesInRange(o domain.RecurringObligation, start civil.Date, monthsAhead int) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		if !o.IsActive() {
			return
		}
		for i := 0; i < monthsAhead; i++ {
			if !yield(normalize.ProjectDate(start.Year, start.Month+time.Month(i), o.AnchorDay)) {
				return
			}
		}
	}
}

// Occurrences collects OccurrencesInRange into a slice.
func Occurrences(o domain.RecurringObligation, start civil.Date, monthsAhead int) []civil.Date {
	return slices.Collect(OccurrencesInRange(o, start, monthsAhead))
}

// Refresh returns o with NextOccurrence recomputed relative to today.
func Refresh(o domain.RecurringObligation, today civil.Date) domain.RecurringObligation {
	o.NextOccurrence = NextOccurrence(o.AnchorDay, today)
	return o
}

// RefreshAll returns a copy of obligations with every NextOccurrence
// recomputed relative to today. The input slice is not modified.
func RefreshAll(obligations []domain.RecurringObligation, today civil.Date) []domain.RecurringObligation {
	out := make([]domain.RecurringObligation, len(obligations))
	for i, o := range obligations {
		out[i] = Refresh(o, today)
	}
	return out
}

// Occurrence is one projected debit on the calendar.
type Occurrence struct {
	ObligationID string          `json:"obligation_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Date         civil.Date      `json:"date"`
}

// Upcoming merges the projections of every active obligation into a single
// calendar ordered by date, then name.
func Upcoming(obligations []domain.RecurringObligation, start civil.Date, monthsAhead int) []Occurrence {
	var out []Occurrence
	for _, o := range obligations {
		for d := range OccurrencesInRange(o, start, monthsAhead) {
			out = append(out, Occurrence{
				ObligationID: o.ID,
				Name:         o.Name,
				Category:     o.Category,
				Amount:       o.Amount,
				Date:         d,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Occurrence) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}
