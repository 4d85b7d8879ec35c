// Package dedup flags imported drafts that already exist for a user.
package dedup

import (
	"strings"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/importer"
	"github.com/dvloznov/ledgerplan/internal/normalize"
)

// Detector partitions drafts into duplicates and new records. A draft is a
// duplicate when an existing obligation on any card has the same name,
// ignoring case, and the same amount.
type Detector struct {
	// CompareFormatted compares the draft's raw amount text against the
	// existing amount rendered with Symbol, instead of comparing values.
	// "£12.990" and "£12.99" then differ.
	CompareFormatted bool
	Symbol           string
}

// Partition splits candidates, keeping their input order in both outputs.
func (d Detector) Partition(candidates []importer.Draft, existing []domain.RecurringObligation) (duplicates, unique []importer.Draft) {
	index := make(map[string][]domain.RecurringObligation, len(existing))
	for _, o := range existing {
		k := nameKey(o.Name)
		index[k] = append(index[k], o)
	}

	for _, c := range candidates {
		if d.matches(c, index[nameKey(c.Obligation.Name)]) {
			duplicates = append(duplicates, c)
			continue
		}
		unique = append(unique, c)
	}
	return duplicates, unique
}

func (d Detector) matches(c importer.Draft, sameName []domain.RecurringObligation) bool {
	for _, o := range sameName {
		if d.CompareFormatted {
			if strings.TrimSpace(c.RawAmount) == normalize.FormatAmount(o.Amount, d.Symbol) {
				return true
			}
			continue
		}
		if c.Obligation.Amount.Equal(o.Amount) {
			return true
		}
	}
	return false
}

// FindDuplicates partitions with value comparison of amounts.
func FindDuplicates(candidates []importer.Draft, existing []domain.RecurringObligation) (duplicates, unique []importer.Draft) {
	return Detector{}.Partition(candidates, existing)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
