package dedup

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/importer"
)

func draft(name, raw string) importer.Draft {
	return importer.Draft{
		Obligation: domain.RecurringObligation{Name: name, Amount: decimal.RequireFromString(strings.TrimPrefix(raw, "£"))},
		RawAmount:  raw,
	}
}

func existing(name, amount, card string) domain.RecurringObligation {
	return domain.RecurringObligation{Name: name, Amount: decimal.RequireFromString(amount), OwnerCardID: card}
}

func TestFindDuplicates(t *testing.T) {
	current := []domain.RecurringObligation{
		existing("Netflix", "12.99", "card-a"),
		existing("Rent", "950", "card-b"),
	}
	candidates := []importer.Draft{
		draft("NETFLIX", "£12.99"),
		draft("Netflix", "£15.99"),
		draft("Gym", "£30.00"),
		draft(" rent ", "£950.00"),
	}

	dups, unique := FindDuplicates(candidates, current)

	require.Len(t, dups, 2)
	require.Len(t, unique, 2)
	assert.Equal(t, "NETFLIX", dups[0].Obligation.Name)
	assert.Equal(t, " rent ", dups[1].Obligation.Name)
	assert.Equal(t, "Netflix", unique[0].Obligation.Name)
	assert.Equal(t, "Gym", unique[1].Obligation.Name)
	assert.Len(t, append(dups, unique...), len(candidates))
}

func TestFindDuplicates_NoExisting(t *testing.T) {
	candidates := []importer.Draft{draft("Netflix", "£12.99")}
	dups, unique := FindDuplicates(candidates, nil)
	assert.Empty(t, dups)
	assert.Equal(t, candidates, unique)
}

func TestDetector_AmountComparisonModes(t *testing.T) {
	current := []domain.RecurringObligation{existing("Netflix", "12.99", "card-a")}
	candidates := []importer.Draft{draft("Netflix", "£12.990")}

	dups, _ := Detector{}.Partition(candidates, current)
	assert.Len(t, dups, 1, "value comparison treats 12.990 and 12.99 as equal")

	dups, unique := Detector{CompareFormatted: true, Symbol: "£"}.Partition(candidates, current)
	assert.Empty(t, dups, "formatted comparison sees different strings")
	assert.Len(t, unique, 1)

	dups, _ = Detector{CompareFormatted: true, Symbol: "£"}.Partition([]importer.Draft{draft("Netflix", "£12.99")}, current)
	assert.Len(t, dups, 1)
}
