package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

func TestReconcile(t *testing.T) {
	canonical := []string{"Entertainment", "Bills", "Utilities", "Health & Fitness", "Other"}
	r := NewReconciler(canonical)

	tests := []struct {
		raw  string
		want string
	}{
		{"Entertainment", "Entertainment"},
		{"entertainment", "Entertainment"},
		{"  BILLS ", "Bills"},
		{"Home Entertainment", "Entertainment"},
		{"util", "Utilities"},
		{"fitness", "Health & Fitness"},
		{"Gardening", "Other"},
		{"", "Other"},
		{"   ", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := r.Reconcile(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, canonical, got)
		})
	}
}

func TestReconcile_FirstPartialMatchWins(t *testing.T) {
	assert.Equal(t, "Bills", Reconcile("Utility Bills", []string{"Bills", "Utility Bills Extra", "Utilities"}))
	assert.Equal(t, "Utility Bills", Reconcile("utility bills", []string{"Bills", "Utility Bills"}))
}

func TestReconcile_DefaultVocabulary(t *testing.T) {
	r := NewReconciler(domain.DefaultVocabulary().Categories)
	assert.Equal(t, "Subscriptions", r.Reconcile("subscription"))
	assert.Equal(t, domain.CategoryOther, r.Reconcile("Pets"))
}
