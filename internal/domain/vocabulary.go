package domain

// CategoryOther is the fallback label for anything that does not reconcile.
const CategoryOther = "Other"

// Vocabulary is the canonical label table shared by import, category
// reconciliation and instruction-line filtering. Callers pass it explicitly.
type Vocabulary struct {
	Categories    []string
	Frequencies   []string
	MerchantHints []string
}

// DefaultVocabulary returns a fresh copy of the built-in labels.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: []string{
			"Entertainment",
			"Bills",
			"Utilities",
			"Subscriptions",
			"Insurance",
			"Housing",
			"Transport",
			"Groceries",
			"Health & Fitness",
			"Education",
			"Loans",
			"Savings",
			"Charity",
			CategoryOther,
		},
		Frequencies: []string{
			string(FrequencyWeekly),
			string(FrequencyMonthly),
			string(FrequencyQuarterly),
			string(FrequencyYearly),
		},
		MerchantHints: []string{
			"Netflix",
			"Spotify",
			"Amazon Prime",
			"Disney+",
			"Apple",
			"YouTube",
			"Sky",
			"Virgin Media",
			"BT",
			"Vodafone",
			"Council Tax",
			"British Gas",
			"Octopus Energy",
			"Thames Water",
			"TV Licence",
			"Gym",
		},
	}
}

// Labels returns every category and frequency label.
func (v Vocabulary) Labels() []string {
	out := make([]string, 0, len(v.Categories)+len(v.Frequencies))
	out = append(out, v.Categories...)
	return append(out, v.Frequencies...)
}
