package tabular

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// window is how many bytes either side of a hint are searched for fields.
const window = 120

var (
	symbolAmountRe = regexp.MustCompile(`[£$€]\s?-?\d+(?:,\d{3})*(?:\.\d{1,2})?`)
	plainAmountRe  = regexp.MustCompile(`\b\d+\.\d{2}\b`)
	frequencyRe    = regexp.MustCompile(`(?i)\b(weekly|monthly|quarterly|yearly|annually|annual)\b`)
)

// PartialRecord is a low-confidence hit from unstructured text. Any field
// but Hint may be empty.
type PartialRecord struct {
	Hint      string `json:"hint"`
	Offset    int    `json:"offset"`
	Amount    string `json:"amount,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Category  string `json:"category,omitempty"`
	Snippet   string `json:"snippet"`
}

// ExtractBestEffortRecords scans text for known merchant names and pulls
// fields from a bounded window around each hit. The amount must follow the
// name; frequency and category may also precede it.
// Repeated hits with the same hint and amount are reported once.
func ExtractBestEffortRecords(text string, hints, categories []string) []PartialRecord {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		text = lower
	}
	seen := make(map[string]struct{})
	var out []PartialRecord

	for _, hint := range hints {
		h := strings.ToLower(hint)
		if h == "" {
			continue
		}
		for from := 0; from < len(lower); {
			idx := strings.Index(lower[from:], h)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(h)
			from = end
			if !isBoundary(lower, start-1) || !isBoundary(lower, end) {
				continue
			}

			forward := text[end:clampRune(text, end+window)]
			around := text[clampRune(text, start-window):clampRune(text, end+window)]

			rec := PartialRecord{
				Hint:    hint,
				Offset:  start,
				Snippet: strings.Join(strings.Fields(around), " "),
			}
			rec.Amount = earliest(forward, symbolAmountRe, plainAmountRe)
			if rec.Frequency = frequencyRe.FindString(forward); rec.Frequency == "" {
				rec.Frequency = frequencyRe.FindString(around)
			}
			if rec.Category = findLabel(forward, categories); rec.Category == "" {
				rec.Category = findLabel(around, categories)
			}

			key := h + "|" + rec.Amount
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// earliest returns the leftmost match of any pattern.
func earliest(s string, patterns ...*regexp.Regexp) string {
	best, bestAt := "", -1
	for _, re := range patterns {
		loc := re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		if bestAt < 0 || loc[0] < bestAt {
			best, bestAt = s[loc[0]:loc[1]], loc[0]
		}
	}
	return strings.TrimSpace(best)
}

func findLabel(s string, labels []string) string {
	lower := strings.ToLower(s)
	for _, label := range labels {
		l := strings.ToLower(label)
		if l == "" || l == "other" {
			continue
		}
		if i := strings.Index(lower, l); i >= 0 && isBoundary(lower, i-1) && isBoundary(lower, i+len(l)) {
			return label
		}
	}
	return ""
}

// isBoundary reports whether the byte at i is outside s or not part of a word.
func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	if r == utf8.RuneError {
		r, _ = utf8.DecodeLastRuneInString(s[:i+1])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// clampRune bounds i to s and moves it back onto a rune start.
func clampRune(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
