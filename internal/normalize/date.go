package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var dayLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
}

// ParseDayOfMonth accepts "15", " 3 " or "21st" and returns a day in 1..31.
func ParseDayOfMonth(text string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ProjectDate places day in the given month, clamping to the month's last
// day. ProjectDate(2024, February, 31) is 2024-02-29.
func ProjectDate(year int, month time.Month, day int) civil.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()

	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// ParseDate accepts ISO dates (with or without a time part), DD/MM/YYYY in
// its common separators, or a bare day-of-month resolved into ref's month.
func ParseDate(text string, ref civil.Date) (civil.Date, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return civil.DateOf(t), true
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	if day, ok := ParseDayOfMonth(s); ok {
		return ProjectDate(ref.Year, ref.Month, day), true
	}
	return civil.Date{}, false
}

// FormatDate renders d as DD/MM/YYYY.
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}
