package domain

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want Frequency
		ok   bool
	}{
		{"Monthly", FrequencyMonthly, true},
		{" weekly ", FrequencyWeekly, true},
		{"ANNUALLY", FrequencyYearly, true},
		{"quarter", FrequencyQuarterly, true},
		{"fortnightly", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFrequency(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusToggle(t *testing.T) {
	assert.Equal(t, StatusPaused, StatusActive.Toggle())
	assert.Equal(t, StatusActive, StatusPaused.Toggle())
	assert.Equal(t, StatusCancelled, StatusCancelled.Toggle())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("Canceled")
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, s)

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestParseAccountType(t *testing.T) {
	at, ok := ParseAccountType("Credit")
	assert.True(t, ok)
	assert.Equal(t, AccountTypeCredit, at)

	_, ok = ParseAccountType("savings")
	assert.False(t, ok)
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod("2024-12")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: time.December}, p)
	assert.Equal(t, "2025-01", p.Next().String())
	assert.True(t, p.Before(p.Next()))
	assert.False(t, p.Next().Before(p))
	assert.Equal(t, civil.Date{Year: 2024, Month: time.December, Day: 1}, p.First())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.December, Day: 31}, p.Last())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 29}, Period{Year: 2024, Month: time.February}.Last())
	assert.Equal(t, civil.Date{Year: 2023, Month: time.February, Day: 28}, Period{Year: 2023, Month: time.February}.Last())

	_, err = ParsePeriod("2024/12")
	assert.Error(t, err)
}

func TestPeriodJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		P Period `json:"p"`
	}{Period{Year: 2025, Month: time.March}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"2025-03"}`, string(b))

	var out struct {
		P Period `json:"p"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, time.March, out.P.Month)
}

func TestDefaultVocabulary_ReturnsCopy(t *testing.T) {
	v := DefaultVocabulary()
	v.Categories[0] = "Mutated"
	assert.Equal(t, "Entertainment", DefaultVocabulary().Categories[0])
	assert.Contains(t, v.Labels(), "Monthly")
}
