package clock

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestToday_FixedClock(t *testing.T) {
	c := NewFixed(time.Date(2025, time.March, 21, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 21}, Today(c))
}

func TestNewFixedDate(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.February, Day: 29}
	assert.Equal(t, d, Today(NewFixedDate(d)))
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := NewReal().Now()
	assert.False(t, got.Before(before))
}
