package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Frequency is the declared cadence of a recurring obligation.
type Frequency string

const (
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyYearly    Frequency = "Yearly"
)

var frequencyAliases = map[string]Frequency{
	"weekly":    FrequencyWeekly,
	"week":      FrequencyWeekly,
	"monthly":   FrequencyMonthly,
	"month":     FrequencyMonthly,
	"quarterly": FrequencyQuarterly,
	"quarter":   FrequencyQuarterly,
	"yearly":    FrequencyYearly,
	"year":      FrequencyYearly,
	"annual":    FrequencyYearly,
	"annually":  FrequencyYearly,
}

// IsValid reports whether f is one of the canonical frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// ParseFrequency maps free text like "monthly" or " Annually " onto a
// canonical Frequency.
func ParseFrequency(s string) (Frequency, bool) {
	f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Status is the lifecycle state of a recurring obligation.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus parses a status case-insensitively. "canceled" is accepted.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "paused":
		return StatusPaused, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// Toggle flips between active and paused. Cancelled is terminal.
func (s Status) Toggle() Status {
	switch s {
	case StatusActive:
		return StatusPaused
	case StatusPaused:
		return StatusActive
	}
	return s
}

// RecurringObligation is a scheduled debit such as a subscription or bill.
type RecurringObligation struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   Frequency       `json:"frequency"`
	Category    string          `json:"category"`

	// AnchorDay is the day of month (1-31) the debit is taken. Months that
	// are too short clamp to their last day.
	AnchorDay int `json:"anchor_day"`

	// NextOccurrence is a cached projection; recompute it rather than trust it.
	NextOccurrence civil.Date `json:"next_occurrence"`

	Status         Status    `json:"status"`
	OwnerCardID    string    `json:"owner_card_id"`
	LinkedTargetID string    `json:"linked_target_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsActive reports whether the obligation should be projected.
func (o RecurringObligation) IsActive() bool {
	return o.Status == StatusActive
}
