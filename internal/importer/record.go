package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/ledgerplan/internal/category"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/normalize"
	"github.com/dvloznov/ledgerplan/internal/recurrence"
)

// importNamespace seeds obligation IDs derived from the batch, so replaying
// one preview targets the same records while a new upload gets new ones.
var importNamespace = uuid.MustParse("6f1c2a9e-4b7d-5e3f-9a61-0c8d2e4f7b15")

// ImportRecord is a loosely typed row. Every field may be empty until
// Validate turns it into an obligation.
type ImportRecord struct {
	Line        int
	Name        string
	Amount      string
	Frequency   string
	Category    string
	Day         string
	Description string
}

// Owner identifies who an import belongs to.
type Owner struct {
	UserID string
	CardID string
}

type validator struct {
	batchID    string
	owner      Owner
	today      civil.Date
	now        time.Time
	reconciler *category.Reconciler
}

func (v validator) validate(r ImportRecord) (domain.RecurringObligation, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return domain.RecurringObligation{}, fmt.Errorf("missing name")
	}

	amount, ok := normalize.ParseAmount(r.Amount)
	if !ok {
		return domain.RecurringObligation{}, fmt.Errorf("invalid amount %q", r.Amount)
	}
	if amount.IsZero() {
		return domain.RecurringObligation{}, fmt.Errorf("zero amount")
	}
	amount = amount.Abs()

	freq, ok := domain.ParseFrequency(r.Frequency)
	if !ok {
		return domain.RecurringObligation{}, fmt.Errorf("invalid frequency %q", r.Frequency)
	}

	day, ok := normalize.ParseDayOfMonth(r.Day)
	if !ok {
		d, isDate := normalize.ParseDate(r.Day, v.today)
		if !isDate {
			return domain.RecurringObligation{}, fmt.Errorf("invalid date %q", r.Day)
		}
		day = d.Day
	}

	id := uuid.NewSHA1(importNamespace, []byte(strings.Join([]string{
		v.batchID,
		strconv.Itoa(r.Line),
		strings.ToLower(name),
		amount.String(),
	}, "|")))

	return domain.RecurringObligation{
		ID:             id.String(),
		UserID:         v.owner.UserID,
		Name:           name,
		Description:    strings.TrimSpace(r.Description),
		Amount:         amount,
		Frequency:      freq,
		Category:       v.reconciler.Reconcile(r.Category),
		AnchorDay:      day,
		NextOccurrence: recurrence.NextOccurrence(day, v.today),
		Status:         domain.StatusActive,
		OwnerCardID:    v.owner.CardID,
		CreatedAt:      v.now,
		UpdatedAt:      v.now,
	}, nil
}
