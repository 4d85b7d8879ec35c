package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is a single posted movement on a card.
// Negative amounts are outflows, positive amounts inflows.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CardID      string          `json:"card_id"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
}

// IsOutflow reports whether t takes money out of the account.
func (t Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}
