package domain

import "strings"

// AccountType determines statement cutover rules.
type AccountType string

const (
	AccountTypeCredit AccountType = "credit"
	AccountTypeDebit  AccountType = "debit"
)

// ParseAccountType parses "credit" or "debit" case-insensitively.
func ParseAccountType(s string) (AccountType, bool) {
	switch AccountType(strings.ToLower(strings.TrimSpace(s))) {
	case AccountTypeCredit:
		return AccountTypeCredit, true
	case AccountTypeDebit:
		return AccountTypeDebit, true
	}
	return "", false
}

// Account is a card owned by a user.
type Account struct {
	ID     string      `json:"id"`
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Type   AccountType `json:"type"`
}
