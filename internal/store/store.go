// Package store defines the persistence boundary for obligations,
// transactions and accounts, plus change subscriptions.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

// ErrNotFound is returned when a record does not exist for the user.
var ErrNotFound = errors.New("not found")

// ObligationRepository persists recurring obligations.
type ObligationRepository interface {
	// ListObligations returns every obligation owned by userID.
	ListObligations(ctx context.Context, userID string) ([]domain.RecurringObligation, error)

	// GetObligation returns one obligation or ErrNotFound.
	GetObligation(ctx context.Context, userID, id string) (*domain.RecurringObligation, error)

	// SaveObligation inserts or replaces by ID. An empty ID is assigned.
	SaveObligation(ctx context.Context, o *domain.RecurringObligation) error

	// DeleteObligation removes one obligation or returns ErrNotFound.
	DeleteObligation(ctx context.Context, userID, id string) error
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	UserID string
	CardID string
}

// TransactionRepository persists card transactions.
type TransactionRepository interface {
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	SaveTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// AccountRepository resolves cards.
type AccountRepository interface {
	GetAccount(ctx context.Context, userID, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// ObligationFeed delivers a full snapshot of a user's obligations whenever
// they change. The first snapshot is delivered on subscribe.
type ObligationFeed interface {
	SubscribeObligations(userID string, onData func([]domain.RecurringObligation)) Unsubscribe
}

// TransactionFeed delivers a full snapshot of a user's transactions.
type TransactionFeed interface {
	SubscribeTransactions(userID string, onData func([]domain.Transaction)) Unsubscribe
}

// Store bundles every repository and feed.
type Store interface {
	ObligationRepository
	TransactionRepository
	AccountRepository
	ObligationFeed
	TransactionFeed
}
