package pipeline

import (
	"context"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

// FileSource fetches import payloads by URI.
type FileSource interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ObligationReader lists a user's current obligations.
type ObligationReader interface {
	ListObligations(ctx context.Context, userID string) ([]domain.RecurringObligation, error)
}

// ObligationWriter persists one obligation, replacing any with the same ID.
type ObligationWriter interface {
	SaveObligation(ctx context.Context, o *domain.RecurringObligation) error
}

// ObligationStore is what the import service needs from storage.
type ObligationStore interface {
	ObligationReader
	ObligationWriter
}
