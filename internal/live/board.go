// Package live keeps derived views of one user's data current as store
// feeds deliver new snapshots.
package live

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/recurrence"
	"github.com/dvloznov/ledgerplan/internal/statement"
	"github.com/dvloznov/ledgerplan/internal/store"
)

// DefaultMonths is the calendar horizon when none is configured.
const DefaultMonths = 3

// Feed is what a Board subscribes to.
type Feed interface {
	store.ObligationFeed
	store.TransactionFeed
}

// Snapshot is the derived state after the latest delivery.
type Snapshot struct {
	UserID      string                               `json:"user_id"`
	Obligations []domain.RecurringObligation         `json:"obligations"`
	Calendar    []recurrence.Occurrence              `json:"calendar"`
	Statements  map[string][]domain.MonthlyStatement `json:"statements"`
	Version     int                                  `json:"version"`
	UpdatedAt   time.Time                            `json:"updated_at"`
}

// Config configures a Board.
type Config struct {
	Feed     Feed
	UserID   string
	Accounts []domain.Account
	Months   int
	Clock    clock.Clock
	Logger   zerolog.Logger

	// OnChange, if set, is called after every recomputation with the new
	// snapshot. It must not call Stop.
	OnChange func(Snapshot)
}

// Board recomputes the calendar and the available statements of every
// account whenever obligations or transactions change.
type Board struct {
	cfg Config

	mu           sync.RWMutex
	obligations  []domain.RecurringObligation
	transactions []domain.Transaction
	snap         Snapshot

	// serializes recompute and OnChange so listeners see versions in order
	recomputeMu sync.Mutex

	unsubs []store.Unsubscribe
}

// NewBoard creates a Board. Call Start to begin receiving updates.
func NewBoard(cfg Config) *Board {
	if cfg.Months <= 0 {
		cfg.Months = DefaultMonths
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewReal()
	}
	return &Board{
		cfg:  cfg,
		snap: Snapshot{UserID: cfg.UserID, Statements: map[string][]domain.MonthlyStatement{}},
	}
}

// Start subscribes to both feeds.
func (b *Board) Start() {
	b.unsubs = append(b.unsubs,
		b.cfg.Feed.SubscribeObligations(b.cfg.UserID, b.onObligations),
		b.cfg.Feed.SubscribeTransactions(b.cfg.UserID, b.onTransactions),
	)
	b.cfg.Logger.Info().Str("user_id", b.cfg.UserID).Int("accounts", len(b.cfg.Accounts)).Msg("live board started")
}

// Stop cancels both subscriptions.
func (b *Board) Stop() {
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil
}

// Snapshot returns the latest derived state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Board) onObligations(obligations []domain.RecurringObligation) {
	b.mu.Lock()
	b.obligations = obligations
	b.mu.Unlock()
	b.recompute()
}

func (b *Board) onTransactions(txs []domain.Transaction) {
	b.mu.Lock()
	b.transactions = txs
	b.mu.Unlock()
	b.recompute()
}

func (b *Board) recompute() {
	b.recomputeMu.Lock()
	defer b.recomputeMu.Unlock()

	b.mu.RLock()
	obligations := b.obligations
	txs := b.transactions
	version := b.snap.Version
	b.mu.RUnlock()

	now := b.cfg.Clock.Now()
	today := clock.Today(b.cfg.Clock)

	snap := Snapshot{
		UserID:      b.cfg.UserID,
		Obligations: recurrence.RefreshAll(obligations, today),
		Calendar:    recurrence.Upcoming(obligations, today, b.cfg.Months),
		Statements:  make(map[string][]domain.MonthlyStatement, len(b.cfg.Accounts)),
		Version:     version + 1,
		UpdatedAt:   now,
	}
	for _, a := range b.cfg.Accounts {
		snap.Statements[a.ID] = statement.AvailableStatements(txs, a, today)
	}

	b.mu.Lock()
	b.snap = snap
	b.mu.Unlock()

	b.cfg.Logger.Debug().
		Int("version", snap.Version).
		Int("occurrences", len(snap.Calendar)).
		Msg("live board recomputed")

	if b.cfg.OnChange != nil {
		b.cfg.OnChange(snap)
	}
}
