// Package inmemory is a process-local implementation of store.Store.
// Subscribers are notified synchronously after every mutation.
package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/store"
)

// Store keeps records in maps and hands out copies.
type Store struct {
	mu           sync.RWMutex
	obligations  map[string]domain.RecurringObligation
	transactions map[string]domain.Transaction
	accounts     map[string]domain.Account

	// notifyMu serialises deliveries so every subscriber sees snapshots in
	// mutation order. Callbacks must not mutate the store.
	notifyMu  sync.Mutex
	subMu     sync.Mutex
	nextSubID int
	oblSubs   map[string]map[int]func([]domain.RecurringObligation)
	txSubs    map[string]map[int]func([]domain.Transaction)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		obligations:  make(map[string]domain.RecurringObligation),
		transactions: make(map[string]domain.Transaction),
		accounts:     make(map[string]domain.Account),
		oblSubs:      make(map[string]map[int]func([]domain.RecurringObligation)),
		txSubs:       make(map[string]map[int]func([]domain.Transaction)),
	}
}

// ListObligations implements store.ObligationRepository.
func (s *Store) ListObligations(ctx context.Context, userID string) ([]domain.RecurringObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obligationsFor(userID), nil
}

func (s *Store) obligationsFor(userID string) []domain.RecurringObligation {
	out := []domain.RecurringObligation{}
	for _, o := range s.obligations {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetObligation implements store.ObligationRepository.
func (s *Store) GetObligation(ctx context.Context, userID, id string) (*domain.RecurringObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.obligations[id]
	if !ok || o.UserID != userID {
		return nil, fmt.Errorf("obligation %s: %w", id, store.ErrNotFound)
	}
	return &o, nil
}

// SaveObligation implements store.ObligationRepository.
func (s *Store) SaveObligation(ctx context.Context, o *domain.RecurringObligation) error {
	if o.UserID == "" {
		return fmt.Errorf("SaveObligation: user ID is required")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.obligations[o.ID] = *o
	s.mu.Unlock()

	s.notifyObligations(o.UserID)
	return nil
}

// DeleteObligation implements store.ObligationRepository.
func (s *Store) DeleteObligation(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	o, ok := s.obligations[id]
	if !ok || o.UserID != userID {
		s.mu.Unlock()
		return fmt.Errorf("obligation %s: %w", id, store.ErrNotFound)
	}
	delete(s.obligations, id)
	s.mu.Unlock()

	s.notifyObligations(userID)
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionsFor(filter), nil
}

func (s *Store) transactionsFor(filter store.TransactionFilter) []domain.Transaction {
	out := []domain.Transaction{}
	for _, t := range s.transactions {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.CardID != "" && t.CardID != filter.CardID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SaveTransaction implements store.TransactionRepository.
func (s *Store) SaveTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.UserID == "" || t.CardID == "" {
		return fmt.Errorf("SaveTransaction: user ID and card ID are required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.transactions[t.ID] = *t
	s.mu.Unlock()

	s.notifyTransactions(t.UserID)
	return nil
}

// DeleteTransaction implements store.TransactionRepository.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		s.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	delete(s.transactions, id)
	s.mu.Unlock()

	s.notifyTransactions(userID)
	return nil
}

// GetAccount implements store.AccountRepository.
func (s *Store) GetAccount(ctx context.Context, userID, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return &a, nil
}

// ListAccounts implements store.AccountRepository.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Account{}
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveAccount implements store.AccountRepository.
func (s *Store) SaveAccount(ctx context.Context, a *domain.Account) error {
	if a.UserID == "" {
		return fmt.Errorf("SaveAccount: user ID is required")
	}
	if _, ok := domain.ParseAccountType(string(a.Type)); !ok {
		return fmt.Errorf("SaveAccount: invalid account type %q", a.Type)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
	return nil
}

// SubscribeObligations implements store.ObligationFeed.
func (s *Store) SubscribeObligations(userID string, onData func([]domain.RecurringObligation)) store.Unsubscribe {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.oblSubs[userID] == nil {
		s.oblSubs[userID] = make(map[int]func([]domain.RecurringObligation))
	}
	s.oblSubs[userID][id] = onData
	s.subMu.Unlock()

	onData(s.snapshotObligations(userID))

	return s.unsubscriber(func() { delete(s.oblSubs[userID], id) })
}

// SubscribeTransactions implements store.TransactionFeed.
func (s *Store) SubscribeTransactions(userID string, onData func([]domain.Transaction)) store.Unsubscribe {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.txSubs[userID] == nil {
		s.txSubs[userID] = make(map[int]func([]domain.Transaction))
	}
	s.txSubs[userID][id] = onData
	s.subMu.Unlock()

	onData(s.snapshotTransactions(userID))

	return s.unsubscriber(func() { delete(s.txSubs[userID], id) })
}

func (s *Store) unsubscriber(remove func()) store.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			remove()
		})
	}
}

func (s *Store) snapshotObligations(userID string) []domain.RecurringObligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obligationsFor(userID)
}

func (s *Store) snapshotTransactions(userID string) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionsFor(store.TransactionFilter{UserID: userID})
}

func (s *Store) notifyObligations(userID string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]func([]domain.RecurringObligation), 0, len(s.oblSubs[userID]))
	for _, fn := range s.oblSubs[userID] {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	snapshot := s.snapshotObligations(userID)
	for _, fn := range subs {
		fn(append([]domain.RecurringObligation(nil), snapshot...))
	}
}

func (s *Store) notifyTransactions(userID string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]func([]domain.Transaction), 0, len(s.txSubs[userID]))
	for _, fn := range s.txSubs[userID] {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	snapshot := s.snapshotTransactions(userID)
	for _, fn := range subs {
		fn(append([]domain.Transaction(nil), snapshot...))
	}
}

type snapshotFile struct {
	Accounts     []domain.Account             `json:"accounts"`
	Obligations  []domain.RecurringObligation `json:"obligations"`
	Transactions []domain.Transaction         `json:"transactions"`
}

// Dump writes every record as JSON.
func (s *Store) Dump(w io.Writer) error {
	s.mu.RLock()
	var snap snapshotFile
	for _, a := range s.accounts {
		snap.Accounts = append(snap.Accounts, a)
	}
	for _, o := range s.obligations {
		snap.Obligations = append(snap.Obligations, o)
	}
	for _, t := range s.transactions {
		snap.Transactions = append(snap.Transactions, t)
	}
	s.mu.RUnlock()

	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].ID < snap.Accounts[j].ID })
	sort.Slice(snap.Obligations, func(i, j int) bool { return snap.Obligations[i].ID < snap.Obligations[j].ID })
	sort.Slice(snap.Transactions, func(i, j int) bool { return snap.Transactions[i].ID < snap.Transactions[j].ID })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("Dump: %w", err)
	}
	return nil
}

// Load replaces the store contents with a Dump. Subscribers are not notified.
func (s *Store) Load(r io.Reader) error {
	var snap snapshotFile
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("Load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]domain.Account, len(snap.Accounts))
	for _, a := range snap.Accounts {
		s.accounts[a.ID] = a
	}
	s.obligations = make(map[string]domain.RecurringObligation, len(snap.Obligations))
	for _, o := range snap.Obligations {
		s.obligations[o.ID] = o
	}
	s.transactions = make(map[string]domain.Transaction, len(snap.Transactions))
	for _, t := range snap.Transactions {
		s.transactions[t.ID] = t
	}
	return nil
}

// LoadFile opens a store from path. A missing file yields an empty store.
func LoadFile(path string) (*Store, error) {
	s := NewStore()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	defer f.Close()

	if err := s.Load(f); err != nil {
		return nil, fmt.Errorf("LoadFile: %s: %w", path, err)
	}
	return s, nil
}

// SaveFile writes a Dump to path.
func (s *Store) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveFile: %w", err)
	}
	if err := s.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
