package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledgerplan/internal/api/middleware"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/statement"
	"github.com/dvloznov/ledgerplan/internal/store"
)

// LedgerStore is what StatementsHandler needs from storage.
type LedgerStore interface {
	store.TransactionRepository
	store.AccountRepository
}

// StatementsHandler serves monthly statements and transaction edits.
type StatementsHandler struct {
	repo  LedgerStore
	clock clock.Clock
	log   zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(repo LedgerStore, clk clock.Clock, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{repo: repo, clock: clk, log: log}
}

// ListStatements handles GET /api/statements?user_id=&card_id=
// Only statements that are available for download are returned.
func (h *StatementsHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	account, txs, ok := h.load(w, r)
	if !ok {
		return
	}

	stmts := statement.AvailableStatements(txs, *account, clock.Today(h.clock))
	if stmts == nil {
		stmts = []domain.MonthlyStatement{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"card_id":    account.ID,
		"statements": stmts,
		"count":      len(stmts),
	})
}

// ExportStatement handles GET /api/statements/export?user_id=&card_id=&period=YYYY-MM
func (h *StatementsHandler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	account, txs, ok := h.load(w, r)
	if !ok {
		return
	}

	s, found := statement.Find(statement.Build(txs, *account, clock.Today(h.clock)), period)
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "No transactions for that period")
		return
	}
	if s.Availability != domain.AvailabilityAvailable {
		middleware.WriteError(w, http.StatusConflict, "Statement is not available yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.ExportFilename(s)))
	if err := statement.WriteCSV(w, s); err != nil {
		h.log.Error().Err(err).Str("card_id", account.ID).Msg("Failed to write statement")
	}
}

func (h *StatementsHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Account, []domain.Transaction, bool) {
	ctx := r.Context()
	query := r.URL.Query()
	userID, cardID := query.Get("user_id"), query.Get("card_id")
	if userID == "" || cardID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id and card_id are required")
		return nil, nil, false
	}

	account, err := h.repo.GetAccount(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Card not found")
			return nil, nil, false
		}
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to get account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get account")
		return nil, nil, false
	}

	txs, err := h.repo.ListTransactions(ctx, store.TransactionFilter{UserID: userID, CardID: cardID})
	if err != nil {
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return nil, nil, false
	}
	return account, txs, true
}

type transactionRequest struct {
	UserID      string `json:"user_id"`
	CardID      string `json:"card_id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *StatementsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.CardID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id and card_id are required")
		return
	}
	date, err := civil.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	tx := &domain.Transaction{
		ID:          id,
		UserID:      req.UserID,
		CardID:      req.CardID,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Amount:      amount,
	}
	if err := h.repo.SaveTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to save transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}?user_id=
func (h *StatementsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.repo.DeleteTransaction(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
