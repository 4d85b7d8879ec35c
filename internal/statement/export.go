package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/normalize"
)

const (
	TypeExpense = "Expense"
	TypeIncome  = "Income"
)

// ExportHeader is the column order of exported statements.
var ExportHeader = []string{"Date", "Description", "Category", "Amount", "Type"}

// ExportFilename names the CSV for a statement.
func ExportFilename(s domain.MonthlyStatement) string {
	return fmt.Sprintf("statement-%s-%s.csv", s.CardID, s.Period)
}

// WriteCSV writes one statement's transactions. Dates are DD/MM/YYYY and
// amounts keep their sign.
func WriteCSV(w io.Writer, s domain.MonthlyStatement) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("WriteCSV: failed to write header: %w", err)
	}
	for _, tx := range s.Transactions {
		kind := TypeIncome
		if tx.IsOutflow() {
			kind = TypeExpense
		}
		record := []string{
			normalize.FormatDate(tx.Date),
			tx.Description,
			tx.Category,
			tx.Amount.StringFixed(2),
			kind,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("WriteCSV: failed to write transaction %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

// ReadCSV parses an exported statement back into transactions for cardID.
func ReadCSV(r io.Reader, userID, cardID string) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ExportHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: failed to read header: %w", err)
	}
	for i, want := range ExportHeader {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), want) {
			return nil, fmt.Errorf("ReadCSV: unexpected column %d: %q, want %q", i+1, header[i], want)
		}
	}

	var txs []domain.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}

		date, ok := normalize.ParseDate(rec[0], civil.Date{})
		if !ok {
			return nil, fmt.Errorf("ReadCSV: line %d: invalid date %q", line, rec[0])
		}
		amount, ok := normalize.ParseAmount(rec[3])
		if !ok {
			return nil, fmt.Errorf("ReadCSV: line %d: invalid amount %q", line, rec[3])
		}
		switch rec[4] {
		case TypeExpense:
			amount = amount.Abs().Neg()
		case TypeIncome:
			amount = amount.Abs()
		default:
			return nil, fmt.Errorf("ReadCSV: line %d: invalid type %q", line, rec[4])
		}

		txs = append(txs, domain.Transaction{
			UserID:      userID,
			CardID:      cardID,
			Date:        date,
			Description: rec[1],
			Category:    rec[2],
			Amount:      amount,
		})
	}
	return txs, nil
}
