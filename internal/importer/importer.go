// Package importer turns uploaded obligation files into draft obligations
// ready for duplicate detection and persistence.
package importer

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dvloznov/ledgerplan/internal/category"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/tabular"
)

// Column names every structured file must provide.
const (
	ColumnCompany   = "company"
	ColumnAmount    = "amount"
	ColumnFrequency = "frequency"
	ColumnCategory  = "category"
	ColumnDate      = "date"
)

// RequiredColumns lists the header names matched by ParseTable.
var RequiredColumns = []string{ColumnCompany, ColumnAmount, ColumnFrequency, ColumnCategory, ColumnDate}

var binaryExtensions = map[string]bool{
	".xls":     true,
	".xlsx":    true,
	".xlsm":    true,
	".ods":     true,
	".numbers": true,
}

// Source tells how the drafts were obtained.
type Source string

const (
	SourceStructured Source = "structured"
	SourceBestEffort Source = "best_effort"
)

// Confidence is high for structured rows and low for best-effort hits.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Draft is a validated obligation that has not been persisted yet.
type Draft struct {
	Obligation domain.RecurringObligation `json:"obligation"`
	Line       int                        `json:"line"`
	RawAmount  string                     `json:"raw_amount"`
	Confidence Confidence                 `json:"confidence"`
}

// SkippedRow is a row that could not become a draft.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of parsing one file.
type Result struct {
	BatchID   string       `json:"batch_id"`
	Checksum  string       `json:"checksum"`
	Filename  string       `json:"filename"`
	Source    Source       `json:"source"`
	Drafts    []Draft      `json:"drafts"`
	Skipped   []SkippedRow `json:"skipped"`
	TotalRows int          `json:"total_rows"`
}

// Parser converts file payloads into drafts.
type Parser struct {
	vocab      domain.Vocabulary
	reconciler *category.Reconciler
	clock      clock.Clock
	newBatchID func() string
}

// NewParser creates a Parser over the given vocabulary.
func NewParser(vocab domain.Vocabulary, clk clock.Clock) *Parser {
	return &Parser{
		vocab:      vocab,
		reconciler: category.NewReconciler(vocab.Categories),
		clock:      clk,
		newBatchID: uuid.NewString,
	}
}

// Parse reads data as a delimited table, or scans it heuristically when it
// is a binary spreadsheet. Structured failures (missing headers, empty file)
// are returned as errors and never fall through to the heuristic path.
func (p *Parser) Parse(data []byte, filename string, owner Owner) (*Result, error) {
	now := p.clock.Now()
	result := &Result{
		BatchID:  p.newBatchID(),
		Checksum: Checksum(data, owner),
		Filename: filename,
	}
	v := validator{
		batchID:    result.BatchID,
		owner:      owner,
		today:      clock.Today(p.clock),
		now:        now,
		reconciler: p.reconciler,
	}

	if tabular.LooksBinary(data) || binaryExtensions[strings.ToLower(filepath.Ext(filename))] {
		return p.parseBestEffort(data, result, v)
	}
	return p.parseStructured(data, result, v)
}

func (p *Parser) parseStructured(data []byte, result *Result, v validator) (*Result, error) {
	table, err := tabular.ParseTable(string(data), tabular.Schema{
		Required:   RequiredColumns,
		EchoLabels: p.vocab.Labels(),
	})
	if err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}

	result.Source = SourceStructured
	result.TotalRows = len(table.Records) + len(table.Skipped)
	for _, s := range table.Skipped {
		result.Skipped = append(result.Skipped, SkippedRow{Line: s.Line, Reason: s.Reason})
	}

	descCol := optionalColumn(table.Header, "description", "notes")
	for _, rec := range table.Records {
		ir := ImportRecord{
			Line:      rec.Line,
			Name:      rec.Get(ColumnCompany),
			Amount:    rec.Get(ColumnAmount),
			Frequency: rec.Get(ColumnFrequency),
			Category:  rec.Get(ColumnCategory),
			Day:       rec.Get(ColumnDate),
		}
		if descCol >= 0 && descCol < len(rec.Raw) {
			ir.Description = rec.Raw[descCol]
		}

		o, err := v.validate(ir)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: rec.Line, Reason: err.Error()})
			continue
		}
		result.Drafts = append(result.Drafts, Draft{
			Obligation: o,
			Line:       rec.Line,
			RawAmount:  ir.Amount,
			Confidence: ConfidenceHigh,
		})
	}
	return result, nil
}

func (p *Parser) parseBestEffort(data []byte, result *Result, v validator) (*Result, error) {
	text := tabular.HarvestText(data)
	hits := tabular.ExtractBestEffortRecords(text, p.vocab.MerchantHints, p.vocab.Categories)

	result.Source = SourceBestEffort
	result.TotalRows = len(hits)
	for i, hit := range hits {
		ir := ImportRecord{
			Line:      i + 1,
			Name:      hit.Hint,
			Amount:    hit.Amount,
			Frequency: hit.Frequency,
			Category:  hit.Category,
			Day:       "1",
		}
		if ir.Frequency == "" {
			ir.Frequency = string(domain.FrequencyMonthly)
		}
		o, err := v.validate(ir)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: ir.Line, Reason: err.Error()})
			continue
		}
		result.Drafts = append(result.Drafts, Draft{
			Obligation: o,
			Line:       ir.Line,
			RawAmount:  hit.Amount,
			Confidence: ConfidenceLow,
		})
	}

	if len(result.Drafts) == 0 {
		return nil, &NoRecordsFoundError{Filename: result.Filename, Hits: len(hits)}
	}
	return result, nil
}

// Checksum identifies a payload and its owner. Uploading the same file
// again yields the same checksum but a new batch.
func Checksum(data []byte, owner Owner) string {
	sum := sha256.Sum256(data)
	key := owner.UserID + "|" + owner.CardID + "|" + strconv.Itoa(len(data)) + "|" + fmt.Sprintf("%x", sum)
	return uuid.NewSHA1(importNamespace, []byte(key)).String()
}

func optionalColumn(header []string, names ...string) int {
	for i, cell := range header {
		lc := strings.ToLower(cell)
		for _, n := range names {
			if strings.Contains(lc, n) {
				return i
			}
		}
	}
	return -1
}
