package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/ledgerplan/internal/dedup"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/importer"
)

// DefaultConcurrency bounds parallel saves when none is configured.
const DefaultConcurrency = 4

// Mode selects which drafts a commit persists.
type Mode string

const (
	ModeAll           Mode = "all"
	ModeNonDuplicates Mode = "non_duplicates"
)

// ParseMode accepts "all", "non_duplicates" or "non-duplicates".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return ModeAll, nil
	case "non_duplicates", "non-duplicates":
		return ModeNonDuplicates, nil
	}
	return "", fmt.Errorf("ParseMode: unknown import mode %q", s)
}

// RecordFailure is a draft that could not be saved.
type RecordFailure struct {
	Line  int    `json:"line"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchResult counts the outcome of one commit. Records are saved
// independently: a failure never rolls back earlier successes.
// AlreadyImported counts drafts stored by an earlier run of the same
// preview, which are not written again.
type BatchResult struct {
	Attempted         int             `json:"attempted"`
	Succeeded         int             `json:"succeeded"`
	Failed            int             `json:"failed"`
	SkippedDuplicates int             `json:"skipped_duplicates"`
	AlreadyImported   int             `json:"already_imported"`
	Failures          []RecordFailure `json:"failures,omitempty"`
}

// BatchImporter saves drafts with bounded concurrency.
type BatchImporter struct {
	repo  ObligationWriter
	limit int
	log   zerolog.Logger
}

// NewBatchImporter creates a BatchImporter. A limit below one uses
// DefaultConcurrency.
func NewBatchImporter(repo ObligationWriter, limit int, log zerolog.Logger) *BatchImporter {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &BatchImporter{repo: repo, limit: limit, log: log}
}

// ImportAll saves every draft.
func (b *BatchImporter) ImportAll(ctx context.Context, drafts []importer.Draft) BatchResult {
	return b.save(ctx, drafts)
}

// ImportNonDuplicates saves only drafts that do not match existing.
func (b *BatchImporter) ImportNonDuplicates(ctx context.Context, drafts []importer.Draft, existing []domain.RecurringObligation, detector dedup.Detector) BatchResult {
	dups, unique := detector.Partition(drafts, existing)
	res := b.save(ctx, unique)
	res.SkippedDuplicates = len(dups)
	return res
}

func (b *BatchImporter) save(ctx context.Context, drafts []importer.Draft) BatchResult {
	var (
		mu  sync.Mutex
		res = BatchResult{Attempted: len(drafts)}
		g   errgroup.Group
	)
	g.SetLimit(b.limit)

	for _, d := range drafts {
		g.Go(func() error {
			o := d.Obligation
			err := ctx.Err()
			if err == nil {
				err = b.repo.SaveObligation(ctx, &o)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Failures = append(res.Failures, RecordFailure{Line: d.Line, Name: o.Name, Error: err.Error()})
				b.log.Warn().Err(err).Int("line", d.Line).Str("name", o.Name).Msg("failed to save imported obligation")
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Line < res.Failures[j].Line })
	return res
}
