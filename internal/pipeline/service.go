// Package pipeline orchestrates file imports: fetch, parse, duplicate
// detection and the deferred batch commit.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/dedup"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/importer"
	"github.com/dvloznov/ledgerplan/internal/logger"
)

// ImportRequest describes one uploaded file. Either Data or URI is set.
type ImportRequest struct {
	UserID   string
	CardID   string
	Filename string
	Data     []byte
	URI      string
}

// Preview is what the user reviews before choosing how to commit.
type Preview struct {
	BatchID    string                `json:"batch_id"`
	UserID     string                `json:"user_id"`
	CardID     string                `json:"card_id"`
	Filename   string                `json:"filename"`
	Checksum   string                `json:"checksum"`
	Source     importer.Source       `json:"source"`
	TotalRows  int                   `json:"total_rows"`
	Drafts     []importer.Draft      `json:"drafts"`
	Duplicates []importer.Draft      `json:"duplicates"`
	Unique     []importer.Draft      `json:"unique"`
	Skipped    []importer.SkippedRow `json:"skipped"`
}

// Service runs import previews and commits.
type Service struct {
	steps    []ImportStep
	repo     ObligationStore
	batch    *BatchImporter
	detector dedup.Detector
	log      zerolog.Logger
}

// Config wires a Service.
type Config struct {
	Files       FileSource
	Parser      *importer.Parser
	Repo        ObligationStore
	Detector    dedup.Detector
	Concurrency int
	Logger      zerolog.Logger
}

// NewService builds the preview steps and the batch importer.
func NewService(cfg Config) *Service {
	return &Service{
		steps: []ImportStep{
			&FetchFileStep{Files: cfg.Files},
			&ParseFileStep{Parser: cfg.Parser},
			&LoadExistingStep{Repo: cfg.Repo},
			&DetectDuplicatesStep{Detector: cfg.Detector},
		},
		repo:     cfg.Repo,
		batch:    NewBatchImporter(cfg.Repo, cfg.Concurrency, cfg.Logger),
		detector: cfg.Detector,
		log:      cfg.Logger,
	}
}

// Preview parses a file and reports which drafts already exist.
// Nothing is persisted.
func (s *Service) Preview(ctx context.Context, req ImportRequest) (*Preview, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("Preview: user ID is required")
	}
	log := logger.WithFields(s.log, map[string]interface{}{
		"user_id":  req.UserID,
		"card_id":  req.CardID,
		"filename": req.Filename,
	})

	state := &ImportState{Request: req}
	for _, step := range s.steps {
		if err := step.Execute(ctx, state); err != nil {
			log.Warn().Err(err).Msg("import preview failed")
			return nil, err
		}
	}

	res := state.Result
	log.Info().
		Str("batch_id", res.BatchID).
		Str("source", string(res.Source)).
		Int("drafts", len(res.Drafts)).
		Int("duplicates", len(state.Duplicates)).
		Int("skipped", len(res.Skipped)).
		Msg("import preview ready")

	return &Preview{
		BatchID:    res.BatchID,
		UserID:     req.UserID,
		CardID:     req.CardID,
		Filename:   state.Filename,
		Checksum:   res.Checksum,
		Source:     res.Source,
		TotalRows:  res.TotalRows,
		Drafts:     res.Drafts,
		Duplicates: state.Duplicates,
		Unique:     state.Unique,
		Skipped:    res.Skipped,
	}, nil
}

// Commit persists a preview. The user's obligations are re-read first:
// drafts already stored by an earlier run of this preview are left alone,
// and non-duplicate mode respects records saved since the preview.
func (s *Service) Commit(ctx context.Context, p *Preview, mode Mode) (BatchResult, error) {
	if mode != ModeAll && mode != ModeNonDuplicates {
		return BatchResult{}, fmt.Errorf("Commit: unknown mode %q", mode)
	}

	existing, err := s.repo.ListObligations(ctx, p.UserID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("Commit: listing obligations: %w", err)
	}
	pending, stored := unsaved(p.Drafts, existing)

	var res BatchResult
	if mode == ModeAll {
		res = s.batch.ImportAll(ctx, pending)
	} else {
		res = s.batch.ImportNonDuplicates(ctx, pending, withoutBatch(existing, p), s.detector)
	}
	res.AlreadyImported = stored

	s.log.Info().
		Str("batch_id", p.BatchID).
		Str("user_id", p.UserID).
		Str("mode", string(mode)).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Int("skipped_duplicates", res.SkippedDuplicates).
		Int("already_imported", res.AlreadyImported).
		Msg("import committed")
	return res, nil
}

// unsaved drops drafts whose record is already in existing.
func unsaved(drafts []importer.Draft, existing []domain.RecurringObligation) ([]importer.Draft, int) {
	ids := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		ids[o.ID] = struct{}{}
	}
	out := make([]importer.Draft, 0, len(drafts))
	for _, d := range drafts {
		if _, ok := ids[d.Obligation.ID]; !ok {
			out = append(out, d)
		}
	}
	return out, len(drafts) - len(out)
}

// withoutBatch drops obligations written by an earlier run of the same
// preview, so they are not mistaken for duplicates of its other drafts.
func withoutBatch(existing []domain.RecurringObligation, p *Preview) []domain.RecurringObligation {
	ids := make(map[string]struct{}, len(p.Drafts))
	for _, d := range p.Drafts {
		ids[d.Obligation.ID] = struct{}{}
	}
	out := make([]domain.RecurringObligation, 0, len(existing))
	for _, o := range existing {
		if _, ok := ids[o.ID]; !ok {
			out = append(out, o)
		}
	}
	return out
}
