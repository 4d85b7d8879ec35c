package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledgerplan/internal/dedup"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/gcs"
	"github.com/dvloznov/ledgerplan/internal/importer"
)

// ImportStep is a single stage of the import preview.
type ImportStep interface {
	Execute(ctx context.Context, state *ImportState) error
}

// ImportState is shared across steps.
type ImportState struct {
	Request    ImportRequest
	Data       []byte
	Filename   string
	Result     *importer.Result
	Existing   []domain.RecurringObligation
	Duplicates []importer.Draft
	Unique     []importer.Draft
}

// FetchFileStep loads the payload from the request or from Cloud Storage.
type FetchFileStep struct {
	Files FileSource
}

func (s *FetchFileStep) Execute(ctx context.Context, state *ImportState) error {
	req := state.Request
	state.Filename = req.Filename

	if req.URI == "" {
		state.Data = req.Data
		return nil
	}
	if s.Files == nil {
		return fmt.Errorf("FetchFileStep: no file source configured for %s", req.URI)
	}
	data, err := s.Files.Fetch(ctx, req.URI)
	if err != nil {
		return fmt.Errorf("FetchFileStep: %w", err)
	}
	state.Data = data
	if state.Filename == "" {
		state.Filename = gcs.FilenameFromURI(req.URI)
	}
	return nil
}

// ParseFileStep turns the payload into drafts.
type ParseFileStep struct {
	Parser *importer.Parser
}

func (s *ParseFileStep) Execute(ctx context.Context, state *ImportState) error {
	res, err := s.Parser.Parse(state.Data, state.Filename, importer.Owner{
		UserID: state.Request.UserID,
		CardID: state.Request.CardID,
	})
	if err != nil {
		return err
	}
	state.Result = res
	return nil
}

// LoadExistingStep reads the user's obligations for duplicate detection.
type LoadExistingStep struct {
	Repo ObligationReader
}

func (s *LoadExistingStep) Execute(ctx context.Context, state *ImportState) error {
	existing, err := s.Repo.ListObligations(ctx, state.Request.UserID)
	if err != nil {
		return fmt.Errorf("LoadExistingStep: %w", err)
	}
	state.Existing = existing
	return nil
}

// DetectDuplicatesStep partitions drafts against the existing obligations.
type DetectDuplicatesStep struct {
	Detector dedup.Detector
}

func (s *DetectDuplicatesStep) Execute(ctx context.Context, state *ImportState) error {
	state.Duplicates, state.Unique = s.Detector.Partition(state.Result.Drafts, state.Existing)
	return nil
}
