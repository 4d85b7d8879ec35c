// Package app wires configuration into the concrete store, file source and
// import service shared by the commands.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/config"
	"github.com/dvloznov/ledgerplan/internal/dedup"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/gcs"
	infraBQ "github.com/dvloznov/ledgerplan/internal/infra/bigquery"
	"github.com/dvloznov/ledgerplan/internal/importer"
	"github.com/dvloznov/ledgerplan/internal/pipeline"
	"github.com/dvloznov/ledgerplan/internal/store"
	"github.com/dvloznov/ledgerplan/internal/store/inmemory"
)

// Backend is an opened store plus the resources behind it.
type Backend struct {
	Store store.Store
	Files *gcs.Client

	closers []func() error
}

// Open builds the backend selected by cfg.StoreBackend. A GCS client is
// created when a bucket is configured or BigQuery is in use.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.StoreBackend {
	case config.BackendBigQuery:
		repo, err := infraBQ.NewRepository(ctx, infraBQ.Options{
			ProjectID:    cfg.GCPProject,
			DatasetID:    cfg.BQDataset,
			PollInterval: cfg.PollInterval,
			Logger:       log,
		})
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		b.Store = repo
		b.closers = append(b.closers, repo.Close)
	default:
		mem, err := openMemory(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		b.Store = mem
		if cfg.DataFile != "" {
			path := cfg.DataFile
			b.closers = append(b.closers, func() error { return mem.SaveFile(path) })
		}
	}

	if cfg.GCSBucket != "" || cfg.StoreBackend == config.BackendBigQuery {
		files, err := gcs.NewClient(ctx)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		b.Files = files
		b.closers = append(b.closers, files.Close)
	}

	log.Info().
		Str("backend", cfg.StoreBackend).
		Bool("gcs", b.Files != nil).
		Msg("Backend ready")
	return b, nil
}

func openMemory(path string) (*inmemory.Store, error) {
	if path == "" {
		return inmemory.NewStore(), nil
	}
	return inmemory.LoadFile(path)
}

// FileSource returns the GCS client as a pipeline.FileSource, or nil.
func (b *Backend) FileSource() pipeline.FileSource {
	if b.Files == nil {
		return nil
	}
	return b.Files
}

// Close releases resources in reverse order, saving the memory snapshot
// if one is configured. The first error is returned.
func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// NewImportService builds the preview/commit service over b.
func NewImportService(b *Backend, cfg config.Config, clk clock.Clock, log zerolog.Logger) *pipeline.Service {
	return pipeline.NewService(pipeline.Config{
		Files:       b.FileSource(),
		Parser:      importer.NewParser(domain.DefaultVocabulary(), clk),
		Repo:        b.Store,
		Detector:    dedup.Detector{Symbol: cfg.CurrencySymbol},
		Concurrency: cfg.ImportConcurrency,
		Logger:      log,
	})
}
