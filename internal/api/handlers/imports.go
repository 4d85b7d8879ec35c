package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/api/middleware"
	"github.com/dvloznov/ledgerplan/internal/importer"
	"github.com/dvloznov/ledgerplan/internal/jobs"
	"github.com/dvloznov/ledgerplan/internal/pipeline"
	"github.com/dvloznov/ledgerplan/internal/tabular"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 10 << 20

// Previewer parses an uploaded file into a reviewable preview.
type Previewer interface {
	Preview(ctx context.Context, req pipeline.ImportRequest) (*pipeline.Preview, error)
}

// ImportsHandler handles the two-step import: preview, then commit.
type ImportsHandler struct {
	previewer Previewer
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(previewer Previewer, publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		previewer: previewer,
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

type importResponse struct {
	JobID      string                `json:"job_id"`
	Status     jobs.JobStatus        `json:"status"`
	BatchID    string                `json:"batch_id"`
	Source     importer.Source       `json:"source"`
	TotalRows  int                   `json:"total_rows"`
	Drafts     []importer.Draft      `json:"drafts"`
	Duplicates []importer.Draft      `json:"duplicates"`
	Skipped    []importer.SkippedRow `json:"skipped"`
}

// CreateImport handles POST /api/imports. The file is sent either as a
// multipart "file" field or as a JSON body naming a gs:// URI.
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := readImportRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	preview, err := h.previewer.Preview(ctx, req)
	if err != nil {
		status, msg := importErrorStatus(err)
		h.log.Warn().Err(err).Str("user_id", req.UserID).Str("filename", req.Filename).Msg("Import preview failed")
		middleware.WriteError(w, status, msg)
		return
	}

	job := &jobs.ImportJob{
		JobID:     uuid.New().String(),
		UserID:    preview.UserID,
		CardID:    preview.CardID,
		BatchID:   preview.BatchID,
		Preview:   preview,
		Status:    jobs.JobStatusAwaitingDecision,
		CreatedAt: time.Now(),
	}
	if err := h.store.SaveJob(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to save import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save import job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("batch_id", job.BatchID).
		Int("drafts", len(preview.Drafts)).
		Int("duplicates", len(preview.Duplicates)).
		Msg("Import awaiting decision")

	middleware.WriteJSON(w, http.StatusCreated, importResponse{
		JobID:      job.JobID,
		Status:     job.Status,
		BatchID:    preview.BatchID,
		Source:     preview.Source,
		TotalRows:  preview.TotalRows,
		Drafts:     nonNilDrafts(preview.Drafts),
		Duplicates: nonNilDrafts(preview.Duplicates),
		Skipped:    nonNilSkipped(preview.Skipped),
	})
}

// CommitImport handles POST /api/imports/{job_id}/commit.
func (h *ImportsHandler) CommitImport(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	err = h.store.CompareAndSetStatus(ctx, jobID, jobs.JobStatusAwaitingDecision, jobs.JobStatusPending)
	if errors.Is(err, jobs.ErrStatusConflict) {
		middleware.WriteError(w, http.StatusConflict, "Import has already been committed")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to claim job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update job")
		return
	}

	job.Mode = mode
	// the queue owns job once published
	if err := h.publisher.PublishImport(ctx, job); err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to enqueue import job")
		if err := h.store.CompareAndSetStatus(ctx, jobID, jobs.JobStatusPending, jobs.JobStatusAwaitingDecision); err != nil {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to release job")
		}
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", jobID).Str("mode", string(mode)).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"mode":   string(mode),
		"status": string(jobs.JobStatusPending),
	})
}

func readImportRequest(r *http.Request) (pipeline.ImportRequest, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return pipeline.ImportRequest{}, errors.New("invalid multipart form")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return pipeline.ImportRequest{}, errors.New("file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return pipeline.ImportRequest{}, errors.New("failed to read file")
		}
		return pipeline.ImportRequest{
			UserID:   r.FormValue("user_id"),
			CardID:   r.FormValue("card_id"),
			Filename: filepath.Base(header.Filename),
			Data:     data,
		}, nil
	}

	var body struct {
		UserID  string `json:"user_id"`
		CardID  string `json:"card_id"`
		GCSURI  string `json:"gcs_uri"`
		Content string `json:"content"`
		Name    string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.ImportRequest{}, errors.New("invalid request body")
	}
	if body.GCSURI == "" && body.Content == "" {
		return pipeline.ImportRequest{}, errors.New("gcs_uri or content is required")
	}
	return pipeline.ImportRequest{
		UserID:   body.UserID,
		CardID:   body.CardID,
		Filename: body.Name,
		URI:      body.GCSURI,
		Data:     []byte(body.Content),
	}, nil
}

// importErrorStatus maps parse failures the user can fix to 422.
func importErrorStatus(err error) (int, string) {
	var missing *tabular.MissingHeaderError
	var empty *tabular.EmptyFileError
	var none *importer.NoRecordsFoundError
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, missing.Error()
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity, empty.Error()
	case errors.As(err, &none):
		return http.StatusUnprocessableEntity, none.Error()
	}
	return http.StatusInternalServerError, "Failed to read import file"
}

func nonNilDrafts(d []importer.Draft) []importer.Draft {
	if d == nil {
		return []importer.Draft{}
	}
	return d
}

func nonNilSkipped(s []importer.SkippedRow) []importer.SkippedRow {
	if s == nil {
		return []importer.SkippedRow{}
	}
	return s
}
