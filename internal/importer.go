package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/luminahr/formpipe"
	"go.uber.org/zap"
)

// defaultChunkSize bounds how many input rows are validated and committed
// as one transactional unit. Spreadsheet sources can be arbitrarily large
// and must never be materialized wholesale.
const defaultChunkSize = 500

// stagedRow is one validated input row waiting for its chunk transaction.
type stagedRow struct {
	rowNumber  int
	submission formpipe.SubmissionRecord
	responses  map[int64]string
}

// BulkImporter streams rows from a tabular source, maps columns to fields
// by normalized label, validates each row, and commits accepted rows in
// bounded transactional chunks. Row failures skip the row; a failed chunk
// transaction discards the whole chunk; neither aborts the run. Only a
// missing or inactive template aborts before any row is read.
//
// A single run owns its accumulators; callers must not run two imports for
// the same template/owner pair concurrently.
type BulkImporter struct {
	store     formpipe.ConfigurationStore
	gateway   formpipe.PersistenceGateway
	validator *FieldValidator
	chunkSize int
	now       func() time.Time
}

// NewBulkImporter creates a bulk importer. A non-positive chunk size falls
// back to the default of 500 rows.
func NewBulkImporter(store formpipe.ConfigurationStore, gateway formpipe.PersistenceGateway, chunkSize int) *BulkImporter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &BulkImporter{
		store:     store,
		gateway:   gateway,
		validator: NewFieldValidator(),
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

// Run executes one import of source against the template. Returns the
// accumulated result; the returned error is non-nil only for fatal
// configuration failures (template missing or inactive).
func (im *BulkImporter) Run(ctx context.Context, templateID int64, ownerID uuid.UUID, source formpipe.TabularSource) (*formpipe.ImportResult, error) {
	started := im.now()

	template, err := im.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsActive() {
		return nil, formpipe.NewTemplateInactiveError(templateID)
	}
	fields := template.SortedFields()

	result := &formpipe.ImportResult{Errors: make([]formpipe.RowError, 0)}
	staged := make([]stagedRow, 0, im.chunkSize)

	// Row 1 is the header consumed by the source; data rows start at 2.
	rowNum := 1

	for {
		rowNum++
		record, err := source.Next()
		if errors.Is(err, io.EOF) {
			rowNum--
			break
		}
		if err != nil {
			// A malformed row is skipped like any other bad row; the
			// source keeps producing subsequent rows.
			zap.S().Warnw("bulk import: unreadable row", "row", rowNum, "error", err)
			result.SkippedCount++
			result.Errors = append(result.Errors, formpipe.RowError{
				RowNumber: rowNum,
				Code:      formpipe.ErrCodeSourceFailure,
				Message:   fmt.Sprintf("row %d could not be read: %v", rowNum, err),
			})
			continue
		}

		responses, rowErr := im.validateRow(fields, record)
		if rowErr != nil {
			result.SkippedCount++
			result.Errors = append(result.Errors, formpipe.RowError{
				RowNumber: rowNum,
				Code:      rowErr.Code,
				Message:   rowErr.Message,
			})
			continue
		}

		staged = append(staged, stagedRow{
			rowNumber: rowNum,
			submission: formpipe.SubmissionRecord{
				TemplateID:  templateID,
				OwnerID:     ownerID,
				Status:      formpipe.SubmissionStatusSubmitted,
				SubmittedAt: im.now(),
			},
			responses: responses,
		})

		if len(staged) >= im.chunkSize {
			im.commitChunk(ctx, staged, result)
			// Drop the chunk's working memory before pulling more rows.
			staged = make([]stagedRow, 0, im.chunkSize)
		}
	}

	if len(staged) > 0 {
		im.commitChunk(ctx, staged, result)
	}

	result.Duration = time.Since(started)
	zap.S().Infow("bulk import finished",
		"templateId", templateID,
		"ownerId", ownerID,
		"imported", result.ImportedCount,
		"skipped", result.SkippedCount,
		"errorSummary", result.ErrorSummary(),
		"duration", result.Duration,
	)
	return result, nil
}

// validateRow resolves each field's cell by normalized label and validates
// it in submit mode. Returns the accumulated field-id to value map, or the
// first validation failure.
func (im *BulkImporter) validateRow(fields []formpipe.FieldSchema, record formpipe.RowRecord) (map[int64]string, *formpipe.PipeError) {
	responses := make(map[int64]string, len(fields))
	for i := range fields {
		field := &fields[i]
		raw := record[field.ColumnKey()]
		if err := im.validator.Validate(field, raw, formpipe.ModeSubmit); err != nil {
			return nil, err
		}
		if raw != "" {
			responses[field.ID] = raw
		}
	}
	return responses, nil
}

// commitChunk inserts all staged rows of one chunk inside a single
// transaction: submissions first (their generated ids come back from the
// insert), then every response row keyed by those ids. A failure rolls the
// whole chunk back, counts every staged row as skipped, and records one
// chunk-level error; previously committed chunks are untouched.
func (im *BulkImporter) commitChunk(ctx context.Context, staged []stagedRow, result *formpipe.ImportResult) {
	err := im.insertChunk(ctx, staged)
	if err == nil {
		result.ImportedCount += len(staged)
		return
	}

	zap.S().Errorw("bulk import: chunk discarded",
		"rows", len(staged),
		"firstRow", staged[0].rowNumber,
		"lastRow", staged[len(staged)-1].rowNumber,
		"error", err,
	)
	result.SkippedCount += len(staged)
	result.Errors = append(result.Errors, formpipe.RowError{
		RowNumber: staged[0].rowNumber,
		Code:      formpipe.ErrCodePersistenceFailure,
		Message: fmt.Sprintf("rows %d-%d discarded: %v",
			staged[0].rowNumber, staged[len(staged)-1].rowNumber, err),
	})
}

func (im *BulkImporter) insertChunk(ctx context.Context, staged []stagedRow) error {
	tx, err := im.gateway.Begin(ctx)
	if err != nil {
		return formpipe.NewPersistenceError("begin chunk transaction", err)
	}

	submissions := make([]formpipe.SubmissionRecord, len(staged))
	for i, row := range staged {
		submissions[i] = row.submission
	}

	ids, err := tx.InsertSubmissions(ctx, submissions)
	if err == nil && len(ids) != len(staged) {
		err = fmt.Errorf("expected %d generated ids, got %d", len(staged), len(ids))
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return formpipe.NewPersistenceError("insert submissions", err)
	}

	responses := make([]formpipe.ResponseRecord, 0, len(staged))
	for i, row := range staged {
		for fieldID, value := range row.responses {
			responses = append(responses, formpipe.ResponseRecord{
				SubmissionID: ids[i],
				FieldID:      fieldID,
				Value:        value,
			})
		}
	}
	if err := tx.InsertResponses(ctx, responses); err != nil {
		_ = tx.Rollback(ctx)
		return formpipe.NewPersistenceError("insert responses", err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return formpipe.NewPersistenceError("commit chunk", err)
	}
	return nil
}
