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

// StreamImporter is the queued/background variant of the import pipeline.
// It processes rows one at a time and inserts each accepted row's
// submission and responses immediately, trading chunk atomicity for
// continuous progress visibility: shared counters on an external progress
// record are bumped after every row. A row that fails validation or
// insertion is dropped with a logged reason; the stream never aborts.
type StreamImporter struct {
	store     formpipe.ConfigurationStore
	gateway   formpipe.PersistenceGateway
	validator *FieldValidator
	progress  formpipe.ProgressRecorder
	now       func() time.Time

	// firstRowLogged is owned by this instance; each run of a fresh
	// importer logs its first row once for debugging column mapping.
	firstRowLogged bool
}

// NewStreamImporter creates a streaming importer. progress may be nil when
// no external progress record exists.
func NewStreamImporter(store formpipe.ConfigurationStore, gateway formpipe.PersistenceGateway, progress formpipe.ProgressRecorder) *StreamImporter {
	return &StreamImporter{
		store:     store,
		gateway:   gateway,
		validator: NewFieldValidator(),
		progress:  progress,
		now:       time.Now,
	}
}

// Run consumes the source to exhaustion. The returned error is non-nil
// only for fatal configuration failures, mirroring BulkImporter.Run.
func (si *StreamImporter) Run(ctx context.Context, templateID int64, ownerID uuid.UUID, source formpipe.TabularSource) (*formpipe.ImportResult, error) {
	started := si.now()

	template, err := si.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsActive() {
		return nil, formpipe.NewTemplateInactiveError(templateID)
	}
	fields := template.SortedFields()

	result := &formpipe.ImportResult{Errors: make([]formpipe.RowError, 0)}
	rowNum := 1

	for {
		rowNum++
		record, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			si.skip(result, rowNum, formpipe.ErrCodeSourceFailure,
				fmt.Sprintf("row %d could not be read: %v", rowNum, err))
			continue
		}

		if !si.firstRowLogged {
			si.firstRowLogged = true
			zap.S().Debugw("stream import: first row", "row", rowNum, "columns", len(record))
		}

		responses, rowErr := si.validateRecord(fields, record)
		if rowErr != nil {
			si.skip(result, rowNum, rowErr.Code, rowErr.Message)
			continue
		}

		if err := si.insertRow(ctx, templateID, ownerID, responses); err != nil {
			si.skip(result, rowNum, formpipe.ErrCodePersistenceFailure,
				fmt.Sprintf("row %d insert failed: %v", rowNum, err))
			continue
		}

		result.ImportedCount++
		if si.progress != nil {
			si.progress.RecordImported(1)
		}
	}

	result.Duration = time.Since(started)
	zap.S().Infow("stream import finished",
		"templateId", templateID,
		"imported", result.ImportedCount,
		"skipped", result.SkippedCount,
		"duration", result.Duration,
	)
	return result, nil
}

func (si *StreamImporter) validateRecord(fields []formpipe.FieldSchema, record formpipe.RowRecord) (map[int64]string, *formpipe.PipeError) {
	responses := make(map[int64]string, len(fields))
	for i := range fields {
		field := &fields[i]
		raw := record[field.ColumnKey()]
		if err := si.validator.Validate(field, raw, formpipe.ModeSubmit); err != nil {
			return nil, err
		}
		if raw != "" {
			responses[field.ID] = raw
		}
	}
	return responses, nil
}

func (si *StreamImporter) insertRow(ctx context.Context, templateID int64, ownerID uuid.UUID, responses map[int64]string) error {
	submissionID, err := si.gateway.InsertSubmission(ctx, formpipe.SubmissionRecord{
		TemplateID:  templateID,
		OwnerID:     ownerID,
		Status:      formpipe.SubmissionStatusSubmitted,
		SubmittedAt: si.now(),
	})
	if err != nil {
		return err
	}

	records := make([]formpipe.ResponseRecord, 0, len(responses))
	for fieldID, value := range responses {
		records = append(records, formpipe.ResponseRecord{
			SubmissionID: submissionID,
			FieldID:      fieldID,
			Value:        value,
		})
	}
	return si.gateway.InsertResponses(ctx, records)
}

func (si *StreamImporter) skip(result *formpipe.ImportResult, rowNum int, code, message string) {
	zap.S().Warnw("stream import: row dropped", "row", rowNum, "code", code, "reason", message)
	result.SkippedCount++
	result.Errors = append(result.Errors, formpipe.RowError{RowNumber: rowNum, Code: code, Message: message})
	if si.progress != nil {
		si.progress.RecordSkipped(1)
	}
}
