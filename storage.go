package formpipe

import (
	"context"

	"github.com/google/uuid"
)

// ConfigurationStore provides read access to form template definitions.
// Implementations can load templates from the relational store or from
// definition files. Fields are not assumed pre-sorted; callers order them
// via FormTemplate.SortedFields.
type ConfigurationStore interface {
	GetTemplate(ctx context.Context, templateID int64) (*FormTemplate, error)
}

// ImportTx is one transactional unit of the bulk import pipeline. All
// inserts issued through it either commit together or roll back together.
type ImportTx interface {
	// InsertSubmissions bulk-inserts the staged submission rows and returns
	// the generated identifiers, index-aligned with the input.
	InsertSubmissions(ctx context.Context, records []SubmissionRecord) ([]int64, error)
	// InsertResponses bulk-inserts response rows, sub-batched internally.
	InsertResponses(ctx context.Context, records []ResponseRecord) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PersistenceGateway is the transactional store consumed by the import
// pipeline and the export reader. It is the only shared mutable resource of
// a pipeline run.
type PersistenceGateway interface {
	// Begin opens one chunk-scoped transaction.
	Begin(ctx context.Context) (ImportTx, error)

	// InsertSubmission inserts a single submission immediately, outside any
	// pipeline transaction. Used by the streaming import variant.
	InsertSubmission(ctx context.Context, record SubmissionRecord) (int64, error)
	// InsertResponses inserts response rows immediately. Used by the
	// streaming import variant.
	InsertResponses(ctx context.Context, records []ResponseRecord) error

	// QueryRecentSubmissions returns the most recent submission ids for a
	// template/owner pair, newest first. Read helper for exports; insert
	// identifiers are returned by InsertSubmissions directly.
	QueryRecentSubmissions(ctx context.Context, templateID int64, ownerID uuid.UUID, limit int) ([]int64, error)
}

// TabularSource produces a lazy, finite, forward-only sequence of row
// records keyed by normalized column label. Next returns io.EOF after the
// last row. A source is restartable only by re-opening it.
type TabularSource interface {
	Next() (RowRecord, error)
	Close() error
}

// ProgressRecorder receives live counter updates from the streaming import
// variant, typically backed by a shared progress record visible to users.
type ProgressRecorder interface {
	RecordImported(n int)
	RecordSkipped(n int)
}

// Importer runs one bulk import of tabular rows against a template.
type Importer interface {
	Run(ctx context.Context, templateID int64, ownerID uuid.UUID, source TabularSource) (*ImportResult, error)
}

// Exporter projects submissions into header and cell rows for spreadsheet
// serialization.
type Exporter interface {
	Headings(template *FormTemplate) []string
	ProjectRow(sub *Submission, template *FormTemplate) []string
}
