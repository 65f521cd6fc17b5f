package formpipe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldType enumerates the supported form field types. Validation dispatches
// on this closed set; unknown types are rejected at template load time.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeEmail    FieldType = "email"
	FieldTypeDate     FieldType = "date"
	FieldTypeDropdown FieldType = "dropdown"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeFile     FieldType = "file"
)

// Valid reports whether the field type is one of the supported variants.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeEmail,
		FieldTypeDate, FieldTypeDropdown, FieldTypeRadio, FieldTypeCheckbox,
		FieldTypeFile:
		return true
	}
	return false
}

// HasOptions reports whether the field type carries an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeDropdown || t == FieldTypeRadio || t == FieldTypeCheckbox
}

// ValidationRules holds the optional per-field constraints. Bounds are
// resolved once at template load time; a nil pointer means the bound is not
// set. For number fields Min/Max are numeric bounds, for text fields they
// act as length bounds alongside MinLength/MaxLength.
type ValidationRules struct {
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Pattern   string   `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// FieldSchema is the immutable in-memory definition of one form field:
// its type, constraints and option set. Instances are read-only snapshots
// taken from the configuration store.
type FieldSchema struct {
	ID       int64            `json:"id"`
	Label    string           `json:"label"`
	Type     FieldType        `json:"type"`
	Required bool             `json:"is_required"`
	Options  []string         `json:"options,omitempty"`
	Order    int              `json:"order"`
	Rules    *ValidationRules `json:"validation_rules,omitempty"`
}

// ColumnKey returns the normalized label used to match spreadsheet columns
// to fields during import.
func (f *FieldSchema) ColumnKey() string {
	return NormalizeLabel(f.Label)
}

// HasOption reports whether value is a member of the field's option list.
// Matching is exact and case-sensitive.
func (f *FieldSchema) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// NormalizeLabel converts a display label into a column-matching key:
// lowercase with spaces replaced by underscores.
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// TemplateStatus represents the lifecycle state of a form template.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusInactive TemplateStatus = "inactive"
)

// TemplateType governs which employee groups may submit against a template.
type TemplateType string

const (
	TemplateTypeMain        TemplateType = "main"
	TemplateTypeRestrictedA TemplateType = "restricted_a"
	TemplateTypeRestrictedB TemplateType = "restricted_b"
)

// FormTemplate is a frozen snapshot of a template: an ordered collection of
// field schemas plus status and type. The core never mutates a template.
type FormTemplate struct {
	ID     int64          `json:"id"`
	Title  string         `json:"title"`
	Status TemplateStatus `json:"status"`
	Type   TemplateType   `json:"template_type"`
	Fields []FieldSchema  `json:"fields"`
}

// IsActive reports whether submissions may be created against the template.
func (t *FormTemplate) IsActive() bool {
	return t.Status == TemplateStatusActive
}

// SortedFields returns the fields ordered by display order, ties broken by
// field id. The sort is deterministic so export headings and row values
// always align positionally.
func (t *FormTemplate) SortedFields() []FieldSchema {
	fields := make([]FieldSchema, len(t.Fields))
	copy(fields, t.Fields)
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Order != fields[j].Order {
			return fields[i].Order < fields[j].Order
		}
		return fields[i].ID < fields[j].ID
	})
	return fields
}

// FieldByID returns the field with the given id, or nil if absent.
func (t *FormTemplate) FieldByID(id int64) *FieldSchema {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i]
		}
	}
	return nil
}

// ValidationMode selects the strictness level applied by validators.
// Draft mode skips required-field enforcement so incremental saves are not
// blocked; Submit mode enforces the full contract.
type ValidationMode string

const (
	ModeDraft  ValidationMode = "draft"
	ModeSubmit ValidationMode = "submit"
)

// SubmissionStatus represents the lifecycle state of one filled form.
type SubmissionStatus string

const (
	SubmissionStatusDraft     SubmissionStatus = "draft"
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusApproved  SubmissionStatus = "approved"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

// Submission is the read model of one filled template instance, including
// the response values keyed by field id. Values are stored as raw strings;
// type coercion happens only during validation.
type Submission struct {
	ID            int64            `json:"id"`
	TemplateID    int64            `json:"template_id"`
	TemplateTitle string           `json:"template_title"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	OwnerName     string           `json:"owner_name"`
	OwnerEmail    string           `json:"owner_email"`
	Status        SubmissionStatus `json:"status"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	ReviewedBy    string           `json:"reviewed_by,omitempty"`
	Comments      string           `json:"comments,omitempty"`
	Responses     map[int64]string `json:"responses,omitempty"`
}

// SubmissionRecord is one pending submission row staged for insertion.
type SubmissionRecord struct {
	TemplateID  int64
	OwnerID     uuid.UUID
	Status      SubmissionStatus
	SubmittedAt time.Time
}

// ResponseRecord is one pending (submission, field, value) row staged for
// insertion. The pairing is load-bearing for export and re-import symmetry.
type ResponseRecord struct {
	SubmissionID int64
	FieldID      int64
	Value        string
}

// RowRecord is one row produced by a tabular source: a mapping from
// normalized column label to the raw cell value.
type RowRecord map[string]string

// RowError records why one input row was rejected during import.
type RowError struct {
	RowNumber int    `json:"row_number"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d [%s]: %s", e.RowNumber, e.Code, e.Message)
}

// ImportResult accumulates the outcome of one import pipeline run. It is
// created empty at pipeline start, mutated only by the pipeline during its
// single run, and immutable once returned to the caller.
type ImportResult struct {
	ImportedCount int           `json:"imported_count"`
	SkippedCount  int           `json:"skipped_count"`
	Errors        []RowError    `json:"errors"`
	Duration      time.Duration `json:"duration"`
}

// Summary returns a human-readable one-line result suitable for logs and
// CLI output.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("import completed: %d imported, %d skipped, %d errors, duration %v",
		r.ImportedCount, r.SkippedCount, len(r.Errors), r.Duration)
}

// ErrorSummary returns error counts grouped by error code.
func (r *ImportResult) ErrorSummary() map[string]int {
	summary := make(map[string]int)
	for _, err := range r.Errors {
		summary[err.Code]++
	}
	return summary
}
