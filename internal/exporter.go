package internal

import (
	"strconv"
	"time"

	"github.com/luminahr/formpipe"
)

// baseHeadings are the fixed export columns present regardless of template.
var baseHeadings = []string{
	"ID",
	"Form Title",
	"Employee Name",
	"Employee Email",
	"Status",
	"Submitted At",
	"Reviewed By",
	"Comments",
}

// ExportProjector turns submissions into header and cell rows for
// spreadsheet serialization. When a template is supplied, one column per
// field is appended after the base columns, ordered by (order, id) so
// headings and row values always align positionally.
type ExportProjector struct {
	timeFormat string
}

// NewExportProjector creates a projector. An empty time format falls back
// to RFC3339.
func NewExportProjector(cfg formpipe.ExportConfig) *ExportProjector {
	format := cfg.TimeFormat
	if format == "" {
		format = time.RFC3339
	}
	return &ExportProjector{timeFormat: format}
}

// Headings returns the export header row. template may be nil for a
// cross-template export of base columns only.
func (p *ExportProjector) Headings(template *formpipe.FormTemplate) []string {
	headings := make([]string, 0, len(baseHeadings))
	headings = append(headings, baseHeadings...)
	if template == nil {
		return headings
	}
	for _, field := range template.SortedFields() {
		headings = append(headings, field.Label)
	}
	return headings
}

// ProjectRow returns the cell values for one submission, aligned with
// Headings for the same template. Fields without a recorded response
// project as empty strings.
func (p *ExportProjector) ProjectRow(sub *formpipe.Submission, template *formpipe.FormTemplate) []string {
	row := make([]string, 0, len(baseHeadings))
	row = append(row,
		strconv.FormatInt(sub.ID, 10),
		sub.TemplateTitle,
		sub.OwnerName,
		sub.OwnerEmail,
		string(sub.Status),
		p.formatTime(sub.SubmittedAt),
		sub.ReviewedBy,
		sub.Comments,
	)
	if template == nil {
		return row
	}
	for _, field := range template.SortedFields() {
		row = append(row, sub.Responses[field.ID])
	}
	return row
}

func (p *ExportProjector) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(p.timeFormat)
}
