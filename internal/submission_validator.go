package internal

import (
	"fmt"

	"github.com/luminahr/formpipe"
)

// SubmissionValidator validates a full response set against a template's
// field list. Required-ness is gated by mode: drafts are persisted before
// final submission, so re-running full required-field enforcement on every
// incremental save would block legitimate work.
type SubmissionValidator struct {
	fields *FieldValidator
}

// NewSubmissionValidator creates a SubmissionValidator backed by a fresh
// field validator.
func NewSubmissionValidator() *SubmissionValidator {
	return &SubmissionValidator{fields: NewFieldValidator()}
}

// FieldValidator exposes the underlying per-field validator for callers
// that need per-field outcomes (the bulk import path).
func (sv *SubmissionValidator) FieldValidator() *FieldValidator {
	return sv.fields
}

// Validate checks incoming against the template fields. existing holds the
// stored response set of the submission being updated (nil for a new
// submission); incoming values override existing ones before required-field
// enforcement runs.
//
// In Draft mode only type/format/bound checks run, and only on values
// present in incoming. In Submit mode every required field must carry a
// non-empty value in the merged set. Response keys that do not belong to
// the template are rejected as unknown fields.
func (sv *SubmissionValidator) Validate(
	fields []formpipe.FieldSchema,
	incoming map[int64]string,
	existing map[int64]string,
	mode formpipe.ValidationMode,
) error {
	errs := formpipe.NewValidationErrors()

	known := make(map[int64]*formpipe.FieldSchema, len(fields))
	for i := range fields {
		known[fields[i].ID] = &fields[i]
	}

	for fieldID := range incoming {
		if _, ok := known[fieldID]; !ok {
			errs.Add(formpipe.NewPipeError(formpipe.ErrorTypeValidation, formpipe.ErrCodeUnknownField,
				fmt.Sprintf("response field %d is not part of the form template", fieldID)))
		}
	}

	merged := incoming
	if mode == formpipe.ModeSubmit && len(existing) > 0 {
		merged = make(map[int64]string, len(existing)+len(incoming))
		for id, value := range existing {
			merged[id] = value
		}
		for id, value := range incoming {
			merged[id] = value
		}
	}

	for i := range fields {
		field := &fields[i]
		value, present := merged[field.ID]

		if mode == formpipe.ModeDraft && !present {
			// Drafts only validate what was actually sent.
			continue
		}
		if err := sv.fields.Validate(field, value, mode); err != nil {
			errs.Add(err)
		}
	}

	return errs.ToError()
}
