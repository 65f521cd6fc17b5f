package internal

import (
	"errors"
	"testing"

	"github.com/luminahr/formpipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeFormFields() []formpipe.FieldSchema {
	return []formpipe.FieldSchema{
		{ID: 1, Label: "Full Name", Type: formpipe.FieldTypeText, Required: true, Order: 1},
		{ID: 2, Label: "Email", Type: formpipe.FieldTypeEmail, Required: true, Order: 2},
		{ID: 3, Label: "Department", Type: formpipe.FieldTypeDropdown, Order: 3,
			Options: []string{"Engineering", "Sales"}},
	}
}

func validationErrs(t *testing.T, err error) *formpipe.ValidationErrors {
	t.Helper()
	var ve *formpipe.ValidationErrors
	require.True(t, errors.As(err, &ve))
	return ve
}

func TestSubmissionValidator_SubmitRequiresAllRequired(t *testing.T) {
	sv := NewSubmissionValidator()

	err := sv.Validate(employeeFormFields(), map[int64]string{1: "Jane Doe"}, nil, formpipe.ModeSubmit)
	require.Error(t, err)

	ve := validationErrs(t, err)
	byCode := ve.ByCode()
	require.Len(t, byCode[formpipe.ErrCodeRequiredFieldMissing], 1)
	assert.Equal(t, "Email", byCode[formpipe.ErrCodeRequiredFieldMissing][0].Field)
}

func TestSubmissionValidator_DraftSkipsRequiredAndAbsentFields(t *testing.T) {
	sv := NewSubmissionValidator()

	// A draft with only a department set passes even though required fields
	// are missing.
	err := sv.Validate(employeeFormFields(), map[int64]string{3: "Sales"}, nil, formpipe.ModeDraft)
	assert.NoError(t, err)

	// But values that are present are still type-checked.
	err = sv.Validate(employeeFormFields(), map[int64]string{2: "not-an-email"}, nil, formpipe.ModeDraft)
	require.Error(t, err)
	ve := validationErrs(t, err)
	assert.Equal(t, formpipe.ErrCodeInvalidFormat, ve.Errors[0].Code)
}

func TestSubmissionValidator_SubmitMergesExisting(t *testing.T) {
	sv := NewSubmissionValidator()

	existing := map[int64]string{1: "Jane Doe", 2: "jane@example.com"}
	incoming := map[int64]string{3: "Engineering"}

	// Required fields already satisfied by the stored draft pass on submit.
	err := sv.Validate(employeeFormFields(), incoming, existing, formpipe.ModeSubmit)
	assert.NoError(t, err)

	// An incoming value overrides the stored one.
	err = sv.Validate(employeeFormFields(), map[int64]string{2: "broken"}, existing, formpipe.ModeSubmit)
	require.Error(t, err)
	ve := validationErrs(t, err)
	assert.Equal(t, formpipe.ErrCodeInvalidFormat, ve.Errors[0].Code)
}

func TestSubmissionValidator_UnknownField(t *testing.T) {
	sv := NewSubmissionValidator()

	err := sv.Validate(employeeFormFields(), map[int64]string{99: "stray"}, nil, formpipe.ModeDraft)
	require.Error(t, err)
	ve := validationErrs(t, err)
	assert.Equal(t, formpipe.ErrCodeUnknownField, ve.Errors[0].Code)
}

func TestSubmissionValidator_CollectsMultipleErrors(t *testing.T) {
	sv := NewSubmissionValidator()

	err := sv.Validate(employeeFormFields(), map[int64]string{
		2: "broken-email",
		3: "Marketing",
	}, nil, formpipe.ModeSubmit)
	require.Error(t, err)

	ve := validationErrs(t, err)
	byCode := ve.ByCode()
	assert.Len(t, byCode[formpipe.ErrCodeRequiredFieldMissing], 1)
	assert.Len(t, byCode[formpipe.ErrCodeInvalidFormat], 1)
	assert.Len(t, byCode[formpipe.ErrCodeInvalidOption], 1)
}
