package formpipe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeErrorFormatting(t *testing.T) {
	err := NewFieldError(ErrCodeInvalidFormat, "Email", "value 'x' is not a valid email address")
	assert.Equal(t, "[validation:INVALID_FORMAT] field 'Email': value 'x' is not a valid email address", err.Error())

	plain := NewPipeError(ErrorTypeInternal, ErrCodeInternalError, "boom")
	assert.Equal(t, "[internal:INTERNAL_ERROR] boom", plain.Error())
}

func TestPipeErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewPersistenceError("insert submissions", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrCodePersistenceFailure, ErrorCode(err))
}

func TestPipeErrorBuilders(t *testing.T) {
	err := NewPipeError(ErrorTypeValidation, ErrCodeOutOfRange, "too big").
		WithField("Salary").
		WithDetail("max", 100000)

	assert.Equal(t, "Salary", err.Field)
	assert.Equal(t, 100000, err.Details["max"])
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsTemplateNotFound(NewTemplateNotFoundError(7)))
	assert.True(t, IsFatalRunError(NewTemplateNotFoundError(7)))
	assert.True(t, IsFatalRunError(NewTemplateInactiveError(7)))
	assert.False(t, IsFatalRunError(NewFieldError(ErrCodeInvalidFormat, "Email", "bad")))

	assert.True(t, IsValidationError(NewFieldError(ErrCodeInvalidOption, "Dept", "bad")))
	assert.False(t, IsValidationError(NewTemplateNotFoundError(7)))
	assert.False(t, IsValidationError(fmt.Errorf("plain")))

	assert.Equal(t, ErrCodeInternalError, ErrorCode(fmt.Errorf("plain")))
}

func TestValidationErrorsAggregate(t *testing.T) {
	ve := NewValidationErrors()
	assert.False(t, ve.HasErrors())
	assert.Nil(t, ve.ToError())

	ve.Add(NewFieldError(ErrCodeRequiredFieldMissing, "Name", "required"))
	ve.Add(NewFieldError(ErrCodeInvalidFormat, "Email", "bad"))
	ve.Add(NewFieldError(ErrCodeInvalidFormat, "Backup Email", "bad"))

	require.True(t, ve.HasErrors())
	require.Error(t, ve.ToError())
	assert.Contains(t, ve.Error(), "3 errors")

	byCode := ve.ByCode()
	assert.Len(t, byCode[ErrCodeInvalidFormat], 2)
	assert.Len(t, byCode[ErrCodeRequiredFieldMissing], 1)
}
