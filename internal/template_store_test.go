package internal

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/luminahr/formpipe"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTemplateStore_GetTemplate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, title, status, template_type FROM form_templates`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "status", "template_type"}).
			AddRow(int64(42), "Onboarding", formpipe.TemplateStatusActive, formpipe.TemplateTypeMain))
	mock.ExpectQuery(`SELECT id, label, field_type, is_required, options, field_order, validation_rules`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "label", "field_type", "is_required", "options", "field_order", "validation_rules",
		}).
			AddRow(int64(1), "Full Name", formpipe.FieldTypeText, true, []string{}, 1, []byte(nil)).
			AddRow(int64(2), "Salary", formpipe.FieldTypeNumber, false, []string{}, 2,
				[]byte(`{"min": 1000, "max": "100000"}`)).
			AddRow(int64(3), "Department", formpipe.FieldTypeDropdown, false,
				[]string{"Engineering", "Sales"}, 3, []byte(nil)))

	store := NewPostgresTemplateStore(mock)
	template, err := store.GetTemplate(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, "Onboarding", template.Title)
	assert.True(t, template.IsActive())
	require.Len(t, template.Fields, 3)

	salary := template.FieldByID(2)
	require.NotNil(t, salary)
	require.NotNil(t, salary.Rules)
	assert.Equal(t, 1000.0, *salary.Rules.Min)
	// String-encoded bounds are accepted alongside numeric ones.
	assert.Equal(t, 100000.0, *salary.Rules.Max)

	assert.Equal(t, []string{"Engineering", "Sales"}, template.FieldByID(3).Options)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTemplateStore_NotFound(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, title, status, template_type FROM form_templates`).
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresTemplateStore(mock)
	_, err = store.GetTemplate(ctx, 7)
	require.Error(t, err)
	assert.True(t, formpipe.IsTemplateNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTemplateStore_RejectsUnknownFieldType(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, title, status, template_type FROM form_templates`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "status", "template_type"}).
			AddRow(int64(42), "Onboarding", formpipe.TemplateStatusActive, formpipe.TemplateTypeMain))
	mock.ExpectQuery(`SELECT id, label, field_type, is_required, options, field_order, validation_rules`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "label", "field_type", "is_required", "options", "field_order", "validation_rules",
		}).AddRow(int64(1), "Widget", formpipe.FieldType("hologram"), false, []string{}, 1, []byte(nil)))

	store := NewPostgresTemplateStore(mock)
	_, err = store.GetTemplate(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, formpipe.ErrCodeTemplateInvalid, formpipe.ErrorCode(err))
}

func TestParseValidationRules(t *testing.T) {
	rules, err := ParseValidationRules([]byte(`{"min": "5", "max": 10, "min_length": 2, "max_length": "8", "regex": "^a"}`))
	require.NoError(t, err)

	assert.Equal(t, 5.0, *rules.Min)
	assert.Equal(t, 10.0, *rules.Max)
	assert.Equal(t, 2, *rules.MinLength)
	assert.Equal(t, 8, *rules.MaxLength)
	assert.Equal(t, "^a", rules.Pattern)
}

func TestParseValidationRules_RejectsNonNumeric(t *testing.T) {
	_, err := ParseValidationRules([]byte(`{"min": "lots"}`))
	require.Error(t, err)
}

func TestParseValidationRules_EmptyStringMeansUnset(t *testing.T) {
	rules, err := ParseValidationRules([]byte(`{"min": "", "max": ""}`))
	require.NoError(t, err)
	assert.Nil(t, rules.Min)
	assert.Nil(t, rules.Max)
}
