package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/luminahr/formpipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplateFile(t *testing.T, dir string, id int64, content string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("%d.json", id))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileTemplateStore_GetTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, 42, `{
		"id": 42,
		"title": "Onboarding",
		"status": "active",
		"fields": [
			{"id": 1, "label": "Full Name", "type": "text", "is_required": true, "order": 1},
			{"id": 2, "label": "Salary", "type": "number", "order": 2,
			 "validation_rules": {"min": 1000, "max": "100000"}},
			{"id": 3, "label": "Department", "type": "dropdown", "order": 3,
			 "options": ["Engineering", "Sales"]}
		]
	}`)

	store, err := NewFileTemplateStore(dir)
	require.NoError(t, err)

	template, err := store.GetTemplate(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "Onboarding", template.Title)
	assert.Equal(t, formpipe.TemplateTypeMain, template.Type)
	require.Len(t, template.Fields, 3)

	salary := template.FieldByID(2)
	require.NotNil(t, salary.Rules)
	assert.Equal(t, 1000.0, *salary.Rules.Min)
	assert.Equal(t, 100000.0, *salary.Rules.Max)
}

func TestFileTemplateStore_MissingFileIsNotFound(t *testing.T) {
	store, err := NewFileTemplateStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.GetTemplate(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, formpipe.IsTemplateNotFound(err))
}

func TestFileTemplateStore_RejectsUnknownFieldType(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, 42, `{
		"id": 42,
		"title": "Onboarding",
		"status": "active",
		"fields": [{"id": 1, "label": "Widget", "type": "hologram"}]
	}`)

	store, err := NewFileTemplateStore(dir)
	require.NoError(t, err)

	_, err = store.GetTemplate(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, formpipe.ErrCodeTemplateInvalid, formpipe.ErrorCode(err))
}

func TestFileTemplateStore_RejectsUnknownRuleKeys(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, 42, `{
		"id": 42,
		"title": "Onboarding",
		"status": "active",
		"fields": [{"id": 1, "label": "Name", "type": "text",
			"validation_rules": {"maximum": 10}}]
	}`)

	store, err := NewFileTemplateStore(dir)
	require.NoError(t, err)

	_, err = store.GetTemplate(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, formpipe.ErrCodeTemplateInvalid, formpipe.ErrorCode(err))
}

func TestFileTemplateStore_RejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, 42, `{not json`)

	store, err := NewFileTemplateStore(dir)
	require.NoError(t, err)

	_, err = store.GetTemplate(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, formpipe.ErrCodeTemplateInvalid, formpipe.ErrorCode(err))
}
