package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/luminahr/formpipe"
)

// PostgresTemplateStore loads form template snapshots from the relational
// configuration tables.
type PostgresTemplateStore struct {
	db DB
}

// NewPostgresTemplateStore creates a template store over db.
func NewPostgresTemplateStore(db DB) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db}
}

// GetTemplate loads one template and its field schemas. Validation rules
// stored as loosely-typed JSON are resolved into typed bounds here, once,
// at load time.
func (s *PostgresTemplateStore) GetTemplate(ctx context.Context, templateID int64) (*formpipe.FormTemplate, error) {
	template := &formpipe.FormTemplate{}
	err := s.db.QueryRow(ctx,
		`SELECT id, title, status, template_type FROM form_templates WHERE id = $1`,
		templateID,
	).Scan(&template.ID, &template.Title, &template.Status, &template.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, formpipe.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("query form template %d: %w", templateID, err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, label, field_type, is_required, options, field_order, validation_rules
		 FROM form_fields WHERE template_id = $1`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query form fields for template %d: %w", templateID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var field formpipe.FieldSchema
		var rulesJSON []byte
		if err := rows.Scan(
			&field.ID, &field.Label, &field.Type, &field.Required,
			&field.Options, &field.Order, &rulesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		if !field.Type.Valid() {
			return nil, formpipe.NewPipeError(formpipe.ErrorTypeConfiguration, formpipe.ErrCodeTemplateInvalid,
				fmt.Sprintf("field '%s' has unsupported type '%s'", field.Label, field.Type))
		}
		if len(rulesJSON) > 0 {
			rules, err := ParseValidationRules(rulesJSON)
			if err != nil {
				return nil, formpipe.NewPipeError(formpipe.ErrorTypeConfiguration, formpipe.ErrCodeTemplateInvalid,
					fmt.Sprintf("field '%s' has invalid validation rules", field.Label)).WithCause(err)
			}
			field.Rules = rules
		}
		template.Fields = append(template.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form fields: %w", err)
	}

	return template, nil
}

// ParseValidationRules decodes a stored rule document into typed bounds.
// Admin tooling has historically stored bounds as either numbers or numeric
// strings, so both encodings are accepted.
func ParseValidationRules(data []byte) (*formpipe.ValidationRules, error) {
	var raw struct {
		Min       any    `json:"min"`
		Max       any    `json:"max"`
		MinLength any    `json:"min_length"`
		MaxLength any    `json:"max_length"`
		Pattern   string `json:"regex"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse validation rules: %w", err)
	}

	rules := &formpipe.ValidationRules{Pattern: raw.Pattern}
	var err error
	if rules.Min, err = toFloatBound("min", raw.Min); err != nil {
		return nil, err
	}
	if rules.Max, err = toFloatBound("max", raw.Max); err != nil {
		return nil, err
	}
	if rules.MinLength, err = toIntBound("min_length", raw.MinLength); err != nil {
		return nil, err
	}
	if rules.MaxLength, err = toIntBound("max_length", raw.MaxLength); err != nil {
		return nil, err
	}
	return rules, nil
}

func toFloatBound(name string, value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': value '%s' is not numeric", name, v)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("rule '%s': unsupported value type %T", name, value)
	}
}

func toIntBound(name string, value any) (*int, error) {
	f, err := toFloatBound(name, value)
	if err != nil || f == nil {
		return nil, err
	}
	n := int(*f)
	return &n, nil
}
