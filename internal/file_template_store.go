package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/luminahr/formpipe"
)

// templateMetaSchema constrains template definition documents before they
// are accepted. It guards the closed field-type set and the rule keys so a
// malformed definition file fails at load time, not mid-import.
const templateMetaSchema = `{
	"type": "object",
	"required": ["id", "title", "status", "fields"],
	"properties": {
		"id": {"type": "integer"},
		"title": {"type": "string", "minLength": 1},
		"status": {"enum": ["active", "inactive"]},
		"template_type": {"enum": ["main", "restricted_a", "restricted_b"]},
		"fields": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "label", "type"],
				"properties": {
					"id": {"type": "integer"},
					"label": {"type": "string", "minLength": 1},
					"type": {"enum": ["text", "textarea", "number", "email", "date", "dropdown", "radio", "checkbox", "file"]},
					"is_required": {"type": "boolean"},
					"options": {"type": "array", "items": {"type": "string"}},
					"order": {"type": "integer"},
					"validation_rules": {
						"type": "object",
						"properties": {
							"min": {"type": ["number", "string"]},
							"max": {"type": ["number", "string"]},
							"min_length": {"type": ["integer", "string"]},
							"max_length": {"type": ["integer", "string"]},
							"regex": {"type": "string"}
						},
						"additionalProperties": false
					}
				}
			}
		}
	}
}`

// FileTemplateStore serves template snapshots from JSON definition files,
// one file per template named <id>.json. Useful for local development and
// tests where no configuration database is available.
type FileTemplateStore struct {
	dir      string
	resolved *jsonschema.Resolved
}

// NewFileTemplateStore creates a file-backed template store rooted at dir.
func NewFileTemplateStore(dir string) (*FileTemplateStore, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(templateMetaSchema), &schema); err != nil {
		return nil, fmt.Errorf("parse template meta-schema: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("resolve template meta-schema: %w", err)
	}
	return &FileTemplateStore{dir: dir, resolved: resolved}, nil
}

// GetTemplate loads <dir>/<id>.json, validates it against the meta-schema
// and decodes it into a template snapshot.
func (s *FileTemplateStore) GetTemplate(ctx context.Context, templateID int64) (*formpipe.FormTemplate, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%d.json", templateID))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, formpipe.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("read template definition %s: %w", path, err)
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, formpipe.NewPipeError(formpipe.ErrorTypeConfiguration, formpipe.ErrCodeTemplateInvalid,
			fmt.Sprintf("template definition %s is not valid JSON", path)).WithCause(err)
	}
	if err := s.resolved.Validate(document); err != nil {
		return nil, formpipe.NewPipeError(formpipe.ErrorTypeConfiguration, formpipe.ErrCodeTemplateInvalid,
			fmt.Sprintf("template definition %s failed schema validation", path)).WithCause(err)
	}

	var raw struct {
		ID     int64                   `json:"id"`
		Title  string                  `json:"title"`
		Status formpipe.TemplateStatus `json:"status"`
		Type   formpipe.TemplateType   `json:"template_type"`
		Fields []struct {
			ID       int64           `json:"id"`
			Label    string          `json:"label"`
			Type     string          `json:"type"`
			Required bool            `json:"is_required"`
			Options  []string        `json:"options"`
			Order    int             `json:"order"`
			Rules    json.RawMessage `json:"validation_rules"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode template definition %s: %w", path, err)
	}

	template := &formpipe.FormTemplate{
		ID:     raw.ID,
		Title:  raw.Title,
		Status: raw.Status,
		Type:   raw.Type,
	}
	if template.Type == "" {
		template.Type = formpipe.TemplateTypeMain
	}
	for _, f := range raw.Fields {
		field := formpipe.FieldSchema{
			ID:       f.ID,
			Label:    f.Label,
			Type:     formpipe.FieldType(f.Type),
			Required: f.Required,
			Options:  f.Options,
			Order:    f.Order,
		}
		if len(f.Rules) > 0 {
			rules, err := ParseValidationRules(f.Rules)
			if err != nil {
				return nil, formpipe.NewPipeError(formpipe.ErrorTypeConfiguration, formpipe.ErrCodeTemplateInvalid,
					fmt.Sprintf("field '%s' has invalid validation rules", f.Label)).WithCause(err)
			}
			field.Rules = rules
		}
		template.Fields = append(template.Fields, field)
	}
	return template, nil
}
