package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/luminahr/formpipe"
)

// textImplicitMaxLength caps plain text fields when no explicit maximum is
// configured. Textarea fields carry no implicit cap.
const textImplicitMaxLength = 255

// emailPattern matches a standard email grammar: non-empty local part,
// an @, and a dotted domain without whitespace.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// dateLayouts is the ladder of accepted calendar date formats. Any
// successful parse passes; no single format is enforced.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// fieldCheck validates a non-empty raw value against one field type.
type fieldCheck func(field *formpipe.FieldSchema, value string) *formpipe.PipeError

// FieldValidator evaluates a single raw value against a field schema. One
// validation strategy is registered per field type; the required/empty
// gate and the regex rule are shared across all types.
type FieldValidator struct {
	checks map[formpipe.FieldType]fieldCheck

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewFieldValidator creates a validator with the per-type check table
// populated for every supported field type.
func NewFieldValidator() *FieldValidator {
	v := &FieldValidator{
		patterns: make(map[string]*regexp.Regexp),
	}
	v.checks = map[formpipe.FieldType]fieldCheck{
		formpipe.FieldTypeText:     v.checkTextLength,
		formpipe.FieldTypeTextarea: v.checkTextLength,
		formpipe.FieldTypeNumber:   v.checkNumber,
		formpipe.FieldTypeEmail:    v.checkEmail,
		formpipe.FieldTypeDate:     v.checkDate,
		formpipe.FieldTypeDropdown: v.checkOption,
		formpipe.FieldTypeRadio:    v.checkOption,
		// Checkbox values are comma-joined selections and file values are
		// stored paths; neither gets a type-specific check here.
		formpipe.FieldTypeCheckbox: nil,
		formpipe.FieldTypeFile:     nil,
	}
	return v
}

// Validate checks rawValue against the field schema. In Submit mode an
// empty value on a required field fails; an empty value on any other field
// passes with no further checks. The value "0" is never treated as empty.
func (v *FieldValidator) Validate(field *formpipe.FieldSchema, rawValue string, mode formpipe.ValidationMode) *formpipe.PipeError {
	if rawValue == "" {
		if field.Required && mode == formpipe.ModeSubmit {
			return formpipe.NewFieldError(formpipe.ErrCodeRequiredFieldMissing, field.Label,
				fmt.Sprintf("field '%s' is required", field.Label))
		}
		return nil
	}

	if check := v.checks[field.Type]; check != nil {
		if err := check(field, rawValue); err != nil {
			return err
		}
	}

	if field.Rules != nil && field.Rules.Pattern != "" {
		re, err := v.compile(field.Rules.Pattern)
		if err != nil {
			return formpipe.NewFieldError(formpipe.ErrCodePatternMismatch, field.Label,
				fmt.Sprintf("field '%s' has an invalid pattern rule: %v", field.Label, err))
		}
		if !re.MatchString(rawValue) {
			return formpipe.NewFieldError(formpipe.ErrCodePatternMismatch, field.Label,
				fmt.Sprintf("field '%s': value '%s' does not match the required pattern", field.Label, rawValue))
		}
	}

	return nil
}

func (v *FieldValidator) compile(pattern string) (*regexp.Regexp, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.patterns[pattern] = re
	return re, nil
}

func (v *FieldValidator) checkEmail(field *formpipe.FieldSchema, value string) *formpipe.PipeError {
	if !emailPattern.MatchString(value) {
		return formpipe.NewFieldError(formpipe.ErrCodeInvalidFormat, field.Label,
			fmt.Sprintf("field '%s': value '%s' is not a valid email address", field.Label, value))
	}
	return nil
}

func (v *FieldValidator) checkNumber(field *formpipe.FieldSchema, value string) *formpipe.PipeError {
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return formpipe.NewFieldError(formpipe.ErrCodeInvalidFormat, field.Label,
			fmt.Sprintf("field '%s': value '%s' is not a number", field.Label, value))
	}
	if field.Rules != nil {
		if field.Rules.Min != nil && num < *field.Rules.Min {
			return formpipe.NewFieldError(formpipe.ErrCodeOutOfRange, field.Label,
				fmt.Sprintf("field '%s': value %s is below the minimum %v", field.Label, value, *field.Rules.Min))
		}
		if field.Rules.Max != nil && num > *field.Rules.Max {
			return formpipe.NewFieldError(formpipe.ErrCodeOutOfRange, field.Label,
				fmt.Sprintf("field '%s': value %s is above the maximum %v", field.Label, value, *field.Rules.Max))
		}
	}
	return nil
}

func (v *FieldValidator) checkDate(field *formpipe.FieldSchema, value string) *formpipe.PipeError {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return nil
		}
	}
	return formpipe.NewFieldError(formpipe.ErrCodeInvalidFormat, field.Label,
		fmt.Sprintf("field '%s': value '%s' is not a valid date", field.Label, value))
}

// checkOption enforces in-list membership for dropdown and radio fields.
// The check is skipped silently when the option list is empty.
func (v *FieldValidator) checkOption(field *formpipe.FieldSchema, value string) *formpipe.PipeError {
	if len(field.Options) == 0 {
		return nil
	}
	if !field.HasOption(value) {
		return formpipe.NewFieldError(formpipe.ErrCodeInvalidOption, field.Label,
			fmt.Sprintf("field '%s': value '%s' is not one of the allowed options", field.Label, value))
	}
	return nil
}

// checkTextLength enforces string-length bounds for text and textarea
// fields. Min/Max rules act as length bounds here; MinLength/MaxLength take
// precedence when both are present. Length is counted in runes.
func (v *FieldValidator) checkTextLength(field *formpipe.FieldSchema, value string) *formpipe.PipeError {
	length := utf8.RuneCountInString(value)

	minLen, maxLen := lengthBounds(field.Rules)
	if maxLen == nil && field.Type == formpipe.FieldTypeText {
		implicit := textImplicitMaxLength
		maxLen = &implicit
	}

	if minLen != nil && length < *minLen {
		return formpipe.NewFieldError(formpipe.ErrCodeLengthViolation, field.Label,
			fmt.Sprintf("field '%s': length %d is below the minimum %d", field.Label, length, *minLen))
	}
	if maxLen != nil && length > *maxLen {
		return formpipe.NewFieldError(formpipe.ErrCodeLengthViolation, field.Label,
			fmt.Sprintf("field '%s': length %d exceeds the maximum %d", field.Label, length, *maxLen))
	}
	return nil
}

func lengthBounds(rules *formpipe.ValidationRules) (*int, *int) {
	if rules == nil {
		return nil, nil
	}
	var minLen, maxLen *int
	if rules.MinLength != nil {
		minLen = rules.MinLength
	} else if rules.Min != nil {
		n := int(*rules.Min)
		minLen = &n
	}
	if rules.MaxLength != nil {
		maxLen = rules.MaxLength
	} else if rules.Max != nil {
		n := int(*rules.Max)
		maxLen = &n
	}
	return minLen, maxLen
}
