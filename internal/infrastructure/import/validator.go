package csvimport

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column value
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeDate    FieldType = "date"
	FieldTypeBool    FieldType = "bool"
	FieldTypeUUID    FieldType = "uuid"
)

// DateLayouts are the accepted date formats, tried in order
var DateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

// FieldRule describes validation for one column
type FieldRule struct {
	Column    string
	Required  bool
	Type      FieldType
	MaxLength int
	MinValue  *decimal.Decimal
	MaxValue  *decimal.Decimal
	OneOf     []string
	Unique    bool
}

// FieldRuleBuilder builds a FieldRule
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a string rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: FieldTypeString}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = FieldTypeDecimal
	return b
}

func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = FieldTypeDate
	return b
}

func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = FieldTypeBool
	return b
}

func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = FieldTypeUUID
	return b
}

// MaxLength limits the value length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Range bounds a decimal value, inclusive
func (b *FieldRuleBuilder) Range(minValue, maxValue decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &minValue
	b.rule.MaxValue = &maxValue
	return b
}

// OneOf restricts the value to a case-insensitive set
func (b *FieldRuleBuilder) OneOf(values ...string) *FieldRuleBuilder {
	b.rule.OneOf = values
	return b
}

// Unique rejects a value repeated within the file
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies rules to rows and collects errors
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
	seen   map[string]map[string]int
}

// NewFieldValidator creates a validator keeping at most maxErrors errors
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		errors: NewErrorCollection(maxErrors),
		seen:   make(map[string]map[string]int),
	}
}

// ValidateRow checks every rule and reports whether the row is clean
func (v *FieldValidator) ValidateRow(row *Row) bool {
	before := v.errors.TotalCount()

	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				v.errors.AddRequired(row.LineNumber, rule.Column)
			}
			continue
		}

		if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
			v.errors.Add(RowError{
				Row: row.LineNumber, Column: rule.Column, Code: ErrCodeInvalidLength,
				Message: fmt.Sprintf("must be at most %d characters", rule.MaxLength),
			})
			continue
		}

		if err := validateType(value, rule.Type); err != nil {
			v.errors.AddType(row.LineNumber, rule.Column, string(rule.Type), value)
			continue
		}

		if len(rule.OneOf) > 0 && !slices.Contains(rule.OneOf, strings.ToLower(value)) {
			v.errors.Add(RowError{
				Row: row.LineNumber, Column: rule.Column, Code: ErrCodeInvalidValue,
				Message: fmt.Sprintf("must be one of %s", strings.Join(rule.OneOf, ", ")),
				Value:   value,
			})
			continue
		}

		if rule.Type == FieldTypeDecimal && (rule.MinValue != nil || rule.MaxValue != nil) {
			d, _ := ParseDecimal(value)
			if (rule.MinValue != nil && d.LessThan(*rule.MinValue)) || (rule.MaxValue != nil && d.GreaterThan(*rule.MaxValue)) {
				v.errors.Add(RowError{
					Row: row.LineNumber, Column: rule.Column, Code: ErrCodeInvalidRange,
					Message: "value out of range", Value: value,
				})
				continue
			}
		}

		if rule.Unique {
			seen := v.seen[rule.Column]
			if seen == nil {
				seen = make(map[string]int)
				v.seen[rule.Column] = seen
			}
			if first, dup := seen[value]; dup {
				v.errors.Add(RowError{
					Row: row.LineNumber, Column: rule.Column, Code: ErrCodeDuplicate,
					Message: fmt.Sprintf("duplicates row %d", first), Value: value,
				})
				continue
			}
			seen[value] = row.LineNumber
		}
	}

	return v.errors.TotalCount() == before
}

func validateType(value string, fieldType FieldType) error {
	var err error
	switch fieldType {
	case FieldTypeDecimal:
		_, err = ParseDecimal(value)
	case FieldTypeDate:
		_, err = ParseDate(value)
	case FieldTypeBool:
		_, err = ParseBool(value)
	case FieldTypeUUID:
		_, err = uuid.Parse(value)
	}
	return err
}

// Errors returns the collected errors
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// ParseDate parses value with the first matching layout in DateLayouts
func ParseDate(value string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// ParseBool accepts strconv forms plus yes/no
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(value))
}
