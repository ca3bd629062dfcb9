// =============================================================================
// Income Statement Generator - Transformation Engine
// =============================================================================
//
// This module rewrites ledger line fields before a statement is generated.
// Exports from different departments rarely agree on formatting, so each
// department config can normalize its own lines.
//
// TRANSFORMATION TYPES:
//   - String manipulations (prepend, append, trim, case conversion)
//   - Find/replace
//   - Zero-padding of codes
//   - Lookup table replacements
//   - Defaults for blank cells
//
// COMMON USE CASES:
//   - Mapping retired accounts onto their successor ("60610:..." -> "60600:...")
//   - Padding cost center numbers ("7130" -> "CC_07130")
//   - Filling a missing month on a single-period export
//
// =============================================================================

package converter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/ledger"
)

// Transformable ledger fields.
const (
	FieldAccount         = "account"
	FieldCostCenter      = "cost_center"
	FieldSpendCategory   = "spend_category"
	FieldRevenueCategory = "revenue_category"
	FieldMonth           = "month"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer handles field value transformations.
type Transformer struct {
	rules []config.TransformationRule
}

// NewTransformer creates a new Transformer with the given rules.
// It fails on a rule for an unknown field so typos surface before any file
// is processed.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	for _, rule := range rules {
		if fieldRef(&ledger.Line{}, rule.Field) == nil {
			return nil, fmt.Errorf("unknown transformation field %q", rule.Field)
		}
	}
	return &Transformer{rules: rules}, nil
}

// fieldRef returns a pointer to the named string field of l, or nil.
func fieldRef(l *ledger.Line, field string) *string {
	switch strings.ToLower(field) {
	case FieldAccount:
		return &l.Account
	case FieldCostCenter:
		return &l.CostCenter
	case FieldSpendCategory:
		return &l.SpendCategory
	case FieldRevenueCategory:
		return &l.RevenueCategory
	case FieldMonth:
		return &l.Month
	}
	return nil
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Apply returns a copy of line with every rule applied. Rules run in the
// order they are configured, so a later rule sees the output of an earlier
// one.
func (t *Transformer) Apply(line ledger.Line) (ledger.Line, error) {
	out := line
	for _, rule := range t.rules {
		ref := fieldRef(&out, rule.Field)
		if ref == nil {
			return line, fmt.Errorf("unknown transformation field %q", rule.Field)
		}

		value, err := t.apply(*ref, rule)
		if err != nil {
			return line, fmt.Errorf("field %s: %w", rule.Field, err)
		}
		*ref = value
	}

	if out.Month != line.Month {
		month, err := ledger.NormalizeMonth(out.Month)
		if err != nil {
			return line, fmt.Errorf("field %s: %w", FieldMonth, err)
		}
		out.Month = month
	}

	return out, nil
}

// ApplyAll transforms every line. The input slice is not modified.
func (t *Transformer) ApplyAll(lines []ledger.Line) ([]ledger.Line, error) {
	if len(t.rules) == 0 {
		return lines, nil
	}

	out := make([]ledger.Line, len(lines))
	for i, l := range lines {
		tl, err := t.Apply(l)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, l.Account, err)
		}
		out[i] = tl
	}
	return out, nil
}

func (t *Transformer) apply(value string, rule config.TransformationRule) (string, error) {
	result := value
	for _, action := range rule.Actions {
		var err error
		result, err = ApplyTransformation(result, action)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// ApplyTransformation applies a single transformation action.
//
// PARAMETERS:
//   - value: The current value.
//   - action: The transformation action to apply.
//
// RETURNS:
//   - The transformed value.
//   - An error if the action is unknown or its parameters are invalid.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	switch strings.ToLower(action.Type) {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		// EXAMPLE:
		//   Input: "71300"
		//   Action: prepend_string with value "CC_"
		//   Output: "CC_71300"
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		if action.Find == "" {
			return "", fmt.Errorf("replace requires find")
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	// =========================================================================
	// PADDING
	// =========================================================================

	case "pad_left":
		// EXAMPLE:
		//   Input: "7130"
		//   Action: pad_left with value "5"
		//   Output: "07130"
		length, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil || length < 0 {
			return "", fmt.Errorf("invalid pad length %q", action.Value)
		}
		padChar := '0'
		if action.Find != "" {
			padChar = []rune(action.Find)[0]
		}
		return PadLeft(value, length, padChar), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		// Values without an entry pass through unchanged.
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement, nil
		}
		return value, nil

	case "default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil
	}

	return "", fmt.Errorf("unknown transformation type %q", action.Type)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length, counted in runes. Longer strings are returned unchanged.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
