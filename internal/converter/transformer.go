// =============================================================================
// pretix-ifirma - Column Transformation Rules
// =============================================================================
//
// Transformation rules rewrite raw column values before an order is mapped
// onto an invoice. They let an operator fix up an export without touching the
// code, for example:
//   - normalizing country names to ISO codes with a lookup table
//   - stripping a prefix pretix adds to order codes
//   - filling an empty column with a fixed value
//
// Rules come from the transformation_rules section of config.yaml and are
// applied per column, actions in order.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies column transformation rules.
type Transformer struct {
	rules map[string][]config.TransformationAction

	// patterns caches compiled regex_replace patterns by source text.
	patterns map[string]*regexp.Regexp
}

// NewTransformer creates a Transformer. Regular expressions are compiled up
// front so a bad pattern fails at startup instead of on every row.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:    make(map[string][]config.TransformationAction),
		patterns: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if action.Type != "regex_replace" || action.Find == "" {
				continue
			}
			if _, ok := t.patterns[action.Find]; ok {
				continue
			}
			re, err := regexp.Compile(action.Find)
			if err != nil {
				return nil, fmt.Errorf("column %q: invalid regex pattern: %w", rule.Field, err)
			}
			t.patterns[action.Find] = re
		}
		t.rules[rule.Field] = append(t.rules[rule.Field], rule.Actions...)
	}

	return t, nil
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Apply returns a copy of fields with every rule applied. The input map is not
// modified.
func (t *Transformer) Apply(fields map[string]string) (map[string]string, error) {
	if len(t.rules) == 0 {
		return fields, nil
	}

	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	for field, actions := range t.rules {
		value, present := out[field]
		if !present {
			continue
		}
		for _, action := range actions {
			var err error
			value, err = t.ApplyTransformation(value, action)
			if err != nil {
				return nil, fmt.Errorf("column %q: transformation %q failed: %w", field, action.Type, err)
			}
		}
		out[field] = value
	}

	return out, nil
}

// ApplyTransformation applies a single transformation action to value.
func (t *Transformer) ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		// EXAMPLE:
		//   Input: "+48 123-456-789"
		//   Action: replace with find "-" and value ""
		//   Output: "+48 123456789"
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, ok := t.patterns[action.Find]
		if !ok {
			var err error
			if re, err = regexp.Compile(action.Find); err != nil {
				return "", fmt.Errorf("invalid regex pattern: %w", err)
			}
		}
		return re.ReplaceAllString(value, action.Value), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		// EXAMPLE:
		//   Input: "Polska"
		//   Action: lookup with lookup_table {"Polska": "PL", "Niemcy": "DE"}
		//   Output: "PL"
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}
