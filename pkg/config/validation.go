// Configuration validation for easysms
package config

import (
	"fmt"
	"strings"
)

// ValidationResult represents the result of configuration validation
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationWarning represents a validation warning
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *ValidationResult) addError(field, code, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Code: code, Message: message})
}

func (r *ValidationResult) addWarning(field, code, message string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Code: code, Message: message})
}

// Err folds the validation errors into a single error, or nil.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Validate checks the options for mistakes that would only surface at send time.
// Default gateways without a gateways section are reported as warnings, since
// gateways such as "log" need no settings.
func (o *Options) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if o.Timeout < 0 {
		result.addError("timeout", "NEGATIVE_TIMEOUT", "timeout must not be negative")
	}

	for _, name := range o.Gateways.Names() {
		if strings.TrimSpace(name) == "" {
			result.addError("gateways", "EMPTY_NAME", "gateway name must not be empty")
		}
	}

	seen := make(map[string]bool, len(o.DefaultGateways))
	for _, name := range o.DefaultGateways {
		field := "default.gateways"
		if seen[name] {
			result.addError(field, "DUPLICATE_GATEWAY", fmt.Sprintf("gateway %q listed twice", name))
			continue
		}
		seen[name] = true
		if !o.Gateways.Has(name) {
			result.addWarning(field, "UNCONFIGURED_GATEWAY", fmt.Sprintf("gateway %q has no gateways section", name))
		}
	}

	return result
}
