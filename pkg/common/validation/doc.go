// Package validation provides common validation utilities for configuration
// parameters across the pacer library.
//
// The helpers return *errors.ValidationError values so constructors report
// consistent messages that can be matched with errors.IsValidationError.
package validation
