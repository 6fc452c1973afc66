// Package validation provides common validation utilities for configuration
// parameters across the hitpool packages.
//
// Every helper returns a *errors.ValidationError wrapping
// errors.ErrInvalidConfiguration, so callers can test failures with
// errors.Is regardless of which field was rejected.
package validation
