// Package apperr defines the error categories shared by the evaluation pipeline.
//
// Error taxonomy
//
//	ConfigurationError – invalid or infeasible parameters (degenerate class counts,
//	                     k <= 0, test fraction outside (0,1), unknown model...).
//	                     Aborts the affected run; the offending parameter is named.
//
//	ShapeMismatchError – feature dimensionality at prediction time differs from the
//	                     dimensionality seen at fit time.
//
// Metrics that cannot be computed are not errors: they are recorded as undefined
// values inside metrics.Result so a batch of runs never aborts on them.
package apperr

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid or infeasible parameter.
type ConfigurationError struct {
	Param   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Message)
}

// Configf creates a ConfigurationError for param with a formatted message.
func Configf(param, format string, args ...any) error {
	return &ConfigurationError{Param: param, Message: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is (or wraps) a *ConfigurationError.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}

// ShapeMismatchError reports a feature vector of unexpected dimensionality.
type ShapeMismatchError struct {
	What     string
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	what := e.What
	if what == "" {
		what = "features"
	}
	return fmt.Sprintf("shape mismatch: %s: expected %d, got %d", what, e.Expected, e.Got)
}

// Shape creates a ShapeMismatchError.
func Shape(what string, expected, got int) error {
	return &ShapeMismatchError{What: what, Expected: expected, Got: got}
}

// IsShapeMismatch reports whether err is (or wraps) a *ShapeMismatchError.
func IsShapeMismatch(err error) bool {
	var s *ShapeMismatchError
	return errors.As(err, &s)
}
