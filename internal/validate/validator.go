// Package validate computes quality signals for per-source record batches:
// schema compliance, completeness, outlier flags, and cross-source
// consistency, collapsed into a QualityReport. Every operation is
// deterministic for fixed input and configuration, and never mutates its
// input batch.
package validate

import (
	"github.com/petroflow/petroflow/internal/config"
)

// Validator is a stateless component parameterized only by configuration.
type Validator struct {
	cfg config.ValidationConfig
}

// New creates a validator with the given thresholds.
func New(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Config returns the validator's thresholds.
func (v *Validator) Config() config.ValidationConfig { return v.cfg }
