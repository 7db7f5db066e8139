package validate

import (
	"fmt"

	"github.com/petroflow/petroflow/internal/domain"
)

// Validation error codes attached to schema findings.
const (
	CodeNonPositivePrice = "VAL-001"
	CodeMissingSymbol    = "VAL-002"
	CodeZeroTimestamp    = "VAL-003"
	CodeMissingSource    = "VAL-004"
	CodeNonUTCTimestamp  = "VAL-005"
)

// SchemaResult reports required-field and type findings for a batch.
type SchemaResult struct {
	Score    float64  `json:"score"` // [0,100]
	Checked  int      `json:"checked"`
	Invalid  int      `json:"invalid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateSchema checks every record for the canonical shape: a non-zero UTC
// timestamp, a positive price, and non-empty symbol and source. The score is
// the share of fully valid records. A malformed batch lowers the score, it
// never aborts.
func (v *Validator) ValidateSchema(batch []domain.PriceRecord) SchemaResult {
	result := SchemaResult{Checked: len(batch)}
	if len(batch) == 0 {
		result.Score = 100
		result.Warnings = append(result.Warnings, "empty batch, nothing to check")
		return result
	}

	for i, rec := range batch {
		valid := true
		if rec.Timestamp.IsZero() {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: record %d has zero timestamp", CodeZeroTimestamp, i))
			valid = false
		} else if rec.Timestamp.Location() != rec.Timestamp.UTC().Location() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: record %d timestamp not UTC-normalized", CodeNonUTCTimestamp, i))
		}
		if rec.Price <= 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: record %d has non-positive price %.4f", CodeNonPositivePrice, i, rec.Price))
			valid = false
		}
		if rec.Symbol == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: record %d has empty symbol", CodeMissingSymbol, i))
			valid = false
		}
		if rec.Source == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: record %d has empty source", CodeMissingSource, i))
			valid = false
		}
		if !valid {
			result.Invalid++
		}
	}

	result.Score = 100 * float64(result.Checked-result.Invalid) / float64(result.Checked)
	return result
}
