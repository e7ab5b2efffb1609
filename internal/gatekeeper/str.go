package gatekeeper

import (
	"fmt"

	"flipflow/internal/config"
)

// STRSourceManual marks a sell-through rate entered by the seller from
// marketplace research tools. The marketplace-insights API is restricted to
// approved partners, so manual entry is the only supported source.
const STRSourceManual = "manual"

// LowSTRError reports a listing blocked by a sell-through rate below the
// configured threshold.
type LowSTRError struct {
	Value     float64
	Threshold float64
}

func (e *LowSTRError) Error() string {
	return fmt.Sprintf("sell-through rate %.1f%% is below minimum %.0f%%",
		e.Value*100, e.Threshold*100)
}

// STRResult is the validation outcome for one STR value.
type STRResult struct {
	Approved         bool    `json:"approved"`
	PassesThreshold  bool    `json:"passes_threshold"`
	Value            float64 `json:"str_value"`
	Threshold        float64 `json:"threshold"`
	Source           string  `json:"source"`
	Warning          string  `json:"warning,omitempty"`
}

// STREnforcer blocks listings whose category sell-through rate predicts a
// dead listing.
type STREnforcer struct {
	threshold float64
}

// NewSTREnforcer builds the enforcer from the configured threshold.
func NewSTREnforcer(cfg *config.Config) *STREnforcer {
	return &STREnforcer{threshold: cfg.STRThreshold}
}

// ValidateManual validates a manually-entered STR value in [0, 1]. With
// allowOverride the low-STR case is approved with a warning instead of
// returning LowSTRError.
func (se *STREnforcer) ValidateManual(value float64, allowOverride bool) (*STRResult, error) {
	if value < 0 || value > 1 {
		return nil, fmt.Errorf("sell-through rate must be between 0 and 1, got %v", value)
	}

	passes := value >= se.threshold
	if !passes && !allowOverride {
		return nil, &LowSTRError{Value: value, Threshold: se.threshold}
	}

	result := &STRResult{
		Approved:        passes || allowOverride,
		PassesThreshold: passes,
		Value:           value,
		Threshold:       se.threshold,
		Source:          STRSourceManual,
	}
	if !passes {
		result.Warning = fmt.Sprintf(
			"STR %.1f%% is below %.0f%% threshold. Listing approved via High Margin Exception override.",
			value*100, se.threshold*100)
	}
	return result, nil
}

// CalculateSTR computes sold / (sold + active); 0 when both are zero.
func (se *STREnforcer) CalculateSTR(sold, active int) float64 {
	total := sold + active
	if total == 0 {
		return 0
	}
	return float64(sold) / float64(total)
}
