package gatekeeper

import (
	"errors"
	"testing"
)

func TestValidateManualPasses(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	result, err := se.ValidateManual(0.65, false)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Approved || !result.PassesThreshold {
		t.Errorf("result = %+v, want approved and passing", result)
	}
	if result.Warning != "" {
		t.Errorf("warning = %q, want empty for passing STR", result.Warning)
	}
	if result.Source != STRSourceManual {
		t.Errorf("source = %q, want manual", result.Source)
	}
}

func TestValidateManualBlocksLowSTR(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	_, err := se.ValidateManual(0.25, false)
	var lse *LowSTRError
	if !errors.As(err, &lse) {
		t.Fatalf("err = %v, want LowSTRError", err)
	}
	if lse.Value != 0.25 || lse.Threshold != 0.4 {
		t.Errorf("error = %+v", lse)
	}
}

func TestValidateManualOverride(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	result, err := se.ValidateManual(0.25, true)
	if err != nil {
		t.Fatalf("validate with override: %v", err)
	}
	if !result.Approved {
		t.Error("override should approve")
	}
	if result.PassesThreshold {
		t.Error("override does not change the threshold verdict")
	}
	if result.Warning == "" {
		t.Error("override should carry a warning")
	}
}

func TestValidateManualThresholdBoundary(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	result, err := se.ValidateManual(0.4, false)
	if err != nil {
		t.Fatalf("validate at threshold: %v", err)
	}
	if !result.PassesThreshold {
		t.Error("value equal to threshold should pass")
	}
}

func TestValidateManualRange(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	for _, v := range []float64{-0.1, 1.1} {
		if _, err := se.ValidateManual(v, false); err == nil {
			t.Errorf("ValidateManual(%v) should reject out-of-range input", v)
		}
	}
}

func TestCalculateSTR(t *testing.T) {
	t.Parallel()
	se := NewSTREnforcer(testConfig(t))

	cases := []struct {
		sold, active int
		want         float64
	}{
		{0, 0, 0},
		{4, 6, 0.4},
		{10, 0, 1},
		{0, 5, 0},
	}
	for _, c := range cases {
		if got := se.CalculateSTR(c.sold, c.active); got != c.want {
			t.Errorf("CalculateSTR(%d, %d) = %v, want %v", c.sold, c.active, got, c.want)
		}
	}
}
