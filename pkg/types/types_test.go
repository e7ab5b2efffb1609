package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to ListingStatus }{
		{StatusDraft, StatusQueued},
		{StatusQueued, StatusActive},
		{StatusActive, StatusZombie},
		{StatusActive, StatusSold},
		{StatusActive, StatusEnded},
		{StatusZombie, StatusActive},
		{StatusZombie, StatusPurgatory},
		{StatusPurgatory, StatusSold},
		{StatusPurgatory, StatusEnded},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	rejected := []struct{ from, to ListingStatus }{
		{StatusDraft, StatusActive},
		{StatusSold, StatusActive},
		{StatusEnded, StatusActive},
		{StatusPurgatory, StatusActive},
		{StatusQueued, StatusZombie},
		{StatusZombie, StatusSold},
	}
	for _, tr := range rejected {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("%s -> %s should be rejected", tr.from, tr.to)
		}
	}
}

func TestParseStepLadder(t *testing.T) {
	t.Parallel()

	ladder, err := ParseStepLadder("30:15, 0:5, 14:10,45:20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ladder) != 4 {
		t.Fatalf("len = %d, want 4", len(ladder))
	}
	// Sorted ascending by days
	for i := 1; i < len(ladder); i++ {
		if ladder[i].Days < ladder[i-1].Days {
			t.Errorf("ladder not sorted: %v", ladder)
		}
	}
	if ladder[0].Days != 0 || ladder[0].Percent != 5 {
		t.Errorf("first step = %+v, want {0 5}", ladder[0])
	}
}

func TestParseStepLadderSkipsMalformedPairs(t *testing.T) {
	t.Parallel()

	ladder, err := ParseStepLadder("30:10,garbage,,60:20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ladder) != 2 {
		t.Errorf("len = %d, want 2", len(ladder))
	}
}

func TestParseStepLadderBadNumber(t *testing.T) {
	t.Parallel()

	if _, err := ParseStepLadder("30:abc"); err == nil {
		t.Error("expected error for non-numeric percent")
	}
	if _, err := ParseStepLadder("x:10"); err == nil {
		t.Error("expected error for non-numeric days")
	}
}

func TestStepLadderMatch(t *testing.T) {
	t.Parallel()

	ladder, _ := ParseStepLadder("30:10,60:20,90:35")

	cases := []struct {
		days    int
		step    int
		percent float64
		ok      bool
	}{
		{0, 0, 0, false},
		{29, 0, 0, false},
		{30, 1, 10, true},
		{59, 1, 10, true},
		{60, 2, 20, true},
		{90, 3, 35, true},
		{400, 3, 35, true},
	}
	for _, c := range cases {
		step, pct, ok := ladder.Match(c.days)
		if step != c.step || pct != c.percent || ok != c.ok {
			t.Errorf("Match(%d) = (%d, %v, %v), want (%d, %v, %v)",
				c.days, step, pct, ok, c.step, c.percent, c.ok)
		}
	}
}

func TestEffectivePrice(t *testing.T) {
	t.Parallel()

	l := &Listing{}
	l.ListPrice = dec("50")
	if got := l.EffectivePrice(); !got.Equal(dec("50")) {
		t.Errorf("EffectivePrice = %s, want 50", got)
	}
	l.CurrentPrice = dec("42.50")
	if got := l.EffectivePrice(); !got.Equal(dec("42.50")) {
		t.Errorf("EffectivePrice = %s, want 42.50", got)
	}
}

func dec(s string) (d decimal.Decimal) {
	d, _ = decimal.NewFromString(s)
	return d
}
