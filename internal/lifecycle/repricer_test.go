package lifecycle

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"flipflow/internal/gateway"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
)

func newTestRepricer(t *testing.T, gw gateway.Gateway) *Repricer {
	t.Helper()
	r, err := NewRepricer(gw, testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("new repricer: %v", err)
	}
	return r
}

func TestCalculateRepriceBeforeFirstStep(t *testing.T) {
	t.Parallel()
	r := newTestRepricer(t, mock.New())

	l := activeListing("EARLY")
	l.DaysActive = 29 // first step is at 30 days
	if detail := r.CalculateReprice(l); detail != nil {
		t.Errorf("detail = %+v, want nil before first step", detail)
	}
}

func TestCalculateRepriceFromListPriceNotCompounded(t *testing.T) {
	t.Parallel()
	r := newTestRepricer(t, mock.New())

	l := activeListing("LADDER")
	l.DaysActive = 60 // 20% step
	l.CurrentPrice = dec("45.00") // already repriced once at the 10% step

	detail := r.CalculateReprice(l)
	if detail == nil {
		t.Fatal("expected a reprice")
	}
	// 20% off the ORIGINAL 50, not off the current 45
	if !detail.NewPrice.Equal(dec("40.00")) {
		t.Errorf("new price = %s, want 40.00", detail.NewPrice)
	}
	if detail.Step != 2 || detail.PercentOff != 20 {
		t.Errorf("step = %d/%v, want 2/20", detail.Step, detail.PercentOff)
	}
}

func TestRepriceMonotoneAndFloored(t *testing.T) {
	t.Parallel()
	r := newTestRepricer(t, mock.New())

	l := activeListing("MONO")
	minViable, ok := r.profit.MinimumPrice(l.PurchasePrice, l.ShippingCost, l.AdRatePercent)
	if !ok {
		t.Fatal("expected finite min viable")
	}

	prev := l.ListPrice
	for days := 0; days <= 120; days += 5 {
		l.DaysActive = days
		l.CurrentPrice = decimal.Zero
		detail := r.CalculateReprice(l)
		if detail == nil {
			continue
		}
		if detail.NewPrice.GreaterThan(prev) {
			t.Errorf("day %d: price %s rose above previous %s", days, detail.NewPrice, prev)
		}
		if detail.NewPrice.LessThan(minViable) {
			t.Errorf("day %d: price %s dipped below min viable %s", days, detail.NewPrice, minViable)
		}
		prev = detail.NewPrice
	}
}

func TestCalculateRepriceClampsToMinViable(t *testing.T) {
	t.Parallel()
	r := newTestRepricer(t, mock.New())

	l := activeListing("CLAMP")
	l.PurchasePrice = dec("30")
	l.ShippingCost = dec("10")
	l.AdRatePercent = 1.5
	l.ListPrice = dec("56")
	l.DaysActive = 90 // 35% off -> 36.40, below min viable 54.84

	detail := r.CalculateReprice(l)
	if detail == nil {
		t.Fatal("expected a reprice")
	}
	if !detail.NewPrice.Equal(dec("54.84")) {
		t.Errorf("new price = %s, want clamp to 54.84", detail.NewPrice)
	}
}

func TestCalculateRepriceSkipsWithinOneCent(t *testing.T) {
	t.Parallel()
	r := newTestRepricer(t, mock.New())

	l := activeListing("SAME")
	l.DaysActive = 30
	l.CurrentPrice = dec("45.00") // exactly the 10% step price
	if detail := r.CalculateReprice(l); detail != nil {
		t.Errorf("detail = %+v, want nil when price unchanged", detail)
	}
}

func TestScanAndRepriceCommitsAndPushes(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	due := activeListing("DUE")
	due.DaysActive = 30
	fresh := activeListing("FRESH")
	fresh.DaysActive = 3
	ids := seed(t, mem, due, fresh)
	registerInventory(t, gw, due, fresh)

	r := newTestRepricer(t, gw)
	sess := begin(t, mem)
	report, err := r.ScanAndReprice(ctx, sess)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if report.TotalScanned != 2 || report.Repriced != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.GatewayErrors != 0 {
		t.Errorf("gateway errors = %d, want 0", report.GatewayErrors)
	}

	updated := getCommitted(t, mem, ids[0])
	if !updated.CurrentPrice.Equal(dec("45.00")) {
		t.Errorf("current price = %s, want 45.00", updated.CurrentPrice)
	}
	if updated.LastRepricedAt.IsZero() {
		t.Error("last_repriced_at should be set")
	}

	item, _ := gw.Inventory("DUE")
	if !item.Price.Equal(dec("45.00")) {
		t.Errorf("gateway price = %s, want 45.00", item.Price)
	}
}

func TestScanAndRepriceBulkFailureKeepsLocalPrices(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	due := activeListing("PUSHFAIL")
	due.DaysActive = 30
	ids := seed(t, mem, due)
	registerInventory(t, gw, due)
	gw.InjectFailure("bulk_update_price_quantity",
		gateway.Errorf(gateway.KindTransport, "bulk_update_price_quantity", "down"))

	r := newTestRepricer(t, gw)
	sess := begin(t, mem)
	report, err := r.ScanAndReprice(ctx, sess)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	sess.Commit(ctx)

	if report.GatewayErrors != 1 {
		t.Errorf("gateway errors = %d, want 1", report.GatewayErrors)
	}
	// The local mutation stays; the next scan reconciles.
	updated := getCommitted(t, mem, ids[0])
	if !updated.CurrentPrice.Equal(dec("45.00")) {
		t.Errorf("local price = %s, want 45.00 kept", updated.CurrentPrice)
	}
}

func TestScanAndRepriceAuthFailureAborts(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	due := activeListing("AUTH")
	due.DaysActive = 30
	seed(t, mem, due)
	registerInventory(t, gw, due)
	gw.InjectFailure("bulk_update_price_quantity",
		gateway.Errorf(gateway.KindAuth, "bulk_update_price_quantity", "token expired"))

	r := newTestRepricer(t, gw)
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	_, err := r.ScanAndReprice(ctx, sess)
	if !gateway.IsAuth(err) {
		t.Errorf("err = %v, want auth error surfaced", err)
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	due := activeListing("PREVIEW")
	due.DaysActive = 30
	ids := seed(t, mem, due)

	r := newTestRepricer(t, gw)
	sess := begin(t, mem)
	report, err := r.Preview(ctx, sess)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	sess.Commit(ctx)

	if report.Repriced != 1 {
		t.Errorf("preview repriced = %d, want 1", report.Repriced)
	}
	l := getCommitted(t, mem, ids[0])
	if l.CurrentPrice.IsPositive() || !l.LastRepricedAt.IsZero() {
		t.Error("preview must not mutate the listing")
	}
}

