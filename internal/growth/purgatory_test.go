package growth

import (
	"context"
	"testing"
	"time"

	"flipflow/internal/gateway"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func seedChronicZombie(t *testing.T, mem *store.Memory, gw *mock.Client, sku string) int64 {
	t.Helper()
	l := activeListing(sku)
	l.Status = types.StatusZombie
	l.PurchasePrice = dec("30")
	l.ShippingCost = dec("10")
	l.ZombieCycleCount = 4
	id := seed(t, mem, l)[0]
	if gw != nil {
		err := gw.CreateInventoryItem(context.Background(), sku, gateway.Item{SKU: sku, Price: l.ListPrice})
		if err != nil {
			t.Fatalf("register inventory: %v", err)
		}
	}
	return id
}

func TestBreakEvenAndMarkdownPrices(t *testing.T) {
	t.Parallel()
	p := NewPurgatory(mock.New(), testConfig(t), testLogger())

	l := activeListing("MATH")
	l.PurchasePrice = dec("30")
	l.ShippingCost = dec("10")

	// (30 + 10 + 0.30) / (1 - 0.13 - 0.029) = 47.92
	be, ok := p.BreakEvenPrice(l)
	if !ok || !be.Equal(dec("47.92")) {
		t.Errorf("break-even = %s/%v, want 47.92", be, ok)
	}
	// 47.92 * 0.70 = 33.54 (rounded half-even)
	md, ok := p.MarkdownPrice(l)
	if !ok || !md.Equal(dec("33.54")) {
		t.Errorf("markdown = %s/%v, want 33.54", md, ok)
	}
}

func TestEnterPurgatory(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	id := seedChronicZombie(t, mem, gw, "DOOMED")

	p := NewPurgatory(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	result, err := p.EnterPurgatory(ctx, sess, id)
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	sess.Commit(ctx)

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !result.MarkdownPrice.Equal(dec("33.54")) || result.SalePercent != 30 {
		t.Errorf("result = %+v", result)
	}
	// Selling below break-even loses money; the loss is reported positive.
	if !result.EstimatedLoss.IsPositive() {
		t.Errorf("estimated loss = %s, want > 0", result.EstimatedLoss)
	}

	l := getCommitted(t, mem, id)
	if l.Status != types.StatusPurgatory {
		t.Errorf("status = %s, want purgatory", l.Status)
	}
	if !l.CurrentPrice.Equal(dec("33.54")) {
		t.Errorf("current price = %s, want 33.54", l.CurrentPrice)
	}
	if l.EnteredPurgatoryAt.IsZero() {
		t.Error("entered_purgatory_at should be stamped")
	}

	// The markdown reached the marketplace.
	item, _ := gw.Inventory("DOOMED")
	if !item.Price.Equal(dec("33.54")) {
		t.Errorf("gateway price = %s, want 33.54", item.Price)
	}
}

func TestEnterPurgatoryGatewayFailure(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	id := seedChronicZombie(t, mem, gw, "STUCK")
	gw.InjectFailure("bulk_update_price_quantity",
		gateway.Errorf(gateway.KindTransport, "bulk_update_price_quantity", "down"))

	p := NewPurgatory(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	result, err := p.EnterPurgatory(ctx, sess, id)
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	sess.Commit(ctx)

	if result.Success {
		t.Fatal("expected structured failure")
	}
	l := getCommitted(t, mem, id)
	if l.Status != types.StatusZombie {
		t.Errorf("status = %s, want zombie kept on failure", l.Status)
	}
}

func TestEnterPurgatoryRejectsIllegalTransition(t *testing.T) {
	t.Parallel()
	mem := store.NewMemory()
	ctx := context.Background()

	sold := activeListing("GONE")
	sold.Status = types.StatusSold
	ids := seed(t, mem, sold)

	p := NewPurgatory(mock.New(), testConfig(t), testLogger())
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	result, err := p.EnterPurgatory(ctx, sess, ids[0])
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if result.Success {
		t.Error("sold listing must not enter purgatory")
	}
}

func TestScanForPurgatoryUsesEntryTimestamp(t *testing.T) {
	t.Parallel()
	mem := store.NewMemory()
	ctx := context.Background()

	stale := activeListing("OLD-PURG")
	stale.Status = types.StatusPurgatory
	stale.EnteredPurgatoryAt = time.Now().UTC().Add(-8 * 24 * time.Hour)
	fresh := activeListing("NEW-PURG")
	fresh.Status = types.StatusPurgatory
	fresh.EnteredPurgatoryAt = time.Now().UTC().Add(-2 * 24 * time.Hour)
	fresh.DaysActive = 200 // pre-purgatory age must not count
	seed(t, mem, stale, fresh)

	p := NewPurgatory(mock.New(), testConfig(t), testLogger())
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	suggestions, err := p.ScanForPurgatory(ctx, sess)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].SKU != "OLD-PURG" {
		t.Errorf("suggestions = %+v, want only OLD-PURG", suggestions)
	}
	if suggestions[0].Suggestion != "DONATE_OR_TRASH" {
		t.Errorf("suggestion = %q", suggestions[0].Suggestion)
	}
}

func TestScanForPurgatoryLegacyFallback(t *testing.T) {
	t.Parallel()
	mem := store.NewMemory()
	ctx := context.Background()

	legacy := activeListing("LEGACY")
	legacy.Status = types.StatusPurgatory
	legacy.DaysActive = 30 // no entry timestamp; age stands in
	seed(t, mem, legacy)

	p := NewPurgatory(mock.New(), testConfig(t), testLogger())
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	suggestions, err := p.ScanForPurgatory(ctx, sess)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(suggestions) != 1 {
		t.Errorf("suggestions = %+v, want legacy row flagged", suggestions)
	}
}
