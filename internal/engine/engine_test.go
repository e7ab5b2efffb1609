package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func newTestEngine(t *testing.T) (*Engine, *store.Memory, *mock.Client) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Zombie.ResurrectionDelaySeconds = 0
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mem := store.NewMemory()
	gw := mock.New()
	eng, err := New(cfg, mem, gw, logger)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, mem, gw
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCreateListingRunsGatekeepers(t *testing.T) {
	t.Parallel()
	eng, mem, _ := newTestEngine(t)
	ctx := context.Background()

	listing, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "NIKE-AM90-001",
		Title:         "WOW!!! AMAZING NIKE AIR MAX 90 L@@K",
		Description:   "<div style=\"width:1400px\"><b>Great shoes</b></div>",
		Brand:         "Nike",
		PurchasePrice: dec("20"),
		ListPrice:     dec("89.99"),
		ShippingCost:  dec("8"),
		PhotoURLs:     []string{"a.jpg"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if listing.ID == 0 || listing.Status != types.StatusDraft {
		t.Errorf("listing = %+v", listing)
	}
	if listing.TitleSanitized == "" || len(listing.TitleSanitized) > 80 {
		t.Errorf("sanitized title = %q", listing.TitleSanitized)
	}
	if listing.DescriptionMobile == "" {
		t.Error("mobile description should be generated")
	}

	// Committed for real.
	sess, _ := mem.Begin(ctx)
	defer sess.Rollback(ctx)
	got, _ := sess.GetListingBySKU(ctx, "NIKE-AM90-001")
	if got == nil {
		t.Fatal("listing not persisted")
	}
}

func TestCreateListingRejectsLowProfit(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "JUNK-1",
		Title:         "Worthless trinket",
		PurchasePrice: dec("18"),
		ListPrice:     dec("20"),
	})
	var lpe *gatekeeper.LowProfitError
	if !errors.As(err, &lpe) {
		t.Fatalf("err = %v, want LowProfitError", err)
	}

	// The override admits it anyway.
	listing, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:            "JUNK-1",
		Title:          "Worthless trinket",
		PurchasePrice:  dec("18"),
		ListPrice:      dec("20"),
		ProfitOverride: true,
	})
	if err != nil || listing.ID == 0 {
		t.Fatalf("override create: %v", err)
	}
}

func TestCreateListingSTRGate(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	low := 0.2
	_, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "STR-1",
		Title:         "Slow mover",
		PurchasePrice: dec("5"),
		ListPrice:     dec("50"),
		STRValue:      &low,
	})
	var lse *gatekeeper.LowSTRError
	if !errors.As(err, &lse) {
		t.Fatalf("err = %v, want LowSTRError", err)
	}

	listing, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "STR-1",
		Title:         "Slow mover",
		PurchasePrice: dec("5"),
		ListPrice:     dec("50"),
		STRValue:      &low,
		STROverride:   true,
	})
	if err != nil {
		t.Fatalf("override create: %v", err)
	}
	if listing.STRSource != "manual" || listing.SellThroughRate != 0.2 {
		t.Errorf("listing STR = %v/%q", listing.SellThroughRate, listing.STRSource)
	}
}

func TestCreateListingDuplicateSKU(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	req := CreateListingRequest{
		SKU:           "DUP-1",
		Title:         "First",
		PurchasePrice: dec("5"),
		ListPrice:     dec("50"),
	}
	if _, err := eng.CreateListing(ctx, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := eng.CreateListing(ctx, req)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestMarkSoldWritesProfitRecord(t *testing.T) {
	t.Parallel()
	eng, mem, _ := newTestEngine(t)
	ctx := context.Background()

	listing, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "SELL-1",
		Title:         "Camera",
		PurchasePrice: dec("30"),
		ListPrice:     dec("100"),
		ShippingCost:  dec("10"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// draft cannot go straight to sold
	if _, err := eng.MarkSold(ctx, listing.ID, dec("100")); err == nil {
		t.Fatal("draft -> sold should be rejected")
	}

	// Walk it to active through the store, then sell.
	sess, _ := mem.Begin(ctx)
	l, _ := sess.GetListing(ctx, listing.ID)
	l.Status = types.StatusActive
	if err := sess.UpdateListing(ctx, l); err != nil {
		t.Fatalf("update: %v", err)
	}
	sess.Commit(ctx)

	record, err := eng.MarkSold(ctx, listing.ID, dec("100"))
	if err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if !record.NetProfit.Equal(dec("43.80")) { // no ad fee on this listing
		t.Errorf("net = %s, want 43.80", record.NetProfit)
	}
	if !record.MeetsFloor {
		t.Error("sale should meet floor")
	}

	sold, _ := func() (*types.Listing, error) {
		s, _ := mem.Begin(ctx)
		defer s.Rollback(ctx)
		return s.GetListing(ctx, listing.ID)
	}()
	if sold.Status != types.StatusSold {
		t.Errorf("status = %s, want sold", sold.Status)
	}
}

func TestRunRollsBackOnPolicyError(t *testing.T) {
	t.Parallel()
	eng, mem, _ := newTestEngine(t)
	ctx := context.Background()

	err := eng.run(ctx, "doomed", "test", func(sess store.Session) (int, int, error) {
		l := &types.Listing{SKU: "GHOST", Title: "x", ListPrice: dec("10"), Status: types.StatusDraft}
		if err := sess.InsertListing(ctx, l); err != nil {
			return 0, 0, err
		}
		return 0, 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	sess, _ := mem.Begin(ctx)
	defer sess.Rollback(ctx)
	if l, _ := sess.GetListingBySKU(ctx, "GHOST"); l != nil {
		t.Error("failed run must roll back its writes")
	}
}

func TestRunEmitsJobEvents(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.PreviewReprice(ctx); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if _, err := eng.RunRepricer(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	select {
	case evt := <-eng.Events():
		if evt.JobName != "repricer" || evt.Status != types.JobSuccess {
			t.Errorf("event = %+v", evt)
		}
	default:
		t.Error("expected a job event after RunRepricer")
	}
}

func TestEndToEndZombieLifecycle(t *testing.T) {
	t.Parallel()
	eng, mem, gw := newTestEngine(t)
	ctx := context.Background()

	listing, err := eng.CreateListing(ctx, CreateListingRequest{
		SKU:           "LIFE-1",
		Title:         "Aging gadget",
		PurchasePrice: dec("10"),
		ListPrice:     dec("60"),
		PhotoURLs:     []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Queue and release it.
	if _, err := eng.Enqueue(ctx, listing.ID, 1, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	released, err := eng.ReleaseBatch(ctx, false)
	if err != nil || len(released) != 1 {
		t.Fatalf("release: %v (%d entries)", err, len(released))
	}

	// Age it into a zombie.
	sess, _ := mem.Begin(ctx)
	l, _ := sess.GetListing(ctx, listing.ID)
	l.DaysActive = 75
	l.TotalViews = 2
	if err := sess.UpdateListing(ctx, l); err != nil {
		t.Fatalf("age listing: %v", err)
	}
	sess.Commit(ctx)
	gw.SetTraffic(l.EbayItemID, 2)

	scan, err := eng.ScanZombies(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scan.ZombiesFound != 1 {
		t.Fatalf("scan = %+v", scan)
	}

	if _, err := eng.FlagZombie(ctx, listing.ID); err != nil {
		t.Fatalf("flag: %v", err)
	}

	res, err := eng.Resurrect(ctx, listing.ID)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	if !res.Success || res.SKU != "LIFE-1_R1" {
		t.Fatalf("resurrection = %+v", res)
	}
}
