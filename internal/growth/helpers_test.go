package growth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func activeListing(sku string) *types.Listing {
	return &types.Listing{
		SKU:           sku,
		EbayItemID:    "ITEM-" + sku,
		Title:         "Listing " + sku,
		Status:        types.StatusActive,
		PurchasePrice: dec("10"),
		ListPrice:     dec("50"),
		ShippingCost:  dec("5"),
		PhotoURLs:     []string{"a.jpg", "b.jpg"},
		OfferID:       "OFFER-" + sku,
		ListedAt:      time.Now().UTC(),
	}
}

func seed(t *testing.T, mem *store.Memory, listings ...*types.Listing) []int64 {
	t.Helper()
	ctx := context.Background()
	sess, err := mem.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ids := make([]int64, len(listings))
	for i, l := range listings {
		if err := sess.InsertListing(ctx, l); err != nil {
			t.Fatalf("seed listing %s: %v", l.SKU, err)
		}
		ids[i] = l.ID
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("commit seed: %v", err)
	}
	return ids
}

func begin(t *testing.T, mem *store.Memory) store.Session {
	t.Helper()
	sess, err := mem.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return sess
}

func getCommitted(t *testing.T, mem *store.Memory, id int64) *types.Listing {
	t.Helper()
	ctx := context.Background()
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	l, err := sess.GetListing(ctx, id)
	if err != nil {
		t.Fatalf("get listing %d: %v", id, err)
	}
	return l
}
