package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testConfig loads defaults with the resurrection cooldown zeroed.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Zombie.ResurrectionDelaySeconds = 0
	return cfg
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// activeListing builds a published active listing with sane economics.
func activeListing(sku string) *types.Listing {
	return &types.Listing{
		SKU:           sku,
		EbayItemID:    "ITEM-" + sku,
		Title:         "Listing " + sku,
		Status:        types.StatusActive,
		PurchasePrice: dec("10"),
		ListPrice:     dec("50"),
		ShippingCost:  dec("5"),
		PhotoURLs:     []string{"photo-a.jpg", "photo-b.jpg", "photo-c.jpg"},
		OfferID:       "OFFER-" + sku,
		ListedAt:      time.Now().UTC(),
	}
}

// seed inserts listings in one committed session and returns their ids.
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

// registerInventory mirrors seeded listings into the mock gateway so bulk
// price updates and inventory patches find them.
func registerInventory(t *testing.T, gw *mock.Client, listings ...*types.Listing) {
	t.Helper()
	ctx := context.Background()
	for _, l := range listings {
		err := gw.CreateInventoryItem(ctx, l.SKU, mockItem(l))
		if err != nil {
			t.Fatalf("register inventory %s: %v", l.SKU, err)
		}
	}
}

func mockItem(l *types.Listing) gateway.Item {
	return gateway.Item{
		SKU:       l.SKU,
		Title:     l.Title,
		PhotoURLs: append([]string(nil), l.PhotoURLs...),
		Price:     l.ListPrice,
		Quantity:  1,
	}
}

func begin(t *testing.T, mem *store.Memory) store.Session {
	t.Helper()
	sess, err := mem.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return sess
}

// getCommitted reads a listing in its own throwaway session.
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
