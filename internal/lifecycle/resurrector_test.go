package lifecycle

import (
	"context"
	"strings"
	"testing"

	"flipflow/internal/gateway"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func TestResurrectionSKU(t *testing.T) {
	t.Parallel()

	cases := []struct {
		sku   string
		cycle int
		want  string
	}{
		{"NIKE-001", 1, "NIKE-001_R1"},
		{"NIKE-001_R1", 2, "NIKE-001_R2"},
		{"NIKE-001_R7", 8, "NIKE-001_R8"},
		{"SKU_RAW-5", 1, "SKU_RAW-5_R1"}, // _R not followed by digits at the end stays
	}
	for _, c := range cases {
		if got := ResurrectionSKU(c.sku, c.cycle); got != c.want {
			t.Errorf("ResurrectionSKU(%q, %d) = %q, want %q", c.sku, c.cycle, got, c.want)
		}
	}
}

func TestResurrectionSKURepeated(t *testing.T) {
	t.Parallel()

	sku := "CAM-42"
	for k := 1; k <= 5; k++ {
		sku = ResurrectionSKU(sku, k)
		want := "CAM-42_R" + string(rune('0'+k))
		if sku != want {
			t.Fatalf("after %d cycles sku = %q, want %q", k, sku, want)
		}
	}
}

func seedZombieWithOffer(t *testing.T, mem *store.Memory, gw *mock.Client) (*types.Listing, int64) {
	t.Helper()
	ctx := context.Background()

	// Create a published offer in the gateway so the withdraw has a target.
	offer, err := gw.CreateOffer(ctx, gateway.OfferRequest{SKU: "NIKE-001", Price: dec("50")})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := gw.PublishOffer(ctx, offer.OfferID); err != nil {
		t.Fatalf("publish offer: %v", err)
	}

	l := activeListing("NIKE-001")
	l.EbayItemID = "OLD"
	l.OfferID = offer.OfferID
	l.Status = types.StatusZombie
	l.DaysActive = 75
	l.TotalViews = 4
	l.Watchers = 2
	l.PhotoURLs = []string{"a", "b", "c"}
	ids := seed(t, mem, l)
	return l, ids[0]
}

func TestResurrectFullPipeline(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	_, id := seedZombieWithOffer(t, mem, gw)
	oldOfferID := getCommitted(t, mem, id).OfferID

	rs := NewResurrector(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	res, err := rs.Resurrect(ctx, sess, id)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	sess.Commit(ctx)

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.SKU != "NIKE-001_R1" {
		t.Errorf("sku = %q, want NIKE-001_R1", res.SKU)
	}
	if res.NewItemID == "" || res.NewItemID == "OLD" {
		t.Errorf("new item id = %q, want fresh id", res.NewItemID)
	}
	if res.CycleNumber != 1 {
		t.Errorf("cycle = %d, want 1", res.CycleNumber)
	}

	l := getCommitted(t, mem, id)
	if l.SKU != "NIKE-001_R1" || l.EbayItemID != res.NewItemID || l.OfferID != res.NewOfferID {
		t.Errorf("listing identity = %s/%s/%s", l.SKU, l.EbayItemID, l.OfferID)
	}
	if l.Status != types.StatusActive {
		t.Errorf("status = %s, want active", l.Status)
	}
	if l.DaysActive != 0 || l.TotalViews != 0 || l.Watchers != 0 {
		t.Errorf("counters not reset: %d/%d/%d", l.DaysActive, l.TotalViews, l.Watchers)
	}
	if l.ZombieCycleCount != 1 {
		t.Errorf("cycle count = %d, want 1", l.ZombieCycleCount)
	}
	if l.PhotoURLs[0] != "b" || l.PhotoURLs[1] != "a" || l.PhotoURLs[2] != "c" {
		t.Errorf("photos = %v, want rotated [b a c]", l.PhotoURLs)
	}
	if l.ListedAt.IsZero() {
		t.Error("listed_at should be refreshed")
	}

	// The old offer was withdrawn and the new inventory item exists.
	if status, _ := gw.OfferStatus(oldOfferID); status != "WITHDRAWN" {
		t.Errorf("old offer status = %q, want WITHDRAWN", status)
	}
	if _, ok := gw.Inventory("NIKE-001_R1"); !ok {
		t.Error("new inventory item missing")
	}
}

func TestResurrectFailsOnWithdraw(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	_, id := seedZombieWithOffer(t, mem, gw)
	gw.InjectFailure("withdraw_offer", gateway.Errorf(gateway.KindTransport, "withdraw_offer", "down"))

	rs := NewResurrector(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	res, err := rs.Resurrect(ctx, sess, id)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	sess.Commit(ctx)

	if res.Success {
		t.Fatal("expected structured failure")
	}
	if !strings.Contains(res.Error, "withdraw") {
		t.Errorf("error = %q, want withdraw step named", res.Error)
	}
	l := getCommitted(t, mem, id)
	if l.SKU != "NIKE-001" || l.Status != types.StatusZombie {
		t.Errorf("listing mutated on abort: %s/%s", l.SKU, l.Status)
	}
}

func TestResurrectFailsOnPublishWithoutReversingWithdraw(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	_, id := seedZombieWithOffer(t, mem, gw)
	oldOfferID := getCommitted(t, mem, id).OfferID
	gw.InjectFailure("publish_offer", gateway.Errorf(gateway.KindGeneric, "publish_offer", "rejected"))

	rs := NewResurrector(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	res, err := rs.Resurrect(ctx, sess, id)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	sess.Commit(ctx)

	if res.Success {
		t.Fatal("expected structured failure")
	}
	// The withdraw is not reversed; the listing row is untouched.
	if status, _ := gw.OfferStatus(oldOfferID); status != "WITHDRAWN" {
		t.Errorf("old offer status = %q, want WITHDRAWN kept", status)
	}
	l := getCommitted(t, mem, id)
	if l.SKU != "NIKE-001" {
		t.Errorf("sku = %q, listing must not be rewritten on abort", l.SKU)
	}
}

func TestResurrectMissingListing(t *testing.T) {
	t.Parallel()
	mem := store.NewMemory()
	ctx := context.Background()

	rs := NewResurrector(mock.New(), testConfig(t), testLogger())
	sess := begin(t, mem)
	defer sess.Rollback(ctx)
	res, err := rs.Resurrect(ctx, sess, 12345)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Errorf("result = %+v, want structured not-found failure", res)
	}
}

func TestResurrectResultCarriesOldItemID(t *testing.T) {
	t.Parallel()
	gw := mock.New()
	mem := store.NewMemory()
	ctx := context.Background()

	_, id := seedZombieWithOffer(t, mem, gw)

	rs := NewResurrector(gw, testConfig(t), testLogger())
	sess := begin(t, mem)
	res, err := rs.Resurrect(ctx, sess, id)
	if err != nil || !res.Success {
		t.Fatalf("resurrect: %v / %+v", err, res)
	}
	// The audit record snapshots the pre-reset counters and both item ids.
	// The Session interface has no read path for zombie records, so only the
	// old item id is checked here, through the returned result; the record
	// insert itself is not asserted.
	if res.OldItemID != "OLD" {
		t.Errorf("old item id = %q, want OLD", res.OldItemID)
	}
	sess.Commit(ctx)
}

func TestRotatePhotosInvolutive(t *testing.T) {
	t.Parallel()

	photos := []string{"a", "b", "c", "d"}
	twice := rotatePhotos(rotatePhotos(photos))
	for i := range photos {
		if twice[i] != photos[i] {
			t.Fatalf("double rotation changed order: %v", twice)
		}
	}

	one := []string{"only"}
	if got := rotatePhotos(one); len(got) != 1 || got[0] != "only" {
		t.Errorf("rotate(<2 photos) = %v, want unchanged", got)
	}
}
