package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"flipflow/pkg/types"
)

// Memory is the in-memory Store used by tests and mock mode. A session
// holds the store lock from Begin until Commit or Rollback, so sessions are
// fully serialized, and Rollback restores the snapshot taken at Begin.
type Memory struct {
	mu sync.Mutex

	listings  map[int64]*types.Listing
	queue     map[int64]*types.QueueEntry
	zombies   map[int64]*types.ZombieRecord
	offers    map[int64]*types.OfferRecord
	campaigns map[int64]*types.Campaign
	profits   map[int64]*types.ProfitRecord
	jobs      map[int64]*types.JobLog

	nextID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		listings:  make(map[int64]*types.Listing),
		queue:     make(map[int64]*types.QueueEntry),
		zombies:   make(map[int64]*types.ZombieRecord),
		offers:    make(map[int64]*types.OfferRecord),
		campaigns: make(map[int64]*types.Campaign),
		profits:   make(map[int64]*types.ProfitRecord),
		jobs:      make(map[int64]*types.JobLog),
	}
}

// Begin locks the store and returns a session over it.
func (m *Memory) Begin(ctx context.Context) (Session, error) {
	m.mu.Lock()
	return &memSession{store: m, snap: m.snapshot()}, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() {}

type memSnapshot struct {
	listings  map[int64]*types.Listing
	queue     map[int64]*types.QueueEntry
	zombies   map[int64]*types.ZombieRecord
	offers    map[int64]*types.OfferRecord
	campaigns map[int64]*types.Campaign
	profits   map[int64]*types.ProfitRecord
	jobs      map[int64]*types.JobLog
	nextID    int64
}

func (m *Memory) snapshot() memSnapshot {
	s := memSnapshot{
		listings:  make(map[int64]*types.Listing, len(m.listings)),
		queue:     make(map[int64]*types.QueueEntry, len(m.queue)),
		zombies:   make(map[int64]*types.ZombieRecord, len(m.zombies)),
		offers:    make(map[int64]*types.OfferRecord, len(m.offers)),
		campaigns: make(map[int64]*types.Campaign, len(m.campaigns)),
		profits:   make(map[int64]*types.ProfitRecord, len(m.profits)),
		jobs:      make(map[int64]*types.JobLog, len(m.jobs)),
		nextID:    m.nextID,
	}
	for id, l := range m.listings {
		s.listings[id] = copyListing(l)
	}
	for id, e := range m.queue {
		cp := *e
		s.queue[id] = &cp
	}
	for id, r := range m.zombies {
		cp := *r
		s.zombies[id] = &cp
	}
	for id, r := range m.offers {
		cp := *r
		s.offers[id] = &cp
	}
	for id, c := range m.campaigns {
		cp := *c
		s.campaigns[id] = &cp
	}
	for id, r := range m.profits {
		cp := *r
		s.profits[id] = &cp
	}
	for id, j := range m.jobs {
		cp := *j
		s.jobs[id] = &cp
	}
	return s
}

func (m *Memory) restore(s memSnapshot) {
	m.listings = s.listings
	m.queue = s.queue
	m.zombies = s.zombies
	m.offers = s.offers
	m.campaigns = s.campaigns
	m.profits = s.profits
	m.jobs = s.jobs
	m.nextID = s.nextID
}

func copyListing(l *types.Listing) *types.Listing {
	cp := *l
	cp.PhotoURLs = append([]string(nil), l.PhotoURLs...)
	return &cp
}

// memSession implements Session over a locked Memory store.
type memSession struct {
	store *Memory
	snap  memSnapshot
	done  bool
}

func (s *memSession) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	s.store.mu.Unlock()
	return nil
}

func (s *memSession) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	s.store.restore(s.snap)
	s.store.mu.Unlock()
	return nil
}

func (s *memSession) nextID() int64 {
	s.store.nextID++
	return s.store.nextID
}

// ————————————————————————————————————————————————————————————————————————
// Listings
// ————————————————————————————————————————————————————————————————————————

func (s *memSession) GetListing(ctx context.Context, id int64) (*types.Listing, error) {
	l, ok := s.store.listings[id]
	if !ok || !l.DeletedAt.IsZero() {
		return nil, nil
	}
	return copyListing(l), nil
}

func (s *memSession) GetListingBySKU(ctx context.Context, sku string) (*types.Listing, error) {
	for _, l := range s.store.listings {
		if l.SKU == sku && l.DeletedAt.IsZero() {
			return copyListing(l), nil
		}
	}
	return nil, nil
}

func (s *memSession) ListingsByStatus(ctx context.Context, status types.ListingStatus) ([]*types.Listing, error) {
	var out []*types.Listing
	for _, l := range s.store.listings {
		if l.Status == status && l.DeletedAt.IsZero() {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memSession) checkListingUniqueness(l *types.Listing) error {
	for id, other := range s.store.listings {
		if id == l.ID || !other.DeletedAt.IsZero() {
			continue
		}
		if other.SKU == l.SKU {
			return ErrDuplicate
		}
		if l.EbayItemID != "" && other.EbayItemID == l.EbayItemID {
			return ErrDuplicate
		}
	}
	return nil
}

func (s *memSession) InsertListing(ctx context.Context, l *types.Listing) error {
	if err := s.checkListingUniqueness(l); err != nil {
		return err
	}
	l.ID = s.nextID()
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	s.store.listings[l.ID] = copyListing(l)
	return nil
}

func (s *memSession) UpdateListing(ctx context.Context, l *types.Listing) error {
	if _, ok := s.store.listings[l.ID]; !ok {
		return ErrNotFound
	}
	if err := s.checkListingUniqueness(l); err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	s.store.listings[l.ID] = copyListing(l)
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// SmartQueue
// ————————————————————————————————————————————————————————————————————————

func (s *memSession) InsertQueueEntry(ctx context.Context, e *types.QueueEntry) error {
	e.ID = s.nextID()
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	s.store.queue[e.ID] = &cp
	return nil
}

func (s *memSession) UpdateQueueEntry(ctx context.Context, e *types.QueueEntry) error {
	if _, ok := s.store.queue[e.ID]; !ok {
		return ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	s.store.queue[e.ID] = &cp
	return nil
}

func (s *memSession) PendingQueueEntries(ctx context.Context, limit int) ([]*types.QueueEntry, error) {
	var out []*types.QueueEntry
	for _, e := range s.store.queue {
		if e.Status == types.QueuePending {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memSession) QueueCounts(ctx context.Context) (map[types.QueueStatus]int, error) {
	counts := make(map[types.QueueStatus]int)
	for _, e := range s.store.queue {
		counts[e.Status]++
	}
	return counts, nil
}

func (s *memSession) ReleasedSince(ctx context.Context, since time.Time) (int, error) {
	n := 0
	for _, e := range s.store.queue {
		if e.Status == types.QueueReleased && !e.ReleasedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ————————————————————————————————————————————————————————————————————————
// Audit records
// ————————————————————————————————————————————————————————————————————————

func (s *memSession) InsertZombieRecord(ctx context.Context, r *types.ZombieRecord) error {
	r.ID = s.nextID()
	r.CreatedAt = time.Now().UTC()
	cp := *r
	s.store.zombies[r.ID] = &cp
	return nil
}

func (s *memSession) InsertOfferRecord(ctx context.Context, r *types.OfferRecord) error {
	r.ID = s.nextID()
	r.CreatedAt = time.Now().UTC()
	cp := *r
	s.store.offers[r.ID] = &cp
	return nil
}

func (s *memSession) OfferSentSince(ctx context.Context, listingID int64, buyerID string, since time.Time) (bool, error) {
	for _, r := range s.store.offers {
		if r.ListingID == listingID && r.BuyerID == buyerID && !r.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memSession) InsertProfitRecord(ctx context.Context, r *types.ProfitRecord) error {
	r.ID = s.nextID()
	r.CreatedAt = time.Now().UTC()
	cp := *r
	s.store.profits[r.ID] = &cp
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Campaigns
// ————————————————————————————————————————————————————————————————————————

func (s *memSession) InsertCampaign(ctx context.Context, c *types.Campaign) error {
	c.ID = s.nextID()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.store.campaigns[c.ID] = &cp
	return nil
}

func (s *memSession) UpdateCampaign(ctx context.Context, c *types.Campaign) error {
	if _, ok := s.store.campaigns[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.store.campaigns[c.ID] = &cp
	return nil
}

func (s *memSession) ActiveCampaign(ctx context.Context, listingID int64) (*types.Campaign, error) {
	for _, c := range s.store.campaigns {
		if c.ListingID == listingID && c.Status == types.CampaignActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memSession) ExpiredCampaigns(ctx context.Context, now time.Time) ([]*types.Campaign, error) {
	var out []*types.Campaign
	for _, c := range s.store.campaigns {
		if c.Status == types.CampaignActive && !c.EndsAt.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ————————————————————————————————————————————————————————————————————————
// Job logs
// ————————————————————————————————————————————————————————————————————————

func (s *memSession) InsertJobLog(ctx context.Context, j *types.JobLog) error {
	j.ID = s.nextID()
	cp := *j
	s.store.jobs[j.ID] = &cp
	return nil
}

func (s *memSession) UpdateJobLog(ctx context.Context, j *types.JobLog) error {
	if _, ok := s.store.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	cp := *j
	s.store.jobs[j.ID] = &cp
	return nil
}

var _ Store = (*Memory)(nil)
var _ Session = (*memSession)(nil)
