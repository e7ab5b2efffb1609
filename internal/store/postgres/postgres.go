// Package postgres implements store.Store on PostgreSQL via pgx.
//
// Open creates a pgxpool, pings it, and ensures the schema. Begin starts a
// transaction; the returned session maps 1:1 to store.Session with plain SQL.
// Uniqueness of listings.sku and listings.ebay_item_id is enforced by partial
// unique indexes and surfaces as store.ErrDuplicate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// Store is the pgx-backed store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &session{tx: tx}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

type session struct {
	tx   pgx.Tx
	done bool
}

func (s *session) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit(ctx)
}

func (s *session) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback(ctx)
}

// mapErr converts pgx unique violations to store.ErrDuplicate.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// nullTime maps a zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// ————————————————————————————————————————————————————————————————————————
// Listings
// ————————————————————————————————————————————————————————————————————————

const listingColumns = `
	id, sku, ebay_item_id, title, title_sanitized, description, description_mobile,
	brand, model, category_id, condition_id,
	purchase_price::text, list_price::text, current_price::text, shipping_cost::text,
	ad_rate_percent::float8,
	status, listed_at, days_active, total_views, watchers, zombie_cycle_count,
	sell_through_rate::float8, str_source, photo_urls, main_photo_index,
	offer_id, last_repriced_at, last_offer_sent_at, entered_purgatory_at,
	created_at, updated_at, deleted_at`

func scanListing(row pgx.Row) (*types.Listing, error) {
	var l types.Listing
	var purchase, list, current, shipping string
	var listedAt, lastRepriced, lastOffer, enteredPurg, deletedAt *time.Time
	err := row.Scan(
		&l.ID, &l.SKU, &l.EbayItemID, &l.Title, &l.TitleSanitized,
		&l.Description, &l.DescriptionMobile,
		&l.Brand, &l.Model, &l.CategoryID, &l.ConditionID,
		&purchase, &list, &current, &shipping,
		&l.AdRatePercent,
		&l.Status, &listedAt, &l.DaysActive, &l.TotalViews, &l.Watchers, &l.ZombieCycleCount,
		&l.SellThroughRate, &l.STRSource, &l.PhotoURLs, &l.MainPhotoIndex,
		&l.OfferID, &lastRepriced, &lastOffer, &enteredPurg,
		&l.CreatedAt, &l.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	l.PurchasePrice = dec(purchase)
	l.ListPrice = dec(list)
	l.CurrentPrice = dec(current)
	l.ShippingCost = dec(shipping)
	l.ListedAt = timeVal(listedAt)
	l.LastRepricedAt = timeVal(lastRepriced)
	l.LastOfferSentAt = timeVal(lastOffer)
	l.EnteredPurgatoryAt = timeVal(enteredPurg)
	l.DeletedAt = timeVal(deletedAt)
	return &l, nil
}

func (s *session) GetListing(ctx context.Context, id int64) (*types.Listing, error) {
	row := s.tx.QueryRow(ctx,
		`SELECT`+listingColumns+` FROM listings WHERE id = $1 AND deleted_at IS NULL`, id)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (s *session) GetListingBySKU(ctx context.Context, sku string) (*types.Listing, error) {
	row := s.tx.QueryRow(ctx,
		`SELECT`+listingColumns+` FROM listings WHERE sku = $1 AND deleted_at IS NULL`, sku)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (s *session) ListingsByStatus(ctx context.Context, status types.ListingStatus) ([]*types.Listing, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT`+listingColumns+` FROM listings WHERE status = $1 AND deleted_at IS NULL ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *session) InsertListing(ctx context.Context, l *types.Listing) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	err := s.tx.QueryRow(ctx, `
		INSERT INTO listings (
			sku, ebay_item_id, title, title_sanitized, description, description_mobile,
			brand, model, category_id, condition_id,
			purchase_price, list_price, current_price, shipping_cost, ad_rate_percent,
			status, listed_at, days_active, total_views, watchers, zombie_cycle_count,
			sell_through_rate, str_source, photo_urls, main_photo_index,
			offer_id, last_repriced_at, last_offer_sent_at, entered_purgatory_at,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,
			$16,$17,$18,$19,$20,$21,
			$22,$23,$24,$25,
			$26,$27,$28,$29,$30,$31
		) RETURNING id`,
		l.SKU, l.EbayItemID, l.Title, l.TitleSanitized, l.Description, l.DescriptionMobile,
		l.Brand, l.Model, l.CategoryID, l.ConditionID,
		l.PurchasePrice.String(), l.ListPrice.String(), l.CurrentPrice.String(), l.ShippingCost.String(), l.AdRatePercent,
		l.Status, nullTime(l.ListedAt), l.DaysActive, l.TotalViews, l.Watchers, l.ZombieCycleCount,
		l.SellThroughRate, l.STRSource, l.PhotoURLs, l.MainPhotoIndex,
		l.OfferID, nullTime(l.LastRepricedAt), nullTime(l.LastOfferSentAt), nullTime(l.EnteredPurgatoryAt),
		l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	return mapErr(err)
}

func (s *session) UpdateListing(ctx context.Context, l *types.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	tag, err := s.tx.Exec(ctx, `
		UPDATE listings SET
			sku=$2, ebay_item_id=$3, title=$4, title_sanitized=$5,
			description=$6, description_mobile=$7, brand=$8, model=$9,
			category_id=$10, condition_id=$11,
			purchase_price=$12, list_price=$13, current_price=$14, shipping_cost=$15,
			ad_rate_percent=$16, status=$17, listed_at=$18, days_active=$19,
			total_views=$20, watchers=$21, zombie_cycle_count=$22,
			sell_through_rate=$23, str_source=$24, photo_urls=$25, main_photo_index=$26,
			offer_id=$27, last_repriced_at=$28, last_offer_sent_at=$29,
			entered_purgatory_at=$30, updated_at=$31, deleted_at=$32
		WHERE id = $1`,
		l.ID, l.SKU, l.EbayItemID, l.Title, l.TitleSanitized,
		l.Description, l.DescriptionMobile, l.Brand, l.Model,
		l.CategoryID, l.ConditionID,
		l.PurchasePrice.String(), l.ListPrice.String(), l.CurrentPrice.String(), l.ShippingCost.String(),
		l.AdRatePercent, l.Status, nullTime(l.ListedAt), l.DaysActive,
		l.TotalViews, l.Watchers, l.ZombieCycleCount,
		l.SellThroughRate, l.STRSource, l.PhotoURLs, l.MainPhotoIndex,
		l.OfferID, nullTime(l.LastRepricedAt), nullTime(l.LastOfferSentAt),
		nullTime(l.EnteredPurgatoryAt), l.UpdatedAt, nullTime(l.DeletedAt),
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// SmartQueue
// ————————————————————————————————————————————————————————————————————————

func (s *session) InsertQueueEntry(ctx context.Context, e *types.QueueEntry) error {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	return s.tx.QueryRow(ctx, `
		INSERT INTO queue_entries (listing_id, priority, scheduled_window, status,
			released_at, batch_id, error_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		e.ListingID, e.Priority, e.ScheduledWindow, e.Status,
		nullTime(e.ReleasedAt), e.BatchID, e.ErrorMessage, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (s *session) UpdateQueueEntry(ctx context.Context, e *types.QueueEntry) error {
	e.UpdatedAt = time.Now().UTC()
	tag, err := s.tx.Exec(ctx, `
		UPDATE queue_entries SET priority=$2, scheduled_window=$3, status=$4,
			released_at=$5, batch_id=$6, error_message=$7, updated_at=$8
		WHERE id = $1`,
		e.ID, e.Priority, e.ScheduledWindow, e.Status,
		nullTime(e.ReleasedAt), e.BatchID, e.ErrorMessage, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *session) PendingQueueEntries(ctx context.Context, limit int) ([]*types.QueueEntry, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT id, listing_id, priority, scheduled_window, status,
			released_at, batch_id, error_message, created_at, updated_at
		FROM queue_entries WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.QueueEntry
	for rows.Next() {
		var e types.QueueEntry
		var releasedAt *time.Time
		if err := rows.Scan(&e.ID, &e.ListingID, &e.Priority, &e.ScheduledWindow, &e.Status,
			&releasedAt, &e.BatchID, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.ReleasedAt = timeVal(releasedAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *session) QueueCounts(ctx context.Context) (map[types.QueueStatus]int, error) {
	rows, err := s.tx.Query(ctx, `SELECT status, count(*) FROM queue_entries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.QueueStatus]int)
	for rows.Next() {
		var status types.QueueStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *session) ReleasedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.tx.QueryRow(ctx,
		`SELECT count(*) FROM queue_entries WHERE status = 'released' AND released_at >= $1`,
		since).Scan(&n)
	return n, err
}

// ————————————————————————————————————————————————————————————————————————
// Audit records
// ————————————————————————————————————————————————————————————————————————

func (s *session) InsertZombieRecord(ctx context.Context, r *types.ZombieRecord) error {
	r.CreatedAt = time.Now().UTC()
	return s.tx.QueryRow(ctx, `
		INSERT INTO zombie_records (listing_id, detected_at, days_active_at_detection,
			views_at_detection, action, resurrected_at, old_item_id, new_item_id,
			cycle_number, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		r.ListingID, r.DetectedAt, r.DaysActiveAtDetection,
		r.ViewsAtDetection, r.Action, nullTime(r.ResurrectedAt), r.OldItemID, r.NewItemID,
		r.CycleNumber, r.CreatedAt,
	).Scan(&r.ID)
}

func (s *session) InsertOfferRecord(ctx context.Context, r *types.OfferRecord) error {
	r.CreatedAt = time.Now().UTC()
	return s.tx.QueryRow(ctx, `
		INSERT INTO offer_records (listing_id, buyer_id, offer_price, discount_percent,
			sent_at, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		r.ListingID, r.BuyerID, r.OfferPrice.String(), r.DiscountPercent,
		r.SentAt, r.Status, r.CreatedAt,
	).Scan(&r.ID)
}

func (s *session) OfferSentSince(ctx context.Context, listingID int64, buyerID string, since time.Time) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM offer_records
			WHERE listing_id = $1 AND buyer_id = $2 AND sent_at >= $3
		)`, listingID, buyerID, since).Scan(&exists)
	return exists, err
}

func (s *session) InsertProfitRecord(ctx context.Context, r *types.ProfitRecord) error {
	r.CreatedAt = time.Now().UTC()
	return s.tx.QueryRow(ctx, `
		INSERT INTO profit_records (listing_id, sale_price, purchase_price, shipping_cost,
			ebay_fee_amount, ad_fee_amount, payment_fee_amount, net_profit,
			profit_margin_percent, meets_floor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		r.ListingID, r.SalePrice.String(), r.PurchasePrice.String(), r.ShippingCost.String(),
		r.EbayFeeAmount.String(), r.AdFeeAmount.String(), r.PaymentFeeAmount.String(), r.NetProfit.String(),
		r.ProfitMarginPercent, r.MeetsFloor, r.CreatedAt,
	).Scan(&r.ID)
}

// ————————————————————————————————————————————————————————————————————————
// Campaigns
// ————————————————————————————————————————————————————————————————————————

const campaignColumns = `id, listing_id, ebay_campaign_id, campaign_type,
	ad_rate_percent::float8, started_at, ends_at, status, created_at, updated_at`

func scanCampaign(row pgx.Row) (*types.Campaign, error) {
	var c types.Campaign
	err := row.Scan(&c.ID, &c.ListingID, &c.EbayCampaignID, &c.Type,
		&c.AdRatePercent, &c.StartedAt, &c.EndsAt, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *session) InsertCampaign(ctx context.Context, c *types.Campaign) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.tx.QueryRow(ctx, `
		INSERT INTO campaigns (listing_id, ebay_campaign_id, campaign_type,
			ad_rate_percent, started_at, ends_at, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		c.ListingID, c.EbayCampaignID, c.Type,
		c.AdRatePercent, c.StartedAt, c.EndsAt, c.Status, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

func (s *session) UpdateCampaign(ctx context.Context, c *types.Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.tx.Exec(ctx, `
		UPDATE campaigns SET ebay_campaign_id=$2, campaign_type=$3, ad_rate_percent=$4,
			started_at=$5, ends_at=$6, status=$7, updated_at=$8
		WHERE id = $1`,
		c.ID, c.EbayCampaignID, c.Type, c.AdRatePercent,
		c.StartedAt, c.EndsAt, c.Status, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *session) ActiveCampaign(ctx context.Context, listingID int64) (*types.Campaign, error) {
	row := s.tx.QueryRow(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE listing_id = $1 AND status = 'active' LIMIT 1`, listingID)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *session) ExpiredCampaigns(ctx context.Context, now time.Time) ([]*types.Campaign, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = 'active' AND ends_at <= $1 ORDER BY id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ————————————————————————————————————————————————————————————————————————
// Job logs
// ————————————————————————————————————————————————————————————————————————

func (s *session) InsertJobLog(ctx context.Context, j *types.JobLog) error {
	return s.tx.QueryRow(ctx, `
		INSERT INTO job_logs (job_name, job_type, started_at, finished_at, status,
			items_processed, items_affected)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		j.JobName, j.JobType, j.StartedAt, nullTime(j.FinishedAt), j.Status,
		j.ItemsProcessed, j.ItemsAffected,
	).Scan(&j.ID)
}

func (s *session) UpdateJobLog(ctx context.Context, j *types.JobLog) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE job_logs SET finished_at=$2, status=$3, items_processed=$4, items_affected=$5
		WHERE id = $1`,
		j.ID, nullTime(j.FinishedAt), j.Status, j.ItemsProcessed, j.ItemsAffected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
var _ store.Session = (*session)(nil)
