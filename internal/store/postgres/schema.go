package postgres

// schema is executed on Open. Monetary columns are fixed-point NUMERIC(10,2),
// rates NUMERIC(5,2); status columns are the short string enums. Uniqueness
// of sku and ebay_item_id is scoped to non-deleted rows.
const schema = `
CREATE TABLE IF NOT EXISTS listings (
    id BIGSERIAL PRIMARY KEY,
    sku TEXT NOT NULL,
    ebay_item_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    title_sanitized TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    description_mobile TEXT NOT NULL DEFAULT '',
    brand TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    category_id TEXT NOT NULL DEFAULT '',
    condition_id TEXT NOT NULL DEFAULT '3000',
    purchase_price NUMERIC(10,2) NOT NULL,
    list_price NUMERIC(10,2) NOT NULL,
    current_price NUMERIC(10,2) NOT NULL DEFAULT 0,
    shipping_cost NUMERIC(10,2) NOT NULL DEFAULT 0,
    ad_rate_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'draft',
    listed_at TIMESTAMPTZ,
    days_active INTEGER NOT NULL DEFAULT 0,
    total_views INTEGER NOT NULL DEFAULT 0,
    watchers INTEGER NOT NULL DEFAULT 0,
    zombie_cycle_count INTEGER NOT NULL DEFAULT 0,
    sell_through_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
    str_source TEXT NOT NULL DEFAULT '',
    photo_urls TEXT[] NOT NULL DEFAULT '{}',
    main_photo_index INTEGER NOT NULL DEFAULT 0,
    offer_id TEXT NOT NULL DEFAULT '',
    last_repriced_at TIMESTAMPTZ,
    last_offer_sent_at TIMESTAMPTZ,
    entered_purgatory_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS listings_sku_uq
    ON listings (sku) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS listings_ebay_item_id_uq
    ON listings (ebay_item_id) WHERE ebay_item_id <> '' AND deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS listings_status_idx ON listings (status);

CREATE TABLE IF NOT EXISTS queue_entries (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    priority INTEGER NOT NULL DEFAULT 0,
    scheduled_window TEXT NOT NULL DEFAULT 'sunday_surge',
    status TEXT NOT NULL DEFAULT 'pending',
    released_at TIMESTAMPTZ,
    batch_id TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS queue_entries_status_idx ON queue_entries (status);
CREATE INDEX IF NOT EXISTS queue_entries_listing_idx ON queue_entries (listing_id);

CREATE TABLE IF NOT EXISTS zombie_records (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    detected_at TIMESTAMPTZ NOT NULL,
    days_active_at_detection INTEGER NOT NULL,
    views_at_detection INTEGER NOT NULL,
    action TEXT NOT NULL,
    resurrected_at TIMESTAMPTZ,
    old_item_id TEXT NOT NULL DEFAULT '',
    new_item_id TEXT NOT NULL DEFAULT '',
    cycle_number INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS zombie_records_listing_idx ON zombie_records (listing_id);

CREATE TABLE IF NOT EXISTS offer_records (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    buyer_id TEXT NOT NULL,
    offer_price NUMERIC(10,2) NOT NULL,
    discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
    sent_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'sent',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS offer_records_cooldown_idx
    ON offer_records (listing_id, buyer_id, sent_at);

CREATE TABLE IF NOT EXISTS campaigns (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    ebay_campaign_id TEXT NOT NULL DEFAULT '',
    campaign_type TEXT NOT NULL,
    ad_rate_percent NUMERIC(5,2) NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ends_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS campaigns_listing_idx ON campaigns (listing_id);
CREATE INDEX IF NOT EXISTS campaigns_status_idx ON campaigns (status);

CREATE TABLE IF NOT EXISTS profit_records (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    sale_price NUMERIC(10,2) NOT NULL,
    purchase_price NUMERIC(10,2) NOT NULL,
    shipping_cost NUMERIC(10,2) NOT NULL,
    ebay_fee_amount NUMERIC(10,2) NOT NULL,
    ad_fee_amount NUMERIC(10,2) NOT NULL,
    payment_fee_amount NUMERIC(10,2) NOT NULL,
    net_profit NUMERIC(10,2) NOT NULL,
    profit_margin_percent NUMERIC(5,2) NOT NULL,
    meets_floor BOOLEAN NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS profit_records_listing_idx ON profit_records (listing_id);

CREATE TABLE IF NOT EXISTS listing_snapshots (
    id BIGSERIAL PRIMARY KEY,
    listing_id BIGINT NOT NULL REFERENCES listings(id),
    snapshot_date DATE NOT NULL,
    views INTEGER NOT NULL DEFAULT 0,
    impressions INTEGER NOT NULL DEFAULT 0,
    watchers INTEGER NOT NULL DEFAULT 0,
    price_at_snapshot NUMERIC(10,2) NOT NULL,
    status_at_snapshot TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS listing_snapshots_listing_idx ON listing_snapshots (listing_id);

CREATE TABLE IF NOT EXISTS job_logs (
    id BIGSERIAL PRIMARY KEY,
    job_name TEXT NOT NULL,
    job_type TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    status TEXT NOT NULL,
    items_processed INTEGER NOT NULL DEFAULT 0,
    items_affected INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS job_logs_name_idx ON job_logs (job_name);
`
