// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine — listings, queue
// entries, audit records, and the report payloads policies return. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// ListingStatus is the closed lifecycle enumeration for a listing.
// Serialized as the short string form used in the persisted schema.
type ListingStatus string

const (
	StatusDraft     ListingStatus = "draft"
	StatusQueued    ListingStatus = "queued"
	StatusActive    ListingStatus = "active"
	StatusZombie    ListingStatus = "zombie"
	StatusPurgatory ListingStatus = "purgatory"
	StatusSold      ListingStatus = "sold"
	StatusEnded     ListingStatus = "ended"
)

// transitions is the lifecycle DAG. Anything not listed is rejected.
var transitions = map[ListingStatus][]ListingStatus{
	StatusDraft:     {StatusQueued},
	StatusQueued:    {StatusActive},
	StatusActive:    {StatusZombie, StatusSold, StatusEnded},
	StatusZombie:    {StatusActive, StatusPurgatory},
	StatusPurgatory: {StatusSold, StatusEnded},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	if s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// QueueStatus tracks a SmartQueue entry through its release.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueReleased  QueueStatus = "released"
	QueueFailed    QueueStatus = "failed"
	QueueCancelled QueueStatus = "cancelled"
)

// ZombieAction is the action recorded on a ZombieRecord.
type ZombieAction string

const (
	ZombieFlagged         ZombieAction = "flagged"
	ZombieResurrected     ZombieAction = "resurrected"
	ZombiePurgatored      ZombieAction = "purgatored"
	ZombiePreventiveRelist ZombieAction = "preventive_relist"
)

// OfferStatus tracks an outbound or inbound offer interaction.
type OfferStatus string

const (
	OfferSent     OfferStatus = "sent"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

// OfferAction is the decision for an incoming buyer offer.
type OfferAction string

const (
	ActionAccept  OfferAction = "accept"
	ActionCounter OfferAction = "counter"
	ActionReject  OfferAction = "reject"
)

// CampaignType distinguishes auto-created promotions from manual ones.
type CampaignType string

const (
	CampaignKickstarter CampaignType = "kickstarter"
	CampaignManual      CampaignType = "manual"
)

// CampaignStatus is the promotion lifecycle.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignEnded     CampaignStatus = "ended"
	CampaignCancelled CampaignStatus = "cancelled"
)

// JobStatus is the outcome of a coordinator run.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// ————————————————————————————————————————————————————————————————————————
// Domain model
// ————————————————————————————————————————————————————————————————————————

// Listing is the central entity: one item the seller has on (or headed to)
// the marketplace. SKU and EbayItemID are unique across non-deleted rows.
type Listing struct {
	ID         int64
	SKU        string
	EbayItemID string // empty until published; unique when set

	Title             string
	TitleSanitized    string
	Description       string
	DescriptionMobile string
	Brand             string
	Model             string
	CategoryID        string
	ConditionID       string

	PurchasePrice decimal.Decimal
	ListPrice     decimal.Decimal
	CurrentPrice  decimal.Decimal // zero means "use ListPrice"
	ShippingCost  decimal.Decimal
	AdRatePercent float64

	Status           ListingStatus
	ListedAt         time.Time
	DaysActive       int
	TotalViews       int
	Watchers         int
	ZombieCycleCount int

	SellThroughRate float64
	STRSource       string

	PhotoURLs      []string
	MainPhotoIndex int

	OfferID         string
	LastRepricedAt  time.Time
	LastOfferSentAt time.Time

	EnteredPurgatoryAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt time.Time // zero = live
}

// EffectivePrice is the price shown to buyers: CurrentPrice when set,
// else the original ListPrice.
func (l *Listing) EffectivePrice() decimal.Decimal {
	if l.CurrentPrice.IsPositive() {
		return l.CurrentPrice
	}
	return l.ListPrice
}

// QueueEntry holds a listing waiting for a SmartQueue release window.
type QueueEntry struct {
	ID              int64
	ListingID       int64
	Priority        int
	ScheduledWindow string
	Status          QueueStatus
	ReleasedAt      time.Time
	BatchID         string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ZombieRecord is an append-only audit row for zombie detection,
// resurrection, and preventive relisting.
type ZombieRecord struct {
	ID                    int64
	ListingID             int64
	DetectedAt            time.Time
	DaysActiveAtDetection int
	ViewsAtDetection      int
	Action                ZombieAction
	ResurrectedAt         time.Time
	OldItemID             string
	NewItemID             string
	CycleNumber           int
	CreatedAt             time.Time
}

// OfferRecord is an append-only audit row for buyer offers. The
// (ListingID, BuyerID, SentAt) index is the source of truth for the
// 24-hour outbound cooldown.
type OfferRecord struct {
	ID              int64
	ListingID       int64
	BuyerID         string
	OfferPrice      decimal.Decimal
	DiscountPercent float64
	SentAt          time.Time
	Status          OfferStatus
	CreatedAt       time.Time
}

// Campaign tracks a promoted-listings campaign. At most one active
// campaign may exist per listing.
type Campaign struct {
	ID             int64
	ListingID      int64
	EbayCampaignID string
	Type           CampaignType
	AdRatePercent  float64
	StartedAt      time.Time
	EndsAt         time.Time
	Status         CampaignStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfitRecord is a historical per-sale profit breakdown. Policies never
// read it; reporting does.
type ProfitRecord struct {
	ID                  int64
	ListingID           int64
	SalePrice           decimal.Decimal
	PurchasePrice       decimal.Decimal
	ShippingCost        decimal.Decimal
	EbayFeeAmount       decimal.Decimal
	AdFeeAmount         decimal.Decimal
	PaymentFeeAmount    decimal.Decimal
	NetProfit           decimal.Decimal
	ProfitMarginPercent float64
	MeetsFloor          bool
	CreatedAt           time.Time
}

// ListingSnapshot is the daily time-series row written by the external
// collector and read only by reporting.
type ListingSnapshot struct {
	ID              int64
	ListingID       int64
	SnapshotDate    time.Time
	Views           int
	Impressions     int
	Watchers        int
	PriceAtSnapshot decimal.Decimal
	StatusAtSnapshot ListingStatus
	CreatedAt       time.Time
}

// JobLog records one coordinator run for the ops dashboard.
type JobLog struct {
	ID             int64
	JobName        string
	JobType        string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         JobStatus
	ItemsProcessed int
	ItemsAffected  int
}

// ————————————————————————————————————————————————————————————————————————
// Step ladders
// ————————————————————————————————————————————————————————————————————————

// Step is one rung of a days→percent ladder (reprice steps, offer tiers).
type Step struct {
	Days    int
	Percent float64
}

// StepLadder is a days→percent ladder sorted ascending by Days. The
// applicable step for a given age is the latest rung whose Days is ≤ age.
type StepLadder []Step

// ParseStepLadder parses the "days:pct,days:pct,..." config grammar into a
// sorted ladder. Pairs without a colon are skipped; malformed numbers are
// an error.
func ParseStepLadder(s string) (StepLadder, error) {
	var ladder StepLadder
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, ":") {
			continue
		}
		daysStr, pctStr, _ := strings.Cut(pair, ":")
		days, err := strconv.Atoi(strings.TrimSpace(daysStr))
		if err != nil {
			return nil, fmt.Errorf("parse step days %q: %w", pair, err)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(pctStr), 64)
		if err != nil {
			return nil, fmt.Errorf("parse step percent %q: %w", pair, err)
		}
		ladder = append(ladder, Step{Days: days, Percent: pct})
	}
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Days < ladder[j].Days })
	return ladder, nil
}

// Match returns the 1-based step number and percent applicable at the given
// age, or ok=false when no rung has been reached yet.
func (l StepLadder) Match(daysActive int) (step int, percent float64, ok bool) {
	for i, s := range l {
		if daysActive >= s.Days {
			step, percent, ok = i+1, s.Percent, true
		}
	}
	return step, percent, ok
}

// ————————————————————————————————————————————————————————————————————————
// Policy reports
// ————————————————————————————————————————————————————————————————————————
// Every scan returns a structured report; single-item operations return a
// result with Success/Error so callers get the precise reason.

// RepriceDetail describes one staged price change.
type RepriceDetail struct {
	ListingID      int64           `json:"listing_id"`
	SKU            string          `json:"sku"`
	Step           int             `json:"step"`
	PercentOff     float64         `json:"percent_off"`
	OldPrice       decimal.Decimal `json:"old_price"`
	NewPrice       decimal.Decimal `json:"new_price"`
	MinViablePrice decimal.Decimal `json:"min_viable_price"`
	Reason         string          `json:"reason"`
}

// RepriceReport summarizes one repricer scan.
type RepriceReport struct {
	TotalScanned int             `json:"total_scanned"`
	Repriced     int             `json:"repriced"`
	Skipped      int             `json:"skipped"`
	GatewayErrors int            `json:"gateway_errors"`
	Details      []RepriceDetail `json:"details"`
}

// ZombieReport is one zombie flagged by a scan.
type ZombieReport struct {
	ListingID        int64           `json:"listing_id"`
	SKU              string          `json:"sku"`
	Title            string          `json:"title"`
	EbayItemID       string          `json:"ebay_item_id"`
	DaysActive       int             `json:"days_active"`
	TotalViews       int             `json:"total_views"`
	Watchers         int             `json:"watchers"`
	ZombieCycleCount int             `json:"zombie_cycle_count"`
	ShouldPurgatory  bool            `json:"should_purgatory"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
}

// ZombieScanResult summarizes one zombie scan.
type ZombieScanResult struct {
	TotalScanned        int            `json:"total_scanned"`
	ZombiesFound        int            `json:"zombies_found"`
	PurgatoryCandidates int            `json:"purgatory_candidates"`
	Zombies             []ZombieReport `json:"zombies"`
}

// ResurrectionResult is the outcome of one kill-and-clone pipeline.
type ResurrectionResult struct {
	ListingID     int64     `json:"listing_id"`
	SKU           string    `json:"sku"`
	OldItemID     string    `json:"old_item_id"`
	NewItemID     string    `json:"new_item_id"`
	NewOfferID    string    `json:"new_offer_id"`
	CycleNumber   int       `json:"cycle_number"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	ResurrectedAt time.Time `json:"resurrected_at"`
}

// RelistCandidate is one listing due for preventive relist.
type RelistCandidate struct {
	ListingID    int64           `json:"listing_id"`
	SKU          string          `json:"sku"`
	Title        string          `json:"title"`
	DaysActive   int             `json:"days_active"`
	TotalViews   int             `json:"total_views"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// RelistDetail is one completed preventive relist.
type RelistDetail struct {
	ListingID int64  `json:"listing_id"`
	SKU       string `json:"sku"`
	OldItemID string `json:"old_item_id"`
	NewItemID string `json:"new_item_id"`
}

// RelistReport summarizes one auto-relister run.
type RelistReport struct {
	TotalScanned int            `json:"total_scanned"`
	Relisted     int            `json:"relisted"`
	Skipped      int            `json:"skipped"`
	Errors       int            `json:"errors"`
	Details      []RelistDetail `json:"details"`
}

// OfferDetail is one outbound offer sent to a watcher.
type OfferDetail struct {
	ListingID       int64           `json:"listing_id"`
	SKU             string          `json:"sku"`
	BuyerID         string          `json:"buyer_id"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	OfferPrice      decimal.Decimal `json:"offer_price"`
	DiscountPercent float64         `json:"discount_percent"`
	DaysActive      int             `json:"days_active"`
}

// OfferScanReport summarizes one outbound offer-sniper run.
type OfferScanReport struct {
	ListingsChecked int           `json:"listings_checked"`
	OffersSent      int           `json:"offers_sent"`
	Errors          int           `json:"errors"`
	Details         []OfferDetail `json:"details"`
}

// InboundOfferResult is the triage decision for one incoming buyer offer.
type InboundOfferResult struct {
	ListingID     int64           `json:"listing_id"`
	Action        OfferAction     `json:"action"`
	OfferAmount   decimal.Decimal `json:"offer_amount"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Ratio         float64         `json:"ratio"`
	CounterAmount decimal.Decimal `json:"counter_amount"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
}

// KickstartResult is the outcome of promoting one listing.
type KickstartResult struct {
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	CampaignID     int64     `json:"campaign_id"`
	EbayCampaignID string    `json:"ebay_campaign_id"`
	AdRate         float64   `json:"ad_rate"`
	DurationDays   int       `json:"duration_days"`
	EndsAt         time.Time `json:"ends_at"`
}

// CampaignCleanupReport summarizes one expiry sweep.
type CampaignCleanupReport struct {
	ExpiredFound int `json:"expired_found"`
	Ended        int `json:"ended"`
	Errors       int `json:"errors"`
}

// PurgatoryResult is the outcome of moving one listing into purgatory.
type PurgatoryResult struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	ListingID      int64           `json:"listing_id"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	BreakEvenPrice decimal.Decimal `json:"break_even_price"`
	MarkdownPrice  decimal.Decimal `json:"markdown_price"`
	SalePercent    float64         `json:"sale_percent"`
	EstimatedLoss  decimal.Decimal `json:"estimated_loss"`
}

// DonateSuggestion flags a purgatory listing that has sat unsold too long.
type DonateSuggestion struct {
	ListingID    int64           `json:"listing_id"`
	SKU          string          `json:"sku"`
	Title        string          `json:"title"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Suggestion   string          `json:"suggestion"`
}

// ShuffleDetail is one completed photo rotation.
type ShuffleDetail struct {
	ListingID int64  `json:"listing_id"`
	SKU       string `json:"sku"`
	OldMain   string `json:"old_main"`
	NewMain   string `json:"new_main"`
}

// ShuffleSkip is one candidate that could not be rotated.
type ShuffleSkip struct {
	ListingID int64  `json:"listing_id"`
	SKU       string `json:"sku"`
	Reason    string `json:"reason"`
}

// ShuffleReport summarizes one photo-shuffle run.
type ShuffleReport struct {
	Candidates int             `json:"candidates"`
	Shuffled   int             `json:"shuffled"`
	Skipped    int             `json:"skipped"`
	Details    []ShuffleDetail `json:"details"`
	SkipDetails []ShuffleSkip  `json:"skip_details"`
}

// PulseReport summarizes one store-pulse handling-time toggle.
type PulseReport struct {
	Updated            int `json:"updated"`
	Errors             int `json:"errors"`
	TotalActive        int `json:"total_active"`
	TargetHandlingDays int `json:"target_handling_days"`
}

// QueueStatusSummary is the SmartQueue dashboard payload.
type QueueStatusSummary struct {
	Pending           int  `json:"pending"`
	ReleasedToday     int  `json:"released_today"`
	Failed            int  `json:"failed"`
	Total             int  `json:"total"`
	SurgeWindowActive bool `json:"surge_window_active"`
}

// JobEvent is broadcast to dashboard clients after each coordinator run.
type JobEvent struct {
	JobName    string    `json:"job_name"`
	Status     JobStatus `json:"status"`
	Processed  int       `json:"processed"`
	Affected   int       `json:"affected"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
