package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"flipflow/internal/engine"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/lifecycle"
	"flipflow/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers holds the HTTP handlers for the policy surface. Every policy has
// an execute (POST) endpoint; read-only previews (GET) exist for the
// repricer, relister, queue status and purgatory scan only, and the offer,
// kickstarter, zombie, photo shuffle and store pulse policies have none.
// Single-item operations take their parameters as JSON bodies.
type Handlers struct {
	engine *engine.Engine
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(eng *engine.Engine, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{engine: eng, hub: hub, logger: logger.With("component", "api")}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto status codes: domain rule
// violations and illegal transitions are client errors, everything else is
// a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var lowSTR *gatekeeper.LowSTRError
	var lowProfit *gatekeeper.LowProfitError
	var transition *lifecycle.StateTransitionError
	var notFound *lifecycle.ErrListingNotFound
	switch {
	case errors.As(err, &lowSTR), errors.As(err, &lowProfit):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &transition), errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	NewClient(h.hub, conn)
}

// ————————————————————————————————————————————————————————————————————————
// Repricer
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleRepricePreview(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.PreviewReprice(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HandleRepriceExecute(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunRepricer(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ————————————————————————————————————————————————————————————————————————
// Zombies
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleZombieScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.ScanZombies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type listingIDRequest struct {
	ListingID int64 `json:"listing_id"`
}

func (h *Handlers) HandleZombieFlag(w http.ResponseWriter, r *http.Request) {
	var req listingIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := h.engine.FlagZombie(r.Context(), req.ListingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) HandleResurrect(w http.ResponseWriter, r *http.Request) {
	var req listingIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.Resurrect(r.Context(), req.ListingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ————————————————————————————————————————————————————————————————————————
// Relister
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleRelistPreview(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.engine.PreviewRelists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *Handlers) HandleRelistExecute(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunAutoRelister(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ————————————————————————————————————————————————————————————————————————
// SmartQueue
// ————————————————————————————————————————————————————————————————————————

type enqueueRequest struct {
	ListingID int64  `json:"listing_id"`
	Priority  int    `json:"priority"`
	Window    string `json:"window"`
}

func (h *Handlers) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.engine.Enqueue(r.Context(), req.ListingID, req.Priority, req.Window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) HandleQueueRelease(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	released, err := h.engine.ReleaseBatch(r.Context(), dryRun)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, released)
}

func (h *Handlers) HandleQueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.QueueStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ————————————————————————————————————————————————————————————————————————
// Offers
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleOfferScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunOfferScan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type inboundOfferRequest struct {
	ListingID   int64           `json:"listing_id"`
	BuyerID     string          `json:"buyer_id"`
	OfferID     string          `json:"offer_id"`
	OfferAmount decimal.Decimal `json:"offer_amount"`
}

func (h *Handlers) HandleInboundOffer(w http.ResponseWriter, r *http.Request) {
	var req inboundOfferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.HandleIncomingOffer(r.Context(), req.ListingID, req.BuyerID, req.OfferID, req.OfferAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ————————————————————————————————————————————————————————————————————————
// Kickstarter and Purgatory
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandlePromote(w http.ResponseWriter, r *http.Request) {
	var req listingIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.Promote(r.Context(), req.ListingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleCampaignCleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.CleanupCampaigns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HandlePurgatoryEnter(w http.ResponseWriter, r *http.Request) {
	var req listingIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.EnterPurgatory(r.Context(), req.ListingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandlePurgatoryScan(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.engine.ScanPurgatory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// ————————————————————————————————————————————————————————————————————————
// PhotoShuffler and StorePulse
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandlePhotoShuffle(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunPhotoShuffle(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HandleStorePulse(w http.ResponseWriter, r *http.Request) {
	target := 2
	if v := r.URL.Query().Get("target_days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "target_days must be a positive integer"})
			return
		}
		target = parsed
	}
	report, err := h.engine.RunStorePulse(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ————————————————————————————————————————————————————————————————————————
// Gatekeepers
// ————————————————————————————————————————————————————————————————————————

type profitRequest struct {
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	AdRatePercent float64         `json:"ad_rate_percent"`
}

func (h *Handlers) HandleProfitCalc(w http.ResponseWriter, r *http.Request) {
	var req profitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	breakdown := h.engine.Profit().Calculate(gatekeeper.ProfitInput{
		SalePrice:     req.SalePrice,
		PurchasePrice: req.PurchasePrice,
		ShippingCost:  req.ShippingCost,
		AdRatePercent: req.AdRatePercent,
	})
	writeJSON(w, http.StatusOK, breakdown)
}

type titleRequest struct {
	Title string `json:"title"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}

func (h *Handlers) HandleTitleSanitize(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result := h.engine.Titles().Sanitize(gatekeeper.TitleRequest{
		Title: req.Title,
		Brand: req.Brand,
		Model: req.Model,
	})
	writeJSON(w, http.StatusOK, result)
}

// ————————————————————————————————————————————————————————————————————————
// Listings
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleListingCreate(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateListingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	listing, err := h.engine.CreateListing(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

type markSoldRequest struct {
	ListingID int64           `json:"listing_id"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

func (h *Handlers) HandleMarkSold(w http.ResponseWriter, r *http.Request) {
	var req markSoldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := h.engine.MarkSold(r.Context(), req.ListingID, req.SalePrice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
