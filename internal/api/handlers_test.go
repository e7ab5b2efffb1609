package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"flipflow/internal/config"
	"flipflow/internal/engine"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/gateway/mock"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	eng, err := engine.New(cfg, store.NewMemory(), mock.New(), logger)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewHandlers(eng, NewHub(logger), logger)
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleProfitCalc(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	payload := `{"sale_price":"100","purchase_price":"30","shipping_cost":"10","ad_rate_percent":1.5}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/profit/calc", bytes.NewBufferString(payload))
	h.HandleProfitCalc(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var breakdown gatekeeper.ProfitBreakdown
	if err := json.Unmarshal(rec.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if breakdown.NetProfit.String() != "42.3" && breakdown.NetProfit.String() != "42.30" {
		t.Errorf("net = %s, want 42.30", breakdown.NetProfit)
	}
	if !breakdown.MeetsFloor {
		t.Error("expected floor met")
	}
}

func TestHandleTitleSanitize(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	payload := `{"title":"WOW!!! AMAZING NIKE SHOES","brand":"Nike"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/title/sanitize", bytes.NewBufferString(payload))
	h.HandleTitleSanitize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result gatekeeper.TitleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Length > 80 || result.Sanitized == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleQueueStatusEmpty(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleQueueStatus(rec, httptest.NewRequest(http.MethodGet, "/api/queue/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status types.QueueStatusSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Total != 0 || status.Pending != 0 {
		t.Errorf("status = %+v", status)
	}
}

func TestHandleZombieFlagBadBody(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/zombies/flag", bytes.NewBufferString("not json"))
	h.HandleZombieFlag(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleZombieFlagNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/zombies/flag", bytes.NewBufferString(`{"listing_id":999}`))
	h.HandleZombieFlag(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
