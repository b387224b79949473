package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/auth"
	"github.com/ccmarkets/engine/internal/compliance"
	"github.com/ccmarkets/engine/internal/market"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/oracle"
	"github.com/ccmarkets/engine/internal/settlement"
	"github.com/ccmarkets/engine/internal/store"
	"github.com/ccmarkets/engine/internal/trade"
	"github.com/ccmarkets/engine/internal/ws"
)

// StarterBalance is credited to every freshly-initialized pseudonymous user.
const StarterBalance = 100.0

// Handler holds every collaborator the routes need, mirroring the teacher's
// single-struct-of-dependencies api.Handler.
type Handler struct {
	store      store.Store
	auth       *auth.Provider
	markets    *market.Registry
	trades     *trade.Engine
	oracles    *oracle.Engine
	settlement *settlement.Engine
	compliance *compliance.Recorder
	hub        *ws.Hub
}

func NewHandler(
	s store.Store,
	authProvider *auth.Provider,
	markets *market.Registry,
	trades *trade.Engine,
	oracles *oracle.Engine,
	settlementEngine *settlement.Engine,
	complianceRecorder *compliance.Recorder,
	hub *ws.Hub,
) *Handler {
	return &Handler{
		store:      s,
		auth:       authProvider,
		markets:    markets,
		trades:     trades,
		oracles:    oracles,
		settlement: settlementEngine,
		compliance: complianceRecorder,
		hub:        hub,
	}
}

// ---------------------------------------------------------------------------
// Health / stats
// ---------------------------------------------------------------------------

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, stats)
}

// ---------------------------------------------------------------------------
// Auth / users
// ---------------------------------------------------------------------------

type initializeRequest struct {
	Pseudonym string `json:"pseudonym"`
}

// Initialize creates a new pseudonymous user seeded with a starter balance
// and returns a bearer token identifying them on subsequent requests.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.InvalidInput("malformed request body"))
		return
	}
	if req.Pseudonym == "" {
		respondError(w, apperr.InvalidInput("pseudonym is required"))
		return
	}

	now := time.Now().UTC()
	u := &models.User{
		Pseudonym: req.Pseudonym,
		Available: StarterBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		respondError(w, err)
		return
	}
	token, err := h.auth.GenerateToken(u.ID)
	if err != nil {
		respondError(w, apperr.StoreError(err, "failed to issue token"))
		return
	}
	_ = h.compliance.Log(r.Context(), u.ID, models.AuditActionCreate, "user", u.ID, "user initialized")
	respondCreated(w, map[string]interface{}{"user": u, "token": token})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, u)
}

// ListUsers returns the leaderboard of users by total balance, capped at 20.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	users, err := h.store.ListUsersByBalance(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, users)
}

// ---------------------------------------------------------------------------
// Markets
// ---------------------------------------------------------------------------

func (h *Handler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	status := models.MarketStatus(r.URL.Query().Get("status"))
	markets, err := h.store.ListMarkets(r.Context(), status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, markets)
}

func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := h.store.GetMarket(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, m)
}

type submitMarketRequest struct {
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Stake    float64 `json:"stake"`
}

func (h *Handler) SubmitMarket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Forbidden("authentication required"))
		return
	}
	var req submitMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.InvalidInput("malformed request body"))
		return
	}
	m, err := h.markets.Submit(r.Context(), userID, req.Text, req.Category, req.Stake)
	if err != nil {
		respondError(w, err)
		return
	}
	_ = h.compliance.Log(r.Context(), userID, models.AuditActionCreate, "market", m.ID, "market submitted")
	h.hub.Publish(ws.Event{Type: ws.EventNewMarket, MarketID: m.ID, Payload: m})
	respondCreated(w, m)
}

func (h *Handler) DeleteMarket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Forbidden("authentication required"))
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.markets.Delete(r.Context(), id, userID); err != nil {
		respondError(w, err)
		return
	}
	_ = h.compliance.Log(r.Context(), userID, models.AuditActionDelete, "market", id, "market deleted")
	respondSuccess(w, map[string]string{"market_id": id, "status": "deleted"})
}

type betRequest struct {
	Side models.Side `json:"side"`
	CC   float64     `json:"cc"`
}

func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Forbidden("authentication required"))
		return
	}
	marketID := mux.Vars(r)["id"]
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.InvalidInput("malformed request body"))
		return
	}
	trade, position, err := h.trades.PlaceBet(r.Context(), userID, marketID, req.Side, req.CC)
	if err != nil {
		respondError(w, err)
		return
	}
	_ = h.compliance.Log(r.Context(), userID, models.AuditActionTrade, "market", marketID, "bet placed")
	m, mErr := h.store.GetMarket(r.Context(), marketID)
	if mErr == nil {
		h.hub.Publish(ws.Event{Type: ws.EventPriceUpdate, MarketID: marketID, Payload: m})
	}
	respondCreated(w, map[string]interface{}{"trade": trade, "position": position})
}

// ---------------------------------------------------------------------------
// Oracles
// ---------------------------------------------------------------------------

type reportRequest struct {
	MarketID string      `json:"market_id"`
	Verdict  models.Side `json:"verdict"`
	Evidence []string    `json:"evidence"`
	Stake    float64     `json:"stake"`
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Forbidden("authentication required"))
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.InvalidInput("malformed request body"))
		return
	}
	report, settled, err := h.oracles.SubmitReport(r.Context(), oracle.SubmitInput{
		OracleID: userID,
		MarketID: req.MarketID,
		Verdict:  req.Verdict,
		Evidence: req.Evidence,
		Stake:    req.Stake,
		ClientIP: auth.ClientIP(r),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	_ = h.compliance.Log(r.Context(), userID, models.AuditActionReport, "market", req.MarketID, "oracle report submitted")
	if settled {
		m, mErr := h.store.GetMarket(r.Context(), req.MarketID)
		if mErr == nil {
			h.hub.Publish(ws.Event{Type: ws.EventSettlement, MarketID: req.MarketID, Payload: m})
		}
	}
	respondCreated(w, map[string]interface{}{"report": report, "market_settled": settled})
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["market_id"]
	reports, err := h.store.ListOracleReports(r.Context(), marketID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, reports)
}
