// Package models defines the data structures for the CC prediction-market
// engine: users, markets, positions, trades, and oracle reports.
package models

import "time"

// =============================================================================
// USER
// =============================================================================

// User owns a CC balance split between available and locked funds.
type User struct {
	ID          string    `json:"id"`
	Pseudonym   string    `json:"pseudonym"`
	Available   float64   `json:"available"`
	Locked      float64   `json:"locked"`
	TotalEarned float64   `json:"total_earned"`
	TotalLost   float64   `json:"total_lost"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Version is incremented by the Store on every locked update; no Store
	// call compares it.
	Version int `json:"-"`
}

// =============================================================================
// MARKET
// =============================================================================

type MarketStatus string

const (
	MarketStatusActive        MarketStatus = "active"
	MarketStatusResolvedTrue  MarketStatus = "resolved_true"
	MarketStatusResolvedFalse MarketStatus = "resolved_false"
	MarketStatusDeleted       MarketStatus = "deleted"
)

// Market is a short-lived binary claim with a pooled, CPMM-style price.
type Market struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Category     string       `json:"category"`
	SubmitterID  string       `json:"submitter_id"`
	Stake        float64      `json:"stake"`
	TotalBetTrue float64      `json:"total_bet_true"`
	TotalBetFalse float64     `json:"total_bet_false"`
	Price        float64      `json:"price"`
	Status       MarketStatus `json:"status"`

	// Advisory fields, never authoritative (spec.md §3, §4.3).
	AIPrediction string   `json:"ai_prediction,omitempty"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`

	Version int `json:"-"`
}

func (m *Market) IsActive() bool { return m.Status == MarketStatusActive }

// Pool returns the redistributable capital at settlement.
func (m *Market) Pool() float64 { return m.TotalBetTrue + m.TotalBetFalse }

// =============================================================================
// POSITION
// =============================================================================

type Side string

const (
	SideTrue  Side = "true"
	SideFalse Side = "false"
)

type PositionStatus string

const (
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusWon     PositionStatus = "won"
	PositionStatusLost    PositionStatus = "lost"
	PositionStatusClosed  PositionStatus = "closed"
	PositionStatusDeleted PositionStatus = "deleted"
)

// Position is a user's aggregated claim on one side of one market.
type Position struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	MarketID    string         `json:"market_id"`
	Side        Side           `json:"side"`
	Shares      float64        `json:"shares"`
	EntryPrice  float64        `json:"entry_price"`
	CostBasis   float64        `json:"cost_basis"`
	Collateral  float64        `json:"collateral"`
	Status      PositionStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`

	Version int `json:"-"`
}

// =============================================================================
// TRADE
// =============================================================================

// Trade is an append-only audit entry for each bet placed.
type Trade struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	MarketID          string    `json:"market_id"`
	Side              Side      `json:"side"`
	CCAmount          float64   `json:"cc_amount"`
	Shares            float64   `json:"shares"`
	PriceAtExecution  float64   `json:"price_at_execution"`
	CreatedAt         time.Time `json:"created_at"`
}

// =============================================================================
// ORACLE
// =============================================================================

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCorrect   ReportStatus = "correct"
	ReportStatusIncorrect ReportStatus = "incorrect"
)

// OracleReport is a staked verdict submitted by a reporter.
type OracleReport struct {
	ID        string       `json:"id"`
	OracleID  string       `json:"oracle_id"`
	MarketID  string       `json:"market_id"`
	Verdict   Side         `json:"verdict"`
	Evidence  []string     `json:"evidence,omitempty"`
	Stake     float64      `json:"stake"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`

	Version int `json:"-"`
}

// OracleVoteHistory is the anti-Sybil rate-limit ledger. IPHash is never
// the raw client IP — only HMAC(secret, ip).
type OracleVoteHistory struct {
	ID        string    `json:"id"`
	OracleID  string    `json:"oracle_id"`
	MarketID  string    `json:"market_id"`
	IPHash    string    `json:"ip_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// COMPLIANCE / AUDIT (supplemental ambient stack, see SPEC_FULL.md)
// =============================================================================

type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionTrade    AuditAction = "trade"
	AuditActionReport   AuditAction = "report"
	AuditActionSettle   AuditAction = "settle"
	AuditActionDelete   AuditAction = "delete"
	AuditActionHalt     AuditAction = "halt"
)

// AuditEntry is an immutable record of a state-changing operation.
type AuditEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	UserID      string      `json:"user_id,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entity_type"`
	EntityID    string      `json:"entity_id"`
	Description string      `json:"description"`
}

// EmergencyHalt tracks market-wide or market-specific trading halts.
type EmergencyHalt struct {
	ID          string     `json:"id"`
	MarketID    string     `json:"market_id,omitempty"` // empty = global
	Reason      string     `json:"reason"`
	InitiatedBy string     `json:"initiated_by"`
	StartedAt   time.Time  `json:"started_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}
