// Package store defines the persistence abstraction used by every engine
// package. The redesign goal is that no package reaches into a global
// mutable client directly (as the original Python services did with a
// module-level Supabase client); every component is handed a Store at
// construction time.
package store

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/models"
)

// UserMutator is applied under the Store's per-user lock so ledger
// operations observe and write a consistent balance snapshot.
type UserMutator func(u *models.User) error

// MarketMutator is applied under the Store's per-market lock.
type MarketMutator func(m *models.Market) error

// Store is the full persistence surface required by the engine. Concrete
// implementations live in store/memstore (in-process) and store/filestore
// (JSON snapshot persistence wrapping memstore).
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByPseudonym(ctx context.Context, pseudonym string) (*models.User, error)
	ListUsersByBalance(ctx context.Context, limit int) ([]*models.User, error)
	WithUserLock(ctx context.Context, id string, fn UserMutator) error

	// Markets
	CreateMarket(ctx context.Context, m *models.Market) error
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, status models.MarketStatus) ([]*models.Market, error)
	WithMarketLock(ctx context.Context, id string, fn MarketMutator) error

	// Positions
	GetOpenPosition(ctx context.Context, userID, marketID string, side models.Side) (*models.Position, error)
	SavePosition(ctx context.Context, p *models.Position) error
	ListPositionsByMarket(ctx context.Context, marketID string, status models.PositionStatus) ([]*models.Position, error)
	ListPositionsByUser(ctx context.Context, userID string) ([]*models.Position, error)

	// Trades
	AppendTrade(ctx context.Context, t *models.Trade) error

	// Oracle reports
	GetOracleReport(ctx context.Context, oracleID, marketID string) (*models.OracleReport, error)
	SaveOracleReport(ctx context.Context, r *models.OracleReport) error
	ListOracleReports(ctx context.Context, marketID string) ([]*models.OracleReport, error)
	ListOracleReportsByOracle(ctx context.Context, oracleID string) ([]*models.OracleReport, error)

	// Anti-Sybil vote history
	AppendVoteHistory(ctx context.Context, v *models.OracleVoteHistory) error
	CountVotesSince(ctx context.Context, ipHash string, since time.Time) (int, error)

	// Audit trail
	AppendAudit(ctx context.Context, a *models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*models.AuditEntry, error)

	// Trading halts
	SetHalt(ctx context.Context, h *models.EmergencyHalt) error
	GetHalt(ctx context.Context, marketID string) (*models.EmergencyHalt, error)
	IsHalted(ctx context.Context, marketID string) (bool, error)

	// Stats
	Stats(ctx context.Context) (Stats, error)
}

// Stats is the aggregate snapshot backing the /stats endpoint.
type Stats struct {
	TotalUsers       int     `json:"total_users"`
	TotalMarkets     int     `json:"total_markets"`
	ActiveMarkets    int     `json:"active_markets"`
	ResolvedMarkets  int     `json:"resolved_markets"`
	TotalCCLocked    float64 `json:"total_cc_locked"`
	TotalCCAvailable float64 `json:"total_cc_available"`
	TotalTrades      int     `json:"total_trades"`
	TotalOracleVotes int     `json:"total_oracle_votes"`
}
