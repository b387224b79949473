// Package settlement distributes a resolved market's pool pro-rata to
// winning positions and returns the submitter's stake with a reward or
// forfeits it, mirroring the original settle_market service but against the
// canonical pro-rata payout formula (shares / total_winning_shares * pool)
// rather than the per-position shares/entry_price formula the Position
// model also exposed; the spec resolves that ambiguity in favor of pro-rata.
package settlement

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/ledger"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store"
)

// Result summarizes a completed settlement for the caller/API response.
type Result struct {
	MarketID        string
	Resolution      models.Side
	SubmitterPayout float64
	TotalPayouts    float64
	WinnerCount     int
	LoserCount      int
}

// Engine settles resolved markets.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Settle distributes payouts for marketID according to resolution ("true" or
// "false"). It is idempotent against re-entry: the market's status is
// flipped to resolved_* under the market lock before any payout is made, so
// a second call observes a non-active market and returns InvalidState.
func (e *Engine) Settle(ctx context.Context, marketID string, resolution models.Side) (*Result, error) {
	if resolution != models.SideTrue && resolution != models.SideFalse {
		return nil, apperr.InvalidInput("resolution must be true or false")
	}

	var m *models.Market
	err := e.store.WithMarketLock(ctx, marketID, func(mm *models.Market) error {
		if !mm.IsActive() {
			return apperr.InvalidState("market %s is not active", marketID)
		}
		if resolution == models.SideTrue {
			mm.Status = models.MarketStatusResolvedTrue
		} else {
			mm.Status = models.MarketStatusResolvedFalse
		}
		now := time.Now().UTC()
		mm.ResolvedAt = &now
		m = mm
		return nil
	})
	if err != nil {
		return nil, err
	}

	positions, err := e.store.ListPositionsByMarket(ctx, marketID, models.PositionStatusOpen)
	if err != nil {
		return nil, err
	}

	var winners, losers []*models.Position
	var totalWinningShares float64
	for _, p := range positions {
		if p.Side == resolution {
			winners = append(winners, p)
			totalWinningShares += p.Shares
		} else {
			losers = append(losers, p)
		}
	}

	pool := m.Pool()
	var totalPayouts float64
	now := time.Now().UTC()

	for _, p := range winners {
		var payout float64
		if totalWinningShares > 0 {
			payout = (p.Shares / totalWinningShares) * pool
		}
		if err := e.store.WithUserLock(ctx, p.UserID, func(u *models.User) error {
			if err := ledger.Credit(u, payout); err != nil {
				return err
			}
			return ledger.ReleaseLocked(u, p.Collateral)
		}); err != nil {
			return nil, err
		}
		p.Status = models.PositionStatusWon
		p.ClosedAt = &now
		if err := e.store.SavePosition(ctx, p); err != nil {
			return nil, err
		}
		totalPayouts += payout
	}

	for _, p := range losers {
		if err := e.store.WithUserLock(ctx, p.UserID, func(u *models.User) error {
			return ledger.DebitFromLocked(u, p.Collateral)
		}); err != nil {
			return nil, err
		}
		p.Status = models.PositionStatusLost
		p.ClosedAt = &now
		if err := e.store.SavePosition(ctx, p); err != nil {
			return nil, err
		}
	}

	var submitterPayout float64
	if m.SubmitterID != "" {
		if resolution == models.SideTrue {
			submitterPayout = m.Stake * 2
		}
		if err := e.store.WithUserLock(ctx, m.SubmitterID, func(u *models.User) error {
			if submitterPayout > 0 {
				if err := ledger.ReleaseLocked(u, m.Stake); err != nil {
					return err
				}
				return ledger.Credit(u, submitterPayout)
			}
			return ledger.DebitFromLocked(u, m.Stake)
		}); err != nil {
			return nil, err
		}
	}

	return &Result{
		MarketID:        marketID,
		Resolution:      resolution,
		SubmitterPayout: submitterPayout,
		TotalPayouts:    totalPayouts,
		WinnerCount:     len(winners),
		LoserCount:      len(losers),
	}, nil
}
