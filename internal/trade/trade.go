// Package trade implements bet placement: pricing a trade against the
// current pool, debiting the trader's CC, and aggregating it into their
// existing same-side position (or opening a new one) per the volume-weighted
// entry-price rule.
package trade

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/ledger"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/pricing"
	"github.com/ccmarkets/engine/internal/store"
)

// Engine places bets against markets.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// PlaceBet stakes cc CC on side of marketID for userID, returning the
// resulting trade and the user's updated aggregate position.
func (e *Engine) PlaceBet(ctx context.Context, userID, marketID string, side models.Side, cc float64) (*models.Trade, *models.Position, error) {
	if cc <= 0 {
		return nil, nil, apperr.InvalidInput("bet amount must be positive")
	}
	if side != models.SideTrue && side != models.SideFalse {
		return nil, nil, apperr.InvalidInput("side must be true or false")
	}

	halted, err := e.store.IsHalted(ctx, marketID)
	if err != nil {
		return nil, nil, err
	}
	if halted {
		return nil, nil, apperr.InvalidState("trading is halted for market %s", marketID)
	}

	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsActive() {
		return nil, nil, apperr.InvalidState("market %s is not active", marketID)
	}

	// Lock the trader's CC first so a failed pool update never leaves funds
	// debited without a corresponding position, and so two concurrent bets
	// from the same user serialize on the user lock rather than the market
	// lock alone.
	if err := e.store.WithUserLock(ctx, userID, func(u *models.User) error {
		return ledger.Lock(u, cc)
	}); err != nil {
		return nil, nil, err
	}

	var priceAtExecution float64
	var shares float64

	err = e.store.WithMarketLock(ctx, marketID, func(mm *models.Market) error {
		if !mm.IsActive() {
			return apperr.InvalidState("market %s is not active", marketID)
		}
		priceAtExecution = pricing.Price(mm.TotalBetTrue, mm.TotalBetFalse)

		var shareErr error
		if side == models.SideTrue {
			shares, shareErr = pricing.SharesLong(cc, priceAtExecution)
			mm.TotalBetTrue += cc
		} else {
			shares, shareErr = pricing.SharesShort(cc, priceAtExecution)
			mm.TotalBetFalse += cc
		}
		if shareErr != nil {
			return shareErr
		}
		mm.Price = pricing.Price(mm.TotalBetTrue, mm.TotalBetFalse)
		return nil
	})
	if err != nil {
		// Roll back the lock we just took; the bet never reached the pool.
		_ = e.store.WithUserLock(ctx, userID, func(u *models.User) error {
			return ledger.Unlock(u, cc)
		})
		return nil, nil, err
	}

	pos, err := e.aggregatePosition(ctx, userID, marketID, side, shares, cc, priceAtExecution)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	t := &models.Trade{
		UserID:           userID,
		MarketID:         marketID,
		Side:             side,
		CCAmount:         cc,
		Shares:           shares,
		PriceAtExecution: priceAtExecution,
		CreatedAt:        now,
	}
	if err := e.store.AppendTrade(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, pos, nil
}

// aggregatePosition folds a new bet into any existing open position for the
// same (user, market, side), recomputing a volume-weighted entry price. At
// most one open position may exist per (user, market, side).
func (e *Engine) aggregatePosition(ctx context.Context, userID, marketID string, side models.Side, shares, cc, price float64) (*models.Position, error) {
	existing, err := e.store.GetOpenPosition(ctx, userID, marketID, side)
	now := time.Now().UTC()
	if err != nil {
		collateral, cErr := pricing.Collateral(shares, price)
		if cErr != nil {
			return nil, cErr
		}
		p := &models.Position{
			UserID:     userID,
			MarketID:   marketID,
			Side:       side,
			Shares:     shares,
			EntryPrice: price,
			CostBasis:  cc,
			Collateral: collateral,
			Status:     models.PositionStatusOpen,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if saveErr := e.store.SavePosition(ctx, p); saveErr != nil {
			return nil, saveErr
		}
		return p, nil
	}

	totalShares := existing.Shares + shares
	totalCost := existing.CostBasis + cc

	var weightedEntry float64
	if side == models.SideFalse {
		weightedEntry = 1 - (totalCost / totalShares)
	} else {
		weightedEntry = totalCost / totalShares
	}
	if weightedEntry < 0.01 {
		weightedEntry = 0.01
	} else if weightedEntry > 0.99 {
		weightedEntry = 0.99
	}

	collateral, cErr := pricing.Collateral(totalShares, weightedEntry)
	if cErr != nil {
		return nil, cErr
	}

	existing.Shares = totalShares
	existing.CostBasis = totalCost
	existing.EntryPrice = weightedEntry
	existing.Collateral = collateral
	existing.UpdatedAt = now
	if err := e.store.SavePosition(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
