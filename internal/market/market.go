// Package market implements the market registry: submission (which stakes
// the submitter's CC and seeds the pool) and deletion of still-active
// markets.
package market

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/ledger"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/pricing"
	"github.com/ccmarkets/engine/internal/store"
)

const (
	MinStake = 10.0
)

// Advisor supplies a best-effort, advisory-only prediction for a new claim.
// Failures must never block submission (spec.md §4.3 / §9): callers are
// expected to fall back to an UNCERTAIN verdict on any error.
type Advisor interface {
	Classify(ctx context.Context, text string) (prediction string, confidence float64, err error)
}

// Registry is the market submission/deletion engine.
type Registry struct {
	store   store.Store
	advisor Advisor
}

func New(s store.Store, advisor Advisor) *Registry {
	return &Registry{store: s, advisor: advisor}
}

// Submit creates a new active market, locking the submitter's stake and
// seeding both pools with it so the market opens at a price of 0.50.
func (r *Registry) Submit(ctx context.Context, submitterID, text, category string, stake float64) (*models.Market, error) {
	if text == "" {
		return nil, apperr.InvalidInput("market text cannot be empty")
	}
	if stake < MinStake {
		return nil, apperr.InvalidInput("stake must be at least %.2f CC", MinStake)
	}

	if err := r.store.WithUserLock(ctx, submitterID, func(u *models.User) error {
		return ledger.Lock(u, stake)
	}); err != nil {
		return nil, err
	}

	prediction, confidence := "UNCERTAIN", 50.0
	if r.advisor != nil {
		if p, c, err := r.advisor.Classify(ctx, text); err == nil {
			prediction, confidence = p, c
		}
	}

	now := time.Now().UTC()
	m := &models.Market{
		Text:          text,
		Category:      category,
		SubmitterID:   submitterID,
		Stake:         stake,
		TotalBetTrue:  stake,
		TotalBetFalse: stake,
		Price:         pricing.Price(stake, stake),
		Status:        models.MarketStatusActive,
		AIPrediction:  prediction,
		AIConfidence:  &confidence,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.store.CreateMarket(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a market the submitter no longer wants live, winding down
// every participant cleanly: every open position's cost basis is unlocked
// back to its holder's available balance, the submitter's stake is refunded, and only then is the
// market marked deleted. Only the submitter may delete, and only while the
// market is still active.
func (r *Registry) Delete(ctx context.Context, marketID, requesterID string) error {
	m, err := r.store.GetMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if m.SubmitterID != requesterID {
		return apperr.Forbidden("only the submitter may delete this market")
	}
	if !m.IsActive() {
		return apperr.InvalidState("market %s is not active", marketID)
	}

	positions, err := r.store.ListPositionsByMarket(ctx, marketID, models.PositionStatusOpen)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, p := range positions {
		if err := r.store.WithUserLock(ctx, p.UserID, func(u *models.User) error {
			return ledger.Unlock(u, p.CostBasis)
		}); err != nil {
			return err
		}
		p.Status = models.PositionStatusDeleted
		p.ClosedAt = &now
		if err := r.store.SavePosition(ctx, p); err != nil {
			return err
		}
	}

	// Refund exactly the stake: the pool was seeded from this same stake and
	// is discarded wholesale rather than redrawn, so no CC is double-counted.
	if err := r.store.WithUserLock(ctx, requesterID, func(u *models.User) error {
		return ledger.Unlock(u, m.Stake)
	}); err != nil {
		return err
	}

	return r.store.WithMarketLock(ctx, marketID, func(mm *models.Market) error {
		mm.Status = models.MarketStatusDeleted
		return nil
	})
}
