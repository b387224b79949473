package trade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store/memstore"
)

func newTestMarket(t *testing.T, s *memstore.Store, totalTrue, totalFalse float64) *models.Market {
	t.Helper()
	m := &models.Market{
		Text:          "will it happen",
		SubmitterID:   "submitter-1",
		Stake:         totalTrue,
		TotalBetTrue:  totalTrue,
		TotalBetFalse: totalFalse,
		Status:        models.MarketStatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.CreateMarket(context.Background(), m))
	return m
}

func newTestUser(t *testing.T, s *memstore.Store, available float64) *models.User {
	t.Helper()
	u := &models.User{
		Pseudonym: "trader",
		Available: available,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestPlaceBetOpensNewPosition(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := newTestMarket(t, s, 50, 50)
	u := newTestUser(t, s, 100)

	e := New(s)
	tr, pos, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideTrue, 20)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.NotNil(t, pos)

	require.Equal(t, models.SideTrue, pos.Side)
	require.InDelta(t, 20.0, pos.CostBasis, 1e-9)
	require.Equal(t, models.PositionStatusOpen, pos.Status)

	updatedUser, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 80.0, updatedUser.Available, 1e-9)
	require.InDelta(t, 20.0, updatedUser.Locked, 1e-9)

	updatedMarket, err := s.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.InDelta(t, 70.0, updatedMarket.TotalBetTrue, 1e-9)
}

func TestPlaceBetAggregatesSameSidePosition(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := newTestMarket(t, s, 50, 50)
	u := newTestUser(t, s, 100)

	e := New(s)
	_, first, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideTrue, 10)
	require.NoError(t, err)
	_, second, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideTrue, 10)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Greater(t, second.Shares, first.Shares) // shares accumulated, not replaced
	require.InDelta(t, 20.0, second.CostBasis, 1e-9)
}

func TestPlaceBetAggregatesShortSideWithInvertedEntryPrice(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := newTestMarket(t, s, 50, 50)
	u := newTestUser(t, s, 100)

	e := New(s)
	_, first, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideFalse, 10)
	require.NoError(t, err)
	_, second, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideFalse, 10)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.InDelta(t, 20.0, second.CostBasis, 1e-9)
	// short-side entry price is inverted: 1 - (cost/shares), clamped to [0.01, 0.99]
	expected := 1 - (second.CostBasis / second.Shares)
	if expected < 0.01 {
		expected = 0.01
	} else if expected > 0.99 {
		expected = 0.99
	}
	require.InDelta(t, expected, second.EntryPrice, 1e-9)
}

func TestPlaceBetRejectsInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := newTestMarket(t, s, 50, 50)
	u := newTestUser(t, s, 5)

	e := New(s)
	_, _, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideTrue, 20)
	require.Error(t, err)
}

func TestPlaceBetRejectsInactiveMarket(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := newTestMarket(t, s, 50, 50)
	require.NoError(t, s.WithMarketLock(ctx, m.ID, func(mm *models.Market) error {
		mm.Status = models.MarketStatusResolvedTrue
		return nil
	}))
	u := newTestUser(t, s, 100)

	e := New(s)
	_, _, err := e.PlaceBet(ctx, u.ID, m.ID, models.SideTrue, 20)
	require.Error(t, err)
}
