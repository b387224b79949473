package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store/memstore"
)

func setupMarketWithPositions(t *testing.T, s *memstore.Store) (*models.Market, *models.User, *models.User, *models.User) {
	t.Helper()
	ctx := context.Background()

	submitter := &models.User{Pseudonym: "submitter", Available: 100, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, submitter))

	winner := &models.User{Pseudonym: "winner", Available: 100, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, winner))

	loser := &models.User{Pseudonym: "loser", Available: 100, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, loser))

	m := &models.Market{
		Text:          "resolves true",
		SubmitterID:   submitter.ID,
		Stake:         10,
		TotalBetTrue:  30,
		TotalBetFalse: 20,
		Status:        models.MarketStatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.CreateMarket(ctx, m))

	require.NoError(t, s.WithUserLock(ctx, winner.ID, func(u *models.User) error {
		u.Available -= 20
		u.Locked += 20
		return nil
	}))
	require.NoError(t, s.SavePosition(ctx, &models.Position{
		UserID: winner.ID, MarketID: m.ID, Side: models.SideTrue,
		Shares: 40, EntryPrice: 0.5, CostBasis: 20, Collateral: 20, Status: models.PositionStatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.WithUserLock(ctx, loser.ID, func(u *models.User) error {
		u.Available -= 20
		u.Locked += 20
		return nil
	}))
	require.NoError(t, s.SavePosition(ctx, &models.Position{
		UserID: loser.ID, MarketID: m.ID, Side: models.SideFalse,
		Shares: 25, EntryPrice: 0.5, CostBasis: 20, Collateral: 20, Status: models.PositionStatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.WithUserLock(ctx, submitter.ID, func(u *models.User) error {
		u.Available -= 10
		u.Locked += 10
		return nil
	}))

	return m, submitter, winner, loser
}

func TestSettleDistributesProRataPayout(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m, submitter, winner, loser := setupMarketWithPositions(t, s)

	e := New(s)
	result, err := e.Settle(ctx, m.ID, models.SideTrue)
	require.NoError(t, err)
	require.Equal(t, models.SideTrue, result.Resolution)
	require.Equal(t, 1, result.WinnerCount)
	require.Equal(t, 1, result.LoserCount)
	require.InDelta(t, 50.0, result.TotalPayouts, 1e-9) // all shares win -> entire pool
	require.InDelta(t, 20.0, result.SubmitterPayout, 1e-9)

	winnerUser, err := s.GetUser(ctx, winner.ID)
	require.NoError(t, err)
	require.InDelta(t, 80.0+50.0, winnerUser.Available, 1e-9)
	require.InDelta(t, 0.0, winnerUser.Locked, 1e-9)

	loserUser, err := s.GetUser(ctx, loser.ID)
	require.NoError(t, err)
	require.InDelta(t, 80.0, loserUser.Available, 1e-9)
	require.InDelta(t, 0.0, loserUser.Locked, 1e-9)
	require.InDelta(t, 20.0, loserUser.TotalLost, 1e-9)

	submitterUser, err := s.GetUser(ctx, submitter.ID)
	require.NoError(t, err)
	require.InDelta(t, 90.0+20.0, submitterUser.Available, 1e-9)

	resolvedMarket, err := s.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.MarketStatusResolvedTrue, resolvedMarket.Status)
}

func TestSettleRejectsAlreadyResolvedMarket(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m, _, _, _ := setupMarketWithPositions(t, s)

	e := New(s)
	_, err := e.Settle(ctx, m.ID, models.SideTrue)
	require.NoError(t, err)

	_, err = e.Settle(ctx, m.ID, models.SideTrue)
	require.Error(t, err)
}
