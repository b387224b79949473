package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store/memstore"
)

func newUser(t *testing.T, s *memstore.Store, available float64) *models.User {
	t.Helper()
	u := &models.User{Pseudonym: "p", Available: available, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestSubmitLocksStakeAndSeedsPool(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	u := newUser(t, s, 50)

	r := New(s, nil)
	m, err := r.Submit(ctx, u.ID, "will it rain", "weather", 10)
	require.NoError(t, err)
	require.Equal(t, models.MarketStatusActive, m.Status)
	require.InDelta(t, 10.0, m.TotalBetTrue, 1e-9)
	require.InDelta(t, 10.0, m.TotalBetFalse, 1e-9)

	updated, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 40.0, updated.Available, 1e-9)
	require.InDelta(t, 10.0, updated.Locked, 1e-9)
}

func TestSubmitRejectsBelowMinStake(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	u := newUser(t, s, 50)
	r := New(s, nil)
	_, err := r.Submit(ctx, u.ID, "text", "cat", 1)
	require.Error(t, err)
}

func TestDeleteRefundsExactStake(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	u := newUser(t, s, 50)
	r := New(s, nil)
	m, err := r.Submit(ctx, u.ID, "text", "cat", 10)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, m.ID, u.ID))

	updated, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, updated.Available, 1e-9)
	require.InDelta(t, 0.0, updated.Locked, 1e-9)

	deleted, err := s.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.MarketStatusDeleted, deleted.Status)
}

func TestDeleteRejectsNonSubmitter(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	u := newUser(t, s, 50)
	other := newUser(t, s, 50)
	r := New(s, nil)
	m, err := r.Submit(ctx, u.ID, "text", "cat", 10)
	require.NoError(t, err)

	err = r.Delete(ctx, m.ID, other.ID)
	require.Error(t, err)
}

func TestDeleteRefundsOtherHoldersThenDeletes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	submitter := newUser(t, s, 50)
	other := newUser(t, s, 50)
	r := New(s, nil)
	m, err := r.Submit(ctx, submitter.ID, "text", "cat", 10)
	require.NoError(t, err)

	// Another trader takes a position against the submitter's claim.
	require.NoError(t, s.WithUserLock(ctx, other.ID, func(u *models.User) error {
		u.Available -= 15
		u.Locked += 15
		return nil
	}))
	require.NoError(t, s.SavePosition(ctx, &models.Position{
		UserID: other.ID, MarketID: m.ID, Side: models.SideFalse,
		Shares: 20, EntryPrice: 0.5, CostBasis: 15, Status: models.PositionStatusOpen,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}))

	require.NoError(t, r.Delete(ctx, m.ID, submitter.ID))

	refundedOther, err := s.GetUser(ctx, other.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, refundedOther.Available, 1e-9)
	require.InDelta(t, 0.0, refundedOther.Locked, 1e-9)

	refundedSubmitter, err := s.GetUser(ctx, submitter.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, refundedSubmitter.Available, 1e-9)
	require.InDelta(t, 0.0, refundedSubmitter.Locked, 1e-9)

	deleted, err := s.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.MarketStatusDeleted, deleted.Status)

	positions, err := s.ListPositionsByMarket(ctx, m.ID, models.PositionStatusDeleted)
	require.NoError(t, err)
	require.Len(t, positions, 1)
}
