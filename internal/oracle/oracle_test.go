package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/settlement"
	"github.com/ccmarkets/engine/internal/store/memstore"
)

func agedUser(t *testing.T, s *memstore.Store, available float64) *models.User {
	t.Helper()
	u := &models.User{
		Pseudonym: "oracle",
		Available: available,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newMarket(t *testing.T, s *memstore.Store, submitterID string) *models.Market {
	t.Helper()
	m := &models.Market{
		Text:          "resolves",
		SubmitterID:   submitterID,
		Stake:         10,
		TotalBetTrue:  30,
		TotalBetFalse: 20,
		Status:        models.MarketStatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.CreateMarket(context.Background(), m))
	return m
}

func TestSubmitReportRejectsBelowMinStake(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	submitter := agedUser(t, s, 100)
	m := newMarket(t, s, submitter.ID)
	o := agedUser(t, s, 100)

	e := New(s, settlement.New(s), "test-secret")
	_, _, err := e.SubmitReport(ctx, SubmitInput{OracleID: o.ID, MarketID: m.ID, Verdict: models.SideTrue, Stake: 10})
	require.Error(t, err)
}

func TestSubmitReportRejectsYoungAccount(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	submitter := agedUser(t, s, 100)
	m := newMarket(t, s, submitter.ID)

	young := &models.User{Pseudonym: "young", Available: 100, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, young))

	e := New(s, settlement.New(s), "test-secret")
	_, _, err := e.SubmitReport(ctx, SubmitInput{OracleID: young.ID, MarketID: m.ID, Verdict: models.SideTrue, Stake: 20})
	require.Error(t, err)
}

func TestSubmitReportRejectsDuplicateVote(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	submitter := agedUser(t, s, 100)
	m := newMarket(t, s, submitter.ID)
	o := agedUser(t, s, 100)

	e := New(s, settlement.New(s), "test-secret")
	_, _, err := e.SubmitReport(ctx, SubmitInput{OracleID: o.ID, MarketID: m.ID, Verdict: models.SideTrue, Stake: 20})
	require.NoError(t, err)

	_, _, err = e.SubmitReport(ctx, SubmitInput{OracleID: o.ID, MarketID: m.ID, Verdict: models.SideTrue, Stake: 20})
	require.Error(t, err)
}

func TestConsensusReachedSettlesAndPaysOracles(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	submitter := agedUser(t, s, 100)
	m := newMarket(t, s, submitter.ID)

	settlementEngine := settlement.New(s)
	e := New(s, settlementEngine, "test-secret")

	oracles := make([]*models.User, 3)
	for i := range oracles {
		oracles[i] = agedUser(t, s, 100)
	}

	var lastSettled bool
	for _, o := range oracles {
		_, settled, err := e.SubmitReport(ctx, SubmitInput{
			OracleID: o.ID,
			MarketID: m.ID,
			Verdict:  models.SideTrue,
			Stake:    20,
		})
		require.NoError(t, err)
		lastSettled = settled
	}
	require.True(t, lastSettled, "consensus should trigger on the third agreeing report")

	resolved, err := s.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.MarketStatusResolvedTrue, resolved.Status)

	for _, o := range oracles {
		u, err := s.GetUser(ctx, o.ID)
		require.NoError(t, err)
		// correct verdict: stake returned via reward credit, nothing left locked
		require.InDelta(t, 0.0, u.Locked, 1e-9)
		require.Greater(t, u.Available, 80.0) // got back more than the bare stake
	}

	reports, err := s.ListOracleReports(ctx, m.ID)
	require.NoError(t, err)
	for _, r := range reports {
		require.Equal(t, models.ReportStatusCorrect, r.Status)
	}
}
