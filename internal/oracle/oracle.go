// Package oracle implements decentralized, stake-and-reputation-weighted
// resolution: anyone may stake CC to report a verdict on an active market;
// once enough weighted reports agree, the market resolves and reporters are
// rewarded or slashed according to how their verdict compared to consensus.
package oracle

import (
	"context"
	"time"

	"github.com/ccmarkets/engine/internal/antisybil"
	"github.com/ccmarkets/engine/internal/apperr"
	"github.com/ccmarkets/engine/internal/ledger"
	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/reputation"
	"github.com/ccmarkets/engine/internal/settlement"
	"github.com/ccmarkets/engine/internal/store"
)

const (
	// MinOracleStake is the nominal floor any report must clear.
	MinOracleStake = 5.0
	// MinAnonOracleStake is the effective floor enforced on every report,
	// anonymous or not, as a deterrent against cheap Sybil swarms: the
	// original service re-checked this even after the nominal 5 CC check
	// passed, so it is the real minimum in practice.
	MinAnonOracleStake = 20.0

	// MinReportsForConsensus is the quorum required before weighted votes
	// are even evaluated.
	MinReportsForConsensus = 3

	ConsensusTrueThreshold  = 0.75
	ConsensusFalseThreshold = 0.25

	// MinAccountAge guards against freshly-created accounts farming oracle
	// rewards; the original service required at least an hour of account
	// history before a report would be accepted.
	MinAccountAge = time.Hour
)

// SubmitInput carries everything needed to validate and record one report.
type SubmitInput struct {
	OracleID string
	MarketID string
	Verdict  models.Side
	Evidence []string
	Stake    float64
	ClientIP string // raw IP; hashed immediately, never persisted raw
}

// Engine runs oracle report submission and consensus evaluation.
type Engine struct {
	store       store.Store
	settlement  *settlement.Engine
	rateLimiter *antisybil.RateLimiter
	ipSecret    string
}

func New(s store.Store, settlementEngine *settlement.Engine, ipSecret string) *Engine {
	return &Engine{
		store:       s,
		settlement:  settlementEngine,
		rateLimiter: antisybil.NewRateLimiter(s),
		ipSecret:    ipSecret,
	}
}

// SubmitReport validates and records a staked oracle report, then evaluates
// consensus. If consensus was just reached, the market is settled and
// reporters are paid out or slashed in the same call.
func (e *Engine) SubmitReport(ctx context.Context, in SubmitInput) (*models.OracleReport, bool, error) {
	if in.Verdict != models.SideTrue && in.Verdict != models.SideFalse {
		return nil, false, apperr.InvalidInput("verdict must be true or false")
	}

	m, err := e.store.GetMarket(ctx, in.MarketID)
	if err != nil {
		return nil, false, err
	}
	if !m.IsActive() {
		return nil, false, apperr.InvalidState("market %s is not active", in.MarketID)
	}
	halted, err := e.store.IsHalted(ctx, in.MarketID)
	if err != nil {
		return nil, false, err
	}
	if halted {
		return nil, false, apperr.InvalidState("trading is halted for market %s", in.MarketID)
	}

	oracleUser, err := e.store.GetUser(ctx, in.OracleID)
	if err != nil {
		return nil, false, err
	}
	if in.Stake > oracleUser.Available {
		return nil, false, apperr.InsufficientFunds("available balance %.2f is less than stake %.2f", oracleUser.Available, in.Stake)
	}
	if time.Since(oracleUser.CreatedAt) < MinAccountAge {
		return nil, false, apperr.InvalidState("account must be at least %s old to report", MinAccountAge)
	}

	if in.Stake < MinOracleStake {
		return nil, false, apperr.InvalidInput("stake must be at least %.2f CC", MinOracleStake)
	}
	if in.Stake < MinAnonOracleStake {
		return nil, false, apperr.InvalidInput("stake must be at least %.2f CC to deter Sybil reporting", MinAnonOracleStake)
	}

	if _, err := e.store.GetOracleReport(ctx, in.OracleID, in.MarketID); err == nil {
		return nil, false, apperr.DuplicateVote("oracle %s has already reported on market %s", in.OracleID, in.MarketID)
	}

	var ipHash string
	if in.ClientIP != "" {
		ipHash = antisybil.HashIP(e.ipSecret, in.ClientIP)
		allowed, err := e.rateLimiter.Allow(ctx, ipHash)
		if err != nil {
			return nil, false, err
		}
		if !allowed {
			return nil, false, apperr.RateLimited("too many oracle reports from this network in the last hour")
		}
	}

	if err := e.store.WithUserLock(ctx, in.OracleID, func(u *models.User) error {
		return ledger.Lock(u, in.Stake)
	}); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	report := &models.OracleReport{
		OracleID:  in.OracleID,
		MarketID:  in.MarketID,
		Verdict:   in.Verdict,
		Evidence:  in.Evidence,
		Stake:     in.Stake,
		Status:    models.ReportStatusPending,
		CreatedAt: now,
	}
	if err := e.store.SaveOracleReport(ctx, report); err != nil {
		return nil, false, err
	}
	if err := e.store.AppendVoteHistory(ctx, &models.OracleVoteHistory{
		OracleID:  in.OracleID,
		MarketID:  in.MarketID,
		IPHash:    ipHash,
		CreatedAt: now,
	}); err != nil {
		return nil, false, err
	}

	decided, triggered, err := e.CheckConsensus(ctx, in.MarketID)
	if err != nil {
		return report, false, err
	}
	if triggered {
		if _, err := e.settlement.Settle(ctx, in.MarketID, decided); err != nil {
			return report, false, err
		}
		if err := e.ApplyOraclePayouts(ctx, in.MarketID, decided); err != nil {
			return report, false, err
		}
		return report, true, nil
	}
	return report, false, nil
}

// CheckConsensus computes the stake×reputation-weighted score across all
// pending reports for marketID. It returns a resolved Side and triggered=true
// once the quorum and threshold are both met.
func (e *Engine) CheckConsensus(ctx context.Context, marketID string) (models.Side, bool, error) {
	reports, err := e.store.ListOracleReports(ctx, marketID)
	if err != nil {
		return "", false, err
	}
	pending := reports[:0]
	for _, r := range reports {
		if r.Status == models.ReportStatusPending {
			pending = append(pending, r)
		}
	}
	if len(pending) < MinReportsForConsensus {
		return "", false, nil
	}

	var totalWeight, trueWeight float64
	for _, r := range pending {
		rep, err := reputation.Score(ctx, e.store, r.OracleID)
		if err != nil {
			return "", false, err
		}
		weight := r.Stake * rep
		totalWeight += weight
		if r.Verdict == models.SideTrue {
			trueWeight += weight
		}
	}
	if totalWeight == 0 {
		return "", false, nil
	}
	score := trueWeight / totalWeight
	switch {
	case score >= ConsensusTrueThreshold:
		return models.SideTrue, true, nil
	case score <= ConsensusFalseThreshold:
		return models.SideFalse, true, nil
	default:
		return "", false, nil
	}
}

// ApplyOraclePayouts resolves every pending report for marketID once
// consensus has fired: reporters whose verdict matches the outcome are
// refunded their stake plus a reputation-weighted reward; reporters on the
// losing side forfeit their stake outright.
func (e *Engine) ApplyOraclePayouts(ctx context.Context, marketID string, outcome models.Side) error {
	reports, err := e.store.ListOracleReports(ctx, marketID)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.Status != models.ReportStatusPending {
			continue
		}
		rep, err := reputation.Score(ctx, e.store, r.OracleID)
		if err != nil {
			return err
		}
		correct := r.Verdict == outcome

		if err := e.store.WithUserLock(ctx, r.OracleID, func(u *models.User) error {
			if correct {
				if err := ledger.ReleaseLocked(u, r.Stake); err != nil {
					return err
				}
				multiplier := reputation.BaseReward * reputation.RewardMultiplier(rep)
				return ledger.Credit(u, r.Stake*multiplier)
			}
			return ledger.DebitFromLocked(u, r.Stake)
		}); err != nil {
			return err
		}

		if correct {
			r.Status = models.ReportStatusCorrect
		} else {
			r.Status = models.ReportStatusIncorrect
		}
		if err := e.store.SaveOracleReport(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
