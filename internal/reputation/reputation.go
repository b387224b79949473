// Package reputation computes an oracle's track record from resolved
// reports. It is a pure read-side view: nothing here mutates the store.
package reputation

import (
	"context"

	"github.com/ccmarkets/engine/internal/models"
	"github.com/ccmarkets/engine/internal/store"
)

// DefaultReputation is assigned to oracles with no resolved reports yet.
const DefaultReputation = 0.6

// Score returns oracleID's correct/(correct+incorrect) ratio across
// resolved reports, defaulting to DefaultReputation with no track record.
func Score(ctx context.Context, s store.Store, oracleID string) (float64, error) {
	reports, err := s.ListOracleReportsByOracle(ctx, oracleID)
	if err != nil {
		return 0, err
	}
	var correct, incorrect int
	for _, r := range reports {
		switch r.Status {
		case models.ReportStatusCorrect:
			correct++
		case models.ReportStatusIncorrect:
			incorrect++
		}
	}
	total := correct + incorrect
	if total == 0 {
		return DefaultReputation, nil
	}
	return float64(correct) / float64(total), nil
}

// RewardMultiplier maps a reputation score to the payout multiplier applied
// on top of the base reward factor: higher-reputation oracles are trusted
// with a larger share of the settlement premium.
func RewardMultiplier(score float64) float64 {
	switch {
	case score > 0.8:
		return 2.0
	case score > 0.6:
		return 1.5
	default:
		return 1.2
	}
}

const BaseReward = 1.5
